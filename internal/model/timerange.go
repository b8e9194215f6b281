package model

import (
	"fmt"
	"time"
)

// TimeRange is the coarse window used by the history view.
type TimeRange string

const (
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeAll   TimeRange = "all"
)

func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case RangeWeek, RangeMonth, RangeAll:
		return TimeRange(s), nil
	case "":
		return RangeWeek, nil
	default:
		return "", fmt.Errorf("unknown time range %q", s)
	}
}

// Since returns the first day key included in the range, or "" for RangeAll.
func (r TimeRange) Since(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	switch r {
	case RangeWeek:
		return local.AddDate(0, 0, -7).Format(DateLayout)
	case RangeMonth:
		return local.AddDate(0, 0, -30).Format(DateLayout)
	default:
		return ""
	}
}

// Adjacent lists the ranges worth prefetching while r is on screen.
func (r TimeRange) Adjacent() []TimeRange {
	switch r {
	case RangeWeek, RangeAll:
		return []TimeRange{RangeMonth}
	default:
		return nil
	}
}
