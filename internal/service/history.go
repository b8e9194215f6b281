package service

import (
	"sort"
	"time"

	"github.com/templui/habitflywheel/internal/model"
)

const trendDays = 7

// HabitStats aggregates one habit's completions.
func HabitStats(habitID string, completions []*model.Completion) model.HabitStats {
	stats := model.HabitStats{HabitID: habitID}
	for _, c := range completions {
		if c.HabitID != habitID {
			continue
		}
		stats.TotalCompletions++
		stats.TotalEnergy += c.EnergyGained
		if stats.LastCompleted == nil || c.CompletedAt.After(*stats.LastCompleted) {
			at := c.CompletedAt
			stats.LastCompleted = &at
		}
	}
	return stats
}

// BuildHistory summarizes completions already fetched for r. habitID narrows
// the summary to one habit when set. RecentDays always covers the last seven
// days ending today, zero-filled.
func BuildHistory(r model.TimeRange, habitID string, completions []model.Completion, now time.Time, loc *time.Location) *model.History {
	since := r.Since(now, loc)

	h := &model.History{
		Range:       r,
		HabitID:     habitID,
		PerHabit:    make(map[string]model.HabitStats),
		Daily:       []model.DayStats{},
		Completions: []model.Completion{},
	}

	byDay := make(map[string]*model.DayStats)
	for _, c := range completions {
		if habitID != "" && c.HabitID != habitID {
			continue
		}
		if since != "" && c.CompletedOn < since {
			continue
		}

		h.Completions = append(h.Completions, c)
		h.TotalCompletions++
		h.TotalEnergy += c.EnergyGained

		day, ok := byDay[c.CompletedOn]
		if !ok {
			day = &model.DayStats{Date: c.CompletedOn}
			byDay[c.CompletedOn] = day
		}
		day.Completions++
		day.Energy += c.EnergyGained

		stats := h.PerHabit[c.HabitID]
		stats.HabitID = c.HabitID
		stats.TotalCompletions++
		stats.TotalEnergy += c.EnergyGained
		if stats.LastCompleted == nil || c.CompletedAt.After(*stats.LastCompleted) {
			at := c.CompletedAt
			stats.LastCompleted = &at
		}
		h.PerHabit[c.HabitID] = stats
	}

	h.UniqueDays = len(byDay)
	for _, day := range byDay {
		h.Daily = append(h.Daily, *day)
	}
	sort.Slice(h.Daily, func(i, j int) bool { return h.Daily[i].Date < h.Daily[j].Date })

	sort.SliceStable(h.Completions, func(i, j int) bool {
		if h.Completions[i].CompletedOn == h.Completions[j].CompletedOn {
			return h.Completions[i].CompletedAt.After(h.Completions[j].CompletedAt)
		}
		return h.Completions[i].CompletedOn > h.Completions[j].CompletedOn
	})

	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	h.RecentDays = make([]model.DayStats, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		key := local.AddDate(0, 0, -i).Format(model.DateLayout)
		if day, ok := byDay[key]; ok {
			h.RecentDays = append(h.RecentDays, *day)
			continue
		}
		h.RecentDays = append(h.RecentDays, model.DayStats{Date: key})
	}

	return h
}

// Summarize reports today's progress across the active habits.
func Summarize(today string, habits []*model.Habit, completedToday []string, completions []model.Completion) *model.TodaySummary {
	active := make(map[string]bool, len(habits))
	for _, h := range habits {
		if !h.IsArchived {
			active[h.ID] = true
		}
	}

	summary := &model.TodaySummary{
		Date:              today,
		ActiveHabits:      len(active),
		CompletedHabitIDs: []string{},
	}
	for _, id := range completedToday {
		if active[id] {
			summary.CompletedHabitIDs = append(summary.CompletedHabitIDs, id)
		}
	}
	summary.CompletedHabits = len(summary.CompletedHabitIDs)

	for _, c := range completions {
		if c.CompletedOn == today {
			summary.EnergyToday += c.EnergyGained
		}
	}

	return summary
}
