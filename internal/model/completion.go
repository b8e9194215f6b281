package model

import (
	"time"
)

// DateLayout is the calendar-day key used for completions.
const DateLayout = "2006-01-02"

// Completion records a habit being done on one calendar day. EnergyGained is
// captured at completion time and never recomputed from the habit.
type Completion struct {
	ID           string    `db:"id" json:"id"`
	HabitID      string    `db:"habit_id" json:"habit_id"`
	UserID       string    `db:"user_id" json:"-"`
	RewardID     *string   `db:"reward_id" json:"reward_id,omitempty"`
	CompletedOn  string    `db:"completed_on" json:"completed_on"`
	EnergyGained int       `db:"energy_gained" json:"energy_gained"`
	Notes        string    `db:"notes" json:"notes,omitempty"`
	CompletedAt  time.Time `db:"completed_at" json:"completed_at"`
}

// Day formats t as a completion day key in loc.
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
