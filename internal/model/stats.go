package model

import (
	"time"
)

type HabitStats struct {
	HabitID          string     `json:"habit_id"`
	TotalCompletions int        `json:"total_completions"`
	TotalEnergy      int        `json:"total_energy"`
	LastCompleted    *time.Time `json:"last_completed,omitempty"`
}

type DayStats struct {
	Date        string `json:"date"`
	Completions int    `json:"completions"`
	Energy      int    `json:"energy"`
}

type History struct {
	Range            TimeRange             `json:"range"`
	HabitID          string                `json:"habit_id,omitempty"`
	TotalCompletions int                   `json:"total_completions"`
	TotalEnergy      int                   `json:"total_energy"`
	UniqueDays       int                   `json:"unique_days"`
	Daily            []DayStats            `json:"daily"`
	PerHabit         map[string]HabitStats `json:"per_habit"`
	RecentDays       []DayStats            `json:"recent_days"`
	Completions      []Completion          `json:"completions"`
}

type TodaySummary struct {
	Date              string   `json:"date"`
	ActiveHabits      int      `json:"active_habits"`
	CompletedHabits   int      `json:"completed_habits"`
	EnergyToday       int      `json:"energy_today"`
	CompletedHabitIDs []string `json:"completed_habit_ids"`
}
