package model

import (
	"time"
)

// Export is a full copy of one user's data.
type Export struct {
	ExportedAt  time.Time     `json:"exported_at"`
	TotalEnergy int           `json:"total_energy"`
	Habits      []*Habit      `json:"habits"`
	Rewards     []*Reward     `json:"rewards"`
	Completions []*Completion `json:"completions"`
}

// ExportArchive points at an export saved to object storage.
type ExportArchive struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
