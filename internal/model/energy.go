package model

import (
	"time"
)

// UserEnergyTotal is the running sum of all energy a user has gained. It is a
// secondary index over completions, not a source of truth.
type UserEnergyTotal struct {
	UserID      string    `db:"user_id" json:"-"`
	TotalEnergy int       `db:"total_energy" json:"total_energy"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
