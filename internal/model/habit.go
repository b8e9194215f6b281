package model

import (
	"time"
)

type Habit struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"-"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description,omitempty"`
	EnergyValue   int       `db:"energy_value" json:"energy_value"`
	Color         string    `db:"color" json:"color,omitempty"`
	BoundRewardID *string   `db:"bound_reward_id" json:"bound_reward_id,omitempty"`
	IsArchived    bool      `db:"is_archived" json:"is_archived"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

func (h *Habit) IsBound() bool {
	return h.BoundRewardID != nil && *h.BoundRewardID != ""
}
