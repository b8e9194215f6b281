package model

import (
	"time"
)

type Reward struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"-"`
	Name          string     `db:"name" json:"name"`
	Description   string     `db:"description" json:"description,omitempty"`
	EnergyCost    int        `db:"energy_cost" json:"energy_cost"`
	CurrentEnergy int        `db:"current_energy" json:"current_energy"`
	IsRedeemed    bool       `db:"is_redeemed" json:"is_redeemed"`
	RedeemedAt    *time.Time `db:"redeemed_at" json:"redeemed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// CanRedeem reports whether enough energy has accumulated to cross the cost threshold.
func (r *Reward) CanRedeem() bool {
	return !r.IsRedeemed && r.CurrentEnergy >= r.EnergyCost
}

// Progress returns accumulated energy as a fraction of the cost, capped at 1.
func (r *Reward) Progress() float64 {
	if r.EnergyCost <= 0 {
		return 1
	}
	p := float64(r.CurrentEnergy) / float64(r.EnergyCost)
	if p > 1 {
		return 1
	}
	return p
}
