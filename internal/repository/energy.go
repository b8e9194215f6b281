package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/habitflywheel/internal/model"
)

var (
	ErrEnergyTotalNotFound = errors.New("energy total not found")
)

type EnergyTotalRepository interface {
	ByUser(ctx context.Context, userID string) (*model.UserEnergyTotal, error)
	// Create inserts the first total for a user. A concurrent insert reports ErrConflict.
	Create(ctx context.Context, total *model.UserEnergyTotal) error
	// UpdateIf writes next only while total_energy still equals prev.
	UpdateIf(ctx context.Context, userID string, prev, next int) error
}

type energyTotalRepository struct {
	db *sqlx.DB
}

func NewEnergyTotalRepository(db *sqlx.DB) EnergyTotalRepository {
	return &energyTotalRepository{db: db}
}

func (r *energyTotalRepository) ByUser(ctx context.Context, userID string) (*model.UserEnergyTotal, error) {
	total := &model.UserEnergyTotal{}
	query := `SELECT * FROM user_energy_totals WHERE user_id = $1`

	err := r.db.GetContext(ctx, total, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEnergyTotalNotFound
	}
	if err != nil {
		return nil, err
	}

	return total, nil
}

func (r *energyTotalRepository) Create(ctx context.Context, total *model.UserEnergyTotal) error {
	query := `INSERT INTO user_energy_totals (user_id, total_energy, updated_at) VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, total.UserID, total.TotalEnergy, total.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}

	return err
}

func (r *energyTotalRepository) UpdateIf(ctx context.Context, userID string, prev, next int) error {
	query := `UPDATE user_energy_totals SET total_energy = $1, updated_at = $2 WHERE user_id = $3 AND total_energy = $4`

	result, err := r.db.ExecContext(ctx, query, next, time.Now().UTC(), userID, prev)
	if err != nil {
		return err
	}

	return requireRows(result, ErrConflict)
}
