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
	ErrRewardNotFound = errors.New("reward not found")
)

type RewardRepository interface {
	Create(ctx context.Context, reward *model.Reward) error
	ByID(ctx context.Context, userID, rewardID string) (*model.Reward, error)
	Rewards(ctx context.Context, userID string) ([]*model.Reward, error)
	Update(ctx context.Context, reward *model.Reward) error
	// UpdateEnergyIf writes next only while current_energy still equals prev.
	UpdateEnergyIf(ctx context.Context, userID, rewardID string, prev, next int) error
	MarkRedeemed(ctx context.Context, userID, rewardID string, at time.Time) error
	Delete(ctx context.Context, userID, rewardID string) error
}

type rewardRepository struct {
	db *sqlx.DB
}

func NewRewardRepository(db *sqlx.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) Create(ctx context.Context, reward *model.Reward) error {
	query := `INSERT INTO rewards (id, user_id, name, description, energy_cost, current_energy, is_redeemed, redeemed_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		reward.ID,
		reward.UserID,
		reward.Name,
		reward.Description,
		reward.EnergyCost,
		reward.CurrentEnergy,
		reward.IsRedeemed,
		reward.RedeemedAt,
		reward.CreatedAt,
		reward.UpdatedAt,
	)

	return err
}

func (r *rewardRepository) ByID(ctx context.Context, userID, rewardID string) (*model.Reward, error) {
	reward := &model.Reward{}
	query := `SELECT * FROM rewards WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, reward, query, rewardID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, err
	}

	return reward, nil
}

func (r *rewardRepository) Rewards(ctx context.Context, userID string) ([]*model.Reward, error) {
	var rewards []*model.Reward
	query := `SELECT * FROM rewards WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &rewards, query, userID)
	if err != nil {
		return nil, err
	}

	return rewards, nil
}

// Update edits the descriptive fields only. Energy and redemption have their own writes.
func (r *rewardRepository) Update(ctx context.Context, reward *model.Reward) error {
	query := `UPDATE rewards
	          SET name = $1, description = $2, energy_cost = $3, updated_at = $4
	          WHERE id = $5 AND user_id = $6`

	reward.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		reward.Name,
		reward.Description,
		reward.EnergyCost,
		reward.UpdatedAt,
		reward.ID,
		reward.UserID,
	)
	if err != nil {
		return err
	}

	return requireRows(result, ErrRewardNotFound)
}

func (r *rewardRepository) UpdateEnergyIf(ctx context.Context, userID, rewardID string, prev, next int) error {
	query := `UPDATE rewards
	          SET current_energy = $1, updated_at = $2
	          WHERE id = $3 AND user_id = $4 AND current_energy = $5`

	result, err := r.db.ExecContext(ctx, query, next, time.Now().UTC(), rewardID, userID, prev)
	if err != nil {
		return err
	}

	return requireRows(result, ErrConflict)
}

// MarkRedeemed flips is_redeemed once; a second call reports ErrConflict.
func (r *rewardRepository) MarkRedeemed(ctx context.Context, userID, rewardID string, at time.Time) error {
	query := `UPDATE rewards
	          SET is_redeemed = TRUE, redeemed_at = $1, updated_at = $2
	          WHERE id = $3 AND user_id = $4 AND is_redeemed = FALSE`

	result, err := r.db.ExecContext(ctx, query, at, time.Now().UTC(), rewardID, userID)
	if err != nil {
		return err
	}

	return requireRows(result, ErrConflict)
}

func (r *rewardRepository) Delete(ctx context.Context, userID, rewardID string) error {
	query := `DELETE FROM rewards WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, rewardID, userID)
	if err != nil {
		return err
	}

	return requireRows(result, ErrRewardNotFound)
}
