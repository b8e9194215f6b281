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
	ErrHabitNotFound = errors.New("habit not found")
)

type HabitRepository interface {
	Create(ctx context.Context, habit *model.Habit) error
	ByID(ctx context.Context, userID, habitID string) (*model.Habit, error)
	Habits(ctx context.Context, userID string, includeArchived bool) ([]*model.Habit, error)
	Update(ctx context.Context, habit *model.Habit) error
	SetBinding(ctx context.Context, userID, habitID string, rewardID *string) error
	UnbindReward(ctx context.Context, userID, rewardID string) error
	Delete(ctx context.Context, userID, habitID string) error
}

type habitRepository struct {
	db *sqlx.DB
}

func NewHabitRepository(db *sqlx.DB) HabitRepository {
	return &habitRepository{db: db}
}

func (r *habitRepository) Create(ctx context.Context, habit *model.Habit) error {
	query := `INSERT INTO habits (id, user_id, name, description, energy_value, color, bound_reward_id, is_archived, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		habit.ID,
		habit.UserID,
		habit.Name,
		habit.Description,
		habit.EnergyValue,
		habit.Color,
		habit.BoundRewardID,
		habit.IsArchived,
		habit.CreatedAt,
		habit.UpdatedAt,
	)

	return err
}

func (r *habitRepository) ByID(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	habit := &model.Habit{}
	query := `SELECT * FROM habits WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, habit, query, habitID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHabitNotFound
	}
	if err != nil {
		return nil, err
	}

	return habit, nil
}

func (r *habitRepository) Habits(ctx context.Context, userID string, includeArchived bool) ([]*model.Habit, error) {
	var habits []*model.Habit

	query := `SELECT * FROM habits WHERE user_id = $1`
	if !includeArchived {
		query += ` AND is_archived = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &habits, query, userID)
	if err != nil {
		return nil, err
	}

	return habits, nil
}

func (r *habitRepository) Update(ctx context.Context, habit *model.Habit) error {
	query := `UPDATE habits
	          SET name = $1, description = $2, energy_value = $3, color = $4, is_archived = $5, updated_at = $6
	          WHERE id = $7 AND user_id = $8`

	habit.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		habit.Name,
		habit.Description,
		habit.EnergyValue,
		habit.Color,
		habit.IsArchived,
		habit.UpdatedAt,
		habit.ID,
		habit.UserID,
	)
	if err != nil {
		return err
	}

	return requireRows(result, ErrHabitNotFound)
}

func (r *habitRepository) SetBinding(ctx context.Context, userID, habitID string, rewardID *string) error {
	query := `UPDATE habits SET bound_reward_id = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`

	result, err := r.db.ExecContext(ctx, query, rewardID, time.Now().UTC(), habitID, userID)
	if err != nil {
		return err
	}

	return requireRows(result, ErrHabitNotFound)
}

// UnbindReward clears the binding on every habit pointing at rewardID.
func (r *habitRepository) UnbindReward(ctx context.Context, userID, rewardID string) error {
	query := `UPDATE habits SET bound_reward_id = NULL, updated_at = $1 WHERE user_id = $2 AND bound_reward_id = $3`

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID, rewardID)
	return err
}

// Delete removes the habit; its completions go with it via ON DELETE CASCADE.
func (r *habitRepository) Delete(ctx context.Context, userID, habitID string) error {
	query := `DELETE FROM habits WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, habitID, userID)
	if err != nil {
		return err
	}

	return requireRows(result, ErrHabitNotFound)
}

func requireRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
