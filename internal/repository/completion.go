package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/templui/habitflywheel/internal/model"
)

var (
	ErrCompletionNotFound  = errors.New("completion not found")
	ErrDuplicateCompletion = errors.New("habit already completed on this day")
)

// CompletionFilter narrows a completion query. Empty fields are unbounded.
type CompletionFilter struct {
	HabitID string
	From    string // inclusive day key
	To      string // inclusive day key
}

type CompletionRepository interface {
	Create(ctx context.Context, completion *model.Completion) error
	ByHabitAndDay(ctx context.Context, userID, habitID, day string) (*model.Completion, error)
	Completions(ctx context.Context, userID string, filter CompletionFilter) ([]*model.Completion, error)
	DeleteByHabitAndDay(ctx context.Context, userID, habitID, day string) error
}

type completionRepository struct {
	db *sqlx.DB
}

func NewCompletionRepository(db *sqlx.DB) CompletionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) Create(ctx context.Context, completion *model.Completion) error {
	query := `INSERT INTO habit_completions (id, habit_id, user_id, reward_id, completed_on, energy_gained, notes, completed_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		completion.ID,
		completion.HabitID,
		completion.UserID,
		completion.RewardID,
		completion.CompletedOn,
		completion.EnergyGained,
		completion.Notes,
		completion.CompletedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateCompletion
	}

	return err
}

func (r *completionRepository) ByHabitAndDay(ctx context.Context, userID, habitID, day string) (*model.Completion, error) {
	completion := &model.Completion{}
	query := `SELECT * FROM habit_completions WHERE user_id = $1 AND habit_id = $2 AND completed_on = $3`

	err := r.db.GetContext(ctx, completion, query, userID, habitID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCompletionNotFound
	}
	if err != nil {
		return nil, err
	}

	return completion, nil
}

func (r *completionRepository) Completions(ctx context.Context, userID string, filter CompletionFilter) ([]*model.Completion, error) {
	var completions []*model.Completion

	query := `SELECT * FROM habit_completions WHERE user_id = $1`
	args := []any{userID}

	if filter.HabitID != "" {
		args = append(args, filter.HabitID)
		query += fmt.Sprintf(" AND habit_id = $%d", len(args))
	}
	if filter.From != "" {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND completed_on >= $%d", len(args))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND completed_on <= $%d", len(args))
	}
	query += ` ORDER BY completed_on DESC, completed_at DESC`

	err := r.db.SelectContext(ctx, &completions, query, args...)
	if err != nil {
		return nil, err
	}

	return completions, nil
}

func (r *completionRepository) DeleteByHabitAndDay(ctx context.Context, userID, habitID, day string) error {
	query := `DELETE FROM habit_completions WHERE user_id = $1 AND habit_id = $2 AND completed_on = $3`
	result, err := r.db.ExecContext(ctx, query, userID, habitID, day)
	if err != nil {
		return err
	}

	return requireRows(result, ErrCompletionNotFound)
}
