package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/validation"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrRewardRedeemed = errors.New("reward already redeemed")
)

type HabitInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	EnergyValue int    `json:"energy_value"`
	Color       string `json:"color"`
}

func (in HabitInput) validate() error {
	if err := validation.ValidateName(in.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := validation.ValidateEnergyValue(in.EnergyValue); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := validation.ValidateColor(in.Color); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

type HabitService struct {
	repo           repository.HabitRepository
	rewardRepo     repository.RewardRepository
	completionRepo repository.CompletionRepository
}

func NewHabitService(
	repo repository.HabitRepository,
	rewardRepo repository.RewardRepository,
	completionRepo repository.CompletionRepository,
) *HabitService {
	return &HabitService{
		repo:           repo,
		rewardRepo:     rewardRepo,
		completionRepo: completionRepo,
	}
}

func (s *HabitService) Create(ctx context.Context, userID string, in HabitInput) (*model.Habit, error) {
	err := in.validate()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	habit := &model.Habit{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		EnergyValue: in.EnergyValue,
		Color:       in.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.repo.Create(ctx, habit)
	if err != nil {
		return nil, fmt.Errorf("failed to create habit: %w", err)
	}

	return habit, nil
}

func (s *HabitService) ByID(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	return s.repo.ByID(ctx, userID, habitID)
}

func (s *HabitService) Habits(ctx context.Context, userID string, includeArchived bool) ([]*model.Habit, error) {
	return s.repo.Habits(ctx, userID, includeArchived)
}

// BoundTo lists the active habits feeding energy into rewardID.
func (s *HabitService) BoundTo(ctx context.Context, userID, rewardID string) ([]*model.Habit, error) {
	habits, err := s.repo.Habits(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	var bound []*model.Habit
	for _, h := range habits {
		if h.IsBound() && *h.BoundRewardID == rewardID {
			bound = append(bound, h)
		}
	}
	return bound, nil
}

// Update edits the habit. Completions already recorded keep the energy they
// captured.
func (s *HabitService) Update(ctx context.Context, userID, habitID string, in HabitInput) (*model.Habit, error) {
	err := in.validate()
	if err != nil {
		return nil, err
	}

	// Verify ownership
	habit, err := s.repo.ByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	habit.Name = strings.TrimSpace(in.Name)
	habit.Description = strings.TrimSpace(in.Description)
	habit.EnergyValue = in.EnergyValue
	habit.Color = in.Color

	err = s.repo.Update(ctx, habit)
	if err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) SetArchived(ctx context.Context, userID, habitID string, archived bool) (*model.Habit, error) {
	habit, err := s.repo.ByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	if habit.IsArchived == archived {
		return habit, nil
	}

	habit.IsArchived = archived
	err = s.repo.Update(ctx, habit)
	if err != nil {
		return nil, err
	}

	return habit, nil
}

// Delete removes the habit together with its completions.
func (s *HabitService) Delete(ctx context.Context, userID, habitID string) error {
	return s.repo.Delete(ctx, userID, habitID)
}

// Bind points the habit at rewardID. Future completions feed that reward;
// past ones stay with whatever they were recorded against.
func (s *HabitService) Bind(ctx context.Context, userID, habitID, rewardID string) (*model.Habit, error) {
	habit, err := s.repo.ByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if habit.IsArchived {
		return nil, ErrHabitArchived
	}

	reward, err := s.rewardRepo.ByID(ctx, userID, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.IsRedeemed {
		return nil, ErrRewardRedeemed
	}

	err = s.repo.SetBinding(ctx, userID, habitID, &reward.ID)
	if err != nil {
		return nil, err
	}

	habit.BoundRewardID = &reward.ID
	return habit, nil
}

func (s *HabitService) Unbind(ctx context.Context, userID, habitID string) (*model.Habit, error) {
	habit, err := s.repo.ByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	err = s.repo.SetBinding(ctx, userID, habitID, nil)
	if err != nil {
		return nil, err
	}

	habit.BoundRewardID = nil
	return habit, nil
}

func (s *HabitService) Stats(ctx context.Context, userID, habitID string) (*model.HabitStats, error) {
	// Verify ownership
	_, err := s.repo.ByID(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	completions, err := s.completionRepo.Completions(ctx, userID, repository.CompletionFilter{HabitID: habitID})
	if err != nil {
		return nil, err
	}

	stats := HabitStats(habitID, completions)
	return &stats, nil
}
