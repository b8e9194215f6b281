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
	ErrInsufficientEnergy = errors.New("not enough energy to redeem reward")
)

type RewardInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	EnergyCost  int    `json:"energy_cost"`
}

func (in RewardInput) validate() error {
	if err := validation.ValidateName(in.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := validation.ValidateEnergyCost(in.EnergyCost); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

type RewardService struct {
	repo      repository.RewardRepository
	habitRepo repository.HabitRepository
	now       func() time.Time
}

func NewRewardService(repo repository.RewardRepository, habitRepo repository.HabitRepository) *RewardService {
	return &RewardService{
		repo:      repo,
		habitRepo: habitRepo,
		now:       time.Now,
	}
}

// Create adds a reward with no accumulated energy.
func (s *RewardService) Create(ctx context.Context, userID string, in RewardInput) (*model.Reward, error) {
	err := in.validate()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	reward := &model.Reward{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		EnergyCost:  in.EnergyCost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.repo.Create(ctx, reward)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return reward, nil
}

func (s *RewardService) ByID(ctx context.Context, userID, rewardID string) (*model.Reward, error) {
	return s.repo.ByID(ctx, userID, rewardID)
}

func (s *RewardService) Rewards(ctx context.Context, userID string) ([]*model.Reward, error) {
	return s.repo.Rewards(ctx, userID)
}

func (s *RewardService) Update(ctx context.Context, userID, rewardID string, in RewardInput) (*model.Reward, error) {
	err := in.validate()
	if err != nil {
		return nil, err
	}

	// Verify ownership
	reward, err := s.repo.ByID(ctx, userID, rewardID)
	if err != nil {
		return nil, err
	}

	reward.Name = strings.TrimSpace(in.Name)
	reward.Description = strings.TrimSpace(in.Description)
	reward.EnergyCost = in.EnergyCost

	err = s.repo.Update(ctx, reward)
	if err != nil {
		return nil, err
	}

	return reward, nil
}

// Delete unbinds every habit pointing at the reward and removes it.
func (s *RewardService) Delete(ctx context.Context, userID, rewardID string) error {
	// Verify ownership
	_, err := s.repo.ByID(ctx, userID, rewardID)
	if err != nil {
		return err
	}

	err = s.habitRepo.UnbindReward(ctx, userID, rewardID)
	if err != nil {
		return fmt.Errorf("failed to unbind habits: %w", err)
	}

	return s.repo.Delete(ctx, userID, rewardID)
}

// Redeem marks the reward redeemed once its energy has reached the cost.
// Redemption is terminal.
func (s *RewardService) Redeem(ctx context.Context, userID, rewardID string, at time.Time) (*model.Reward, error) {
	reward, err := s.repo.ByID(ctx, userID, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.IsRedeemed {
		return nil, ErrRewardRedeemed
	}
	if reward.CurrentEnergy < reward.EnergyCost {
		return nil, ErrInsufficientEnergy
	}

	at = at.UTC()
	err = s.repo.MarkRedeemed(ctx, userID, rewardID, at)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrRewardRedeemed
	}
	if err != nil {
		return nil, err
	}

	reward.IsRedeemed = true
	reward.RedeemedAt = &at
	return reward, nil
}
