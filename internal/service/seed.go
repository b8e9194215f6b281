package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/repository"
)

type demoReward struct {
	name, description string
	cost, energy      int
}

type demoHabit struct {
	name, description, color string
	energy                   int
	reward                   string
}

var (
	demoRewards = []demoReward{
		{name: "Phone", description: "A new phone", cost: 1000, energy: 120},
		{name: "Subscription", description: "One month of a streaming service", cost: 200, energy: 60},
	}
	demoHabits = []demoHabit{
		{name: "Read", description: "Read for 20 minutes", color: "#3b82f6", energy: 10, reward: "Phone"},
		{name: "Exercise", description: "Move for 30 minutes", color: "#22c55e", energy: 20, reward: "Subscription"},
		{name: "Coding", description: "Work on a side project", color: "#a855f7", energy: 30, reward: "Phone"},
	}
)

// Seeder fills an empty account with demo habits and rewards.
type Seeder struct {
	habitRepo  repository.HabitRepository
	rewardRepo repository.RewardRepository
}

func NewSeeder(habitRepo repository.HabitRepository, rewardRepo repository.RewardRepository) *Seeder {
	return &Seeder{habitRepo: habitRepo, rewardRepo: rewardRepo}
}

// SeedDemoData does nothing when the user already owns habits or rewards.
func (s *Seeder) SeedDemoData(ctx context.Context, userID string) error {
	habits, err := s.habitRepo.Habits(ctx, userID, true)
	if err != nil {
		return err
	}
	rewards, err := s.rewardRepo.Rewards(ctx, userID)
	if err != nil {
		return err
	}
	if len(habits) > 0 || len(rewards) > 0 {
		return nil
	}

	now := time.Now().UTC()
	rewardIDs := make(map[string]string, len(demoRewards))
	for _, d := range demoRewards {
		reward := &model.Reward{
			ID:            uuid.New().String(),
			UserID:        userID,
			Name:          d.name,
			Description:   d.description,
			EnergyCost:    d.cost,
			CurrentEnergy: d.energy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = s.rewardRepo.Create(ctx, reward)
		if err != nil {
			return fmt.Errorf("failed to seed reward %s: %w", d.name, err)
		}
		rewardIDs[d.name] = reward.ID
	}

	for _, d := range demoHabits {
		rewardID := rewardIDs[d.reward]
		habit := &model.Habit{
			ID:            uuid.New().String(),
			UserID:        userID,
			Name:          d.name,
			Description:   d.description,
			EnergyValue:   d.energy,
			Color:         d.color,
			BoundRewardID: &rewardID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err = s.habitRepo.Create(ctx, habit)
		if err != nil {
			return fmt.Errorf("failed to seed habit %s: %w", d.name, err)
		}
	}

	slog.Info("seeded demo data", "user_id", userID, "habits", len(demoHabits), "rewards", len(demoRewards))
	return nil
}
