package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/templui/habitflywheel/internal/db/dbtest"
	"github.com/templui/habitflywheel/internal/model"
)

func setup(t *testing.T) (*sqlx.DB, string) {
	t.Helper()
	database := dbtest.New(t)

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, NewUserRepository(database).Create(context.Background(), user))
	return database, user.ID
}

func newHabit(userID, name string, energy int) *model.Habit {
	now := time.Now().UTC()
	return &model.Habit{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		EnergyValue: energy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newReward(userID, name string, cost, current int) *model.Reward {
	now := time.Now().UTC()
	return &model.Reward{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          name,
		EnergyCost:    cost,
		CurrentEnergy: current,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newCompletion(userID, habitID, day string, energy int) *model.Completion {
	return &model.Completion{
		ID:           uuid.New().String(),
		HabitID:      habitID,
		UserID:       userID,
		CompletedOn:  day,
		EnergyGained: energy,
		CompletedAt:  time.Now().UTC(),
	}
}
