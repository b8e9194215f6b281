package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/habitflywheel/internal/model"
)

func TestHabitRepository_CRUD(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	repo := NewHabitRepository(database)

	habit := newHabit(userID, "Read", 10)
	require.NoError(t, repo.Create(ctx, habit))

	got, err := repo.ByID(ctx, userID, habit.ID)
	require.NoError(t, err)
	assert.Equal(t, "Read", got.Name)
	assert.Equal(t, 10, got.EnergyValue)
	assert.False(t, got.IsArchived)
	assert.Nil(t, got.BoundRewardID)

	got.Name = "Read more"
	got.IsArchived = true
	require.NoError(t, repo.Update(ctx, got))

	active, err := repo.Habits(ctx, userID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.Habits(ctx, userID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Read more", all[0].Name)

	require.NoError(t, repo.Delete(ctx, userID, habit.ID))
	_, err = repo.ByID(ctx, userID, habit.ID)
	assert.ErrorIs(t, err, ErrHabitNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, userID, habit.ID), ErrHabitNotFound)
}

func TestHabitRepository_OtherUserCannotRead(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	repo := NewHabitRepository(database)

	habit := newHabit(userID, "Read", 10)
	require.NoError(t, repo.Create(ctx, habit))

	_, err := repo.ByID(ctx, uuid.New().String(), habit.ID)
	assert.ErrorIs(t, err, ErrHabitNotFound)
}

func TestHabitRepository_Binding(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	habits := NewHabitRepository(database)
	rewards := NewRewardRepository(database)

	reward := newReward(userID, "Phone", 1000, 120)
	require.NoError(t, rewards.Create(ctx, reward))
	habit := newHabit(userID, "Read", 10)
	require.NoError(t, habits.Create(ctx, habit))

	require.NoError(t, habits.SetBinding(ctx, userID, habit.ID, &reward.ID))
	got, err := habits.ByID(ctx, userID, habit.ID)
	require.NoError(t, err)
	require.True(t, got.IsBound())
	assert.Equal(t, reward.ID, *got.BoundRewardID)

	require.NoError(t, habits.UnbindReward(ctx, userID, reward.ID))
	got, err = habits.ByID(ctx, userID, habit.ID)
	require.NoError(t, err)
	assert.False(t, got.IsBound())
}

func TestCompletionRepository_OnePerHabitPerDay(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	habits := NewHabitRepository(database)
	completions := NewCompletionRepository(database)

	habit := newHabit(userID, "Read", 10)
	require.NoError(t, habits.Create(ctx, habit))

	require.NoError(t, completions.Create(ctx, newCompletion(userID, habit.ID, "2026-10-18", 10)))
	err := completions.Create(ctx, newCompletion(userID, habit.ID, "2026-10-18", 10))
	assert.ErrorIs(t, err, ErrDuplicateCompletion)

	require.NoError(t, completions.Create(ctx, newCompletion(userID, habit.ID, "2026-10-17", 10)))

	got, err := completions.ByHabitAndDay(ctx, userID, habit.ID, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, 10, got.EnergyGained)
}

func TestCompletionRepository_FilterAndDelete(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	habits := NewHabitRepository(database)
	completions := NewCompletionRepository(database)

	read := newHabit(userID, "Read", 10)
	gym := newHabit(userID, "Gym", 20)
	require.NoError(t, habits.Create(ctx, read))
	require.NoError(t, habits.Create(ctx, gym))

	for _, day := range []string{"2026-09-01", "2026-10-10", "2026-10-18"} {
		require.NoError(t, completions.Create(ctx, newCompletion(userID, read.ID, day, 10)))
	}
	require.NoError(t, completions.Create(ctx, newCompletion(userID, gym.ID, "2026-10-18", 20)))

	all, err := completions.Completions(ctx, userID, CompletionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "2026-10-18", all[0].CompletedOn)

	recent, err := completions.Completions(ctx, userID, CompletionFilter{From: "2026-10-11"})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	readOnly, err := completions.Completions(ctx, userID, CompletionFilter{HabitID: read.ID, From: "2026-10-01", To: "2026-10-17"})
	require.NoError(t, err)
	require.Len(t, readOnly, 1)
	assert.Equal(t, "2026-10-10", readOnly[0].CompletedOn)

	require.NoError(t, completions.DeleteByHabitAndDay(ctx, userID, read.ID, "2026-10-18"))
	err = completions.DeleteByHabitAndDay(ctx, userID, read.ID, "2026-10-18")
	assert.ErrorIs(t, err, ErrCompletionNotFound)
}

func TestCompletionRepository_CascadeOnHabitDelete(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	habits := NewHabitRepository(database)
	completions := NewCompletionRepository(database)

	habit := newHabit(userID, "Read", 10)
	require.NoError(t, habits.Create(ctx, habit))
	require.NoError(t, completions.Create(ctx, newCompletion(userID, habit.ID, "2026-10-18", 10)))

	require.NoError(t, habits.Delete(ctx, userID, habit.ID))

	left, err := completions.Completions(ctx, userID, CompletionFilter{})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRewardRepository_ConditionalEnergyUpdate(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	repo := NewRewardRepository(database)

	reward := newReward(userID, "Phone", 1000, 120)
	require.NoError(t, repo.Create(ctx, reward))

	require.NoError(t, repo.UpdateEnergyIf(ctx, userID, reward.ID, 120, 130))

	// stale read
	err := repo.UpdateEnergyIf(ctx, userID, reward.ID, 120, 140)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := repo.ByID(ctx, userID, reward.ID)
	require.NoError(t, err)
	assert.Equal(t, 130, got.CurrentEnergy)
}

func TestRewardRepository_MarkRedeemedOnce(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	repo := NewRewardRepository(database)

	reward := newReward(userID, "Phone", 100, 100)
	require.NoError(t, repo.Create(ctx, reward))

	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkRedeemed(ctx, userID, reward.ID, at))
	assert.ErrorIs(t, repo.MarkRedeemed(ctx, userID, reward.ID, at), ErrConflict)

	got, err := repo.ByID(ctx, userID, reward.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRedeemed)
	require.NotNil(t, got.RedeemedAt)
	assert.True(t, got.RedeemedAt.Equal(at))
}

func TestEnergyTotalRepository_CreateAndConditionalUpdate(t *testing.T) {
	database, userID := setup(t)
	ctx := context.Background()
	repo := NewEnergyTotalRepository(database)

	_, err := repo.ByUser(ctx, userID)
	assert.ErrorIs(t, err, ErrEnergyTotalNotFound)

	require.NoError(t, repo.Create(ctx, &model.UserEnergyTotal{UserID: userID, TotalEnergy: 10, UpdatedAt: time.Now().UTC()}))
	err = repo.Create(ctx, &model.UserEnergyTotal{UserID: userID, TotalEnergy: 5, UpdatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, repo.UpdateIf(ctx, userID, 10, 30))
	assert.ErrorIs(t, repo.UpdateIf(ctx, userID, 10, 40), ErrConflict)

	total, err := repo.ByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 30, total.TotalEnergy)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	database, _ := setup(t)
	ctx := context.Background()
	repo := NewUserRepository(database)

	user := &model.User{ID: uuid.New().String(), Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, user))

	dup := &model.User{ID: uuid.New().String(), Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateEmail)

	got, err := repo.ByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}
