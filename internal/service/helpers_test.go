package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/templui/habitflywheel/internal/db/dbtest"
	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/retry"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	db          *sqlx.DB
	userID      string
	clock       *fakeClock
	habits      repository.HabitRepository
	rewards     repository.RewardRepository
	completions repository.CompletionRepository
	totals      repository.EnergyTotalRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := dbtest.New(t)

	user := &model.User{
		ID:           uuid.New().String(),
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repository.NewUserRepository(database).Create(context.Background(), user))

	return &fixture{
		db:          database,
		userID:      user.ID,
		clock:       &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		habits:      repository.NewHabitRepository(database),
		rewards:     repository.NewRewardRepository(database),
		completions: repository.NewCompletionRepository(database),
		totals:      repository.NewEnergyTotalRepository(database),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// checkin builds a synchronous orchestrator over the fixture's repositories.
// opts are applied last and may replace any default.
func (f *fixture) checkin(opts ...CheckinOption) *CheckinService {
	return f.checkinOver(f.completions, f.totals, f.rewards, opts...)
}

func (f *fixture) checkinOver(
	completions repository.CompletionRepository,
	totals repository.EnergyTotalRepository,
	rewards repository.RewardRepository,
	opts ...CheckinOption,
) *CheckinService {
	base := []CheckinOption{
		WithAsyncPropagation(false),
		WithRetry(retry.Config{Attempts: 3, Delay: time.Millisecond}),
		WithClock(f.clock.Now),
		WithLocation(time.UTC),
		WithLogger(discardLogger()),
	}
	return NewCheckinService(f.habits, completions, totals, rewards, append(base, opts...)...)
}

func (f *fixture) reward(t *testing.T, name string, cost, current int) *model.Reward {
	t.Helper()
	now := time.Now().UTC()
	reward := &model.Reward{
		ID:            uuid.New().String(),
		UserID:        f.userID,
		Name:          name,
		EnergyCost:    cost,
		CurrentEnergy: current,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.rewards.Create(context.Background(), reward))
	return reward
}

func (f *fixture) habit(t *testing.T, name string, energy int, reward *model.Reward) *model.Habit {
	t.Helper()
	now := time.Now().UTC()
	habit := &model.Habit{
		ID:          uuid.New().String(),
		UserID:      f.userID,
		Name:        name,
		EnergyValue: energy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if reward != nil {
		habit.BoundRewardID = &reward.ID
	}
	require.NoError(t, f.habits.Create(context.Background(), habit))
	return habit
}

func (f *fixture) rewardEnergy(t *testing.T, rewardID string) int {
	t.Helper()
	reward, err := f.rewards.ByID(context.Background(), f.userID, rewardID)
	require.NoError(t, err)
	return reward.CurrentEnergy
}

func (f *fixture) total(t *testing.T) int {
	t.Helper()
	total, err := f.totals.ByUser(context.Background(), f.userID)
	if err != nil {
		require.ErrorIs(t, err, repository.ErrEnergyTotalNotFound)
		return 0
	}
	return total.TotalEnergy
}

func (f *fixture) completionCount(t *testing.T, habitID string) int {
	t.Helper()
	completions, err := f.completions.Completions(context.Background(), f.userID, repository.CompletionFilter{HabitID: habitID})
	require.NoError(t, err)
	return len(completions)
}

// conflictingRewards rejects the first n conditional energy writes.
type conflictingRewards struct {
	repository.RewardRepository
	mu        sync.Mutex
	conflicts int
	writes    int
}

func (r *conflictingRewards) UpdateEnergyIf(ctx context.Context, userID, rewardID string, prev, next int) error {
	r.mu.Lock()
	r.writes++
	inject := r.conflicts > 0
	if inject {
		r.conflicts--
	}
	r.mu.Unlock()

	if inject {
		return repository.ErrConflict
	}
	return r.RewardRepository.UpdateEnergyIf(ctx, userID, rewardID, prev, next)
}

// heldRewards blocks the first conditional energy write until released.
type heldRewards struct {
	repository.RewardRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *heldRewards) UpdateEnergyIf(ctx context.Context, userID, rewardID string, prev, next int) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.RewardRepository.UpdateEnergyIf(ctx, userID, rewardID, prev, next)
}

// conflictingTotals rejects every conditional total write.
type conflictingTotals struct {
	repository.EnergyTotalRepository
}

func (conflictingTotals) UpdateIf(context.Context, string, int, int) error {
	return repository.ErrConflict
}

// failingCompletions fails every write.
type failingCompletions struct {
	repository.CompletionRepository
	err error
}

func (c failingCompletions) Create(context.Context, *model.Completion) error {
	return c.err
}

func (c failingCompletions) DeleteByHabitAndDay(context.Context, string, string, string) error {
	return c.err
}
