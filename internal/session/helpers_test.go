package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/templui/habitflywheel/internal/db/dbtest"
	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/retry"
	"github.com/templui/habitflywheel/internal/service"
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

type recordedEvent struct {
	userID    string
	eventType string
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(userID, eventType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID: userID, eventType: eventType})
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.eventType)
	}
	return out
}

// gatedCompletions reads completions and then, once armed, blocks until
// released. The caller receives data as it was before the gate opened.
type gatedCompletions struct {
	repository.CompletionRepository
	mu      sync.Mutex
	read    chan struct{}
	release chan struct{}
	calls   int
}

func (g *gatedCompletions) arm() (read, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.read = make(chan struct{})
	g.release = make(chan struct{})
	return g.read, g.release
}

func (g *gatedCompletions) Completions(ctx context.Context, userID string, filter repository.CompletionFilter) ([]*model.Completion, error) {
	rows, err := g.CompletionRepository.Completions(ctx, userID, filter)

	g.mu.Lock()
	g.calls++
	read, release := g.read, g.release
	g.read, g.release = nil, nil
	g.mu.Unlock()

	if read != nil {
		close(read)
		<-release
	}
	return rows, err
}

func (g *gatedCompletions) fetches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type failingWrites struct {
	repository.CompletionRepository
	err error
}

func (f failingWrites) Create(context.Context, *model.Completion) error {
	return f.err
}

func (f failingWrites) DeleteByHabitAndDay(context.Context, string, string, string) error {
	return f.err
}

// heldDeletes blocks the first delete until released, after signalling that
// it was reached.
type heldDeletes struct {
	repository.CompletionRepository
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newHeldDeletes(completions repository.CompletionRepository) *heldDeletes {
	return &heldDeletes{
		CompletionRepository: completions,
		entered:              make(chan struct{}),
		release:              make(chan struct{}),
	}
}

func (h *heldDeletes) DeleteByHabitAndDay(ctx context.Context, userID, habitID, day string) error {
	h.once.Do(func() {
		close(h.entered)
		<-h.release
	})
	return h.CompletionRepository.DeleteByHabitAndDay(ctx, userID, habitID, day)
}

// heldRewards blocks the first conditional energy write until released.
type heldRewards struct {
	repository.RewardRepository
	once    sync.Once
	release chan struct{}
}

func (r *heldRewards) UpdateEnergyIf(ctx context.Context, userID, rewardID string, prev, next int) error {
	r.once.Do(func() { <-r.release })
	return r.RewardRepository.UpdateEnergyIf(ctx, userID, rewardID, prev, next)
}

// conflictingRewards rejects every conditional energy write.
type conflictingRewards struct {
	repository.RewardRepository
}

func (conflictingRewards) UpdateEnergyIf(context.Context, string, string, int, int) error {
	return repository.ErrConflict
}

type fixture struct {
	userID      string
	clock       *fakeClock
	events      *recorder
	habits      repository.HabitRepository
	rewards     repository.RewardRepository
	completions *gatedCompletions
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
		userID:      user.ID,
		clock:       &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
		events:      &recorder{},
		habits:      repository.NewHabitRepository(database),
		rewards:     repository.NewRewardRepository(database),
		completions: &gatedCompletions{CompletionRepository: repository.NewCompletionRepository(database)},
		totals:      repository.NewEnergyTotalRepository(database),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fixture) checkin(
	completions repository.CompletionRepository,
	rewards repository.RewardRepository,
	opts ...service.CheckinOption,
) *service.CheckinService {
	base := []service.CheckinOption{
		service.WithAsyncPropagation(false),
		service.WithRetry(retry.Config{Attempts: 3, Delay: time.Millisecond}),
		service.WithClock(f.clock.Now),
		service.WithLocation(time.UTC),
		service.WithLogger(discardLogger()),
	}
	return service.NewCheckinService(f.habits, completions, f.totals, rewards, append(base, opts...)...)
}

func (f *fixture) deps(completions repository.CompletionRepository) Deps {
	return Deps{
		Checkin:      f.checkin(completions, f.rewards),
		Habits:       service.NewHabitService(f.habits, f.rewards, completions),
		Rewards:      service.NewRewardService(f.rewards, f.habits),
		Completions:  completions,
		Publisher:    f.events,
		Logger:       discardLogger(),
		PreloadDelay: time.Millisecond,
		Clock:        f.clock.Now,
	}
}

func (f *fixture) session(t *testing.T) *Session {
	t.Helper()
	s := New(f.userID, f.deps(f.completions))
	require.NoError(t, s.Load(context.Background()))
	return s
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

func (f *fixture) storedEnergy(t *testing.T, rewardID string) int {
	t.Helper()
	reward, err := f.rewards.ByID(context.Background(), f.userID, rewardID)
	require.NoError(t, err)
	return reward.CurrentEnergy
}

func projectedEnergy(t *testing.T, s *Session, rewardID string) int {
	t.Helper()
	reward, ok := s.Rewards.Reward(rewardID)
	require.True(t, ok)
	return reward.CurrentEnergy
}
