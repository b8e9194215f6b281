// Package session owns one user's optimistic view: the completed-today set,
// the reward energy projection and the time-range cache. Intents are applied
// locally first, sent to the services, and rolled back if the authoritative
// write fails.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/optimistic"
	"github.com/templui/habitflywheel/internal/rangecache"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/service"
)

const (
	EventCheckedIn      = "habit.checked_in"
	EventUnchecked      = "habit.unchecked"
	EventRewardRedeemed = "reward.redeemed"
)

// Publisher pushes state changes to a user's connected clients.
type Publisher interface {
	Publish(userID, eventType string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

// Deps are shared by every session a Manager creates.
type Deps struct {
	Checkin      *service.CheckinService
	Habits       *service.HabitService
	Rewards      *service.RewardService
	Completions  repository.CompletionRepository
	Publisher    Publisher
	Logger       *slog.Logger
	CacheTTL     time.Duration
	PreloadDelay time.Duration
	Clock        func() time.Time
}

type Session struct {
	userID string
	deps   Deps
	log    *slog.Logger
	now    func() time.Time

	Completions *optimistic.Completions
	Rewards     *optimistic.Rewards
	cache       *rangecache.Cache

	mu       sync.Mutex
	lastUsed time.Time
	bg       sync.WaitGroup
	inflight atomic.Int32
}

func New(userID string, deps Deps) *Session {
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = rangecache.DefaultTTL
	}

	s := &Session{
		userID:   userID,
		deps:     deps,
		log:      deps.Logger.With("user_id", userID),
		now:      deps.Clock,
		Rewards:  optimistic.NewRewards(),
		lastUsed: deps.Clock(),
	}
	s.cache = rangecache.New(s.fetch,
		rangecache.WithTTL(deps.CacheTTL),
		rangecache.WithPreloadDelay(deps.PreloadDelay),
		rangecache.WithClock(deps.Clock),
		rangecache.WithLogger(s.log),
	)
	s.Completions = optimistic.NewCompletions(s.cache.Clear)
	return s
}

func (s *Session) UserID() string {
	return s.userID
}

// Load reads rewards and today's completions from the database.
func (s *Session) Load(ctx context.Context) error {
	if err := s.RefreshRewards(ctx); err != nil {
		return err
	}
	_, err := s.Refetch(ctx, model.RangeWeek)
	return err
}

func (s *Session) IsCompletedToday(habitID string) bool {
	s.touch()
	return s.Completions.IsCompletedToday(habitID)
}

// CheckInHabit marks the habit done today. A habit the session already shows
// as completed is reported without a round trip.
func (s *Session) CheckInHabit(ctx context.Context, habitID string) (*service.CheckinResult, error) {
	s.touch()
	s.inflight.Add(1)
	defer s.inflight.Add(-1)
	if s.Completions.IsCompletedToday(habitID) {
		return &service.CheckinResult{Outcome: service.OutcomeAlreadyCompleted}, nil
	}

	habit, err := s.deps.Habits.ByID(ctx, s.userID, habitID)
	if err != nil {
		return nil, err
	}

	s.Completions.OptimisticAdd(habitID)
	if habit.IsBound() {
		s.Rewards.OptimisticAddEnergy(*habit.BoundRewardID, habit.EnergyValue)
	}

	result, err := s.deps.Checkin.CheckIn(ctx, s.userID, habitID)
	if result == nil {
		s.Completions.RollbackAdd(habitID)
		if habit.IsBound() {
			s.Rewards.RollbackAddEnergy(*habit.BoundRewardID, habit.EnergyValue)
		}
		s.log.Warn("check-in rolled back", "habit_id", habitID, "error", err)
		return nil, err
	}

	s.Completions.ConfirmAdd(habitID)
	if result.Outcome == service.OutcomeAlreadyCompleted && habit.IsBound() {
		// The row already existed, so the database added no energy.
		s.Rewards.RollbackAddEnergy(*habit.BoundRewardID, habit.EnergyValue)
	}
	if result.Outcome == service.OutcomeCheckedIn {
		s.deps.Publisher.Publish(s.userID, EventCheckedIn, result)
	}

	return result, err
}

// UnCheckInHabit removes today's completion. The optimistic debit uses the
// habit's current binding and energy and is corrected to the recorded values
// once the delete has committed.
func (s *Session) UnCheckInHabit(ctx context.Context, habitID string) (*service.CheckinResult, error) {
	s.touch()
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	habit, err := s.deps.Habits.ByID(ctx, s.userID, habitID)
	if err != nil {
		return nil, err
	}

	wasCompleted := s.Completions.IsCompletedToday(habitID)
	s.Completions.OptimisticRemove(habitID)
	debited := 0
	if habit.IsBound() {
		debited = s.Rewards.OptimisticSubtractEnergy(*habit.BoundRewardID, habit.EnergyValue)
	}
	undoDebit := func() {
		if habit.IsBound() {
			s.Rewards.RollbackSubtractEnergy(*habit.BoundRewardID, debited)
		}
	}

	result, err := s.deps.Checkin.UnCheckIn(ctx, s.userID, habitID)
	if result == nil {
		if wasCompleted {
			s.Completions.RollbackRemove(habitID)
		} else {
			s.Completions.ClearOptimisticRemoval(habitID)
		}
		undoDebit()
		s.log.Warn("un-check-in rolled back", "habit_id", habitID, "error", err)
		return nil, err
	}

	switch result.Outcome {
	case service.OutcomeNotCompleted:
		undoDebit()
		s.Completions.ClearOptimisticRemoval(habitID)
	case service.OutcomeUnchecked:
		// Fetches from here on read the row as gone.
		s.cache.Clear()
		s.Completions.ConfirmRemove(habitID, s.cache.Generation())
		if c := result.Completion; c != nil && !sameDebit(habit, c) {
			undoDebit()
			if c.RewardID != nil {
				s.Rewards.OptimisticSubtractEnergy(*c.RewardID, c.EnergyGained)
			}
		}
		s.deps.Publisher.Publish(s.userID, EventUnchecked, result)
	}

	return result, err
}

func sameDebit(habit *model.Habit, c *model.Completion) bool {
	if c.EnergyGained != habit.EnergyValue {
		return false
	}
	if c.RewardID == nil || habit.BoundRewardID == nil {
		return c.RewardID == nil && habit.BoundRewardID == nil
	}
	return *c.RewardID == *habit.BoundRewardID
}

// RedeemReward flips the reward to redeemed locally, persists it and reverts
// the flag if the write fails.
func (s *Session) RedeemReward(ctx context.Context, rewardID string) (*model.Reward, error) {
	s.touch()
	s.inflight.Add(1)
	defer s.inflight.Add(-1)
	at := s.now()

	err := s.Rewards.MarkRedeemed(rewardID, at)
	if errors.Is(err, optimistic.ErrAlreadyRedeemed) {
		return nil, service.ErrRewardRedeemed
	}
	local := err == nil

	reward, err := s.deps.Rewards.Redeem(ctx, s.userID, rewardID, at)
	if err != nil {
		if local {
			s.Rewards.RollbackRedeem(rewardID)
		}
		s.log.Warn("redeem rolled back", "reward_id", rewardID, "error", err)
		return nil, err
	}
	if !local {
		if err := s.RefreshRewards(ctx); err != nil {
			s.log.Warn("failed to refresh rewards after redeem", "error", err)
		}
	}

	s.deps.Publisher.Publish(s.userID, EventRewardRedeemed, reward)
	return reward, nil
}

// RefreshRewards replaces the reward projection with the database's view.
func (s *Session) RefreshRewards(ctx context.Context) error {
	rewards, err := s.deps.Rewards.Rewards(ctx, s.userID)
	if err != nil {
		return err
	}
	s.Rewards.Load(rewards)
	return nil
}

// syncRewards re-reads reward energy so a propagation that failed or gave up
// does not leave the projection off for the rest of the session. It does
// nothing while an intent or a background propagation for the user is running.
func (s *Session) syncRewards(ctx context.Context) {
	version := s.Rewards.Version()
	if s.inflight.Load() > 0 || s.deps.Checkin.Propagating(s.userID) {
		return
	}

	rewards, err := s.deps.Rewards.Rewards(ctx, s.userID)
	if err != nil {
		s.log.Warn("failed to sync reward energy", "error", err)
		return
	}
	if !s.Rewards.LoadIfUnchanged(rewards, version) {
		s.log.Debug("skipping reward sync that raced a local change")
	}
}

// Refetch reads completions for r and merges today's with the pending local
// intents. A habit still awaiting a confirmed removal is never reported as
// completed. A removal is cleared only by a fetch that started after its
// delete committed.
func (s *Session) Refetch(ctx context.Context, r model.TimeRange) ([]model.Completion, error) {
	s.touch()

	snap, err := s.cache.Read(ctx, r)
	if err != nil {
		return nil, err
	}
	completions := snap.Completions

	today := s.Today()
	serverToday := make(map[string]bool)
	for _, c := range completions {
		if c.CompletedOn == today {
			serverToday[c.HabitID] = true
		}
	}
	ids := make([]string, 0, len(serverToday))
	for id := range serverToday {
		ids = append(ids, id)
	}

	s.Completions.SettleRemovals(snap.Generation)
	s.Completions.Reconcile(ids)
	s.syncRewards(ctx)

	out := completions[:0]
	for _, c := range completions {
		if c.CompletedOn == today && s.Completions.PendingRemoval(c.HabitID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// PreloadTimeRange fills the cache for r after the preload delay.
func (s *Session) PreloadTimeRange(ctx context.Context, r model.TimeRange) error {
	return s.cache.Preload(ctx, r)
}

// Prefetch preloads the ranges adjacent to r in the background.
func (s *Session) Prefetch(ctx context.Context, r model.TimeRange) {
	ctx = context.WithoutCancel(ctx)
	for _, next := range r.Adjacent() {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			_ = s.cache.Preload(ctx, next)
		}()
	}
}

func (s *Session) ClearCache() {
	s.cache.Clear()
}

func (s *Session) CacheInfo() rangecache.Info {
	return s.cache.Info()
}

func (s *Session) CacheState(r model.TimeRange) rangecache.State {
	return s.cache.State(r)
}

// History summarizes r and starts prefetching the adjacent ranges.
func (s *Session) History(ctx context.Context, r model.TimeRange, habitID string) (*model.History, error) {
	completions, err := s.Refetch(ctx, r)
	if err != nil {
		return nil, err
	}
	s.Prefetch(ctx, r)

	return service.BuildHistory(r, habitID, completions, s.now(), s.deps.Checkin.Location()), nil
}

// TodaySummary reports progress for today from the optimistic view.
func (s *Session) TodaySummary(ctx context.Context) (*model.TodaySummary, error) {
	completions, err := s.Refetch(ctx, model.RangeWeek)
	if err != nil {
		return nil, err
	}

	habits, err := s.deps.Habits.Habits(ctx, s.userID, false)
	if err != nil {
		return nil, err
	}

	return service.Summarize(s.Today(), habits, s.Completions.CompletedToday(), completions), nil
}

func (s *Session) Today() string {
	return model.Day(s.now(), s.deps.Checkin.Location())
}

// Wait blocks until background prefetches have finished.
func (s *Session) Wait() {
	s.bg.Wait()
}

func (s *Session) fetch(ctx context.Context, r model.TimeRange) ([]model.Completion, error) {
	filter := repository.CompletionFilter{From: r.Since(s.now(), s.deps.Checkin.Location())}
	rows, err := s.deps.Completions.Completions(ctx, s.userID, filter)
	if err != nil {
		return nil, err
	}

	completions := make([]model.Completion, 0, len(rows))
	for _, c := range rows {
		completions = append(completions, *c)
	}
	return completions, nil
}

// touch marks the session used and starts a fresh completed-today set once
// the calendar day has moved on.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = s.now()
	s.mu.Unlock()

	if s.Completions.StartDay(s.Today()) {
		// Ranges are relative to today.
		s.cache.Clear()
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
