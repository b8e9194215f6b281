package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/retry"
)

var (
	ErrHabitArchived = errors.New("habit is archived")
)

type CheckinOutcome string

const (
	OutcomeCheckedIn        CheckinOutcome = "checked_in"
	OutcomeAlreadyCompleted CheckinOutcome = "already_completed"
	OutcomeUnchecked        CheckinOutcome = "unchecked"
	OutcomeNotCompleted     CheckinOutcome = "not_completed"
)

type CheckinResult struct {
	Outcome    CheckinOutcome    `json:"outcome"`
	Completion *model.Completion `json:"completion,omitempty"`
	Habit      *model.Habit      `json:"habit,omitempty"`
}

// CheckinService moves a habit in and out of today's completions. The
// completion row is authoritative; the user total and the bound reward's
// energy follow it on a best-effort basis.
type CheckinService struct {
	habits      repository.HabitRepository
	completions repository.CompletionRepository
	totals      repository.EnergyTotalRepository
	rewards     repository.RewardRepository

	retry         retry.Config
	authoritative retry.Policy
	bestEffort    retry.Policy
	async         bool
	now           func() time.Time
	loc           *time.Location
	log           *slog.Logger

	wg          sync.WaitGroup
	mu          sync.Mutex
	propagating map[string]int
}

type CheckinOption func(*CheckinService)

func WithRetry(cfg retry.Config) CheckinOption {
	return func(s *CheckinService) { s.retry = cfg }
}

// WithPolicies replaces the policies for the completion write and for energy
// propagation.
func WithPolicies(authoritative, bestEffort retry.Policy) CheckinOption {
	return func(s *CheckinService) {
		s.authoritative = authoritative
		s.bestEffort = bestEffort
	}
}

// WithAsyncPropagation runs energy propagation in the background when true.
// Call Wait to block until it has finished.
func WithAsyncPropagation(async bool) CheckinOption {
	return func(s *CheckinService) { s.async = async }
}

func WithClock(now func() time.Time) CheckinOption {
	return func(s *CheckinService) { s.now = now }
}

func WithLocation(loc *time.Location) CheckinOption {
	return func(s *CheckinService) { s.loc = loc }
}

func WithLogger(log *slog.Logger) CheckinOption {
	return func(s *CheckinService) { s.log = log }
}

func NewCheckinService(
	habits repository.HabitRepository,
	completions repository.CompletionRepository,
	totals repository.EnergyTotalRepository,
	rewards repository.RewardRepository,
	opts ...CheckinOption,
) *CheckinService {
	s := &CheckinService{
		habits:        habits,
		completions:   completions,
		totals:        totals,
		rewards:       rewards,
		retry:         retry.DefaultConfig(),
		authoritative: retry.FailLoud,
		async:         true,
		now:           time.Now,
		loc:           time.Local,
		log:           slog.Default(),
		propagating:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bestEffort == nil {
		s.bestEffort = retry.LogAndContinue(s.log)
	}
	return s
}

// Today returns the day key completions are recorded under right now.
func (s *CheckinService) Today() string {
	return model.Day(s.now(), s.loc)
}

func (s *CheckinService) Location() *time.Location {
	return s.loc
}

// CheckIn records today's completion for the habit. A habit already
// completed today is reported as OutcomeAlreadyCompleted, not as an error.
func (s *CheckinService) CheckIn(ctx context.Context, userID, habitID string) (*CheckinResult, error) {
	habit, err := s.habits.ByID(ctx, userID, habitID)
	if err != nil {
		return nil, s.authoritative("load habit", err)
	}
	if habit.IsArchived {
		return nil, ErrHabitArchived
	}

	today := s.Today()
	existing, err := s.completions.ByHabitAndDay(ctx, userID, habitID, today)
	if err == nil {
		return &CheckinResult{Outcome: OutcomeAlreadyCompleted, Completion: existing, Habit: habit}, nil
	}
	if !errors.Is(err, repository.ErrCompletionNotFound) {
		return nil, s.authoritative("look up today's completion", err)
	}

	completion := &model.Completion{
		ID:           uuid.New().String(),
		HabitID:      habit.ID,
		UserID:       userID,
		RewardID:     habit.BoundRewardID,
		CompletedOn:  today,
		EnergyGained: habit.EnergyValue,
		CompletedAt:  s.now().UTC(),
	}

	err = s.completions.Create(ctx, completion)
	if errors.Is(err, repository.ErrDuplicateCompletion) {
		// Lost the race against a concurrent check-in for the same day.
		existing, lookupErr := s.completions.ByHabitAndDay(ctx, userID, habitID, today)
		if lookupErr != nil {
			existing = nil
		}
		return &CheckinResult{Outcome: OutcomeAlreadyCompleted, Completion: existing, Habit: habit}, nil
	}
	if err != nil {
		return nil, s.authoritative("create completion", err)
	}

	s.log.Debug("habit checked in", "user_id", userID, "habit_id", habitID, "day", today, "energy", completion.EnergyGained)

	result := &CheckinResult{Outcome: OutcomeCheckedIn, Completion: completion, Habit: habit}
	return result, s.propagate(ctx, userID, completion.RewardID, completion.EnergyGained)
}

// UnCheckIn deletes today's completion and takes back the energy it recorded.
// A habit with no completion today is reported as OutcomeNotCompleted.
func (s *CheckinService) UnCheckIn(ctx context.Context, userID, habitID string) (*CheckinResult, error) {
	today := s.Today()

	completion, err := s.completions.ByHabitAndDay(ctx, userID, habitID, today)
	if errors.Is(err, repository.ErrCompletionNotFound) {
		return &CheckinResult{Outcome: OutcomeNotCompleted}, nil
	}
	if err != nil {
		return nil, s.authoritative("look up today's completion", err)
	}

	err = s.completions.DeleteByHabitAndDay(ctx, userID, habitID, today)
	if errors.Is(err, repository.ErrCompletionNotFound) {
		return &CheckinResult{Outcome: OutcomeNotCompleted}, nil
	}
	if err != nil {
		return nil, s.authoritative("delete completion", err)
	}

	s.log.Debug("habit unchecked", "user_id", userID, "habit_id", habitID, "day", today, "energy", completion.EnergyGained)

	result := &CheckinResult{Outcome: OutcomeUnchecked, Completion: completion}
	return result, s.propagate(ctx, userID, completion.RewardID, -completion.EnergyGained)
}

// EnergyTotal returns the user's running total, zero when none was recorded.
func (s *CheckinService) EnergyTotal(ctx context.Context, userID string) (int, error) {
	total, err := s.totals.ByUser(ctx, userID)
	if errors.Is(err, repository.ErrEnergyTotalNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return total.TotalEnergy, nil
}

// Wait blocks until background propagation has finished.
func (s *CheckinService) Wait() {
	s.wg.Wait()
}

// Propagating reports whether background propagation for the user is still
// running, so stored energy may not reflect their last check-in yet.
func (s *CheckinService) Propagating(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.propagating[userID] > 0
}

func (s *CheckinService) track(userID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.propagating[userID] += delta
	if s.propagating[userID] <= 0 {
		delete(s.propagating, userID)
	}
}

func (s *CheckinService) propagate(ctx context.Context, userID string, rewardID *string, delta int) error {
	if delta == 0 {
		return nil
	}

	run := func(ctx context.Context) error {
		var g errgroup.Group
		g.Go(func() error {
			return s.bestEffort("update energy total", s.adjustTotal(ctx, userID, delta))
		})
		if rewardID != nil && *rewardID != "" {
			g.Go(func() error {
				return s.bestEffort("update reward energy", s.adjustReward(ctx, userID, *rewardID, delta))
			})
		}
		return g.Wait()
	}

	if !s.async {
		return run(ctx)
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	s.track(userID, 1)
	go func() {
		defer s.wg.Done()
		defer s.track(userID, -1)
		if err := run(ctx); err != nil {
			s.log.Error("energy propagation failed", "user_id", userID, "error", err)
		}
	}()
	return nil
}

func (s *CheckinService) adjustTotal(ctx context.Context, userID string, delta int) error {
	return retry.OnConflict(ctx, s.retry, repository.ErrConflict, func(ctx context.Context) error {
		total, err := s.totals.ByUser(ctx, userID)
		if errors.Is(err, repository.ErrEnergyTotalNotFound) {
			if delta < 0 {
				return nil
			}
			return s.totals.Create(ctx, &model.UserEnergyTotal{
				UserID:      userID,
				TotalEnergy: delta,
				UpdatedAt:   s.now().UTC(),
			})
		}
		if err != nil {
			return err
		}

		next := max(total.TotalEnergy+delta, 0)
		if next == total.TotalEnergy {
			return nil
		}
		return s.totals.UpdateIf(ctx, userID, total.TotalEnergy, next)
	})
}

func (s *CheckinService) adjustReward(ctx context.Context, userID, rewardID string, delta int) error {
	return retry.OnConflict(ctx, s.retry, repository.ErrConflict, func(ctx context.Context) error {
		reward, err := s.rewards.ByID(ctx, userID, rewardID)
		if errors.Is(err, repository.ErrRewardNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		next := max(reward.CurrentEnergy+delta, 0)
		if next == reward.CurrentEnergy {
			return nil
		}
		return s.rewards.UpdateEnergyIf(ctx, userID, rewardID, reward.CurrentEnergy, next)
	})
}
