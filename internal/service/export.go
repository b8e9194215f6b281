package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/storage"
)

type ExportService struct {
	habitRepo      repository.HabitRepository
	rewardRepo     repository.RewardRepository
	completionRepo repository.CompletionRepository
	totals         repository.EnergyTotalRepository
	storage        storage.Storage
	now            func() time.Time
}

// NewExportService builds the service. store may be nil, in which case
// Archive reports storage.ErrNotConfigured.
func NewExportService(
	habitRepo repository.HabitRepository,
	rewardRepo repository.RewardRepository,
	completionRepo repository.CompletionRepository,
	totals repository.EnergyTotalRepository,
	store storage.Storage,
) *ExportService {
	return &ExportService{
		habitRepo:      habitRepo,
		rewardRepo:     rewardRepo,
		completionRepo: completionRepo,
		totals:         totals,
		storage:        store,
		now:            time.Now,
	}
}

// Export collects everything the user owns, archived habits and redeemed
// rewards included.
func (s *ExportService) Export(ctx context.Context, userID string) (*model.Export, error) {
	export := &model.Export{ExportedAt: s.now().UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		habits, err := s.habitRepo.Habits(ctx, userID, true)
		export.Habits = habits
		return err
	})
	g.Go(func() error {
		rewards, err := s.rewardRepo.Rewards(ctx, userID)
		export.Rewards = rewards
		return err
	})
	g.Go(func() error {
		completions, err := s.completionRepo.Completions(ctx, userID, repository.CompletionFilter{})
		export.Completions = completions
		return err
	})
	g.Go(func() error {
		total, err := s.totals.ByUser(ctx, userID)
		if errors.Is(err, repository.ErrEnergyTotalNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		export.TotalEnergy = total.TotalEnergy
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to collect export: %w", err)
	}
	return export, nil
}

// Archive saves an export to object storage and returns a download link.
func (s *ExportService) Archive(ctx context.Context, userID string) (*model.ExportArchive, error) {
	if s.storage == nil {
		return nil, storage.ErrNotConfigured
	}

	export, err := s.Export(ctx, userID)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(export)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	key := storage.ExportKey(userID, export.ExportedAt)
	err = s.storage.Save(ctx, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}

	url, expiresAt, err := s.storage.PresignedURL(ctx, key)
	if err != nil {
		return nil, err
	}

	return &model.ExportArchive{Key: key, URL: url, ExpiresAt: expiresAt}, nil
}
