package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/habitflywheel/internal/config"
	"github.com/templui/habitflywheel/internal/db"
	"github.com/templui/habitflywheel/internal/realtime"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/retry"
	"github.com/templui/habitflywheel/internal/service"
	"github.com/templui/habitflywheel/internal/session"
	"github.com/templui/habitflywheel/internal/storage"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	Logger         *slog.Logger
	AuthService    *service.AuthService
	UserService    *service.UserService
	HabitService   *service.HabitService
	RewardService  *service.RewardService
	CheckinService *service.CheckinService
	Seeder         *service.Seeder
	ExportService  *service.ExportService
	Hub            *realtime.Hub
	Sessions       *session.Manager
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Storage (optional, used by export archives)
	exportStorage, err := storage.New(ctx, cfg)
	if errors.Is(err, storage.ErrNotConfigured) {
		log.Info("export storage disabled, S3_BUCKET not set")
		exportStorage = nil
	} else if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return NewWithDB(cfg, database, exportStorage, log), nil
}

// NewWithDB wires repositories and services onto an open, migrated database.
// exportStorage may be nil.
func NewWithDB(cfg *config.Config, database *sqlx.DB, exportStorage storage.Storage, log *slog.Logger) *App {
	// Repositories
	userRepository := repository.NewUserRepository(database)
	habitRepository := repository.NewHabitRepository(database)
	rewardRepository := repository.NewRewardRepository(database)
	completionRepository := repository.NewCompletionRepository(database)
	energyTotalRepository := repository.NewEnergyTotalRepository(database)

	// Services
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry)
	userService := service.NewUserService(userRepository, authService)
	habitService := service.NewHabitService(habitRepository, rewardRepository, completionRepository)
	rewardService := service.NewRewardService(rewardRepository, habitRepository)
	checkinService := service.NewCheckinService(
		habitRepository,
		completionRepository,
		energyTotalRepository,
		rewardRepository,
		service.WithRetry(retry.Config{
			Attempts: cfg.EnergyRetryAttempts,
			Delay:    cfg.EnergyRetryDelay,
			Jitter:   cfg.EnergyRetryJitter,
		}),
		service.WithAsyncPropagation(cfg.PropagateAsync),
		service.WithLocation(cfg.Location()),
		service.WithLogger(log),
	)
	seeder := service.NewSeeder(habitRepository, rewardRepository)
	exportService := service.NewExportService(
		habitRepository,
		rewardRepository,
		completionRepository,
		energyTotalRepository,
		exportStorage,
	)

	// Realtime
	hub := realtime.NewHub(log)
	sessions := session.NewManager(session.Deps{
		Checkin:      checkinService,
		Habits:       habitService,
		Rewards:      rewardService,
		Completions:  completionRepository,
		Publisher:    hub,
		Logger:       log,
		CacheTTL:     cfg.CacheTTL,
		PreloadDelay: cfg.PreloadDelay,
	})

	return &App{
		Cfg:            cfg,
		DB:             database,
		Logger:         log,
		AuthService:    authService,
		UserService:    userService,
		HabitService:   habitService,
		RewardService:  rewardService,
		CheckinService: checkinService,
		Seeder:         seeder,
		ExportService:  exportService,
		Hub:            hub,
		Sessions:       sessions,
	}
}

// Close waits for background energy propagation before closing the database.
func (a *App) Close() error {
	a.Sessions.Wait()
	a.CheckinService.Wait()
	if a.DB != nil {
		return db.Close(a.DB)
	}
	return nil
}
