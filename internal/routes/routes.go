package routes

import (
	"net/http"
	"time"

	"github.com/templui/habitflywheel/internal/app"
	"github.com/templui/habitflywheel/internal/handler"
	"github.com/templui/habitflywheel/internal/middleware"
	"github.com/templui/habitflywheel/internal/realtime"
)

// SetupRoutes returns the API handler and the auth rate limiter, which the
// caller stops on shutdown.
func SetupRoutes(app *app.App) (http.Handler, *middleware.RateLimiter) {
	// Handlers
	var seeder handler.Seeder
	if app.Cfg.SeedDemoData {
		seeder = app.Seeder
	}
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService, seeder)
	habit := handler.NewHabitHandler(app.HabitService, app.Sessions)
	reward := handler.NewRewardHandler(app.RewardService, app.HabitService, app.Sessions)
	progress := handler.NewProgressHandler(app.CheckinService, app.Sessions)
	export := handler.NewExportHandler(app.ExportService)
	account := handler.NewAccountHandler(app.UserService, app.Sessions)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)

	// Auth (rate limited)
	rateLimiter := middleware.NewRateLimiter(5, 15*time.Minute)
	limit := middleware.RateLimit(rateLimiter)

	mux.HandleFunc("POST /api/auth/register", limit(auth.Register))
	mux.HandleFunc("POST /api/auth/login", limit(auth.Login))

	// ============================================================================
	// PROTECTED ROUTES (/api/*)
	// ============================================================================

	// Account
	mux.HandleFunc("GET /api/me", middleware.RequireAuth(account.Me))
	mux.HandleFunc("PUT /api/account/password", middleware.RequireAuth(account.ChangePassword))
	mux.HandleFunc("DELETE /api/account", middleware.RequireAuth(account.DeleteAccount))

	// Habits
	mux.HandleFunc("GET /api/habits", middleware.RequireAuth(habit.List))
	mux.HandleFunc("POST /api/habits", middleware.RequireAuth(habit.Create))
	mux.HandleFunc("GET /api/habits/{id}", middleware.RequireAuth(habit.Get))
	mux.HandleFunc("PUT /api/habits/{id}", middleware.RequireAuth(habit.Update))
	mux.HandleFunc("DELETE /api/habits/{id}", middleware.RequireAuth(habit.Delete))
	mux.HandleFunc("POST /api/habits/{id}/archive", middleware.RequireAuth(habit.Archive))
	mux.HandleFunc("DELETE /api/habits/{id}/archive", middleware.RequireAuth(habit.Unarchive))
	mux.HandleFunc("GET /api/habits/{id}/stats", middleware.RequireAuth(habit.Stats))
	mux.HandleFunc("PUT /api/habits/{id}/reward", middleware.RequireAuth(habit.Bind))
	mux.HandleFunc("DELETE /api/habits/{id}/reward", middleware.RequireAuth(habit.Unbind))

	// Check-ins
	mux.HandleFunc("POST /api/habits/{id}/checkin", middleware.RequireAuth(habit.CheckIn))
	mux.HandleFunc("DELETE /api/habits/{id}/checkin", middleware.RequireAuth(habit.UnCheckIn))

	// Rewards
	mux.HandleFunc("GET /api/rewards", middleware.RequireAuth(reward.List))
	mux.HandleFunc("POST /api/rewards", middleware.RequireAuth(reward.Create))
	mux.HandleFunc("GET /api/rewards/{id}", middleware.RequireAuth(reward.Get))
	mux.HandleFunc("PUT /api/rewards/{id}", middleware.RequireAuth(reward.Update))
	mux.HandleFunc("DELETE /api/rewards/{id}", middleware.RequireAuth(reward.Delete))
	mux.HandleFunc("GET /api/rewards/{id}/habits", middleware.RequireAuth(reward.Habits))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", middleware.RequireAuth(reward.Redeem))

	// Progress
	mux.HandleFunc("GET /api/today", middleware.RequireAuth(progress.Today))
	mux.HandleFunc("GET /api/history", middleware.RequireAuth(progress.History))
	mux.HandleFunc("GET /api/energy", middleware.RequireAuth(progress.Energy))

	// Range cache
	mux.HandleFunc("GET /api/cache", middleware.RequireAuth(progress.CacheInfo))
	mux.HandleFunc("POST /api/cache/preload", middleware.RequireAuth(progress.Preload))
	mux.HandleFunc("DELETE /api/cache", middleware.RequireAuth(progress.ClearCache))

	// Export
	mux.HandleFunc("GET /api/export", middleware.RequireAuth(export.Export))
	mux.HandleFunc("POST /api/export/archive", middleware.RequireAuth(export.Archive))

	// Realtime
	mux.HandleFunc("GET /ws", realtime.Handler(app.Hub, app.Cfg.AllowedOrigins))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Config(app.Cfg),
		middleware.RequestLogging,
		middleware.Auth(app.AuthService),
	)

	return handler, rateLimiter
}
