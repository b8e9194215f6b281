package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/service"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Seeder fills a new account with starter data.
type Seeder interface {
	SeedDemoData(ctx context.Context, userID string) error
}

type AuthHandler struct {
	authService *service.AuthService
	seeder      Seeder
}

// NewAuthHandler builds the handler. seeder may be nil.
func NewAuthHandler(authService *service.AuthService, seeder Seeder) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		seeder:      seeder,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.authService.Register(r.Context(), in.Email, in.Password)
	if err != nil {
		fail(w, r, "failed to register user", err)
		return
	}

	if h.seeder != nil {
		err = h.seeder.SeedDemoData(r.Context(), user.ID)
		if err != nil {
			slog.Error("failed to seed demo data", "error", err, "user_id", user.ID)
		}
	}

	h.respondWithToken(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.authService.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		fail(w, r, "failed to log in", err)
		return
	}

	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		fail(w, r, "failed to generate token", err)
		return
	}

	writeJSON(w, status, tokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}
