package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/habitflywheel/internal/ctxkeys"
	"github.com/templui/habitflywheel/internal/optimistic"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/service"
	"github.com/templui/habitflywheel/internal/storage"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidCurrentPassword):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrHabitNotFound),
		errors.Is(err, repository.ErrRewardNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrCompletionNotFound),
		errors.Is(err, optimistic.ErrUnknownReward):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHabitArchived),
		errors.Is(err, service.ErrRewardRedeemed),
		errors.Is(err, service.ErrInsufficientEnergy),
		errors.Is(err, service.ErrEmailAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON. Unexpected errors are logged and hidden.
func fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, "error", err,
			"user_id", ctxkeys.UserID(r.Context()),
			"request_id", ctxkeys.RequestID(r.Context()),
		)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func logRefreshError(r *http.Request, err error) {
	if err != nil {
		slog.Warn("failed to refresh session", "error", err, "user_id", ctxkeys.UserID(r.Context()))
	}
}
