package handler

import (
	"net/http"

	"github.com/templui/habitflywheel/internal/ctxkeys"
	"github.com/templui/habitflywheel/internal/service"
	"github.com/templui/habitflywheel/internal/session"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type AccountHandler struct {
	userService *service.UserService
	sessions    *session.Manager
}

func NewAccountHandler(userService *service.UserService, sessions *session.Manager) *AccountHandler {
	return &AccountHandler{
		userService: userService,
		sessions:    sessions,
	}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.ByID(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		fail(w, r, "failed to get user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	err := h.userService.UpdatePassword(r.Context(), ctxkeys.UserID(r.Context()), in.CurrentPassword, in.NewPassword)
	if err != nil {
		fail(w, r, "failed to change password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	err := h.userService.DeleteAccount(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to delete account", err)
		return
	}

	h.sessions.Drop(userID)
	w.WriteHeader(http.StatusNoContent)
}
