package handler

import (
	"net/http"

	"github.com/templui/habitflywheel/internal/ctxkeys"
	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/service"
	"github.com/templui/habitflywheel/internal/session"
)

type habitView struct {
	*model.Habit
	CompletedToday bool `json:"completed_today"`
}

type checkinResponse struct {
	Outcome        service.CheckinOutcome `json:"outcome"`
	Completion     *model.Completion      `json:"completion,omitempty"`
	Habit          *model.Habit           `json:"habit,omitempty"`
	CompletedToday bool                   `json:"completed_today"`
	Reward         *model.Reward          `json:"reward,omitempty"`
}

type bindRequest struct {
	RewardID string `json:"reward_id"`
}

type HabitHandler struct {
	habitService *service.HabitService
	sessions     *session.Manager
}

func NewHabitHandler(habitService *service.HabitService, sessions *session.Manager) *HabitHandler {
	return &HabitHandler{
		habitService: habitService,
		sessions:     sessions,
	}
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	includeArchived := r.URL.Query().Get("archived") == "true"

	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to load session", err)
		return
	}

	habits, err := h.habitService.Habits(r.Context(), userID, includeArchived)
	if err != nil {
		fail(w, r, "failed to list habits", err)
		return
	}

	views := make([]habitView, 0, len(habits))
	for _, habit := range habits {
		views = append(views, habitView{Habit: habit, CompletedToday: sess.IsCompletedToday(habit.ID)})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var in service.HabitInput
	if !decodeJSON(w, r, &in) {
		return
	}

	habit, err := h.habitService.Create(r.Context(), userID, in)
	if err != nil {
		fail(w, r, "failed to create habit", err)
		return
	}

	writeJSON(w, http.StatusCreated, habitView{Habit: habit})
}

func (h *HabitHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to load session", err)
		return
	}

	habit, err := h.habitService.ByID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to get habit", err)
		return
	}

	writeJSON(w, http.StatusOK, habitView{Habit: habit, CompletedToday: sess.IsCompletedToday(habit.ID)})
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var in service.HabitInput
	if !decodeJSON(w, r, &in) {
		return
	}

	habit, err := h.habitService.Update(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		fail(w, r, "failed to update habit", err)
		return
	}

	writeJSON(w, http.StatusOK, habitView{Habit: habit})
}

func (h *HabitHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *HabitHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *HabitHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	userID := ctxkeys.UserID(r.Context())

	habit, err := h.habitService.SetArchived(r.Context(), userID, r.PathValue("id"), archived)
	if err != nil {
		fail(w, r, "failed to archive habit", err)
		return
	}

	writeJSON(w, http.StatusOK, habitView{Habit: habit})
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	err := h.habitService.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to delete habit", err)
		return
	}

	// Completions cascade with the habit, so cached ranges are stale.
	sess, err := h.sessions.Get(r.Context(), userID)
	if err == nil {
		sess.ClearCache()
		err = sess.Load(r.Context())
	}
	logRefreshError(r, err)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HabitHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	habitID := r.PathValue("id")

	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to load session", err)
		return
	}

	result, err := sess.CheckInHabit(r.Context(), habitID)
	if err != nil {
		fail(w, r, "failed to check in habit", err)
		return
	}

	status := http.StatusOK
	if result.Outcome == service.OutcomeCheckedIn {
		status = http.StatusCreated
	}
	writeJSON(w, status, h.checkinResponse(sess, habitID, result))
}

func (h *HabitHandler) UnCheckIn(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	habitID := r.PathValue("id")

	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to load session", err)
		return
	}

	result, err := sess.UnCheckInHabit(r.Context(), habitID)
	if err != nil {
		fail(w, r, "failed to undo check-in", err)
		return
	}

	writeJSON(w, http.StatusOK, h.checkinResponse(sess, habitID, result))
}

func (h *HabitHandler) checkinResponse(sess *session.Session, habitID string, result *service.CheckinResult) checkinResponse {
	resp := checkinResponse{
		Outcome:        result.Outcome,
		Completion:     result.Completion,
		Habit:          result.Habit,
		CompletedToday: sess.IsCompletedToday(habitID),
	}
	if result.Habit != nil && result.Habit.IsBound() {
		if reward, ok := sess.Rewards.Reward(*result.Habit.BoundRewardID); ok {
			resp.Reward = &reward
		}
	}
	return resp
}

func (h *HabitHandler) Bind(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var in bindRequest
	if !decodeJSON(w, r, &in) {
		return
	}

	habit, err := h.habitService.Bind(r.Context(), userID, r.PathValue("id"), in.RewardID)
	if err != nil {
		fail(w, r, "failed to bind habit", err)
		return
	}

	writeJSON(w, http.StatusOK, habitView{Habit: habit})
}

func (h *HabitHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	habit, err := h.habitService.Unbind(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to unbind habit", err)
		return
	}

	writeJSON(w, http.StatusOK, habitView{Habit: habit})
}

func (h *HabitHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	stats, err := h.habitService.Stats(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to get habit stats", err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
