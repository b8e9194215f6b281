package handler

import (
	"net/http"

	"github.com/templui/habitflywheel/internal/ctxkeys"
	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/service"
	"github.com/templui/habitflywheel/internal/session"
)

type rewardView struct {
	model.Reward
	Progress  float64 `json:"progress"`
	CanRedeem bool    `json:"can_redeem"`
}

func newRewardView(reward model.Reward) rewardView {
	return rewardView{
		Reward:    reward,
		Progress:  reward.Progress(),
		CanRedeem: reward.CanRedeem(),
	}
}

type RewardHandler struct {
	rewardService *service.RewardService
	habitService  *service.HabitService
	sessions      *session.Manager
}

func NewRewardHandler(rewardService *service.RewardService, habitService *service.HabitService, sessions *session.Manager) *RewardHandler {
	return &RewardHandler{
		rewardService: rewardService,
		habitService:  habitService,
		sessions:      sessions,
	}
}

// List serves the session's projection, which includes in-flight energy.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to load session", err)
		return
	}

	rewards := sess.Rewards.List()
	views := make([]rewardView, 0, len(rewards))
	for _, reward := range rewards {
		views = append(views, newRewardView(reward))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var in service.RewardInput
	if !decodeJSON(w, r, &in) {
		return
	}

	reward, err := h.rewardService.Create(r.Context(), userID, in)
	if err != nil {
		fail(w, r, "failed to create reward", err)
		return
	}

	h.refresh(r, userID)
	writeJSON(w, http.StatusCreated, newRewardView(*reward))
}

func (h *RewardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	reward, err := h.rewardService.ByID(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to get reward", err)
		return
	}

	writeJSON(w, http.StatusOK, newRewardView(*reward))
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var in service.RewardInput
	if !decodeJSON(w, r, &in) {
		return
	}

	reward, err := h.rewardService.Update(r.Context(), userID, r.PathValue("id"), in)
	if err != nil {
		fail(w, r, "failed to update reward", err)
		return
	}

	h.refresh(r, userID)
	writeJSON(w, http.StatusOK, newRewardView(*reward))
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	err := h.rewardService.Delete(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to delete reward", err)
		return
	}

	h.refresh(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to load session", err)
		return
	}

	reward, err := sess.RedeemReward(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to redeem reward", err)
		return
	}

	writeJSON(w, http.StatusOK, newRewardView(*reward))
}

func (h *RewardHandler) Habits(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	habits, err := h.habitService.BoundTo(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		fail(w, r, "failed to list bound habits", err)
		return
	}

	writeJSON(w, http.StatusOK, habits)
}

func (h *RewardHandler) refresh(r *http.Request, userID string) {
	sess, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		logRefreshError(r, err)
		return
	}
	logRefreshError(r, sess.RefreshRewards(r.Context()))
}
