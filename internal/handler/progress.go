package handler

import (
	"net/http"

	"github.com/templui/habitflywheel/internal/ctxkeys"
	"github.com/templui/habitflywheel/internal/model"
	"github.com/templui/habitflywheel/internal/rangecache"
	"github.com/templui/habitflywheel/internal/service"
	"github.com/templui/habitflywheel/internal/session"
)

type energyResponse struct {
	TotalEnergy int `json:"total_energy"`
}

type cacheResponse struct {
	rangecache.Info
	States          map[model.TimeRange]string `json:"states"`
	PendingRemovals []string                   `json:"pending_removals"`
}

// ProgressHandler serves the read side: today, history, totals and the
// range cache controls.
type ProgressHandler struct {
	checkinService *service.CheckinService
	sessions       *session.Manager
}

func NewProgressHandler(checkinService *service.CheckinService, sessions *session.Manager) *ProgressHandler {
	return &ProgressHandler{
		checkinService: checkinService,
		sessions:       sessions,
	}
}

func (h *ProgressHandler) Today(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	summary, err := sess.TodaySummary(r.Context())
	if err != nil {
		fail(w, r, "failed to summarize today", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *ProgressHandler) History(w http.ResponseWriter, r *http.Request) {
	timeRange, ok := parseRange(w, r)
	if !ok {
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	history, err := sess.History(r.Context(), timeRange, r.URL.Query().Get("habit_id"))
	if err != nil {
		fail(w, r, "failed to build history", err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

func (h *ProgressHandler) Energy(w http.ResponseWriter, r *http.Request) {
	total, err := h.checkinService.EnergyTotal(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		fail(w, r, "failed to get energy total", err)
		return
	}

	writeJSON(w, http.StatusOK, energyResponse{TotalEnergy: total})
}

func (h *ProgressHandler) CacheInfo(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, cacheInfo(sess))
}

// Preload warms the cache for a range the client is about to show.
func (h *ProgressHandler) Preload(w http.ResponseWriter, r *http.Request) {
	timeRange, ok := parseRange(w, r)
	if !ok {
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	err := sess.PreloadTimeRange(r.Context(), timeRange)
	if err != nil {
		fail(w, r, "failed to preload range", err)
		return
	}

	writeJSON(w, http.StatusOK, cacheInfo(sess))
}

func (h *ProgressHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	sess.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		fail(w, r, "failed to load session", err)
		return nil, false
	}
	return sess, true
}

func parseRange(w http.ResponseWriter, r *http.Request) (model.TimeRange, bool) {
	timeRange, err := model.ParseTimeRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return timeRange, true
}

func cacheInfo(sess *session.Session) cacheResponse {
	states := make(map[model.TimeRange]string)
	for _, tr := range []model.TimeRange{model.RangeWeek, model.RangeMonth, model.RangeAll} {
		states[tr] = sess.CacheState(tr).String()
	}
	return cacheResponse{
		Info:            sess.CacheInfo(),
		States:          states,
		PendingRemovals: sess.Completions.PendingRemovals(),
	}
}
