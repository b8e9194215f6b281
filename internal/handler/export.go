package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/templui/habitflywheel/internal/ctxkeys"
	"github.com/templui/habitflywheel/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Export streams the user's data as a JSON download.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	export, err := h.exportService.Export(r.Context(), userID)
	if err != nil {
		fail(w, r, "failed to export data", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=habits-export.json")

	err = json.NewEncoder(w).Encode(export)
	if err != nil {
		slog.Error("failed to encode export", "error", err, "user_id", userID)
	}
}

// Archive saves the export to object storage and returns a download link.
func (h *ExportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	archive, err := h.exportService.Archive(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		fail(w, r, "failed to archive export", err)
		return
	}

	writeJSON(w, http.StatusCreated, archive)
}
