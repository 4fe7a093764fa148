package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

// SnapshotHandler serves full-data export and import.
type SnapshotHandler struct {
	snapshot *services.SnapshotService
	reports  *services.ReportService
}

func NewSnapshotHandler(snapshotService *services.SnapshotService, reportService *services.ReportService) *SnapshotHandler {
	return &SnapshotHandler{snapshot: snapshotService, reports: reportService}
}

// HandleExport downloads the snapshot. ?format=bare skips the versioned
// envelope for compatibility with older importers.
func (h *SnapshotHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	bare := r.URL.Query().Get("format") == "bare"
	raw, err := h.snapshot.Export(r.Context(), bare)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("ledgerdesk-backup-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Write(raw)
}

// HandleImport replaces all data with the uploaded snapshot. The body size
// is capped to keep a hostile upload from exhausting memory.
func (h *SnapshotHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.Cfg.MaxImportSizeBytes))
	if err != nil {
		utils.SendJSONError(w, "Import file too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}

	if err := h.snapshot.Import(r.Context(), raw); err != nil {
		logger.FromContext(r.Context()).Warn("Snapshot import rejected", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, map[string]string{"message": "Import complete. Balances rebuilt."}, http.StatusOK)
}
