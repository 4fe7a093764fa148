package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

type SyncHandler struct {
	sync    *services.SyncService
	reports *services.ReportService
}

func NewSyncHandler(syncService *services.SyncService, reportService *services.ReportService) *SyncHandler {
	return &SyncHandler{sync: syncService, reports: reportService}
}

func (h *SyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.sync.Status(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, status, http.StatusOK)
}

// HandleEnable binds this installation to a sync id (minting one when the
// body omits it) and seeds the remote blob.
func (h *SyncHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		SyncID string `json:"syncId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	syncID, err := h.sync.EnableSync(r.Context(), requestBody.SyncID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"syncId": syncID}, http.StatusOK)
}

// HandlePull blocks until the remote snapshot replaces local data.
func (h *SyncHandler) HandlePull(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Pull(r.Context()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, map[string]string{"message": "Pull complete. Local data replaced."}, http.StatusOK)
}

func (h *SyncHandler) HandleSetAutoSync(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		AutoSync bool `json:"autoSync"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.sync.SetAutoSync(r.Context(), requestBody.AutoSync); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]bool{"autoSync": requestBody.AutoSync}, http.StatusOK)
}
