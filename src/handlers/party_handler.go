package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

type PartyHandler struct {
	parties *services.PartyService
	ledger  *services.LedgerService
	reports *services.ReportService
}

func NewPartyHandler(partyService *services.PartyService, ledgerService *services.LedgerService, reportService *services.ReportService) *PartyHandler {
	return &PartyHandler{parties: partyService, ledger: ledgerService, reports: reportService}
}

func sanitizeParty(p *models.Party) {
	p.Name = validation.SanitizeText(p.Name)
	p.Phone = validation.SanitizeText(p.Phone)
	p.Email = validation.SanitizeText(p.Email)
	p.Address = validation.SanitizeText(p.Address)
}

func (h *PartyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p models.Party
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sanitizeParty(&p)

	if err := h.parties.CreateParty(r.Context(), &p); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, p, http.StatusCreated)
}

func (h *PartyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var p models.Party
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = chi.URLParam(r, "id")
	sanitizeParty(&p)

	if err := h.parties.UpdateParty(r.Context(), &p); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, p, http.StatusOK)
}

func (h *PartyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.parties.DeleteParty(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, map[string]string{"message": "Party deleted"}, http.StatusOK)
}

func (h *PartyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.parties.GetParty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, p, http.StatusOK)
}

func (h *PartyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	parties, err := h.parties.ListParties(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list parties", "error", err)
		utils.SendJSONError(w, "Failed to list parties", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, parties, http.StatusOK)
}

// HandleStatement returns the running-balance ledger view for one party.
func (h *PartyHandler) HandleStatement(w http.ResponseWriter, r *http.Request) {
	lines, err := h.ledger.PartyStatement(r.Context(),
		chi.URLParam(r, "id"), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, lines, http.StatusOK)
}
