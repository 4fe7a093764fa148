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

type PortfolioHandler struct {
	portfolio *services.PortfolioService
	reports   *services.ReportService
	sync      *services.SyncService
}

func NewPortfolioHandler(portfolioService *services.PortfolioService, reportService *services.ReportService, syncService *services.SyncService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolioService, reports: reportService, sync: syncService}
}

func (h *PortfolioHandler) afterMutation(r *http.Request) {
	h.reports.Invalidate()
	if h.sync != nil {
		h.sync.Push(r.Context())
	}
}

func (h *PortfolioHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var inv models.Investment
	if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	inv.Name = validation.SanitizeText(inv.Name)
	inv.AssetType = validation.SanitizeText(inv.AssetType)

	if err := h.portfolio.CreateAsset(r.Context(), &inv); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.afterMutation(r)
	utils.SendJSON(w, inv, http.StatusCreated)
}

func (h *PortfolioHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	inv, err := h.portfolio.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, inv, http.StatusOK)
}

func (h *PortfolioHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	assets, err := h.portfolio.ListAssets(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list investments", "error", err)
		utils.SendJSONError(w, "Failed to list investments", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, assets, http.StatusOK)
}

func (h *PortfolioHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolio.DeleteAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.afterMutation(r)
	utils.SendJSON(w, map[string]string{"message": "Investment deleted"}, http.StatusOK)
}

// HandleTrade executes a buy or sell against the asset. The optional account
// field selects which money account settles the companion cash entry.
func (h *PortfolioHandler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		models.InvestmentTrade
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	inv, err := h.portfolio.ExecuteTrade(r.Context(),
		chi.URLParam(r, "id"), requestBody.Account, requestBody.InvestmentTrade)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.afterMutation(r)
	utils.SendJSON(w, inv, http.StatusOK)
}

// HandleMark updates the manual valuation price of an asset.
func (h *PortfolioHandler) HandleMark(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		CurrPrice string `json:"currPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.portfolio.UpdateMark(r.Context(), chi.URLParam(r, "id"), requestBody.CurrPrice); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, map[string]string{"message": "Price updated"}, http.StatusOK)
}

func (h *PortfolioHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolio.Summary(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to build portfolio summary", "error", err)
		utils.SendJSONError(w, "Failed to build portfolio summary", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, summary, http.StatusOK)
}
