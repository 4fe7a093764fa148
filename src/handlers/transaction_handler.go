package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

// TransactionHandler exposes the transaction log. After every successful
// mutation it drops cached reports and, when auto-sync is on, schedules a
// background push of the snapshot.
type TransactionHandler struct {
	ledger  *services.LedgerService
	reports *services.ReportService
	sync    *services.SyncService
}

func NewTransactionHandler(ledgerService *services.LedgerService, reportService *services.ReportService, syncService *services.SyncService) *TransactionHandler {
	return &TransactionHandler{ledger: ledgerService, reports: reportService, sync: syncService}
}

// afterMutation runs the shared post-write hooks.
func (h *TransactionHandler) afterMutation(r *http.Request) {
	h.reports.Invalidate()
	if h.sync != nil {
		h.sync.Push(r.Context())
	}
}

func sanitizeTransaction(tx *models.Transaction) {
	tx.Description = validation.SanitizeText(tx.Description)
	tx.Category = validation.SanitizeText(tx.Category)
	tx.Notes = validation.SanitizeText(tx.Notes)
}

func (h *TransactionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sanitizeTransaction(&tx)

	if err := h.ledger.CreateTransaction(r.Context(), &tx); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.afterMutation(r)
	utils.SendJSON(w, tx, http.StatusCreated)
}

func (h *TransactionHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	tx.ID = chi.URLParam(r, "id")
	sanitizeTransaction(&tx)

	if err := h.ledger.UpdateTransaction(r.Context(), &tx); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.afterMutation(r)
	utils.SendJSON(w, tx, http.StatusOK)
}

func (h *TransactionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ledger.DeleteTransaction(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.afterMutation(r)
	utils.SendJSON(w, map[string]string{"message": "Transaction deleted"}, http.StatusOK)
}

func (h *TransactionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, tx, http.StatusOK)
}

func (h *TransactionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TransactionFilter{
		Type:      models.TransactionType(q.Get("type")),
		AccountID: q.Get("account"),
		PartyID:   q.Get("party"),
		Category:  q.Get("category"),
		Month:     q.Get("month"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Search:    q.Get("search"),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		utils.SendJSONError(w, "Unknown transaction type filter", http.StatusBadRequest)
		return
	}

	txs, err := h.ledger.ListTransactions(r.Context(), filter)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list transactions", "error", err)
		utils.SendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, txs, http.StatusOK)
}
