package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

type AccountHandler struct {
	accounts *services.AccountService
	ledger   *services.LedgerService
	reports  *services.ReportService
}

func NewAccountHandler(accountService *services.AccountService, ledgerService *services.LedgerService, reportService *services.ReportService) *AccountHandler {
	return &AccountHandler{accounts: accountService, ledger: ledgerService, reports: reportService}
}

func sanitizeAccount(acc *models.Account) {
	acc.Name = validation.SanitizeText(acc.Name)
	acc.BankName = validation.SanitizeText(acc.BankName)
	acc.AccountNumber = validation.SanitizeText(acc.AccountNumber)
}

func (h *AccountHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var acc models.Account
	if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sanitizeAccount(&acc)

	if err := h.accounts.CreateAccount(r.Context(), &acc); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, acc, http.StatusCreated)
}

func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var acc models.Account
	if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	acc.ID = chi.URLParam(r, "id")
	sanitizeAccount(&acc)

	if err := h.accounts.UpdateAccount(r.Context(), &acc); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, acc, http.StatusOK)
}

func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, map[string]string{"message": "Account deleted"}, http.StatusOK)
}

func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	acc, err := h.accounts.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, acc, http.StatusOK)
}

func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list accounts", "error", err)
		utils.SendJSONError(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, accounts, http.StatusOK)
}

// HandleStatement returns the running-balance statement for an account,
// optionally narrowed with from/to query params.
func (h *AccountHandler) HandleStatement(w http.ResponseWriter, r *http.Request) {
	lines, err := h.ledger.AccountStatement(r.Context(),
		chi.URLParam(r, "id"), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, lines, http.StatusOK)
}

// HandleStatementCSV streams the statement as a CSV download. Text cells are
// guarded against spreadsheet formula injection.
func (h *AccountHandler) HandleStatementCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lines, err := h.ledger.AccountStatement(r.Context(),
		id, r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.csv"`, id))

	cw := csv.NewWriter(w)
	cw.Write([]string{"Date", "Description", "Category", "Type", "Amount", "Running Balance"})
	for _, line := range lines {
		tx := line.Transaction
		cw.Write([]string{
			tx.Date,
			validation.SanitizeForFormulaInjection(tx.Description),
			validation.SanitizeForFormulaInjection(tx.Category),
			string(tx.Type),
			tx.Amount.String(),
			line.Running.String(),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.FromContext(r.Context()).Error("Failed to write statement CSV", "account", id, "error", err)
	}
}
