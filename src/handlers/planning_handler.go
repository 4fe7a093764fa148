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

type PlanningHandler struct {
	planning *services.PlanningService
}

func NewPlanningHandler(planningService *services.PlanningService) *PlanningHandler {
	return &PlanningHandler{planning: planningService}
}

func (h *PlanningHandler) HandleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b models.Budget
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	b.Category = validation.SanitizeText(b.Category)

	if err := h.planning.CreateBudget(r.Context(), &b); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, b, http.StatusCreated)
}

func (h *PlanningHandler) HandleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var b models.Budget
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	b.ID = chi.URLParam(r, "id")
	b.Category = validation.SanitizeText(b.Category)

	if err := h.planning.UpdateBudget(r.Context(), &b); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, b, http.StatusOK)
}

func (h *PlanningHandler) HandleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := h.planning.DeleteBudget(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Budget deleted"}, http.StatusOK)
}

// HandleListBudgets lists budgets; with ?month= it also measures spend
// against each limit.
func (h *PlanningHandler) HandleListBudgets(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month != "" {
		progress, err := h.planning.BudgetProgressForMonth(r.Context(), month)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		utils.SendJSON(w, progress, http.StatusOK)
		return
	}

	budgets, err := h.planning.ListBudgets(r.Context(), "")
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list budgets", "error", err)
		utils.SendJSONError(w, "Failed to list budgets", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, budgets, http.StatusOK)
}

// HandleCopyBudgets seeds a month's budgets from an earlier month.
func (h *PlanningHandler) HandleCopyBudgets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	copied, err := h.planning.CopyBudgets(r.Context(), req.From, req.To)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, copied, http.StatusCreated)
}

func (h *PlanningHandler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var g models.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	g.Name = validation.SanitizeText(g.Name)

	if err := h.planning.CreateGoal(r.Context(), &g); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, g, http.StatusCreated)
}

func (h *PlanningHandler) HandleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var g models.Goal
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	g.ID = chi.URLParam(r, "id")
	g.Name = validation.SanitizeText(g.Name)

	if err := h.planning.UpdateGoal(r.Context(), &g); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, g, http.StatusOK)
}

func (h *PlanningHandler) HandleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.planning.DeleteGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Goal deleted"}, http.StatusOK)
}

func (h *PlanningHandler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.planning.ListGoals(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list goals", "error", err)
		utils.SendJSONError(w, "Failed to list goals", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, goals, http.StatusOK)
}
