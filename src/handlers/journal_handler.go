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

type JournalHandler struct {
	journal *services.JournalService
}

func NewJournalHandler(journalService *services.JournalService) *JournalHandler {
	return &JournalHandler{journal: journalService}
}

func sanitizeEntry(e *models.JournalEntry) {
	e.Title = validation.SanitizeText(e.Title)
	// Content is usually pasted; drop control characters on top of the HTML strip.
	e.Content = validation.StripUnprintable(validation.SanitizeText(e.Content))
}

func (h *JournalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var e models.JournalEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sanitizeEntry(&e)

	if err := h.journal.CreateEntry(r.Context(), &e); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, e, http.StatusCreated)
}

func (h *JournalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var e models.JournalEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	e.ID = chi.URLParam(r, "id")
	sanitizeEntry(&e)

	if err := h.journal.UpdateEntry(r.Context(), &e); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, e, http.StatusOK)
}

func (h *JournalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Entry deleted"}, http.StatusOK)
}

func (h *JournalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	e, err := h.journal.GetEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, e, http.StatusOK)
}

func (h *JournalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.journal.ListEntries(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list journal entries", "error", err)
		utils.SendJSONError(w, "Failed to list journal entries", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, entries, http.StatusOK)
}

func (h *JournalHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.journal.ListCategories(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list categories", "error", err)
		utils.SendJSONError(w, "Failed to list categories", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, cats, http.StatusOK)
}

func (h *JournalHandler) HandleAddCategory(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	name := validation.SanitizeText(requestBody.Name)

	if err := h.journal.AddCategory(r.Context(), model.CategoryKind(requestBody.Kind), name); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Category added"}, http.StatusCreated)
}

func (h *JournalHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	kind := model.CategoryKind(chi.URLParam(r, "kind"))
	name := chi.URLParam(r, "name")

	if err := h.journal.DeleteCategory(r.Context(), kind, name); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Category deleted"}, http.StatusOK)
}
