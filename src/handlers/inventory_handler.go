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

type InventoryHandler struct {
	inventory *services.InventoryService
	reports   *services.ReportService
}

func NewInventoryHandler(inventoryService *services.InventoryService, reportService *services.ReportService) *InventoryHandler {
	return &InventoryHandler{inventory: inventoryService, reports: reportService}
}

func sanitizeItem(item *models.InventoryItem) {
	item.Name = validation.SanitizeText(item.Name)
	item.Unit = validation.SanitizeText(item.Unit)
}

func (h *InventoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var item models.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sanitizeItem(&item)

	if err := h.inventory.CreateItem(r.Context(), &item); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, item, http.StatusCreated)
}

func (h *InventoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var item models.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	item.ID = chi.URLParam(r, "id")
	sanitizeItem(&item)

	if err := h.inventory.UpdateItem(r.Context(), &item); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, item, http.StatusOK)
}

func (h *InventoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.reports.Invalidate()
	utils.SendJSON(w, map[string]string{"message": "Item deleted"}, http.StatusOK)
}

func (h *InventoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventory.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, item, http.StatusOK)
}

func (h *InventoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.ListItems(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list inventory", "error", err)
		utils.SendJSONError(w, "Failed to list inventory", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, items, http.StatusOK)
}

func (h *InventoryHandler) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.LowStock(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list low stock items", "error", err)
		utils.SendJSONError(w, "Failed to list low stock items", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, items, http.StatusOK)
}
