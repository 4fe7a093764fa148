package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
)

// InventoryService manages the item catalog. Stock levels are derived state:
// opening stock is the editable base, everything on top moves through
// purchase/sale transactions (LedgerService) or a snapshot import.
type InventoryService struct {
	DB *sql.DB
}

func NewInventoryService(db *sql.DB) *InventoryService {
	return &InventoryService{DB: db}
}

func (s *InventoryService) validate(item *models.InventoryItem) error {
	if err := validation.ValidateEntityID(item.ID, "item id"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(item.Name, "name"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(item.Name, validation.MaxNameLength, "name"); err != nil {
		return err
	}
	var err error
	if item.PurchasePrice, err = validation.ValidateNonNegativeAmount(item.PurchasePrice.String(), "purchase price"); err != nil {
		return err
	}
	if item.SalePrice, err = validation.ValidateNonNegativeAmount(item.SalePrice.String(), "sale price"); err != nil {
		return err
	}
	if item.MinStock, err = validation.ValidateNonNegativeAmount(item.MinStock.String(), "minimum stock"); err != nil {
		return err
	}
	return nil
}

// CreateItem stores a new item with stock seeded from the opening stock,
// the same way accounts seed their balance.
func (s *InventoryService) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	if err := s.validate(item); err != nil {
		return err
	}
	// Older clients send the initial quantity in the stock field.
	if item.OpeningStock.IsZero() {
		item.OpeningStock = item.Stock
	}
	if item.OpeningStock.IsNegative() {
		return fmt.Errorf("%w: opening stock cannot be negative", validation.ErrValidationFailed)
	}
	item.Stock = item.OpeningStock
	if err := model.CreateInventoryItem(s.DB, item); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("inventory item created", "id", item.ID, "name", item.Name)
	return nil
}

// UpdateItem edits catalog fields. A changed opening stock shifts the stored
// stock level by the same difference, so transaction history stays intact.
func (s *InventoryService) UpdateItem(ctx context.Context, item *models.InventoryItem) error {
	if err := s.validate(item); err != nil {
		return err
	}
	if item.OpeningStock.IsNegative() {
		return fmt.Errorf("%w: opening stock cannot be negative", validation.ErrValidationFailed)
	}
	current, err := model.GetInventoryItemByID(s.DB, item.ID)
	if err != nil {
		return err
	}
	item.Stock = current.Stock.Add(item.OpeningStock.Sub(current.OpeningStock))
	return model.UpdateInventoryItem(s.DB, item)
}

func (s *InventoryService) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	return model.GetInventoryItemByID(s.DB, id)
}

func (s *InventoryService) ListItems(ctx context.Context) ([]models.InventoryItem, error) {
	return model.ListInventoryItems(s.DB)
}

func (s *InventoryService) DeleteItem(ctx context.Context, id string) error {
	if err := model.DeleteInventoryItem(s.DB, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("inventory item deleted", "id", id)
	return nil
}

// LowStock returns the items at or below their alert threshold.
func (s *InventoryService) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	items, err := model.ListInventoryItems(s.DB)
	if err != nil {
		return nil, err
	}
	low := []models.InventoryItem{}
	for _, item := range items {
		if item.MinStock.IsPositive() && item.Stock.LessThanOrEqual(item.MinStock) {
			low = append(low, item)
		}
	}
	return low, nil
}
