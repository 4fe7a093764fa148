package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
)

func TestCreateItemSeedsStockFromOpening(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db)
	ctx := context.Background()

	require.NoError(t, svc.CreateItem(ctx, &models.InventoryItem{
		ID: "bolt", Name: "Bolt", Unit: "Box",
		PurchasePrice: dec("4"), SalePrice: dec("6"),
		OpeningStock: dec("25"), MinStock: dec("5"),
	}))

	item, err := model.GetInventoryItemByID(db, "bolt")
	require.NoError(t, err)
	assert.True(t, dec("25").Equal(item.OpeningStock))
	assert.True(t, dec("25").Equal(item.Stock))
}

func TestCreateItemAcceptsLegacyStockField(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db)
	ctx := context.Background()

	// Clients that predate the opening stock field send stock only.
	require.NoError(t, svc.CreateItem(ctx, &models.InventoryItem{
		ID: "nut", Name: "Nut", Unit: "Box",
		PurchasePrice: dec("1"), SalePrice: dec("2"),
		Stock: dec("12"),
	}))

	item, err := model.GetInventoryItemByID(db, "nut")
	require.NoError(t, err)
	assert.True(t, dec("12").Equal(item.OpeningStock))
	assert.True(t, dec("12").Equal(item.Stock))
}

func TestCreateItemRejectsNegativeOpeningStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db)

	err := svc.CreateItem(context.Background(), &models.InventoryItem{
		ID: "bad", Name: "Bad", OpeningStock: dec("-1"),
	})
	assert.ErrorIs(t, err, validation.ErrValidationFailed)
}

func TestUpdateItemShiftsStockWithOpening(t *testing.T) {
	db := newTestDB(t)
	invSvc := NewInventoryService(db)
	ledgerSvc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedItem(t, db, "widget", "50")

	require.NoError(t, ledgerSvc.CreateTransaction(ctx, &models.Transaction{
		ID: "t1", Type: models.TypeSale, Date: "2024-03-01",
		Description: "Sold widgets", Account: "acc1", Amount: dec("150"),
		InventoryItems: []models.TransactionItem{{ItemID: "widget", Qty: dec("10"), Price: dec("15")}},
	}))
	require.True(t, dec("40").Equal(itemStock(t, db, "widget")))

	// Raising the opening base by 20 moves stock by the same amount; the
	// sale already applied stays applied.
	require.NoError(t, invSvc.UpdateItem(ctx, &models.InventoryItem{
		ID: "widget", Name: "Widget", Unit: "Unit",
		PurchasePrice: dec("10"), SalePrice: dec("15"),
		OpeningStock: dec("70"), MinStock: dec("0"),
	}))

	item, err := model.GetInventoryItemByID(db, "widget")
	require.NoError(t, err)
	assert.True(t, dec("70").Equal(item.OpeningStock))
	assert.True(t, dec("60").Equal(item.Stock))
}

func TestLowStockFlagsItemsAtThreshold(t *testing.T) {
	db := newTestDB(t)
	svc := NewInventoryService(db)
	ctx := context.Background()

	require.NoError(t, svc.CreateItem(ctx, &models.InventoryItem{
		ID: "scarce", Name: "Scarce", OpeningStock: dec("3"), MinStock: dec("5"),
	}))
	require.NoError(t, svc.CreateItem(ctx, &models.InventoryItem{
		ID: "plenty", Name: "Plenty", OpeningStock: dec("100"), MinStock: dec("5"),
	}))
	require.NoError(t, svc.CreateItem(ctx, &models.InventoryItem{
		ID: "untracked", Name: "Untracked", OpeningStock: dec("0"), MinStock: dec("0"),
	}))

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "scarce", low[0].ID)
}
