package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/portfolio"
)

func seedAsset(t *testing.T, svc *PortfolioService, id string) {
	t.Helper()
	inv := &models.Investment{ID: id, Name: "INFY", AssetType: "Stock"}
	require.NoError(t, svc.CreateAsset(context.Background(), inv))
}

func TestExecuteTradeWritesLotHistoryAndCash(t *testing.T) {
	db := newTestDB(t)
	svc := NewPortfolioService(db)
	ledgerSvc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "5000")
	seedAsset(t, svc, "inv1")

	trade := models.InvestmentTrade{
		ID: "tr1", Date: "2024-03-01", Type: models.TradeBuy,
		Qty: dec("10"), Price: dec("100"), Charges: dec("50"),
	}
	updated, err := svc.ExecuteTrade(ctx, "inv1", "acc1", trade)
	require.NoError(t, err)

	assert.True(t, dec("10").Equal(updated.Qty))
	assert.True(t, dec("105").Equal(updated.AvgBuyPrice))

	// The history row was persisted.
	stored, err := svc.GetAsset(ctx, "inv1")
	require.NoError(t, err)
	require.Len(t, stored.History, 1)
	assert.Equal(t, "tr1", stored.History[0].ID)

	// Settlement: 10*100 + 50 left the account through a companion entry.
	assert.True(t, dec("3950").Equal(accountBalance(t, db, "acc1")))
	cash, err := ledgerSvc.GetTransaction(ctx, "tr1-cash")
	require.NoError(t, err)
	assert.Equal(t, models.TypeExpense, cash.Type)
	assert.Equal(t, "Investment", cash.Category)
	assert.True(t, dec("1050").Equal(cash.Amount))
}

func TestExecuteSellCollectsCashAndRecordsBasis(t *testing.T) {
	db := newTestDB(t)
	svc := NewPortfolioService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "0")
	seedAsset(t, svc, "inv1")

	_, err := svc.ExecuteTrade(ctx, "inv1", "acc1",
		models.InvestmentTrade{ID: "tr1", Date: "2024-03-01", Type: models.TradeBuy, Qty: dec("10"), Price: dec("100")})
	require.NoError(t, err)

	updated, err := svc.ExecuteTrade(ctx, "inv1", "acc1",
		models.InvestmentTrade{ID: "tr2", Date: "2024-04-01", Type: models.TradeSell, Qty: dec("4"), Price: dec("150")})
	require.NoError(t, err)

	assert.True(t, dec("6").Equal(updated.Qty))
	assert.True(t, dec("200").Equal(updated.TotalRealizedPL))

	stored, err := svc.GetAsset(ctx, "inv1")
	require.NoError(t, err)
	require.Len(t, stored.History, 2)
	assert.True(t, dec("100").Equal(stored.History[1].CostBasis))

	// -1000 on the buy, +600 on the sell.
	assert.True(t, dec("-400").Equal(accountBalance(t, db, "acc1")))
}

func TestExecuteSellWithChargesAboveProceedsSettlesAsExpense(t *testing.T) {
	db := newTestDB(t)
	svc := NewPortfolioService(db)
	ledgerSvc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedAsset(t, svc, "inv1")

	_, err := svc.ExecuteTrade(ctx, "inv1", "",
		models.InvestmentTrade{ID: "tr1", Date: "2024-03-01", Type: models.TradeBuy, Qty: dec("10"), Price: dec("100")})
	require.NoError(t, err)

	// Gross proceeds 0.50, charges 5: the settlement costs money.
	_, err = svc.ExecuteTrade(ctx, "inv1", "acc1",
		models.InvestmentTrade{ID: "tr2", Date: "2024-04-01", Type: models.TradeSell,
			Qty: dec("1"), Price: dec("0.5"), Charges: dec("5")})
	require.NoError(t, err)

	cash, err := ledgerSvc.GetTransaction(ctx, "tr2-cash")
	require.NoError(t, err)
	assert.Equal(t, models.TypeExpense, cash.Type)
	assert.True(t, dec("4.5").Equal(cash.Amount))
	assert.True(t, dec("995.5").Equal(accountBalance(t, db, "acc1")))
}

func TestExecuteTradeRejectionRollsBackEverything(t *testing.T) {
	db := newTestDB(t)
	svc := NewPortfolioService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedAsset(t, svc, "inv1")

	_, err := svc.ExecuteTrade(ctx, "inv1", "acc1",
		models.InvestmentTrade{ID: "tr1", Date: "2024-03-01", Type: models.TradeSell, Qty: dec("1"), Price: dec("100")})
	require.ErrorIs(t, err, portfolio.ErrInsufficientQuantity)

	stored, err := svc.GetAsset(ctx, "inv1")
	require.NoError(t, err)
	assert.Empty(t, stored.History)
	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
}

func TestExecuteTradeWithoutAccountLeavesBalancesAlone(t *testing.T) {
	db := newTestDB(t)
	svc := NewPortfolioService(db)
	ledgerSvc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedAsset(t, svc, "inv1")

	_, err := svc.ExecuteTrade(ctx, "inv1", "",
		models.InvestmentTrade{ID: "tr1", Date: "2024-03-01", Type: models.TradeBuy, Qty: dec("5"), Price: dec("20")})
	require.NoError(t, err)

	// The cash entry exists but settles against no account.
	cash, err := ledgerSvc.GetTransaction(ctx, "tr1-cash")
	require.NoError(t, err)
	assert.Empty(t, cash.Account)
	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
}

func TestUpdateMarkFeedsSummary(t *testing.T) {
	db := newTestDB(t)
	svc := NewPortfolioService(db)
	ctx := context.Background()

	seedAsset(t, svc, "inv1")
	_, err := svc.ExecuteTrade(ctx, "inv1", "",
		models.InvestmentTrade{ID: "tr1", Date: "2024-03-01", Type: models.TradeBuy, Qty: dec("10"), Price: dec("100")})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMark(ctx, "inv1", "120"))

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, dec("1200").Equal(summary.MarketValue))
	assert.True(t, dec("200").Equal(summary.UnrealizedPL))
}
