package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
)

func init() {
	logger.InitLogger("error")
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "db", "migrations", "000001_init_schema.up.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	return db
}

func seedAccount(t *testing.T, db *sql.DB, id, opening string) {
	t.Helper()
	acc := &models.Account{
		ID: id, Name: "Account " + id, Type: models.AccountBank,
		OpeningBalance: dec(opening), Balance: dec(opening),
	}
	require.NoError(t, model.CreateAccount(db, acc, false))
}

func seedParty(t *testing.T, db *sql.DB, id string, partyType models.PartyType) {
	t.Helper()
	p := &models.Party{
		ID: id, Name: "Party " + id, Type: partyType,
		OpeningBalance: dec("0"), CurrentBalance: dec("0"),
	}
	require.NoError(t, model.CreateParty(db, p))
}

func seedItem(t *testing.T, db *sql.DB, id, stock string) {
	t.Helper()
	item := &models.InventoryItem{
		ID: id, Name: "Item " + id, Unit: "Unit",
		PurchasePrice: dec("10"), SalePrice: dec("15"),
		OpeningStock: dec(stock), Stock: dec(stock), MinStock: dec("0"),
	}
	require.NoError(t, model.CreateInventoryItem(db, item))
}

func accountBalance(t *testing.T, db *sql.DB, id string) decimal.Decimal {
	t.Helper()
	acc, err := model.GetAccountByID(db, id)
	require.NoError(t, err)
	return acc.Balance
}

func partyBalance(t *testing.T, db *sql.DB, id string) decimal.Decimal {
	t.Helper()
	p, err := model.GetPartyByID(db, id)
	require.NoError(t, err)
	return p.CurrentBalance
}

func itemStock(t *testing.T, db *sql.DB, id string) decimal.Decimal {
	t.Helper()
	item, err := model.GetInventoryItemByID(db, id)
	require.NoError(t, err)
	return item.Stock
}

func TestCreateTransactionReconcilesBalances(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedParty(t, db, "cust1", models.PartyCustomer)

	tx := &models.Transaction{
		ID: "t1", Type: models.TypeSale, Date: "2024-03-01",
		Description: "Sold widgets", Account: "acc1", PartyID: "cust1", Amount: dec("250"),
	}
	require.NoError(t, svc.CreateTransaction(ctx, tx))

	assert.True(t, dec("1250").Equal(accountBalance(t, db, "acc1")))
	assert.True(t, dec("250").Equal(partyBalance(t, db, "cust1")))
}

func TestUpdateTransactionSwapsEffect(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedAccount(t, db, "acc2", "500")

	tx := &models.Transaction{
		ID: "t1", Type: models.TypeExpense, Date: "2024-03-01",
		Description: "Office rent", Account: "acc1", Amount: dec("100"),
	}
	require.NoError(t, svc.CreateTransaction(ctx, tx))
	require.True(t, dec("900").Equal(accountBalance(t, db, "acc1")))

	// Move the expense to the other account and raise it.
	tx.Account = "acc2"
	tx.Amount = dec("150")
	require.NoError(t, svc.UpdateTransaction(ctx, tx))

	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
	assert.True(t, dec("350").Equal(accountBalance(t, db, "acc2")))
}

func TestDeleteTransactionRestoresBalances(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedParty(t, db, "vend1", models.PartyVendor)

	tx := &models.Transaction{
		ID: "t1", Type: models.TypePurchase, Date: "2024-03-01",
		Description: "Stock purchase", Account: "acc1", PartyID: "vend1", Amount: dec("400"),
	}
	require.NoError(t, svc.CreateTransaction(ctx, tx))
	require.True(t, dec("600").Equal(accountBalance(t, db, "acc1")))
	require.True(t, dec("-400").Equal(partyBalance(t, db, "vend1")))

	require.NoError(t, svc.DeleteTransaction(ctx, "t1"))
	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
	assert.True(t, partyBalance(t, db, "vend1").IsZero())

	_, err := svc.GetTransaction(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDanglingReferencesAreSilentNoOps(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")

	tx := &models.Transaction{
		ID: "t1", Type: models.TypeIncome, Date: "2024-03-01",
		Description: "Payment received", Account: "ghost", PartyID: "nobody", Amount: dec("250"),
	}
	require.NoError(t, svc.CreateTransaction(ctx, tx))

	// The transaction exists; nothing else moved.
	stored, err := svc.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, dec("250").Equal(stored.Amount))
	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
}

func TestCreateTransactionRejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	tests := []struct {
		name string
		tx   models.Transaction
	}{
		{"zero amount", models.Transaction{ID: "t1", Type: models.TypeIncome, Date: "2024-03-01", Description: "x", Amount: dec("0")}},
		{"negative amount", models.Transaction{ID: "t2", Type: models.TypeIncome, Date: "2024-03-01", Description: "x", Amount: dec("-5")}},
		{"unknown type", models.Transaction{ID: "t3", Type: "transfer", Date: "2024-03-01", Description: "x", Amount: dec("5")}},
		{"bad date", models.Transaction{ID: "t4", Type: models.TypeIncome, Date: "03/01/2024", Description: "x", Amount: dec("5")}},
		{"empty description", models.Transaction{ID: "t5", Type: models.TypeIncome, Date: "2024-03-01", Description: "  ", Amount: dec("5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := tt.tx
			err := svc.CreateTransaction(ctx, &tx)
			assert.ErrorIs(t, err, validation.ErrValidationFailed)
		})
	}
}

func TestPurchaseAndSaleMoveStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedItem(t, db, "widget", "0")

	purchase := &models.Transaction{
		ID: "t1", Type: models.TypePurchase, Date: "2024-03-01",
		Description: "Restock", Account: "acc1", Amount: dec("100"),
		InventoryItems: []models.TransactionItem{{ItemID: "widget", Qty: dec("10"), Price: dec("10")}},
	}
	require.NoError(t, svc.CreateTransaction(ctx, purchase))
	require.True(t, dec("10").Equal(itemStock(t, db, "widget")))

	sale := &models.Transaction{
		ID: "t2", Type: models.TypeSale, Date: "2024-03-02",
		Description: "Sold widgets", Account: "acc1", Amount: dec("60"),
		InventoryItems: []models.TransactionItem{{ItemID: "widget", Qty: dec("4"), Price: dec("15")}},
	}
	require.NoError(t, svc.CreateTransaction(ctx, sale))
	assert.True(t, dec("6").Equal(itemStock(t, db, "widget")))
}

func TestSaleBlockedOnInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedItem(t, db, "widget", "3")

	sale := &models.Transaction{
		ID: "t1", Type: models.TypeSale, Date: "2024-03-01",
		Description: "Oversold", Account: "acc1", Amount: dec("60"),
		InventoryItems: []models.TransactionItem{{ItemID: "widget", Qty: dec("4"), Price: dec("15")}},
	}
	err := svc.CreateTransaction(ctx, sale)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The whole write rolled back: no transaction, no balance or stock move.
	_, err = svc.GetTransaction(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, dec("3").Equal(itemStock(t, db, "widget")))
	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
}

func TestEditingSaleDownWithinRestoredStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedItem(t, db, "widget", "10")

	sale := &models.Transaction{
		ID: "t1", Type: models.TypeSale, Date: "2024-03-01",
		Description: "Sold widgets", Account: "acc1", Amount: dec("150"),
		InventoryItems: []models.TransactionItem{{ItemID: "widget", Qty: dec("10"), Price: dec("15")}},
	}
	require.NoError(t, svc.CreateTransaction(ctx, sale))
	require.True(t, itemStock(t, db, "widget").IsZero())

	// Stock is zero, but shrinking the same sale must succeed: its own
	// quantity is given back before the check.
	sale.Amount = dec("90")
	sale.InventoryItems = []models.TransactionItem{{ItemID: "widget", Qty: dec("6"), Price: dec("15")}}
	require.NoError(t, svc.UpdateTransaction(ctx, sale))
	assert.True(t, dec("4").Equal(itemStock(t, db, "widget")))
}

func TestStatementThroughService(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")

	first := &models.Transaction{ID: "t1", Type: models.TypeIncome, Date: "2024-03-01", Description: "Invoice paid", Account: "acc1", Amount: dec("200")}
	second := &models.Transaction{ID: "t2", Type: models.TypeExpense, Date: "2024-03-02", Description: "Rent", Account: "acc1", Amount: dec("50")}
	require.NoError(t, svc.CreateTransaction(ctx, first))
	require.NoError(t, svc.CreateTransaction(ctx, second))

	lines, err := svc.AccountStatement(ctx, "acc1", "", "")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, dec("1200").Equal(lines[0].Running))
	assert.True(t, dec("1150").Equal(lines[1].Running))
}

func TestRebuildRepairsDrift(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db)
	ctx := context.Background()

	seedAccount(t, db, "acc1", "1000")
	seedParty(t, db, "cust1", models.PartyCustomer)
	seedItem(t, db, "widget", "0")

	tx := &models.Transaction{
		ID: "t1", Type: models.TypeSale, Date: "2024-03-01",
		Description: "Sold widgets", Account: "acc1", PartyID: "cust1", Amount: dec("300"),
	}
	require.NoError(t, svc.CreateTransaction(ctx, tx))

	// Corrupt the stored balances directly.
	_, err := db.Exec(`UPDATE accounts SET balance = '9999' WHERE id = 'acc1'`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE parties SET current_balance = '-1' WHERE id = 'cust1'`)
	require.NoError(t, err)

	require.NoError(t, svc.Rebuild(ctx, db))

	assert.True(t, dec("1300").Equal(accountBalance(t, db, "acc1")))
	assert.True(t, dec("300").Equal(partyBalance(t, db, "cust1")))
}
