package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
)

func TestExportImportRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ledgerSvc := NewLedgerService(db)
	svc := NewSnapshotService(db, ledgerSvc)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")
	seedAccount(t, db, "acc1", "1000")
	seedParty(t, db, "cust1", models.PartyCustomer)
	seedItem(t, db, "widget", "0")

	require.NoError(t, ledgerSvc.CreateTransaction(ctx, &models.Transaction{
		ID: "t1", Type: models.TypeSale, Date: "2024-03-01",
		Description: "Sold widgets", Account: "acc1", PartyID: "cust1", Amount: dec("250"),
	}))

	raw, err := svc.Export(ctx, false)
	require.NoError(t, err)

	var envelope models.ExportEnvelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, "owner", envelope.Owner)
	require.Len(t, envelope.Payload.Transactions, 1)

	// Wipe and reimport; derived balances come back from the log.
	_, err = db.Exec(`DELETE FROM transactions`)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE accounts SET balance = '0'`)
	require.NoError(t, err)

	require.NoError(t, svc.Import(ctx, raw))

	assert.True(t, dec("1250").Equal(accountBalance(t, db, "acc1")))
	assert.True(t, dec("250").Equal(partyBalance(t, db, "cust1")))

	restored, err := ledgerSvc.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Sold widgets", restored.Description)
}

func TestExportImportPreservesOpeningStock(t *testing.T) {
	db := newTestDB(t)
	ledgerSvc := NewLedgerService(db)
	svc := NewSnapshotService(db, ledgerSvc)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")
	seedAccount(t, db, "acc1", "1000")
	seedItem(t, db, "widget", "50")

	require.NoError(t, ledgerSvc.CreateTransaction(ctx, &models.Transaction{
		ID: "t1", Type: models.TypeSale, Date: "2024-03-01",
		Description: "Sold widgets", Account: "acc1", Amount: dec("150"),
		InventoryItems: []models.TransactionItem{{ItemID: "widget", Qty: dec("10"), Price: dec("15")}},
	}))
	require.True(t, dec("40").Equal(itemStock(t, db, "widget")))

	raw, err := svc.Export(ctx, false)
	require.NoError(t, err)
	require.NoError(t, svc.Import(ctx, raw))

	// The rebuild adds the sale delta on top of the opening base, so the
	// round trip must land back on 50 - 10, not on -10.
	assert.True(t, dec("40").Equal(itemStock(t, db, "widget")))

	item, err := model.GetInventoryItemByID(db, "widget")
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(item.OpeningStock))
}

func TestExportBareOmitsEnvelope(t *testing.T) {
	db := newTestDB(t)
	svc := NewSnapshotService(db, NewLedgerService(db))
	ctx := context.Background()

	seedOwner(t, db, "login-pw")

	raw, err := svc.Export(ctx, true)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "auth")
	assert.NotContains(t, doc, "payload")
}

func TestImportReplacesExistingData(t *testing.T) {
	db := newTestDB(t)
	ledgerSvc := NewLedgerService(db)
	svc := NewSnapshotService(db, ledgerSvc)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")
	seedAccount(t, db, "old-acc", "999")

	snapshot := models.AppData{
		Auth: models.AuthInfo{UserID: "owner", Password: "hash"},
		Sync: models.SyncInfo{SyncID: "remote-1", AutoSync: true, LastSynced: "2024-03-01T10:00:00Z"},
		Accounts: []models.Account{
			{ID: "acc1", Name: "Imported Bank", Type: models.AccountBank, OpeningBalance: dec("500")},
		},
		Transactions: []models.Transaction{
			{ID: "t1", Type: models.TypeIncome, Date: "2024-03-01", Description: "Fees", Account: "acc1", Amount: dec("100")},
		},
		Categories: models.Categories{Income: []string{"Fees"}, Expense: []string{"Rent"}},
	}
	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)

	require.NoError(t, svc.Import(ctx, raw))

	// The previous account set is gone.
	_, err = model.GetAccountByID(db, "old-acc")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// Stored balance in the file is irrelevant: 500 opening + 100 income.
	assert.True(t, dec("600").Equal(accountBalance(t, db, "acc1")))

	// The first imported account becomes the default.
	isDefault, err := model.IsDefaultAccount(db, "acc1")
	require.NoError(t, err)
	assert.True(t, isDefault)

	// Sync binding carried over from the snapshot.
	owner, err := model.GetOwner(db)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", owner.SyncID)
	assert.True(t, owner.AutoSync)

	cats, err := model.ListCategories(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fees"}, cats.Income)
}

func TestImportRejectsSnapshotWithoutOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewSnapshotService(db, NewLedgerService(db))
	ctx := context.Background()

	seedOwner(t, db, "login-pw")
	seedAccount(t, db, "acc1", "1000")

	err := svc.Import(ctx, []byte(`{"accounts": []}`))
	require.Error(t, err)

	// Nothing was touched.
	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
}
