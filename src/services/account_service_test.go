package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
)

func TestFirstAccountBecomesDefault(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	first := &models.Account{ID: "acc1", Name: "Main Bank", Type: models.AccountBank, OpeningBalance: dec("1000")}
	require.NoError(t, svc.CreateAccount(ctx, first))
	second := &models.Account{ID: "acc2", Name: "Cash Drawer", Type: models.AccountCash, OpeningBalance: dec("200")}
	require.NoError(t, svc.CreateAccount(ctx, second))

	isDefault, err := model.IsDefaultAccount(db, "acc1")
	require.NoError(t, err)
	assert.True(t, isDefault)

	isDefault, err = model.IsDefaultAccount(db, "acc2")
	require.NoError(t, err)
	assert.False(t, isDefault)

	// Balance seeds from the opening balance.
	assert.True(t, dec("1000").Equal(accountBalance(t, db, "acc1")))
}

func TestUpdateAccountShiftsBalanceWithOpening(t *testing.T) {
	db := newTestDB(t)
	accSvc := NewAccountService(db)
	ledgerSvc := NewLedgerService(db)
	ctx := context.Background()

	acc := &models.Account{ID: "acc1", Name: "Main Bank", Type: models.AccountBank, OpeningBalance: dec("1000")}
	require.NoError(t, accSvc.CreateAccount(ctx, acc))

	tx := &models.Transaction{ID: "t1", Type: models.TypeIncome, Date: "2024-03-01", Description: "Fees", Account: "acc1", Amount: dec("200")}
	require.NoError(t, ledgerSvc.CreateTransaction(ctx, tx))
	require.True(t, dec("1200").Equal(accountBalance(t, db, "acc1")))

	// Correcting the opening by +500 moves the balance by the same amount;
	// the transaction history stays untouched.
	acc.OpeningBalance = dec("1500")
	require.NoError(t, accSvc.UpdateAccount(ctx, acc))
	assert.True(t, dec("1700").Equal(accountBalance(t, db, "acc1")))
}

func TestDeleteAccountGuards(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	first := &models.Account{ID: "acc1", Name: "Main Bank", Type: models.AccountBank}
	require.NoError(t, svc.CreateAccount(ctx, first))

	// The last remaining account (also the default) is protected.
	err := svc.DeleteAccount(ctx, "acc1")
	assert.ErrorIs(t, err, ErrProtectedAccount)

	second := &models.Account{ID: "acc2", Name: "Cash Drawer", Type: models.AccountCash}
	require.NoError(t, svc.CreateAccount(ctx, second))

	// The default stays protected even with others present.
	err = svc.DeleteAccount(ctx, "acc1")
	assert.ErrorIs(t, err, ErrProtectedAccount)

	// A non-default sibling can go.
	require.NoError(t, svc.DeleteAccount(ctx, "acc2"))
	_, err = svc.GetAccount(ctx, "acc2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAccountOrphansTransactions(t *testing.T) {
	db := newTestDB(t)
	accSvc := NewAccountService(db)
	ledgerSvc := NewLedgerService(db)
	ctx := context.Background()

	require.NoError(t, accSvc.CreateAccount(ctx, &models.Account{ID: "acc1", Name: "Main", Type: models.AccountBank}))
	require.NoError(t, accSvc.CreateAccount(ctx, &models.Account{ID: "acc2", Name: "Side", Type: models.AccountBank}))

	tx := &models.Transaction{ID: "t1", Type: models.TypeExpense, Date: "2024-03-01", Description: "Rent", Account: "acc2", Amount: dec("100")}
	require.NoError(t, ledgerSvc.CreateTransaction(ctx, tx))

	require.NoError(t, accSvc.DeleteAccount(ctx, "acc2"))

	// The entry survives with a dangling account reference.
	kept, err := ledgerSvc.GetTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "acc2", kept.Account)
}

func TestCreateAccountRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	svc := NewAccountService(db)
	ctx := context.Background()

	err := svc.CreateAccount(ctx, &models.Account{ID: "acc1", Name: "", Type: models.AccountBank})
	assert.Error(t, err)

	err = svc.CreateAccount(ctx, &models.Account{ID: "acc1", Name: "Main", Type: "wallet"})
	assert.Error(t, err)
}
