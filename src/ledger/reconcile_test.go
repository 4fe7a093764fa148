package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinm/ledgerdesk/src/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testAccounts() []models.Account {
	return []models.Account{
		{ID: "acc1", Name: "Main Bank", Type: models.AccountBank, OpeningBalance: dec("1000"), Balance: dec("1000")},
		{ID: "acc2", Name: "Cash Drawer", Type: models.AccountCash, OpeningBalance: dec("500"), Balance: dec("500")},
	}
}

func testParties() []models.Party {
	return []models.Party{
		{ID: "cust1", Name: "Acme Retail", Type: models.PartyCustomer, OpeningBalance: dec("0"), CurrentBalance: dec("0")},
		{ID: "vend1", Name: "Bulk Supplies", Type: models.PartyVendor, OpeningBalance: dec("0"), CurrentBalance: dec("0")},
	}
}

func TestAccountDelta(t *testing.T) {
	tests := []struct {
		name    string
		tx      models.Transaction
		want    string
	}{
		{"income adds", models.Transaction{Type: models.TypeIncome, Account: "acc1", Amount: dec("200")}, "200"},
		{"sale adds", models.Transaction{Type: models.TypeSale, Account: "acc1", Amount: dec("75.50")}, "75.5"},
		{"expense subtracts", models.Transaction{Type: models.TypeExpense, Account: "acc1", Amount: dec("120")}, "-120"},
		{"purchase subtracts", models.Transaction{Type: models.TypePurchase, Account: "acc1", Amount: dec("80")}, "-80"},
		{"no account is zero", models.Transaction{Type: models.TypeIncome, Amount: dec("200")}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, dec(tt.want).Equal(AccountDelta(tt.tx)))
		})
	}
}

func TestPartyDelta(t *testing.T) {
	tests := []struct {
		name      string
		txType    models.TransactionType
		partyType models.PartyType
		want      string
	}{
		{"sale raises customer receivable", models.TypeSale, models.PartyCustomer, "100"},
		{"income collects from customer", models.TypeIncome, models.PartyCustomer, "-100"},
		{"purchase raises vendor payable", models.TypePurchase, models.PartyVendor, "-100"},
		{"expense pays vendor down", models.TypeExpense, models.PartyVendor, "100"},
		{"sale against vendor is zero", models.TypeSale, models.PartyVendor, "0"},
		{"purchase against customer is zero", models.TypePurchase, models.PartyCustomer, "0"},
		{"expense against customer is zero", models.TypeExpense, models.PartyCustomer, "0"},
		{"income against vendor is zero", models.TypeIncome, models.PartyVendor, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := models.Transaction{Type: tt.txType, PartyID: "p1", Amount: dec("100")}
			assert.True(t, dec(tt.want).Equal(PartyDelta(tx, tt.partyType)))
		})
	}

	t.Run("no party reference is zero", func(t *testing.T) {
		tx := models.Transaction{Type: models.TypeSale, Amount: dec("100")}
		assert.True(t, PartyDelta(tx, models.PartyCustomer).IsZero())
	})
}

func TestApplyThenReverseRestoresState(t *testing.T) {
	accounts := testAccounts()
	parties := testParties()

	tx := models.Transaction{
		ID: "t1", Type: models.TypeSale, Account: "acc1", PartyID: "cust1", Amount: dec("250"),
	}

	applied, appliedParties := Apply(tx, accounts, parties)
	require.True(t, dec("1250").Equal(applied[0].Balance))
	require.True(t, dec("250").Equal(appliedParties[0].CurrentBalance))

	restored, restoredParties := Reverse(tx, applied, appliedParties)
	for i := range accounts {
		assert.True(t, accounts[i].Balance.Equal(restored[i].Balance), "account %s", accounts[i].ID)
	}
	for i := range parties {
		assert.True(t, parties[i].CurrentBalance.Equal(restoredParties[i].CurrentBalance), "party %s", parties[i].ID)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	accounts := testAccounts()
	parties := testParties()
	tx := models.Transaction{ID: "t1", Type: models.TypeExpense, Account: "acc1", PartyID: "vend1", Amount: dec("100")}

	Apply(tx, accounts, parties)

	assert.True(t, dec("1000").Equal(accounts[0].Balance))
	assert.True(t, parties[1].CurrentBalance.IsZero())
}

func TestUpdateSwapsEffect(t *testing.T) {
	accounts := testAccounts()
	parties := testParties()

	old := models.Transaction{ID: "t1", Type: models.TypeExpense, Account: "acc1", Amount: dec("100")}
	accounts, parties = Apply(old, accounts, parties)
	require.True(t, dec("900").Equal(accounts[0].Balance))

	// Raise the amount by 50: the net effect must be exactly -50 more.
	updated := old
	updated.Amount = dec("150")
	accounts, _ = Update(old, updated, accounts, parties)
	assert.True(t, dec("850").Equal(accounts[0].Balance))
}

func TestUpdateCanMoveAccounts(t *testing.T) {
	accounts := testAccounts()
	parties := testParties()

	old := models.Transaction{ID: "t1", Type: models.TypeIncome, Account: "acc1", Amount: dec("300")}
	accounts, parties = Apply(old, accounts, parties)

	updated := old
	updated.Account = "acc2"
	accounts, _ = Update(old, updated, accounts, parties)

	assert.True(t, dec("1000").Equal(accounts[0].Balance))
	assert.True(t, dec("800").Equal(accounts[1].Balance))
}

func TestDanglingReferencesAreNoOps(t *testing.T) {
	accounts := testAccounts()
	parties := testParties()

	tx := models.Transaction{ID: "t1", Type: models.TypeSale, Account: "ghost", PartyID: "nobody", Amount: dec("999")}
	applied, appliedParties := Apply(tx, accounts, parties)

	for i := range accounts {
		assert.True(t, accounts[i].Balance.Equal(applied[i].Balance))
	}
	for i := range parties {
		assert.True(t, parties[i].CurrentBalance.Equal(appliedParties[i].CurrentBalance))
	}
}

func TestRecomputeAccountBalance(t *testing.T) {
	acc := models.Account{ID: "acc1", OpeningBalance: dec("1000")}
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeIncome, Account: "acc1", Amount: dec("200")},
		{ID: "t2", Type: models.TypeExpense, Account: "acc1", Amount: dec("50")},
		{ID: "t3", Type: models.TypeIncome, Account: "other", Amount: dec("9999")},
		{ID: "t4", Type: models.TypePurchase, Account: "acc1", Amount: dec("300")},
	}
	assert.True(t, dec("850").Equal(RecomputeAccountBalance(acc, txs)))
}

func TestRecomputePartyBalance(t *testing.T) {
	party := models.Party{ID: "cust1", Type: models.PartyCustomer, OpeningBalance: dec("100")}
	txs := []models.Transaction{
		{ID: "t1", Type: models.TypeSale, PartyID: "cust1", Amount: dec("500")},
		{ID: "t2", Type: models.TypeIncome, PartyID: "cust1", Amount: dec("200")},
		{ID: "t3", Type: models.TypeSale, PartyID: "someone-else", Amount: dec("50")},
	}
	assert.True(t, dec("400").Equal(RecomputePartyBalance(party, txs)))
}
