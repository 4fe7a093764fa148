// Package ledger implements the balance reconciliation rules that keep
// account and party balances consistent with the transaction log.
//
// All functions are pure: they take the current snapshot slices and return
// updated copies, which makes the invariants directly testable and lets the
// service layer reuse the exact same deltas for its SQL updates. Amounts are
// shopspring decimals throughout, so apply followed by reverse restores the
// prior state exactly.
package ledger

import (
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/shopspring/decimal"
)

// AccountDelta returns the signed contribution of tx to the balance of its
// settlement account. Zero when the transaction is credit-settled (no
// account reference).
//
//	income, sale      +amount  (money in)
//	expense, purchase -amount  (money out)
func AccountDelta(tx models.Transaction) decimal.Decimal {
	if tx.Account == "" {
		return decimal.Zero
	}
	switch tx.Type {
	case models.TypeIncome, models.TypeSale:
		return tx.Amount
	case models.TypeExpense, models.TypePurchase:
		return tx.Amount.Neg()
	}
	return decimal.Zero
}

// PartyDelta returns the signed contribution of tx to a party's current
// balance (positive = receivable, negative = payable). The sign depends on
// both the transaction type and the party type:
//
//	customer: sale +amount (receivable grows), income -amount (collected)
//	vendor:   purchase -amount (payable grows), expense +amount (paid down)
//
// Any other combination contributes nothing.
func PartyDelta(tx models.Transaction, partyType models.PartyType) decimal.Decimal {
	if tx.PartyID == "" {
		return decimal.Zero
	}
	switch partyType {
	case models.PartyCustomer:
		switch tx.Type {
		case models.TypeSale:
			return tx.Amount
		case models.TypeIncome:
			return tx.Amount.Neg()
		}
	case models.PartyVendor:
		switch tx.Type {
		case models.TypePurchase:
			return tx.Amount.Neg()
		case models.TypeExpense:
			return tx.Amount
		}
	}
	return decimal.Zero
}

// Apply returns copies of accounts and parties with tx's signed deltas
// applied. A reference to a missing account or party id is a no-op for that
// side: transactions may legitimately outlive a deleted account.
func Apply(tx models.Transaction, accounts []models.Account, parties []models.Party) ([]models.Account, []models.Party) {
	return shift(tx, accounts, parties, false)
}

// Reverse applies the exact negation of Apply, so that
// Reverse(tx, Apply(tx, S)) == S for every valid state S.
func Reverse(tx models.Transaction, accounts []models.Account, parties []models.Party) ([]models.Account, []models.Party) {
	return shift(tx, accounts, parties, true)
}

// Update replaces the effect of old with the effect of updated. It is
// defined as Apply(updated, Reverse(old, S)) rather than a field diff,
// because type, account and party can all change in a single edit.
func Update(old, updated models.Transaction, accounts []models.Account, parties []models.Party) ([]models.Account, []models.Party) {
	accounts, parties = Reverse(old, accounts, parties)
	return Apply(updated, accounts, parties)
}

func shift(tx models.Transaction, accounts []models.Account, parties []models.Party, negate bool) ([]models.Account, []models.Party) {
	accOut := make([]models.Account, len(accounts))
	copy(accOut, accounts)
	partyOut := make([]models.Party, len(parties))
	copy(partyOut, parties)

	if delta := AccountDelta(tx); !delta.IsZero() {
		if negate {
			delta = delta.Neg()
		}
		for i := range accOut {
			if accOut[i].ID == tx.Account {
				accOut[i].Balance = accOut[i].Balance.Add(delta)
				break
			}
		}
	}

	if tx.PartyID != "" {
		for i := range partyOut {
			if partyOut[i].ID != tx.PartyID {
				continue
			}
			delta := PartyDelta(tx, partyOut[i].Type)
			if negate {
				delta = delta.Neg()
			}
			partyOut[i].CurrentBalance = partyOut[i].CurrentBalance.Add(delta)
			break
		}
	}

	return accOut, partyOut
}

// RecomputeAccountBalance derives an account's balance from scratch:
// openingBalance plus the signed delta of every transaction referencing it.
// Used only on import and explicit repair, never on the mutation path.
func RecomputeAccountBalance(account models.Account, txs []models.Transaction) decimal.Decimal {
	balance := account.OpeningBalance
	for _, tx := range txs {
		if tx.Account == account.ID {
			balance = balance.Add(AccountDelta(tx))
		}
	}
	return balance
}

// RecomputePartyBalance derives a party's current balance from scratch.
func RecomputePartyBalance(party models.Party, txs []models.Transaction) decimal.Decimal {
	balance := party.OpeningBalance
	for _, tx := range txs {
		if tx.PartyID == party.ID {
			balance = balance.Add(PartyDelta(tx, party.Type))
		}
	}
	return balance
}
