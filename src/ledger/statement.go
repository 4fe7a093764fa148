package ledger

import (
	"sort"

	"github.com/avinm/ledgerdesk/src/models"
	"github.com/shopspring/decimal"
)

// StatementLine pairs a transaction with the running balance after it.
type StatementLine struct {
	Transaction models.Transaction `json:"transaction"`
	Running     decimal.Decimal    `json:"runningBalance"`
}

// AccountStatement replays every transaction settled against accountID, in
// (date, id) ascending order, from the opening balance. The id tie-break
// keeps the fold deterministic when dates collide, since insertion order is
// not stable across reloads.
//
// The result is always ascending; "latest first" display is the caller's
// concern. Date-range filtering belongs in FilterRange, after the fold, so a
// narrowed view never shifts the running totals off the true opening balance.
func AccountStatement(accountID string, opening decimal.Decimal, txs []models.Transaction) []StatementLine {
	matching := filterAndSort(txs, func(tx models.Transaction) bool {
		return tx.Account == accountID
	})

	lines := make([]StatementLine, 0, len(matching))
	running := opening
	for _, tx := range matching {
		running = running.Add(AccountDelta(tx))
		lines = append(lines, StatementLine{Transaction: tx, Running: running})
	}
	return lines
}

// PartyStatement is the party-side analogue of AccountStatement, using the
// party sign convention for the given party.
func PartyStatement(party models.Party, txs []models.Transaction) []StatementLine {
	matching := filterAndSort(txs, func(tx models.Transaction) bool {
		return tx.PartyID == party.ID
	})

	lines := make([]StatementLine, 0, len(matching))
	running := party.OpeningBalance
	for _, tx := range matching {
		running = running.Add(PartyDelta(tx, party.Type))
		lines = append(lines, StatementLine{Transaction: tx, Running: running})
	}
	return lines
}

// FilterRange narrows an already computed statement to [from, to]. Empty
// bounds are open ends. Dates are YYYY-MM-DD, so string comparison orders
// them correctly.
func FilterRange(lines []StatementLine, from, to string) []StatementLine {
	out := make([]StatementLine, 0, len(lines))
	for _, line := range lines {
		if from != "" && line.Transaction.Date < from {
			continue
		}
		if to != "" && line.Transaction.Date > to {
			continue
		}
		out = append(out, line)
	}
	return out
}

func filterAndSort(txs []models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	var matching []models.Transaction
	for _, tx := range txs {
		if keep(tx) {
			matching = append(matching, tx)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		if matching[i].Date != matching[j].Date {
			return matching[i].Date < matching[j].Date
		}
		return matching[i].ID < matching[j].ID
	})
	return matching
}
