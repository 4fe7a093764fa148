package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avinm/ledgerdesk/src/ledger"
	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/shopspring/decimal"
)

// ErrNotFound is re-exported so handlers depend on services only.
var ErrNotFound = model.ErrNotFound

// ErrInsufficientStock blocks a sale that would drive an item's stock
// negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// LedgerService owns the transaction log and keeps account and party
// balances reconciled with it. Every mutation runs in a single SQL
// transaction: the row write and the incremental balance updates commit or
// roll back together.
type LedgerService struct {
	DB *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{DB: db}
}

func (s *LedgerService) validate(tx *models.Transaction) error {
	if err := validation.ValidateEntityID(tx.ID, "transaction id"); err != nil {
		return err
	}
	if !tx.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type '%s'", validation.ErrValidationFailed, tx.Type)
	}
	if _, err := validation.ValidateDateString(tx.Date, "date"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(tx.Description, "description"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(tx.Description, validation.MaxDescriptionLength, "description"); err != nil {
		return err
	}
	if err := validation.ValidateStringMaxLength(tx.Notes, validation.MaxNotesLength, "notes"); err != nil {
		return err
	}
	amount, err := validation.ValidateAmount(tx.Amount.String(), "amount")
	if err != nil {
		return err
	}
	tx.Amount = amount
	return nil
}

// stockDelta is the signed stock contribution of one line: purchases add,
// sales subtract, other types carry no stock lines.
func stockDelta(txType models.TransactionType, qty decimal.Decimal) decimal.Decimal {
	switch txType {
	case models.TypePurchase:
		return qty
	case models.TypeSale:
		return qty.Neg()
	}
	return decimal.Zero
}

// checkStock rejects a sale whose lines exceed current stock. Lines that
// reference a deleted item are skipped, consistent with balance no-ops.
func checkStock(dbtx model.DBTX, tx *models.Transaction) error {
	if tx.Type != models.TypeSale {
		return nil
	}
	for _, line := range tx.InventoryItems {
		item, err := model.GetInventoryItemByID(dbtx, line.ItemID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return err
		}
		if line.Qty.GreaterThan(item.Stock) {
			return fmt.Errorf("%w: item %s has %s, sale needs %s",
				ErrInsufficientStock, item.Name, item.Stock, line.Qty)
		}
	}
	return nil
}

// applyDeltas shifts the stored account/party balances and item stock by tx's
// contribution, negated when reversing. References to missing rows are silent
// no-ops.
func applyDeltas(dbtx model.DBTX, tx *models.Transaction, negate bool) error {
	for _, line := range tx.InventoryItems {
		delta := stockDelta(tx.Type, line.Qty)
		if negate {
			delta = delta.Neg()
		}
		if err := model.AdjustStock(dbtx, line.ItemID, delta); err != nil {
			return err
		}
	}
	accDelta := ledger.AccountDelta(*tx)
	if negate {
		accDelta = accDelta.Neg()
	}
	if err := model.AdjustAccountBalance(dbtx, tx.Account, accDelta); err != nil {
		return err
	}

	if tx.PartyID == "" {
		return nil
	}
	party, err := model.GetPartyByID(dbtx, tx.PartyID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	partyDelta := ledger.PartyDelta(*tx, party.Type)
	if negate {
		partyDelta = partyDelta.Neg()
	}
	return model.AdjustPartyBalance(dbtx, tx.PartyID, partyDelta)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := s.validate(tx); err != nil {
		return err
	}

	dbTx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			dbTx.Rollback()
		}
	}()

	if err := checkStock(dbTx, tx); err != nil {
		return err
	}
	if err := model.CreateTransaction(dbTx, tx); err != nil {
		return err
	}
	if err := applyDeltas(dbTx, tx, false); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return err
	}
	committed = true
	logger.FromContext(ctx).Info("transaction created", "id", tx.ID, "type", tx.Type, "amount", tx.Amount)
	return nil
}

// UpdateTransaction replaces the stored row and swaps its balance effect:
// the old contribution is reversed and the new one applied, atomically.
func (s *LedgerService) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := s.validate(tx); err != nil {
		return err
	}

	dbTx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			dbTx.Rollback()
		}
	}()

	old, err := model.GetTransactionByID(dbTx, tx.ID)
	if err != nil {
		return err
	}
	if err := applyDeltas(dbTx, old, true); err != nil {
		return err
	}
	// Stock check runs after the old effect is reversed, so editing a sale
	// down never trips over its own previous quantity.
	if err := checkStock(dbTx, tx); err != nil {
		return err
	}
	if err := model.UpdateTransaction(dbTx, tx); err != nil {
		return err
	}
	if err := applyDeltas(dbTx, tx, false); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return err
	}
	committed = true
	logger.FromContext(ctx).Info("transaction updated", "id", tx.ID)
	return nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	dbTx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			dbTx.Rollback()
		}
	}()

	old, err := model.GetTransactionByID(dbTx, id)
	if err != nil {
		return err
	}
	if err := applyDeltas(dbTx, old, true); err != nil {
		return err
	}
	if err := model.DeleteTransaction(dbTx, id); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return err
	}
	committed = true
	logger.FromContext(ctx).Info("transaction deleted", "id", id)
	return nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return model.GetTransactionByID(s.DB, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]models.Transaction, error) {
	return model.ListTransactions(s.DB, filter)
}

// AccountStatement folds an account's transactions into running-balance
// lines, optionally windowed to [from, to] after the fold so the opening
// carry-in stays correct.
func (s *LedgerService) AccountStatement(ctx context.Context, accountID, from, to string) ([]ledger.StatementLine, error) {
	acc, err := model.GetAccountByID(s.DB, accountID)
	if err != nil {
		return nil, err
	}
	txs, err := model.ListTransactions(s.DB, model.TransactionFilter{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	lines := ledger.AccountStatement(accountID, acc.OpeningBalance, txs)
	return ledger.FilterRange(lines, from, to), nil
}

func (s *LedgerService) PartyStatement(ctx context.Context, partyID, from, to string) ([]ledger.StatementLine, error) {
	party, err := model.GetPartyByID(s.DB, partyID)
	if err != nil {
		return nil, err
	}
	txs, err := model.ListTransactions(s.DB, model.TransactionFilter{PartyID: partyID})
	if err != nil {
		return nil, err
	}
	lines := ledger.PartyStatement(*party, txs)
	return ledger.FilterRange(lines, from, to), nil
}

// Rebuild recomputes every stored balance from the transaction log. This is
// the repair/import path only; normal mutations stay incremental.
func (s *LedgerService) Rebuild(ctx context.Context, dbtx model.DBTX) error {
	txs, err := model.ListTransactions(dbtx, model.TransactionFilter{})
	if err != nil {
		return err
	}

	accounts, err := model.ListAccounts(dbtx)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		acc.Balance = ledger.RecomputeAccountBalance(acc, txs)
		if err := model.UpdateAccount(dbtx, &acc); err != nil {
			return err
		}
	}

	parties, err := model.ListParties(dbtx)
	if err != nil {
		return err
	}
	for _, p := range parties {
		p.CurrentBalance = ledger.RecomputePartyBalance(p, txs)
		if err := model.UpdateParty(dbtx, &p); err != nil {
			return err
		}
	}

	items, err := model.ListInventoryItems(dbtx)
	if err != nil {
		return err
	}
	stock := recomputeStock(txs)
	for _, item := range items {
		item.Stock = item.OpeningStock.Add(stock[item.ID])
		if err := model.UpdateInventoryItem(dbtx, &item); err != nil {
			return err
		}
	}

	logger.FromContext(ctx).Info("balances rebuilt",
		"accounts", len(accounts), "parties", len(parties), "items", len(items))
	return nil
}

// recomputeStock derives the per-item stock delta from the purchase/sale
// lines. Rebuild adds it on top of each item's opening stock.
func recomputeStock(txs []models.Transaction) map[string]decimal.Decimal {
	stock := map[string]decimal.Decimal{}
	for _, tx := range txs {
		for _, line := range tx.InventoryItems {
			switch tx.Type {
			case models.TypePurchase:
				stock[line.ItemID] = stock[line.ItemID].Add(line.Qty)
			case models.TypeSale:
				stock[line.ItemID] = stock[line.ItemID].Sub(line.Qty)
			}
		}
	}
	return stock
}
