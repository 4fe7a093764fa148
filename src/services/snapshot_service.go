package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
)

// SnapshotService assembles and restores full application snapshots. Import
// is atomic: the existing data set is replaced and every derived balance
// rebuilt inside one SQL transaction, so a failed import leaves the live
// data untouched.
type SnapshotService struct {
	DB     *sql.DB
	Ledger *LedgerService
}

func NewSnapshotService(db *sql.DB, ledgerService *LedgerService) *SnapshotService {
	return &SnapshotService{DB: db, Ledger: ledgerService}
}

// Assemble builds the current snapshot from all stores.
func (s *SnapshotService) Assemble(ctx context.Context) (*models.AppData, error) {
	return assembleSnapshot(s.DB)
}

func assembleSnapshot(dbtx model.DBTX) (*models.AppData, error) {
	owner, err := model.GetOwner(dbtx)
	if err != nil {
		return nil, err
	}

	data := &models.AppData{
		Auth: models.AuthInfo{UserID: owner.Username, Password: owner.Password},
		Sync: models.SyncInfo{SyncID: owner.SyncID, AutoSync: owner.AutoSync, LastSynced: owner.LastSynced},
	}

	if data.Transactions, err = model.ListTransactions(dbtx, model.TransactionFilter{}); err != nil {
		return nil, err
	}
	if data.Accounts, err = model.ListAccounts(dbtx); err != nil {
		return nil, err
	}
	if data.Parties, err = model.ListParties(dbtx); err != nil {
		return nil, err
	}
	if data.Inventory, err = model.ListInventoryItems(dbtx); err != nil {
		return nil, err
	}
	if data.Credentials, err = model.ListCredentials(dbtx); err != nil {
		return nil, err
	}
	cats, err := model.ListCategories(dbtx)
	if err != nil {
		return nil, err
	}
	data.Categories = *cats
	if data.Journal, err = model.ListJournalEntries(dbtx); err != nil {
		return nil, err
	}
	if data.Budgets, err = model.ListBudgets(dbtx, ""); err != nil {
		return nil, err
	}
	if data.Goals, err = model.ListGoals(dbtx); err != nil {
		return nil, err
	}
	if data.Investments, err = model.ListInvestments(dbtx); err != nil {
		return nil, err
	}
	return data, nil
}

// Export serializes the snapshot, wrapped in the versioned envelope unless
// bare is requested for compatibility with older importers.
func (s *SnapshotService) Export(ctx context.Context, bare bool) ([]byte, error) {
	data, err := s.Assemble(ctx)
	if err != nil {
		return nil, err
	}
	if bare {
		return json.MarshalIndent(data, "", "  ")
	}
	envelope := models.ExportEnvelope{
		Version:   1,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Owner:     data.Auth.UserID,
		SyncID:    data.Sync.SyncID,
		Payload:   *data,
	}
	return json.MarshalIndent(envelope, "", "  ")
}

// Import replaces the entire data set with the decoded snapshot. Stored
// balances and stock in the file are ignored: everything derived is rebuilt
// from the opening bases plus the imported transaction log.
func (s *SnapshotService) Import(ctx context.Context, raw []byte) error {
	data, err := models.DecodeSnapshot(raw)
	if err != nil {
		return err
	}
	return s.Restore(ctx, data)
}

// Restore is the shared import path, also used by sync pull.
func (s *SnapshotService) Restore(ctx context.Context, data *models.AppData) error {
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

	if err := clearDomainTables(dbTx); err != nil {
		return err
	}

	for i := range data.Accounts {
		acc := data.Accounts[i]
		if err := model.CreateAccount(dbTx, &acc, i == 0); err != nil {
			return err
		}
	}
	for i := range data.Parties {
		if err := model.CreateParty(dbTx, &data.Parties[i]); err != nil {
			return err
		}
	}
	for i := range data.Transactions {
		if err := model.CreateTransaction(dbTx, &data.Transactions[i]); err != nil {
			return err
		}
	}
	for i := range data.Inventory {
		if err := model.CreateInventoryItem(dbTx, &data.Inventory[i]); err != nil {
			return err
		}
	}
	for i := range data.Credentials {
		if err := model.CreateCredential(dbTx, &data.Credentials[i]); err != nil {
			return err
		}
	}
	if err := model.ReplaceCategories(dbTx, data.Categories); err != nil {
		return err
	}
	for i := range data.Journal {
		if err := model.CreateJournalEntry(dbTx, &data.Journal[i]); err != nil {
			return err
		}
	}
	for i := range data.Budgets {
		if err := model.CreateBudget(dbTx, &data.Budgets[i]); err != nil {
			return err
		}
	}
	for i := range data.Goals {
		if err := model.CreateGoal(dbTx, &data.Goals[i]); err != nil {
			return err
		}
	}
	for i := range data.Investments {
		if err := model.CreateInvestment(dbTx, &data.Investments[i]); err != nil {
			return err
		}
	}

	if err := s.Ledger.Rebuild(ctx, dbTx); err != nil {
		return err
	}

	owner, err := model.GetOwner(dbTx)
	if err != nil {
		return err
	}
	if err := model.UpdateSyncInfo(dbTx, owner.ID,
		data.Sync.SyncID, data.Sync.AutoSync, data.Sync.LastSynced); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return err
	}
	committed = true
	logger.FromContext(ctx).Info("snapshot imported",
		"transactions", len(data.Transactions), "accounts", len(data.Accounts))
	return nil
}

func clearDomainTables(dbtx model.DBTX) error {
	// Child tables cascade, but the order still matters for the rest.
	for _, table := range []string{
		"transaction_items", "transactions", "investment_trades", "investments",
		"inventory_items", "credential_items", "credentials", "journal_entries",
		"budgets", "goals", "categories", "parties", "accounts",
	} {
		if _, err := dbtx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}
