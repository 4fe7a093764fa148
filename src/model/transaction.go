package model

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/avinm/ledgerdesk/src/models"
)

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	Type      models.TransactionType
	AccountID string
	PartyID   string
	Category  string
	Month     string // YYYY-MM prefix match on date
	From, To  string // inclusive YYYY-MM-DD bounds
	Search    string // substring match on description/category
}

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var tx models.Transaction
	var account, party sql.NullString
	var amount string
	err := row.Scan(&tx.ID, &tx.Type, &tx.Date, &tx.Description, &tx.Category, &account, &party, &amount, &tx.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tx.Account = account.String
	tx.PartyID = party.String
	if tx.Amount, err = parseDec(amount, "transactions.amount"); err != nil {
		return nil, err
	}
	return &tx, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func CreateTransaction(db DBTX, tx *models.Transaction) error {
	_, err := db.Exec(`
	INSERT INTO transactions (id, type, date, description, category, account_id, party_id, amount, notes, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Type, tx.Date, tx.Description, tx.Category,
		nullable(tx.Account), nullable(tx.PartyID), tx.Amount.String(), tx.Notes, time.Now())
	if err != nil {
		return err
	}
	return insertItems(db, tx.ID, tx.InventoryItems)
}

func UpdateTransaction(db DBTX, tx *models.Transaction) error {
	res, err := db.Exec(`
	UPDATE transactions
	SET type = ?, date = ?, description = ?, category = ?, account_id = ?, party_id = ?, amount = ?, notes = ?
	WHERE id = ?`,
		tx.Type, tx.Date, tx.Description, tx.Category,
		nullable(tx.Account), nullable(tx.PartyID), tx.Amount.String(), tx.Notes, tx.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err = db.Exec(`DELETE FROM transaction_items WHERE transaction_id = ?`, tx.ID); err != nil {
		return err
	}
	return insertItems(db, tx.ID, tx.InventoryItems)
}

func insertItems(db DBTX, txID string, items []models.TransactionItem) error {
	for _, item := range items {
		_, err := db.Exec(`
		INSERT INTO transaction_items (transaction_id, item_id, qty, price) VALUES (?, ?, ?, ?)`,
			txID, item.ItemID, item.Qty.String(), item.Price.String())
		if err != nil {
			return err
		}
	}
	return nil
}

func DeleteTransaction(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func GetTransactionByID(db DBTX, id string) (*models.Transaction, error) {
	row := db.QueryRow(`
	SELECT id, type, date, description, category, account_id, party_id, amount, notes
	FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	items, err := listItems(db, id)
	if err != nil {
		return nil, err
	}
	tx.InventoryItems = items
	return tx, nil
}

func listItems(db DBTX, txID string) ([]models.TransactionItem, error) {
	rows, err := db.Query(`
	SELECT item_id, qty, price FROM transaction_items WHERE transaction_id = ? ORDER BY id`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.TransactionItem
	for rows.Next() {
		var item models.TransactionItem
		var qty, price string
		if err := rows.Scan(&item.ItemID, &qty, &price); err != nil {
			return nil, err
		}
		if item.Qty, err = parseDec(qty, "transaction_items.qty"); err != nil {
			return nil, err
		}
		if item.Price, err = parseDec(price, "transaction_items.price"); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListTransactions returns transactions matching the filter, newest first
// with id as tie-break so paging is stable across reloads.
func ListTransactions(db DBTX, filter TransactionFilter) ([]models.Transaction, error) {
	query := `
	SELECT id, type, date, description, category, account_id, party_id, amount, notes
	FROM transactions WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.PartyID != "" {
		query += " AND party_id = ?"
		args = append(args, filter.PartyID)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Month != "" {
		query += " AND date LIKE ?"
		args = append(args, filter.Month+"-%")
	}
	if filter.From != "" {
		query += " AND date >= ?"
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += " AND date <= ?"
		args = append(args, filter.To)
	}
	if filter.Search != "" {
		query += " AND (LOWER(description) LIKE ? OR LOWER(category) LIKE ?)"
		needle := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, needle, needle)
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach stock lines for the purchase/sale rows in one pass each.
	for i := range txs {
		if txs[i].Type == models.TypePurchase || txs[i].Type == models.TypeSale {
			items, err := listItems(db, txs[i].ID)
			if err != nil {
				return nil, err
			}
			txs[i].InventoryItems = items
		}
	}
	return txs, nil
}
