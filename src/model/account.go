package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/avinm/ledgerdesk/src/models"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("record not found")

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var acc models.Account
	var opening, balance string
	err := row.Scan(&acc.ID, &acc.Name, &acc.BankName, &acc.AccountNumber, &acc.Type, &opening, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if acc.OpeningBalance, err = parseDec(opening, "accounts.opening_balance"); err != nil {
		return nil, err
	}
	if acc.Balance, err = parseDec(balance, "accounts.balance"); err != nil {
		return nil, err
	}
	return &acc, nil
}

func CreateAccount(db DBTX, acc *models.Account, isDefault bool) error {
	_, err := db.Exec(`
	INSERT INTO accounts (id, name, bank_name, account_number, type, opening_balance, balance, is_default, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Name, acc.BankName, acc.AccountNumber, acc.Type,
		acc.OpeningBalance.String(), acc.Balance.String(), isDefault, time.Now(), time.Now())
	return err
}

func GetAccountByID(db DBTX, id string) (*models.Account, error) {
	row := db.QueryRow(`
	SELECT id, name, bank_name, account_number, type, opening_balance, balance
	FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func ListAccounts(db DBTX) ([]models.Account, error) {
	rows, err := db.Query(`
	SELECT id, name, bank_name, account_number, type, opening_balance, balance
	FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

// UpdateAccount rewrites the editable fields and the recomputed balance.
func UpdateAccount(db DBTX, acc *models.Account) error {
	res, err := db.Exec(`
	UPDATE accounts
	SET name = ?, bank_name = ?, account_number = ?, type = ?, opening_balance = ?, balance = ?, updated_at = ?
	WHERE id = ?`,
		acc.Name, acc.BankName, acc.AccountNumber, acc.Type,
		acc.OpeningBalance.String(), acc.Balance.String(), time.Now(), acc.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustAccountBalance applies a signed delta to an account's stored
// balance. A missing id is a silent no-op by design: transactions may
// reference accounts that were deleted later.
func AdjustAccountBalance(db DBTX, id string, delta decimal.Decimal) error {
	if id == "" || delta.IsZero() {
		return nil
	}
	acc, err := GetAccountByID(db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = db.Exec(`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		acc.Balance.Add(delta).String(), time.Now(), id)
	return err
}

func IsDefaultAccount(db DBTX, id string) (bool, error) {
	var isDefault bool
	err := db.QueryRow(`SELECT is_default FROM accounts WHERE id = ?`, id).Scan(&isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return isDefault, err
}

func CountAccounts(db DBTX) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count)
	return count, err
}

// DeleteAccount removes the account row only. Transactions referencing it
// are left orphaned on purpose to preserve historical records.
func DeleteAccount(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
