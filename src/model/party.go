package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/avinm/ledgerdesk/src/models"
	"github.com/shopspring/decimal"
)

func scanParty(row interface{ Scan(...any) error }) (*models.Party, error) {
	var p models.Party
	var opening, current string
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Phone, &p.Email, &p.Address, &opening, &current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.OpeningBalance, err = parseDec(opening, "parties.opening_balance"); err != nil {
		return nil, err
	}
	if p.CurrentBalance, err = parseDec(current, "parties.current_balance"); err != nil {
		return nil, err
	}
	return &p, nil
}

func CreateParty(db DBTX, p *models.Party) error {
	_, err := db.Exec(`
	INSERT INTO parties (id, name, type, phone, email, address, opening_balance, current_balance, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Type, p.Phone, p.Email, p.Address,
		p.OpeningBalance.String(), p.CurrentBalance.String(), time.Now(), time.Now())
	return err
}

func GetPartyByID(db DBTX, id string) (*models.Party, error) {
	row := db.QueryRow(`
	SELECT id, name, type, phone, email, address, opening_balance, current_balance
	FROM parties WHERE id = ?`, id)
	return scanParty(row)
}

func ListParties(db DBTX) ([]models.Party, error) {
	rows, err := db.Query(`
	SELECT id, name, type, phone, email, address, opening_balance, current_balance
	FROM parties ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parties := []models.Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		parties = append(parties, *p)
	}
	return parties, rows.Err()
}

func UpdateParty(db DBTX, p *models.Party) error {
	res, err := db.Exec(`
	UPDATE parties
	SET name = ?, type = ?, phone = ?, email = ?, address = ?, opening_balance = ?, current_balance = ?, updated_at = ?
	WHERE id = ?`,
		p.Name, p.Type, p.Phone, p.Email, p.Address,
		p.OpeningBalance.String(), p.CurrentBalance.String(), time.Now(), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustPartyBalance applies a signed delta to a party's current balance.
// Missing ids are silent no-ops, mirroring AdjustAccountBalance.
func AdjustPartyBalance(db DBTX, id string, delta decimal.Decimal) error {
	if id == "" || delta.IsZero() {
		return nil
	}
	p, err := GetPartyByID(db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = db.Exec(`UPDATE parties SET current_balance = ?, updated_at = ? WHERE id = ?`,
		p.CurrentBalance.Add(delta).String(), time.Now(), id)
	return err
}

// DeleteParty removes the party row; its transactions stay orphaned.
func DeleteParty(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM parties WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
