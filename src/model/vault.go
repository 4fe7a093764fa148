package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/avinm/ledgerdesk/src/models"
)

// Credential rows keep passwords sealed at rest; the Pass field of every
// CredentialItem read here is ciphertext until the vault service opens it.

func CreateCredential(db DBTX, c *models.Credential) error {
	_, err := db.Exec(`
	INSERT INTO credentials (id, client_name, email, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.ClientName, c.Email, time.Now())
	if err != nil {
		return err
	}
	return insertCredentialItems(db, c.ID, c.Items)
}

func insertCredentialItems(db DBTX, credID string, items []models.CredentialItem) error {
	for _, item := range items {
		_, err := db.Exec(`
		INSERT INTO credential_items (credential_id, label, user_name, pass_sealed, link)
		VALUES (?, ?, ?, ?, ?)`,
			credID, item.Label, item.User, item.Pass, item.Link)
		if err != nil {
			return err
		}
	}
	return nil
}

func GetCredentialByID(db DBTX, id string) (*models.Credential, error) {
	var c models.Credential
	err := db.QueryRow(`SELECT id, client_name, email FROM credentials WHERE id = ?`, id).
		Scan(&c.ID, &c.ClientName, &c.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := listCredentialItems(db, id)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func listCredentialItems(db DBTX, credID string) ([]models.CredentialItem, error) {
	rows, err := db.Query(`
	SELECT label, user_name, pass_sealed, link FROM credential_items
	WHERE credential_id = ? ORDER BY id`, credID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CredentialItem{}
	for rows.Next() {
		var item models.CredentialItem
		if err := rows.Scan(&item.Label, &item.User, &item.Pass, &item.Link); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func ListCredentials(db DBTX) ([]models.Credential, error) {
	rows, err := db.Query(`SELECT id, client_name, email FROM credentials ORDER BY client_name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := []models.Credential{}
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.ID, &c.ClientName, &c.Email); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range creds {
		items, err := listCredentialItems(db, creds[i].ID)
		if err != nil {
			return nil, err
		}
		creds[i].Items = items
	}
	return creds, nil
}

func UpdateCredential(db DBTX, c *models.Credential) error {
	res, err := db.Exec(`UPDATE credentials SET client_name = ?, email = ? WHERE id = ?`,
		c.ClientName, c.Email, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err = db.Exec(`DELETE FROM credential_items WHERE credential_id = ?`, c.ID); err != nil {
		return err
	}
	return insertCredentialItems(db, c.ID, c.Items)
}

func DeleteCredential(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
