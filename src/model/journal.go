package model

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/avinm/ledgerdesk/src/models"
)

func scanJournalEntry(row interface{ Scan(...any) error }) (*models.JournalEntry, error) {
	var e models.JournalEntry
	var photos string
	err := row.Scan(&e.ID, &e.Date, &e.Title, &e.Content, &photos)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if photos != "" {
		if err := json.Unmarshal([]byte(photos), &e.Photos); err != nil {
			return nil, err
		}
	}
	if e.Photos == nil {
		e.Photos = []string{}
	}
	return &e, nil
}

func photosJSON(photos []string) string {
	if len(photos) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(photos)
	return string(b)
}

func CreateJournalEntry(db DBTX, e *models.JournalEntry) error {
	_, err := db.Exec(`
	INSERT INTO journal_entries (id, date, title, content, photos) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Date, e.Title, e.Content, photosJSON(e.Photos))
	return err
}

func GetJournalEntryByID(db DBTX, id string) (*models.JournalEntry, error) {
	row := db.QueryRow(`SELECT id, date, title, content, photos FROM journal_entries WHERE id = ?`, id)
	return scanJournalEntry(row)
}

func ListJournalEntries(db DBTX) ([]models.JournalEntry, error) {
	rows, err := db.Query(`
	SELECT id, date, title, content, photos FROM journal_entries ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func UpdateJournalEntry(db DBTX, e *models.JournalEntry) error {
	res, err := db.Exec(`
	UPDATE journal_entries SET date = ?, title = ?, content = ?, photos = ? WHERE id = ?`,
		e.Date, e.Title, e.Content, photosJSON(e.Photos), e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteJournalEntry(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM journal_entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
