package model

import "github.com/avinm/ledgerdesk/src/models"

// CategoryKind selects one of the two category lists.
type CategoryKind string

const (
	CategoryIncome  CategoryKind = "income"
	CategoryExpense CategoryKind = "expense"
)

func (k CategoryKind) Valid() bool {
	return k == CategoryIncome || k == CategoryExpense
}

var defaultCategories = map[CategoryKind][]string{
	CategoryIncome:  {"Sales", "Services", "Interest", "Other Income"},
	CategoryExpense: {"Rent", "Salaries", "Utilities", "Supplies", "Travel", "Other Expense"},
}

// SeedDefaultCategories inserts the starter lists, skipping names already
// present so re-running is harmless.
func SeedDefaultCategories(db DBTX) error {
	for kind, names := range defaultCategories {
		for _, name := range names {
			_, err := db.Exec(`
			INSERT INTO categories (kind, name) VALUES (?, ?)
			ON CONFLICT (kind, name) DO NOTHING`, kind, name)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func ListCategories(db DBTX) (*models.Categories, error) {
	rows, err := db.Query(`SELECT kind, name FROM categories ORDER BY kind, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := &models.Categories{Income: []string{}, Expense: []string{}}
	for rows.Next() {
		var kind CategoryKind
		var name string
		if err := rows.Scan(&kind, &name); err != nil {
			return nil, err
		}
		switch kind {
		case CategoryIncome:
			cats.Income = append(cats.Income, name)
		case CategoryExpense:
			cats.Expense = append(cats.Expense, name)
		}
	}
	return cats, rows.Err()
}

func AddCategory(db DBTX, kind CategoryKind, name string) error {
	_, err := db.Exec(`
	INSERT INTO categories (kind, name) VALUES (?, ?)
	ON CONFLICT (kind, name) DO NOTHING`, kind, name)
	return err
}

func DeleteCategory(db DBTX, kind CategoryKind, name string) error {
	res, err := db.Exec(`DELETE FROM categories WHERE kind = ? AND name = ?`, kind, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceCategories swaps both lists wholesale, used by snapshot import.
func ReplaceCategories(db DBTX, cats models.Categories) error {
	if _, err := db.Exec(`DELETE FROM categories`); err != nil {
		return err
	}
	for _, name := range cats.Income {
		if err := AddCategory(db, CategoryIncome, name); err != nil {
			return err
		}
	}
	for _, name := range cats.Expense {
		if err := AddCategory(db, CategoryExpense, name); err != nil {
			return err
		}
	}
	return nil
}
