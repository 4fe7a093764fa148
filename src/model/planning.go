package model

import (
	"database/sql"
	"errors"

	"github.com/avinm/ledgerdesk/src/models"
)

func CreateBudget(db DBTX, b *models.Budget) error {
	_, err := db.Exec(`
	INSERT INTO budgets (id, month, category, limit_amount) VALUES (?, ?, ?, ?)`,
		b.ID, b.Month, b.Category, b.Limit.String())
	return err
}

func GetBudgetByID(db DBTX, id string) (*models.Budget, error) {
	row := db.QueryRow(`SELECT id, month, category, limit_amount FROM budgets WHERE id = ?`, id)
	return scanBudget(row)
}

func scanBudget(row interface{ Scan(...any) error }) (*models.Budget, error) {
	var b models.Budget
	var limit string
	err := row.Scan(&b.ID, &b.Month, &b.Category, &limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.Limit, err = parseDec(limit, "budgets.limit_amount"); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBudgets returns all budgets, or only one month's when month is set.
func ListBudgets(db DBTX, month string) ([]models.Budget, error) {
	query := `SELECT id, month, category, limit_amount FROM budgets`
	var args []any
	if month != "" {
		query += ` WHERE month = ?`
		args = append(args, month)
	}
	query += ` ORDER BY month DESC, category`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func UpdateBudget(db DBTX, b *models.Budget) error {
	res, err := db.Exec(`
	UPDATE budgets SET month = ?, category = ?, limit_amount = ? WHERE id = ?`,
		b.Month, b.Category, b.Limit.String(), b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteBudget(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func CreateGoal(db DBTX, g *models.Goal) error {
	_, err := db.Exec(`
	INSERT INTO goals (id, name, target, current) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, g.Target.String(), g.Current.String())
	return err
}

func scanGoal(row interface{ Scan(...any) error }) (*models.Goal, error) {
	var g models.Goal
	var target, current string
	err := row.Scan(&g.ID, &g.Name, &target, &current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if g.Target, err = parseDec(target, "goals.target"); err != nil {
		return nil, err
	}
	if g.Current, err = parseDec(current, "goals.current"); err != nil {
		return nil, err
	}
	return &g, nil
}

func GetGoalByID(db DBTX, id string) (*models.Goal, error) {
	row := db.QueryRow(`SELECT id, name, target, current FROM goals WHERE id = ?`, id)
	return scanGoal(row)
}

func ListGoals(db DBTX) ([]models.Goal, error) {
	rows, err := db.Query(`SELECT id, name, target, current FROM goals ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func UpdateGoal(db DBTX, g *models.Goal) error {
	res, err := db.Exec(`
	UPDATE goals SET name = ?, target = ?, current = ? WHERE id = ?`,
		g.Name, g.Target.String(), g.Current.String(), g.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteGoal(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
