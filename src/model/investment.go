package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/avinm/ledgerdesk/src/models"
)

func scanInvestment(row interface{ Scan(...any) error }) (*models.Investment, error) {
	var inv models.Investment
	var qty, avg, curr, realized string
	err := row.Scan(&inv.ID, &inv.Name, &inv.AssetType, &qty, &avg, &curr, &inv.Status, &realized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if inv.Qty, err = parseDec(qty, "investments.qty"); err != nil {
		return nil, err
	}
	if inv.AvgBuyPrice, err = parseDec(avg, "investments.avg_buy_price"); err != nil {
		return nil, err
	}
	if inv.CurrPrice, err = parseDec(curr, "investments.curr_price"); err != nil {
		return nil, err
	}
	if inv.TotalRealizedPL, err = parseDec(realized, "investments.total_realized_pl"); err != nil {
		return nil, err
	}
	return &inv, nil
}

func CreateInvestment(db DBTX, inv *models.Investment) error {
	_, err := db.Exec(`
	INSERT INTO investments (id, name, asset_type, qty, avg_buy_price, curr_price, status, total_realized_pl, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Name, inv.AssetType, inv.Qty.String(), inv.AvgBuyPrice.String(),
		inv.CurrPrice.String(), inv.Status, inv.TotalRealizedPL.String(), time.Now(), time.Now())
	if err != nil {
		return err
	}
	for _, trade := range inv.History {
		if err := InsertTrade(db, inv.ID, &trade); err != nil {
			return err
		}
	}
	return nil
}

func GetInvestmentByID(db DBTX, id string) (*models.Investment, error) {
	row := db.QueryRow(`
	SELECT id, name, asset_type, qty, avg_buy_price, curr_price, status, total_realized_pl
	FROM investments WHERE id = ?`, id)
	inv, err := scanInvestment(row)
	if err != nil {
		return nil, err
	}
	history, err := listTrades(db, id)
	if err != nil {
		return nil, err
	}
	inv.History = history
	return inv, nil
}

func ListInvestments(db DBTX) ([]models.Investment, error) {
	rows, err := db.Query(`
	SELECT id, name, asset_type, qty, avg_buy_price, curr_price, status, total_realized_pl
	FROM investments ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invs := []models.Investment{}
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range invs {
		history, err := listTrades(db, invs[i].ID)
		if err != nil {
			return nil, err
		}
		invs[i].History = history
	}
	return invs, nil
}

// UpdateInvestment rewrites the mutable lot state; trade history rows are
// append-only and written separately via InsertTrade.
func UpdateInvestment(db DBTX, inv *models.Investment) error {
	res, err := db.Exec(`
	UPDATE investments
	SET name = ?, asset_type = ?, qty = ?, avg_buy_price = ?, curr_price = ?, status = ?, total_realized_pl = ?, updated_at = ?
	WHERE id = ?`,
		inv.Name, inv.AssetType, inv.Qty.String(), inv.AvgBuyPrice.String(),
		inv.CurrPrice.String(), inv.Status, inv.TotalRealizedPL.String(), time.Now(), inv.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteInvestment(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM investments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func InsertTrade(db DBTX, investmentID string, trade *models.InvestmentTrade) error {
	_, err := db.Exec(`
	INSERT INTO investment_trades (id, investment_id, date, type, qty, price, charges, cost_basis, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, investmentID, trade.Date, trade.Type, trade.Qty.String(),
		trade.Price.String(), trade.Charges.String(), trade.CostBasis.String(), time.Now())
	return err
}

func listTrades(db DBTX, investmentID string) ([]models.InvestmentTrade, error) {
	rows, err := db.Query(`
	SELECT id, date, type, qty, price, charges, cost_basis
	FROM investment_trades WHERE investment_id = ? ORDER BY date, created_at, id`, investmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := []models.InvestmentTrade{}
	for rows.Next() {
		var t models.InvestmentTrade
		var qty, price, charges, costBasis string
		if err := rows.Scan(&t.ID, &t.Date, &t.Type, &qty, &price, &charges, &costBasis); err != nil {
			return nil, err
		}
		if t.Qty, err = parseDec(qty, "investment_trades.qty"); err != nil {
			return nil, err
		}
		if t.Price, err = parseDec(price, "investment_trades.price"); err != nil {
			return nil, err
		}
		if t.Charges, err = parseDec(charges, "investment_trades.charges"); err != nil {
			return nil, err
		}
		if t.CostBasis, err = parseDec(costBasis, "investment_trades.cost_basis"); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
