package model

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so that every model function
// can run standalone or inside a service-level transaction.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Amounts are stored as TEXT decimal strings so SQLite never coerces them to
// lossy floats. parseDec is the single scan path back into decimal.Decimal.
func parseDec(s string, column string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal in column %s: %w", column, err)
	}
	return d, nil
}
