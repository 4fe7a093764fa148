package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/portfolio"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// ReportService derives read-only aggregates from the stores. Results are
// cached briefly; every ledger mutation flushes the cache through Invalidate.
type ReportService struct {
	DB    *sql.DB
	cache *cache.Cache
}

func NewReportService(db *sql.DB) *ReportService {
	return &ReportService{
		DB:    db,
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Invalidate drops all cached reports. Called after any write that can move
// a balance or a monthly total.
func (s *ReportService) Invalidate() {
	s.cache.Flush()
}

// Dashboard is the landing-page aggregate.
type Dashboard struct {
	TotalBalance  decimal.Decimal        `json:"totalBalance"`
	MonthIncome   decimal.Decimal        `json:"monthIncome"`
	MonthExpense  decimal.Decimal        `json:"monthExpense"`
	Receivable    decimal.Decimal        `json:"receivable"`
	Payable       decimal.Decimal        `json:"payable"`
	LowStockItems []models.InventoryItem `json:"lowStockItems"`
	Portfolio     portfolio.Summary      `json:"portfolio"`
	RecentEntries []models.Transaction   `json:"recentEntries"`
}

// Dashboard aggregates balances, the given month's flows, outstanding party
// balances, stock alerts and the portfolio valuation.
func (s *ReportService) Dashboard(ctx context.Context, month string) (*Dashboard, error) {
	if err := validation.ValidateMonthString(month, "month"); err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get("dashboard:" + month); ok {
		return cached.(*Dashboard), nil
	}

	d := &Dashboard{}

	accounts, err := model.ListAccounts(s.DB)
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		d.TotalBalance = d.TotalBalance.Add(acc.Balance)
	}

	txs, err := model.ListTransactions(s.DB, model.TransactionFilter{Month: month})
	if err != nil {
		return nil, err
	}
	for _, tx := range txs {
		switch tx.Type {
		case models.TypeIncome, models.TypeSale:
			d.MonthIncome = d.MonthIncome.Add(tx.Amount)
		case models.TypeExpense, models.TypePurchase:
			d.MonthExpense = d.MonthExpense.Add(tx.Amount)
		}
	}

	parties, err := model.ListParties(s.DB)
	if err != nil {
		return nil, err
	}
	for _, p := range parties {
		if p.CurrentBalance.IsPositive() {
			d.Receivable = d.Receivable.Add(p.CurrentBalance)
		} else {
			d.Payable = d.Payable.Add(p.CurrentBalance.Neg())
		}
	}

	items, err := model.ListInventoryItems(s.DB)
	if err != nil {
		return nil, err
	}
	d.LowStockItems = []models.InventoryItem{}
	for _, item := range items {
		if item.MinStock.IsPositive() && item.Stock.LessThanOrEqual(item.MinStock) {
			d.LowStockItems = append(d.LowStockItems, item)
		}
	}

	assets, err := model.ListInvestments(s.DB)
	if err != nil {
		return nil, err
	}
	d.Portfolio = portfolio.Summarize(assets)

	recent, err := model.ListTransactions(s.DB, model.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	if len(recent) > 10 {
		recent = recent[:10]
	}
	d.RecentEntries = recent

	s.cache.Set("dashboard:"+month, d, cache.DefaultExpiration)
	return d, nil
}

// MonthlyReport breaks a month's flows down by category.
type MonthlyReport struct {
	Month             string                     `json:"month"`
	Income            decimal.Decimal            `json:"income"`
	Expense           decimal.Decimal            `json:"expense"`
	Net               decimal.Decimal            `json:"net"`
	IncomeByCategory  map[string]decimal.Decimal `json:"incomeByCategory"`
	ExpenseByCategory map[string]decimal.Decimal `json:"expenseByCategory"`
}

func (s *ReportService) Monthly(ctx context.Context, month string) (*MonthlyReport, error) {
	if err := validation.ValidateMonthString(month, "month"); err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get("monthly:" + month); ok {
		return cached.(*MonthlyReport), nil
	}

	txs, err := model.ListTransactions(s.DB, model.TransactionFilter{Month: month})
	if err != nil {
		return nil, err
	}

	r := &MonthlyReport{
		Month:             month,
		IncomeByCategory:  map[string]decimal.Decimal{},
		ExpenseByCategory: map[string]decimal.Decimal{},
	}
	for _, tx := range txs {
		switch tx.Type {
		case models.TypeIncome, models.TypeSale:
			r.Income = r.Income.Add(tx.Amount)
			r.IncomeByCategory[tx.Category] = r.IncomeByCategory[tx.Category].Add(tx.Amount)
		case models.TypeExpense, models.TypePurchase:
			r.Expense = r.Expense.Add(tx.Amount)
			r.ExpenseByCategory[tx.Category] = r.ExpenseByCategory[tx.Category].Add(tx.Amount)
		}
	}
	r.Net = r.Income.Sub(r.Expense)

	s.cache.Set("monthly:"+month, r, cache.DefaultExpiration)
	return r, nil
}

// CalendarDay is one day's net activity for the calendar view.
type CalendarDay struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Count   int             `json:"count"`
}

// Calendar returns per-day totals for a month, days with no activity omitted.
func (s *ReportService) Calendar(ctx context.Context, month string) ([]CalendarDay, error) {
	if err := validation.ValidateMonthString(month, "month"); err != nil {
		return nil, err
	}

	txs, err := model.ListTransactions(s.DB, model.TransactionFilter{Month: month})
	if err != nil {
		return nil, err
	}

	byDate := map[string]*CalendarDay{}
	order := []string{}
	for _, tx := range txs {
		day, ok := byDate[tx.Date]
		if !ok {
			day = &CalendarDay{Date: tx.Date}
			byDate[tx.Date] = day
			order = append(order, tx.Date)
		}
		switch tx.Type {
		case models.TypeIncome, models.TypeSale:
			day.Income = day.Income.Add(tx.Amount)
		case models.TypeExpense, models.TypePurchase:
			day.Expense = day.Expense.Add(tx.Amount)
		}
		day.Count++
	}

	days := make([]CalendarDay, 0, len(order))
	for _, date := range order {
		days = append(days, *byDate[date])
	}
	// ListTransactions returns newest first; flip to calendar order.
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days, nil
}
