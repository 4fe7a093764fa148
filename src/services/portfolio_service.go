package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/portfolio"
	"github.com/avinm/ledgerdesk/src/security/validation"
)

// PortfolioService manages weighted-average investment lots. Each executed
// trade writes the lot update, the immutable history row and a companion
// cash transaction in one SQL transaction, so the ledger and the portfolio
// can never disagree about settled money.
type PortfolioService struct {
	DB *sql.DB
}

func NewPortfolioService(db *sql.DB) *PortfolioService {
	return &PortfolioService{DB: db}
}

func (s *PortfolioService) CreateAsset(ctx context.Context, inv *models.Investment) error {
	if err := validation.ValidateEntityID(inv.ID, "investment id"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(inv.Name, "name"); err != nil {
		return err
	}
	if inv.Status == "" {
		inv.Status = models.InvestmentActive
	}
	if err := model.CreateInvestment(s.DB, inv); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("investment created", "id", inv.ID, "name", inv.Name)
	return nil
}

func (s *PortfolioService) GetAsset(ctx context.Context, id string) (*models.Investment, error) {
	return model.GetInvestmentByID(s.DB, id)
}

func (s *PortfolioService) ListAssets(ctx context.Context) ([]models.Investment, error) {
	return model.ListInvestments(s.DB)
}

// UpdateMark sets the manual valuation price used for unrealized P/L.
func (s *PortfolioService) UpdateMark(ctx context.Context, id, price string) error {
	mark, err := validation.ValidateAmount(price, "current price")
	if err != nil {
		return err
	}
	inv, err := model.GetInvestmentByID(s.DB, id)
	if err != nil {
		return err
	}
	inv.CurrPrice = mark
	return model.UpdateInvestment(s.DB, inv)
}

func (s *PortfolioService) DeleteAsset(ctx context.Context, id string) error {
	if err := model.DeleteInvestment(s.DB, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("investment deleted", "id", id)
	return nil
}

// ExecuteTrade applies one buy or sell to the named asset. accountID selects
// the settlement account for the companion cash entry; when empty the trade
// settles against no account (balance untouched), mirroring credit-settled
// ledger entries.
func (s *PortfolioService) ExecuteTrade(ctx context.Context, investmentID, accountID string, trade models.InvestmentTrade) (*models.Investment, error) {
	if err := validation.ValidateEntityID(trade.ID, "trade id"); err != nil {
		return nil, err
	}
	if _, err := validation.ValidateDateString(trade.Date, "date"); err != nil {
		return nil, err
	}

	dbTx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			dbTx.Rollback()
		}
	}()

	asset, err := model.GetInvestmentByID(dbTx, investmentID)
	if err != nil {
		return nil, err
	}

	updated, err := portfolio.ApplyTrade(*asset, trade)
	if err != nil {
		return nil, err
	}
	executed := updated.History[len(updated.History)-1]

	if err := model.UpdateInvestment(dbTx, &updated); err != nil {
		return nil, err
	}
	if err := model.InsertTrade(dbTx, investmentID, &executed); err != nil {
		return nil, err
	}

	cash := companionCashTx(updated.Name, accountID, executed)
	if err := model.CreateTransaction(dbTx, cash); err != nil {
		return nil, err
	}
	if err := applyDeltas(dbTx, cash, false); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	logger.FromContext(ctx).Info("trade executed",
		"investment", investmentID, "side", executed.Type, "qty", executed.Qty)
	return &updated, nil
}

// companionCashTx is the ledger entry that settles a trade: buys spend
// qty*price plus charges, sells collect qty*price minus charges. Ledger
// amounts are magnitudes, so a sell whose charges exceed the gross proceeds
// settles as an expense of the shortfall instead of a negative income.
func companionCashTx(assetName, accountID string, trade models.InvestmentTrade) *models.Transaction {
	txType := models.TypeExpense
	verb := "Buy"
	if trade.Type == models.TradeSell {
		txType = models.TypeIncome
		verb = "Sell"
	}
	amount := portfolio.CashFlowAmount(trade)
	if amount.IsNegative() {
		txType = models.TypeExpense
		amount = amount.Neg()
	}
	return &models.Transaction{
		ID:          trade.ID + "-cash",
		Type:        txType,
		Date:        trade.Date,
		Description: fmt.Sprintf("%s %s %s @ %s", verb, trade.Qty, assetName, trade.Price),
		Category:    "Investment",
		Account:     accountID,
		Amount:      amount,
	}
}

// Summary aggregates valuation across all assets.
func (s *PortfolioService) Summary(ctx context.Context) (portfolio.Summary, error) {
	assets, err := model.ListInvestments(s.DB)
	if err != nil {
		return portfolio.Summary{}, err
	}
	return portfolio.Summarize(assets), nil
}
