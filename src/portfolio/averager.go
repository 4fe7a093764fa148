// Package portfolio maintains a single weighted-average-cost open lot per
// investment asset. There is no per-lot or FIFO tracking: every buy blends
// into one average cost, and every sell realizes P/L against that average.
package portfolio

import (
	"errors"

	"github.com/avinm/ledgerdesk/src/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientQuantity rejects a sell larger than the open lot.
	ErrInsufficientQuantity = errors.New("sell quantity exceeds holdings")
	// ErrInvalidTrade rejects non-positive quantity/price or negative charges.
	ErrInvalidTrade = errors.New("invalid trade")
)

// ApplyTrade executes one buy or sell against the asset and returns the
// updated asset. The input is never mutated; on error it is returned
// unchanged. Every accepted trade appends one immutable history row — sell
// rows carry the average cost at execution so later buys cannot reinterpret
// settled history.
func ApplyTrade(asset models.Investment, trade models.InvestmentTrade) (models.Investment, error) {
	if !trade.Qty.IsPositive() || !trade.Price.IsPositive() || trade.Charges.IsNegative() {
		return asset, ErrInvalidTrade
	}

	out := asset
	out.History = make([]models.InvestmentTrade, len(asset.History), len(asset.History)+1)
	copy(out.History, asset.History)

	switch trade.Type {
	case models.TradeBuy:
		// Charges are capitalized into the blended cost. A closed position
		// reopens here with oldQty == 0, i.e. a fresh average.
		totalCost := out.AvgBuyPrice.Mul(out.Qty).Add(trade.Qty.Mul(trade.Price)).Add(trade.Charges)
		out.Qty = out.Qty.Add(trade.Qty)
		out.AvgBuyPrice = totalCost.DivRound(out.Qty, 8)
		out.Status = models.InvestmentActive

	case models.TradeSell:
		if trade.Qty.GreaterThan(out.Qty) {
			return asset, ErrInsufficientQuantity
		}
		trade.CostBasis = out.AvgBuyPrice
		realized := trade.Qty.Mul(trade.Price).Sub(trade.Qty.Mul(out.AvgBuyPrice)).Sub(trade.Charges)
		out.TotalRealizedPL = out.TotalRealizedPL.Add(realized)
		out.Qty = out.Qty.Sub(trade.Qty)
		if out.Qty.IsZero() {
			out.Status = models.InvestmentClosed
		}

	default:
		return asset, ErrInvalidTrade
	}

	out.History = append(out.History, trade)
	return out, nil
}

// CashFlowAmount is the gross settlement value of a trade: buys cost
// qty*price plus charges, sells return qty*price minus charges.
func CashFlowAmount(trade models.InvestmentTrade) decimal.Decimal {
	gross := trade.Qty.Mul(trade.Price)
	if trade.Type == models.TradeBuy {
		return gross.Add(trade.Charges)
	}
	return gross.Sub(trade.Charges)
}

// Summary aggregates portfolio-level valuation figures.
type Summary struct {
	MarketValue  decimal.Decimal `json:"marketValue"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	UnrealizedPL decimal.Decimal `json:"unrealizedPL"`
	RealizedPL   decimal.Decimal `json:"realizedPL"`
}

// Summarize values active lots at their manually entered mark and sums
// realized P/L across all assets, closed ones included.
func Summarize(assets []models.Investment) Summary {
	var s Summary
	for _, asset := range assets {
		if asset.Status == models.InvestmentActive {
			s.MarketValue = s.MarketValue.Add(asset.Qty.Mul(asset.CurrPrice))
			s.CostBasis = s.CostBasis.Add(asset.Qty.Mul(asset.AvgBuyPrice))
		}
		s.RealizedPL = s.RealizedPL.Add(asset.TotalRealizedPL)
	}
	s.UnrealizedPL = s.MarketValue.Sub(s.CostBasis)
	return s
}
