package service

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

var ErrMissingPnLFields = errors.New("missing required fields for P&L calculation")

var hundred = decimal.NewFromInt(100)

// PnLResult holds the derived fields for one trade. RMultiple and
// DurationMinutes are nil when the inputs to derive them are absent and no
// previous value exists; a nil field is left untouched on the stored trade.
type PnLResult struct {
	GrossPnL        decimal.Decimal
	NetPnL          decimal.Decimal
	PnLPercentage   decimal.Decimal
	RMultiple       *decimal.Decimal
	DurationMinutes *int
}

// ComputePnL derives gross/net P&L, percentage, R-multiple and duration from a
// trade's price, size and time fields. Entry price, exit price and quantity
// must all be present and non-zero; nothing is computed partially.
func ComputePnL(t *models.Trade) (PnLResult, error) {
	if t == nil {
		return PnLResult{}, ErrMissingPnLFields
	}
	if t.EntryPrice.IsZero() || t.ExitPrice == nil || t.ExitPrice.IsZero() || t.Quantity.IsZero() {
		return PnLResult{}, ErrMissingPnLFields
	}

	priceDiff := t.ExitPrice.Sub(t.EntryPrice)
	if t.Direction != models.DirectionLong {
		priceDiff = t.EntryPrice.Sub(*t.ExitPrice)
	}

	gross := priceDiff.Mul(t.Quantity)
	net := gross.Sub(t.Commission).Sub(t.Fees)

	pct := decimal.Zero
	if t.EntryPrice.IsPositive() {
		pct = priceDiff.Div(t.EntryPrice).Mul(hundred)
	}

	res := PnLResult{
		GrossPnL:        gross,
		NetPnL:          net,
		PnLPercentage:   pct,
		RMultiple:       t.RMultiple,
		DurationMinutes: t.DurationMinutes,
	}

	// R-multiple only when a stop loss and a positive initial risk exist;
	// otherwise the previous value is preserved unchanged.
	if t.StopLoss != nil && t.InitialRisk != nil && t.InitialRisk.IsPositive() {
		r := net.Div(*t.InitialRisk)
		res.RMultiple = &r
	}

	if t.EntryTime != nil && t.ExitTime != nil {
		minutes := int(math.Round(t.ExitTime.Sub(*t.EntryTime).Minutes()))
		res.DurationMinutes = &minutes
	}

	return res, nil
}

// Updates flattens the result into a column update map for persistence.
func (r PnLResult) Updates() map[string]any {
	updates := map[string]any{
		"gross_pnl":      r.GrossPnL,
		"net_pnl":        r.NetPnL,
		"pnl_percentage": r.PnLPercentage,
	}
	if r.DurationMinutes != nil {
		updates["duration_minutes"] = *r.DurationMinutes
	}
	if r.RMultiple != nil {
		updates["r_multiple"] = *r.RMultiple
	}
	return updates
}

type PnLService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Recompute derives and persists the computed fields of one trade, returning
// the applied update map for the response body.
func (s *PnLService) Recompute(ctx context.Context, trade *models.Trade) (map[string]any, error) {
	res, err := ComputePnL(trade)
	if err != nil {
		return nil, err
	}
	updates := res.Updates()
	if err := s.Repo.UpdateTradeFields(ctx, trade.ID, updates); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("trade pnl recomputed",
			zap.Uint64("trade_id", trade.ID),
			zap.String("net_pnl", res.NetPnL.String()),
		)
	}
	return updates, nil
}
