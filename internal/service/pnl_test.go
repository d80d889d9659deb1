package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func closedTrade(direction, entry, exit, qty string) *models.Trade {
	return &models.Trade{
		Direction:  direction,
		EntryPrice: dec(entry),
		ExitPrice:  decPtr(exit),
		Quantity:   dec(qty),
		Status:     models.TradeStatusClosed,
	}
}

func TestComputePnLLong(t *testing.T) {
	trade := closedTrade(models.DirectionLong, "100", "110", "10")
	trade.Commission = dec("5")
	trade.Fees = dec("2")

	res, err := ComputePnL(trade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.GrossPnL.Equal(dec("100")) {
		t.Fatalf("gross = %s, want 100", res.GrossPnL)
	}
	if !res.NetPnL.Equal(dec("93")) {
		t.Fatalf("net = %s, want 93", res.NetPnL)
	}
	if !res.PnLPercentage.Equal(dec("10")) {
		t.Fatalf("pct = %s, want 10", res.PnLPercentage)
	}
}

func TestComputePnLShort(t *testing.T) {
	res, err := ComputePnL(closedTrade(models.DirectionShort, "100", "90", "5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.GrossPnL.Equal(dec("50")) {
		t.Fatalf("gross = %s, want 50", res.GrossPnL)
	}
	if !res.PnLPercentage.Equal(dec("10")) {
		t.Fatalf("pct = %s, want 10", res.PnLPercentage)
	}
}

func TestComputePnLShortLoss(t *testing.T) {
	res, err := ComputePnL(closedTrade(models.DirectionShort, "100", "105", "2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.GrossPnL.Equal(dec("-10")) {
		t.Fatalf("gross = %s, want -10", res.GrossPnL)
	}
}

func TestComputePnLMissingFields(t *testing.T) {
	cases := []*models.Trade{
		nil,
		{Direction: models.DirectionLong, EntryPrice: dec("100"), Quantity: dec("1")},
		{Direction: models.DirectionLong, EntryPrice: dec("100"), ExitPrice: decPtr("0"), Quantity: dec("1")},
		{Direction: models.DirectionLong, EntryPrice: dec("0"), ExitPrice: decPtr("110"), Quantity: dec("1")},
		{Direction: models.DirectionLong, EntryPrice: dec("100"), ExitPrice: decPtr("110"), Quantity: dec("0")},
	}
	for i, trade := range cases {
		if _, err := ComputePnL(trade); err != ErrMissingPnLFields {
			t.Fatalf("case %d: err = %v, want ErrMissingPnLFields", i, err)
		}
	}
}

func TestComputePnLRMultiple(t *testing.T) {
	trade := closedTrade(models.DirectionLong, "100", "110", "10")
	trade.StopLoss = decPtr("95")
	trade.InitialRisk = decPtr("50")

	res, err := ComputePnL(trade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RMultiple == nil || !res.RMultiple.Equal(dec("2")) {
		t.Fatalf("r_multiple = %v, want 2", res.RMultiple)
	}

	// Without a stop loss the previous value is preserved.
	trade2 := closedTrade(models.DirectionLong, "100", "110", "10")
	trade2.RMultiple = decPtr("1.5")
	res2, err := ComputePnL(trade2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.RMultiple == nil || !res2.RMultiple.Equal(dec("1.5")) {
		t.Fatalf("r_multiple = %v, want preserved 1.5", res2.RMultiple)
	}
}

func TestComputePnLDuration(t *testing.T) {
	entry := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	exit := entry.Add(95*time.Minute + 40*time.Second)

	trade := closedTrade(models.DirectionLong, "100", "110", "1")
	trade.EntryTime = &entry
	trade.ExitTime = &exit

	res, err := ComputePnL(trade)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.DurationMinutes == nil || *res.DurationMinutes != 96 {
		t.Fatalf("duration = %v, want 96", res.DurationMinutes)
	}
}
