package service

import (
	"context"
	"testing"
	"time"

	"tradejournal/internal/models"
)

func tradeOn(day time.Time, userID uint64, net string) models.Trade {
	n := dec(net)
	return models.Trade{
		UserID:     userID,
		AccountID:  1,
		Symbol:     "ES",
		Direction:  models.DirectionLong,
		EntryPrice: dec("100"),
		Quantity:   dec("1"),
		Status:     models.TradeStatusClosed,
		NetPnL:     &n,
		GrossPnL:   &n,
		EntryTime:  &day,
	}
}

func TestComputeForUserGroupsByUTCDate(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo}

	day1 := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)
	// 23:30 New York on Mar 4 is already Mar 5 in UTC.
	lateNY := time.Date(2024, 3, 5, 4, 30, 0, 0, time.UTC)

	for _, tr := range []models.Trade{
		tradeOn(day1, 7, "120"),
		tradeOn(day1, 7, "-40"),
		tradeOn(day2, 7, "10"),
		tradeOn(lateNY, 7, "25"),
	} {
		trade := tr
		if err := repo.InsertTrade(context.Background(), &trade); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	days, err := svc.ComputeForUser(context.Background(), 7, nil, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("computed %d days, want 2", len(days))
	}
	if days[0].Date != "2024-03-04" || days[1].Date != "2024-03-05" {
		t.Fatalf("dates = %s, %s", days[0].Date, days[1].Date)
	}
	if days[1].Stats.TotalTrades != 2 {
		t.Fatalf("2024-03-05 total = %d, want 2", days[1].Stats.TotalTrades)
	}

	d1 := days[0].Stats
	if d1.WinningTrades != 1 || d1.LosingTrades != 1 {
		t.Fatalf("winners/losers = %d/%d, want 1/1", d1.WinningTrades, d1.LosingTrades)
	}
	if !d1.NetPnL.Equal(dec("80")) {
		t.Fatalf("net = %s, want 80", d1.NetPnL)
	}
	if !d1.WinRate.Equal(dec("50")) {
		t.Fatalf("win rate = %s, want 50", d1.WinRate)
	}
	if !d1.ProfitFactor.Equal(dec("3")) {
		t.Fatalf("profit factor = %s, want 3", d1.ProfitFactor)
	}
}

func TestComputeForUserProfitFactorSentinel(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo}
	day := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	winner := tradeOn(day, 3, "55")
	if err := repo.InsertTrade(context.Background(), &winner); err != nil {
		t.Fatalf("insert: %v", err)
	}

	days, err := svc.ComputeForUser(context.Background(), 3, nil, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("computed %d days, want 1", len(days))
	}
	if !days[0].Stats.ProfitFactor.Equal(dec("999")) {
		t.Fatalf("profit factor = %s, want 999", days[0].Stats.ProfitFactor)
	}

	// A day with only losers reports zero, not the sentinel.
	loser := tradeOn(day.AddDate(0, 0, 1), 3, "-20")
	if err := repo.InsertTrade(context.Background(), &loser); err != nil {
		t.Fatalf("insert: %v", err)
	}
	days, err = svc.ComputeForUser(context.Background(), 3, nil, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !days[1].Stats.ProfitFactor.Equal(dec("0")) {
		t.Fatalf("loser-only profit factor = %s, want 0", days[1].Stats.ProfitFactor)
	}
}

func TestComputeForUserIdempotent(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo}
	day := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	for _, net := range []string{"10", "-5", "0"} {
		trade := tradeOn(day, 9, net)
		if err := repo.InsertTrade(context.Background(), &trade); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	first, err := svc.ComputeForUser(context.Background(), 9, nil, nil)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := svc.ComputeForUser(context.Background(), 9, nil, nil)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("day counts = %d, %d, want 1, 1", len(first), len(second))
	}

	a, b := first[0].Stats, second[0].Stats
	if a.TotalTrades != b.TotalTrades || !a.NetPnL.Equal(b.NetPnL) || !a.WinRate.Equal(b.WinRate) {
		t.Fatalf("recompute drifted: %+v vs %+v", a, b)
	}
	if a.BreakevenTrades != 1 {
		t.Fatalf("breakeven = %d, want 1", a.BreakevenTrades)
	}

	stored, err := repo.GetDailyStats(context.Background(), 9, "2024-06-03")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stored == nil || stored.TotalTrades != 3 {
		t.Fatalf("stored row = %+v, want 3 trades", stored)
	}
}

func TestComputeForUserDateRangeFilter(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo}

	for i := 0; i < 4; i++ {
		day := time.Date(2024, 6, 10+i, 12, 0, 0, 0, time.UTC)
		trade := tradeOn(day, 4, "10")
		if err := repo.InsertTrade(context.Background(), &trade); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	from, to := "2024-06-11", "2024-06-12"
	days, err := svc.ComputeForUser(context.Background(), 4, &from, &to)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("computed %d days, want 2", len(days))
	}
	if days[0].Date != "2024-06-11" || days[1].Date != "2024-06-12" {
		t.Fatalf("dates = %s, %s", days[0].Date, days[1].Date)
	}
}

func TestDisciplineScoreClamped(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo}
	day := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)

	trade := tradeOn(day, 5, "10")
	trade.FollowedRules = true
	trade.Mistakes = mustJSON([]string{"chased entry", "oversized", "moved stop", "no plan", "revenge", "fomo"})
	if err := repo.InsertTrade(context.Background(), &trade); err != nil {
		t.Fatalf("insert: %v", err)
	}

	days, err := svc.ComputeForUser(context.Background(), 5, nil, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	stats := days[0].Stats
	// 100% rules followed minus 6 mistakes x 5 = 70.
	if !stats.DisciplineScore.Equal(dec("70")) {
		t.Fatalf("discipline = %s, want 70", stats.DisciplineScore)
	}
	if stats.MistakesCount != 6 {
		t.Fatalf("mistakes = %d, want 6", stats.MistakesCount)
	}

	// Enough mistakes pushes the score to the floor, never below zero.
	many := make([]string, 25)
	for i := range many {
		many[i] = "mistake"
	}
	trade2 := tradeOn(day.AddDate(0, 0, 1), 5, "10")
	trade2.FollowedRules = true
	trade2.Mistakes = mustJSON(many)
	if err := repo.InsertTrade(context.Background(), &trade2); err != nil {
		t.Fatalf("insert: %v", err)
	}
	days, err = svc.ComputeForUser(context.Background(), 5, nil, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !days[1].Stats.DisciplineScore.IsZero() {
		t.Fatalf("discipline = %s, want 0", days[1].Stats.DisciplineScore)
	}
}

func TestAvgRRExcludesZeroes(t *testing.T) {
	repo := newStubRepo()
	svc := &DailyStatsService{Repo: repo}
	day := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	withR := func(net, r string) models.Trade {
		trade := tradeOn(day, 6, net)
		trade.RMultiple = decPtr(r)
		return trade
	}
	for _, tr := range []models.Trade{
		withR("20", "2"),
		withR("10", "1"),
		withR("5", "0"),      // excluded from the average, counted in total
		tradeOn(day, 6, "3"), // no r at all
	} {
		trade := tr
		if err := repo.InsertTrade(context.Background(), &trade); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	days, err := svc.ComputeForUser(context.Background(), 6, nil, nil)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	stats := days[0].Stats
	if !stats.AvgRR.Equal(dec("1.5")) {
		t.Fatalf("avg rr = %s, want 1.5", stats.AvgRR)
	}
	if !stats.TotalR.Equal(dec("3")) {
		t.Fatalf("total r = %s, want 3", stats.TotalR)
	}
}
