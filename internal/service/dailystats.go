package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

// profitFactorCap is the stored sentinel for a day without losing trades.
// Kept at the literal 999 the frontend expects instead of an infinity marker.
var profitFactorCap = decimal.NewFromInt(999)

type ComputedDay struct {
	Date  string            `json:"date"`
	Stats models.DailyStats `json:"stats"`
}

// DailyStatsService groups a user's closed trades by calendar date and upserts
// one derived DailyStats row per date. Recomputing over an unchanged trade set
// is idempotent: the row is a pure function of the trades.
type DailyStatsService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// ComputeForUser aggregates all closed trades of one user, optionally bounded
// by an inclusive [dateFrom, dateTo] ISO-date range.
func (s *DailyStatsService) ComputeForUser(ctx context.Context, userID uint64, dateFrom, dateTo *string) ([]ComputedDay, error) {
	trades, err := s.Repo.ListClosedTrades(ctx, userID, 10000)
	if err != nil {
		return nil, err
	}

	byDate := map[string][]models.Trade{}
	for _, trade := range trades {
		if trade.EntryTime == nil {
			continue
		}
		date := trade.EntryTime.UTC().Format("2006-01-02")
		if dateFrom != nil && date < *dateFrom {
			continue
		}
		if dateTo != nil && date > *dateTo {
			continue
		}
		byDate[date] = append(byDate[date], trade)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	results := make([]ComputedDay, 0, len(dates))
	for _, date := range dates {
		stats := aggregateDay(userID, date, byDate[date])
		if err := s.Repo.UpsertDailyStats(ctx, &stats); err != nil {
			return nil, err
		}
		results = append(results, ComputedDay{Date: date, Stats: stats})
	}
	if s.Logger != nil {
		s.Logger.Debug("daily stats computed",
			zap.Uint64("user_id", userID),
			zap.Int("dates", len(results)),
		)
	}
	return results, nil
}

// RebuildAll recomputes stats for every user holding closed trades. Driven by
// the nightly cron schedule.
func (s *DailyStatsService) RebuildAll(ctx context.Context) error {
	userIDs, err := s.Repo.ListUserIDsWithClosedTrades(ctx)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if _, err := s.ComputeForUser(ctx, userID, nil, nil); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("daily stats rebuild failed for user",
					zap.Uint64("user_id", userID),
					zap.Error(err),
				)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

func aggregateDay(userID uint64, date string, trades []models.Trade) models.DailyStats {
	var winners, losers, breakeven int
	var grossPnL, netPnL, commissions decimal.Decimal
	var totalWinnings, totalLosses decimal.Decimal
	var largestWinner, largestLoser decimal.Decimal
	var totalR, rSum decimal.Decimal
	var rCount, rulesFollowed, mistakesCount int
	sessions := []string{}
	symbols := []string{}
	strategies := []uint64{}
	seenSessions := map[string]struct{}{}
	seenSymbols := map[string]struct{}{}
	seenStrategies := map[uint64]struct{}{}

	for _, t := range trades {
		net := decimal.Zero
		if t.NetPnL != nil {
			net = *t.NetPnL
		}
		switch {
		case net.IsPositive():
			winners++
			totalWinnings = totalWinnings.Add(net)
			if largestWinner.IsZero() || net.GreaterThan(largestWinner) {
				largestWinner = net
			}
		case net.IsNegative():
			losers++
			totalLosses = totalLosses.Add(net.Abs())
			if largestLoser.IsZero() || net.LessThan(largestLoser) {
				largestLoser = net
			}
		case t.NetPnL != nil:
			breakeven++
		}

		if t.GrossPnL != nil {
			grossPnL = grossPnL.Add(*t.GrossPnL)
		}
		netPnL = netPnL.Add(net)
		commissions = commissions.Add(t.Commission).Add(t.Fees)

		if t.RMultiple != nil {
			totalR = totalR.Add(*t.RMultiple)
			if !t.RMultiple.IsZero() {
				rSum = rSum.Add(*t.RMultiple)
				rCount++
			}
		}
		if t.FollowedRules {
			rulesFollowed++
		}
		mistakesCount += len(models.StringList(t.Mistakes))

		if t.Session != nil && *t.Session != "" {
			if _, ok := seenSessions[*t.Session]; !ok {
				seenSessions[*t.Session] = struct{}{}
				sessions = append(sessions, *t.Session)
			}
		}
		if t.Symbol != "" {
			if _, ok := seenSymbols[t.Symbol]; !ok {
				seenSymbols[t.Symbol] = struct{}{}
				symbols = append(symbols, t.Symbol)
			}
		}
		if t.StrategyID != nil {
			if _, ok := seenStrategies[*t.StrategyID]; !ok {
				seenStrategies[*t.StrategyID] = struct{}{}
				strategies = append(strategies, *t.StrategyID)
			}
		}
	}

	total := len(trades)
	totalDec := decimal.NewFromInt(int64(total))

	winRate := decimal.Zero
	rulesFollowedPct := decimal.Zero
	if total > 0 {
		winRate = decimal.NewFromInt(int64(winners)).Div(totalDec).Mul(hundred)
		rulesFollowedPct = decimal.NewFromInt(int64(rulesFollowed)).Div(totalDec).Mul(hundred)
	}

	avgWinner := decimal.Zero
	if winners > 0 {
		avgWinner = totalWinnings.Div(decimal.NewFromInt(int64(winners)))
	}
	avgLoser := decimal.Zero
	if losers > 0 {
		avgLoser = totalLosses.Div(decimal.NewFromInt(int64(losers)))
	}

	profitFactor := decimal.Zero
	switch {
	case totalLosses.IsPositive():
		profitFactor = totalWinnings.Div(totalLosses)
	case totalWinnings.IsPositive():
		profitFactor = profitFactorCap
	}

	avgRR := decimal.Zero
	if rCount > 0 {
		avgRR = rSum.Div(decimal.NewFromInt(int64(rCount)))
	}

	discipline := rulesFollowedPct.Sub(decimal.NewFromInt(int64(mistakesCount * 5)))
	if discipline.IsNegative() {
		discipline = decimal.Zero
	}
	if discipline.GreaterThan(hundred) {
		discipline = hundred
	}

	return models.DailyStats{
		UserID:           userID,
		Date:             date,
		TotalTrades:      total,
		WinningTrades:    winners,
		LosingTrades:     losers,
		BreakevenTrades:  breakeven,
		GrossPnL:         grossPnL,
		NetPnL:           netPnL,
		Commissions:      commissions,
		WinRate:          winRate,
		AvgWinner:        avgWinner,
		AvgLoser:         avgLoser,
		LargestWinner:    largestWinner,
		LargestLoser:     largestLoser,
		ProfitFactor:     profitFactor,
		AvgRR:            avgRR,
		TotalR:           totalR,
		DisciplineScore:  discipline,
		RulesFollowedPct: rulesFollowedPct,
		MistakesCount:    mistakesCount,
		SessionsTraded:   mustJSON(sessions),
		SymbolsTraded:    mustJSON(symbols),
		StrategiesUsed:   mustJSON(strategies),
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}
