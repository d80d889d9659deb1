package service

import (
	"context"

	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

const matchScoreThreshold = 3

type MatchResult struct {
	Assigned   bool    `json:"assigned"`
	StrategyID *uint64 `json:"strategy_id,omitempty"`
	MatchScore int     `json:"match_score,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// StrategyMatcher scores a trade against the user's active strategies with a
// fixed weighted-criteria sum and assigns the best match above the threshold.
type StrategyMatcher struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// AutoAssign matches and persists a strategy for the trade. A trade with an
// existing strategy_id is never overwritten.
func (m *StrategyMatcher) AutoAssign(ctx context.Context, trade *models.Trade) (MatchResult, error) {
	if trade.StrategyID != nil {
		return MatchResult{Assigned: false, Reason: "Strategy already assigned"}, nil
	}

	status := models.StrategyStatusActive
	strategies, err := m.Repo.ListStrategies(ctx, trade.UserID, &status)
	if err != nil {
		return MatchResult{}, err
	}

	var matched *models.Strategy
	maxScore := 0
	for i := range strategies {
		score, ok := scoreStrategy(&strategies[i], trade)
		if !ok {
			continue
		}
		// Strict comparison: on a tie the first strategy encountered wins.
		if score > maxScore {
			maxScore = score
			matched = &strategies[i]
		}
	}

	if matched == nil || maxScore < matchScoreThreshold {
		return MatchResult{Assigned: false, Reason: "No matching strategy found"}, nil
	}

	if err := m.Repo.UpdateTradeFields(ctx, trade.ID, map[string]any{"strategy_id": matched.ID}); err != nil {
		return MatchResult{}, err
	}
	if m.Logger != nil {
		m.Logger.Info("strategy auto-assigned",
			zap.Uint64("trade_id", trade.ID),
			zap.Uint64("strategy_id", matched.ID),
			zap.Int("score", maxScore),
		)
	}
	id := matched.ID
	return MatchResult{Assigned: true, StrategyID: &id, MatchScore: maxScore}, nil
}

// scoreStrategy returns the weighted match score. A strategy that pins down
// symbols the trade doesn't belong to is skipped outright (hard filter), not
// scored at zero.
func scoreStrategy(strategy *models.Strategy, trade *models.Trade) (int, bool) {
	score := 0

	symbols := models.StringList(strategy.Symbols)
	if len(symbols) > 0 {
		if !contains(symbols, trade.Symbol) {
			return 0, false
		}
		score += 3
	}

	if contains(models.StringList(strategy.AssetClasses), trade.AssetClass) {
		score += 2
	}
	if trade.Session != nil && contains(models.StringList(strategy.Sessions), *trade.Session) {
		score += 2
	}
	if trade.SetupType != nil && *trade.SetupType != "" && contains(models.StringList(strategy.SetupTypes), *trade.SetupType) {
		score += 2
	}

	return score, true
}

func contains(items []string, v string) bool {
	if v == "" {
		return false
	}
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
