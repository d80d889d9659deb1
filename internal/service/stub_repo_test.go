package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

func noopLogger() *zap.Logger { return zap.NewNop() }

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It implements the full interface but only the parts the service tests touch
// carry real behavior.
type stubRepo struct {
	trades     []models.Trade
	accounts   []models.TradingAccount
	strategies []models.Strategy
	logs       []models.EmotionalLog
	alerts     []models.Alert
	users      map[uint64]models.User
	stats      map[uint64]map[string]models.DailyStats

	tradeUpdates   map[uint64][]map[string]any
	accountUpdates map[uint64][]map[string]any
	userUpdates    map[uint64][]map[string]any

	nextTradeID   uint64
	nextAccountID uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:          map[uint64]models.User{},
		stats:          map[uint64]map[string]models.DailyStats{},
		tradeUpdates:   map[uint64][]map[string]any{},
		accountUpdates: map[uint64][]map[string]any{},
		userUpdates:    map[uint64][]map[string]any{},
	}
}

func listTradesFor(userID uint64) repository.ListTradesParams {
	return repository.ListTradesParams{UserID: userID}
}

func (s *stubRepo) InsertTrade(ctx context.Context, item *models.Trade) error {
	if item.ID == 0 {
		s.nextTradeID++
		item.ID = s.nextTradeID
	}
	s.trades = append(s.trades, *item)
	return nil
}

func (s *stubRepo) GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error) {
	for i := range s.trades {
		if s.trades[i].ID == id {
			t := s.trades[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetTradeByExternalID(ctx context.Context, userID uint64, externalID string) (*models.Trade, error) {
	for i := range s.trades {
		t := s.trades[i]
		if t.UserID == userID && t.ExternalTradeID != nil && *t.ExternalTradeID == externalID {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) UpdateTradeFields(ctx context.Context, id uint64, updates map[string]any) error {
	s.tradeUpdates[id] = append(s.tradeUpdates[id], updates)
	for i := range s.trades {
		if s.trades[i].ID != id {
			continue
		}
		if v, ok := updates["strategy_id"]; ok {
			if sid, ok := v.(uint64); ok {
				s.trades[i].StrategyID = &sid
			}
		}
	}
	return nil
}

func (s *stubRepo) DeleteTrade(ctx context.Context, id uint64) error {
	for i := range s.trades {
		if s.trades[i].ID == id {
			s.trades = append(s.trades[:i], s.trades[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *stubRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range s.trades {
		if t.UserID == params.UserID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *stubRepo) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	items, _ := s.ListTrades(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) ListClosedTrades(ctx context.Context, userID uint64, limit int) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range s.trades {
		if t.UserID == userID && t.Status == models.TradeStatusClosed {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].EntryTime, out[j].EntryTime
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) ListUserIDsWithClosedTrades(ctx context.Context) ([]uint64, error) {
	seen := map[uint64]struct{}{}
	var out []uint64
	for _, t := range s.trades {
		if t.Status != models.TradeStatusClosed {
			continue
		}
		if _, ok := seen[t.UserID]; !ok {
			seen[t.UserID] = struct{}{}
			out = append(out, t.UserID)
		}
	}
	return out, nil
}

func (s *stubRepo) InsertTradingAccount(ctx context.Context, item *models.TradingAccount) error {
	if item.ID == 0 {
		s.nextAccountID++
		item.ID = s.nextAccountID
	}
	s.accounts = append(s.accounts, *item)
	return nil
}

func (s *stubRepo) GetTradingAccountByID(ctx context.Context, id uint64) (*models.TradingAccount, error) {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			a := s.accounts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetTradingAccountByTradovateID(ctx context.Context, userID uint64, tradovateID string) (*models.TradingAccount, error) {
	for i := range s.accounts {
		a := s.accounts[i]
		if a.UserID == userID && a.TradovateAccountID != nil && *a.TradovateAccountID == tradovateID {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) UpdateTradingAccountFields(ctx context.Context, id uint64, updates map[string]any) error {
	s.accountUpdates[id] = append(s.accountUpdates[id], updates)
	return nil
}

func (s *stubRepo) DeleteTradingAccount(ctx context.Context, id uint64) error { return nil }

func (s *stubRepo) ListTradingAccounts(ctx context.Context, userID uint64) ([]models.TradingAccount, error) {
	var out []models.TradingAccount
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubRepo) UpsertDailyStats(ctx context.Context, item *models.DailyStats) error {
	if s.stats[item.UserID] == nil {
		s.stats[item.UserID] = map[string]models.DailyStats{}
	}
	s.stats[item.UserID][item.Date] = *item
	return nil
}

func (s *stubRepo) GetDailyStats(ctx context.Context, userID uint64, date string) (*models.DailyStats, error) {
	if byDate, ok := s.stats[userID]; ok {
		if row, ok := byDate[date]; ok {
			return &row, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListDailyStats(ctx context.Context, params repository.ListDailyStatsParams) ([]models.DailyStats, error) {
	var out []models.DailyStats
	for _, row := range s.stats[params.UserID] {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *stubRepo) InsertAlert(ctx context.Context, item *models.Alert) error {
	item.ID = uint64(len(s.alerts) + 1)
	s.alerts = append(s.alerts, *item)
	return nil
}

func (s *stubRepo) GetAlertByID(ctx context.Context, id uint64) (*models.Alert, error) {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			a := s.alerts[i]
			return &a, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range s.alerts {
		if a.UserID == params.UserID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubRepo) CountAlerts(ctx context.Context, params repository.ListAlertsParams) (int64, error) {
	items, _ := s.ListAlerts(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) MarkAlertRead(ctx context.Context, id uint64) error { return nil }
func (s *stubRepo) DismissAlert(ctx context.Context, id uint64) error  { return nil }

func (s *stubRepo) InsertStrategy(ctx context.Context, item *models.Strategy) error {
	if item.ID == 0 {
		item.ID = uint64(len(s.strategies) + 1)
	}
	s.strategies = append(s.strategies, *item)
	return nil
}

func (s *stubRepo) GetStrategyByID(ctx context.Context, id uint64) (*models.Strategy, error) {
	for i := range s.strategies {
		if s.strategies[i].ID == id {
			st := s.strategies[i]
			return &st, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) UpdateStrategyFields(ctx context.Context, id uint64, updates map[string]any) error {
	return nil
}

func (s *stubRepo) DeleteStrategy(ctx context.Context, id uint64) error { return nil }

func (s *stubRepo) ListStrategies(ctx context.Context, userID uint64, status *string) ([]models.Strategy, error) {
	var out []models.Strategy
	for _, st := range s.strategies {
		if st.UserID != userID {
			continue
		}
		if status != nil && st.Status != *status {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *stubRepo) InsertEmotionalLog(ctx context.Context, item *models.EmotionalLog) error {
	if item.ID == 0 {
		item.ID = uint64(len(s.logs) + 1)
	}
	s.logs = append(s.logs, *item)
	return nil
}

func (s *stubRepo) GetEmotionalLogByID(ctx context.Context, id uint64) (*models.EmotionalLog, error) {
	for i := range s.logs {
		if s.logs[i].ID == id {
			l := s.logs[i]
			return &l, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) UpdateEmotionalLogFields(ctx context.Context, id uint64, updates map[string]any) error {
	return nil
}

func (s *stubRepo) ListEmotionalLogs(ctx context.Context, params repository.ListEmotionalLogsParams) ([]models.EmotionalLog, error) {
	var out []models.EmotionalLog
	for _, l := range s.logs {
		if l.UserID == params.UserID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *stubRepo) ListRecentEmotionalLogs(ctx context.Context, userID uint64, limit int) ([]models.EmotionalLog, error) {
	var out []models.EmotionalLog
	for _, l := range s.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *stubRepo) UpdateUserFields(ctx context.Context, id uint64, updates map[string]any) error {
	s.userUpdates[id] = append(s.userUpdates[id], updates)
	return nil
}
