package gormrepository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradejournal/internal/models"
	"tradejournal/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Trades -----------------------------------------------------------------

func (s *Store) InsertTrade(ctx context.Context, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetTradeByExternalID(ctx context.Context, userID uint64, externalID string) (*models.Trade, error) {
	if s == nil || s.db == nil || strings.TrimSpace(externalID) == "" {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("user_id = ? AND external_trade_id = ?", userID, externalID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateTradeFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) DeleteTrade(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.Trade{}, id).Error
}

func applyTradeFilters(query *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	query = query.Where("user_id = ?", params.UserID)
	if params.AccountID != nil {
		query = query.Where("account_id = ?", *params.AccountID)
	}
	if params.StrategyID != nil {
		query = query.Where("strategy_id = ?", *params.StrategyID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Direction != nil && strings.TrimSpace(*params.Direction) != "" {
		query = query.Where("direction = ?", strings.TrimSpace(*params.Direction))
	}
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.TrimSpace(*params.Symbol))
	}
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	return query
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "entry_time")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Trade
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyTradeFilters(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListClosedTrades(ctx context.Context, userID uint64, limit int) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Trade
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("user_id = ? AND status = ?", userID, models.TradeStatusClosed).
		Order("entry_time desc").
		Limit(normalizeLimit(limit, 10000)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUserIDsWithClosedTrades(ctx context.Context) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("status = ?", models.TradeStatusClosed).
		Distinct("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- Trading accounts -------------------------------------------------------

func (s *Store) InsertTradingAccount(ctx context.Context, item *models.TradingAccount) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTradingAccountByID(ctx context.Context, id uint64) (*models.TradingAccount, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.TradingAccount
	err := s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetTradingAccountByTradovateID(ctx context.Context, userID uint64, tradovateID string) (*models.TradingAccount, error) {
	if s == nil || s.db == nil || strings.TrimSpace(tradovateID) == "" {
		return nil, nil
	}
	var item models.TradingAccount
	err := s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("user_id = ? AND tradovate_account_id = ?", userID, tradovateID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateTradingAccountFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) DeleteTradingAccount(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.TradingAccount{}, id).Error
}

func (s *Store) ListTradingAccounts(ctx context.Context, userID uint64) ([]models.TradingAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradingAccount
	err := s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Daily stats ------------------------------------------------------------

func (s *Store) UpsertDailyStats(ctx context.Context, item *models.DailyStats) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_trades", "winning_trades", "losing_trades", "breakeven_trades",
			"gross_pnl", "net_pnl", "commissions",
			"win_rate", "avg_winner", "avg_loser", "largest_winner", "largest_loser",
			"profit_factor", "avg_rr", "total_r",
			"discipline_score", "rules_followed_pct", "mistakes_count",
			"sessions_traded", "symbols_traded", "strategies_used",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetDailyStats(ctx context.Context, userID uint64, date string) (*models.DailyStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.DailyStats
	err := s.db.WithContext(ctx).
		Model(&models.DailyStats{}).
		Where("user_id = ? AND date = ?", userID, date).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDailyStats(ctx context.Context, params repository.ListDailyStatsParams) ([]models.DailyStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.DailyStats{}).
		Where("user_id = ?", params.UserID)
	if params.DateFrom != nil && strings.TrimSpace(*params.DateFrom) != "" {
		query = query.Where("date >= ?", strings.TrimSpace(*params.DateFrom))
	}
	if params.DateTo != nil && strings.TrimSpace(*params.DateTo) != "" {
		query = query.Where("date <= ?", strings.TrimSpace(*params.DateTo))
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.DailyStats
	if err := query.Order("date desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Alerts -----------------------------------------------------------------

func (s *Store) InsertAlert(ctx context.Context, item *models.Alert) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAlertByID(ctx context.Context, id uint64) (*models.Alert, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Alert
	err := s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func applyAlertFilters(query *gorm.DB, params repository.ListAlertsParams) *gorm.DB {
	query = query.Where("user_id = ?", params.UserID)
	if params.Unread != nil {
		query = query.Where("is_read = ?", !*params.Unread)
	}
	if !params.IncludeDismissed {
		query = query.Where("is_dismissed = ?", false)
	}
	return query
}

func (s *Store) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyAlertFilters(s.db.WithContext(ctx).Model(&models.Alert{}), params)
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Alert
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountAlerts(ctx context.Context, params repository.ListAlertsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyAlertFilters(s.db.WithContext(ctx).Model(&models.Alert{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkAlertRead(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (s *Store) DismissAlert(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_dismissed": true, "is_read": true}).Error
}

// --- Strategies -------------------------------------------------------------

func (s *Store) InsertStrategy(ctx context.Context, item *models.Strategy) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetStrategyByID(ctx context.Context, id uint64) (*models.Strategy, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Strategy
	err := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateStrategyFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) DeleteStrategy(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.Strategy{}, id).Error
}

func (s *Store) ListStrategies(ctx context.Context, userID uint64, status *string) ([]models.Strategy, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Strategy{}).
		Where("user_id = ?", userID)
	if status != nil && strings.TrimSpace(*status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*status))
	}
	var items []models.Strategy
	if err := query.Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Emotional logs ---------------------------------------------------------

func (s *Store) InsertEmotionalLog(ctx context.Context, item *models.EmotionalLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetEmotionalLogByID(ctx context.Context, id uint64) (*models.EmotionalLog, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.EmotionalLog
	err := s.db.WithContext(ctx).
		Model(&models.EmotionalLog{}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateEmotionalLogFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.EmotionalLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) ListEmotionalLogs(ctx context.Context, params repository.ListEmotionalLogsParams) ([]models.EmotionalLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.EmotionalLog
	err := s.db.WithContext(ctx).
		Model(&models.EmotionalLog{}).
		Where("user_id = ?", params.UserID).
		Order("date desc").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListRecentEmotionalLogs(ctx context.Context, userID uint64, limit int) ([]models.EmotionalLog, error) {
	return s.ListEmotionalLogs(ctx, repository.ListEmotionalLogsParams{
		UserID: userID,
		Limit:  limit,
	})
}

// --- Users ------------------------------------------------------------------

func (s *Store) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateUserFields(ctx context.Context, id uint64, updates map[string]any) error {
	if s == nil || s.db == nil || id == 0 || len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
