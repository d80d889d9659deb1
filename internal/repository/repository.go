package repository

import (
	"context"

	"tradejournal/internal/models"
)

type ListTradesParams struct {
	UserID     uint64
	AccountID  *uint64
	StrategyID *uint64
	Status     *string
	Direction  *string
	Symbol     *string
	Source     *string
	Limit      int
	Offset     int
	OrderBy    string
	Asc        *bool
}

type ListAlertsParams struct {
	UserID           uint64
	Unread           *bool
	IncludeDismissed bool
	Limit            int
	Offset           int
}

type ListDailyStatsParams struct {
	UserID   uint64
	DateFrom *string
	DateTo   *string
	Limit    int
	Offset   int
}

type ListEmotionalLogsParams struct {
	UserID uint64
	Limit  int
	Offset int
}

// Repository is the entity-store contract: filter + sort + limit over the
// journal collections plus keyed upserts. The gorm store is the production
// implementation; tests substitute an in-memory fake.
type Repository interface {
	// Trades
	InsertTrade(ctx context.Context, item *models.Trade) error
	GetTradeByID(ctx context.Context, id uint64) (*models.Trade, error)
	GetTradeByExternalID(ctx context.Context, userID uint64, externalID string) (*models.Trade, error)
	UpdateTradeFields(ctx context.Context, id uint64, updates map[string]any) error
	DeleteTrade(ctx context.Context, id uint64) error
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)
	// Closed trades sorted by entry_time descending.
	ListClosedTrades(ctx context.Context, userID uint64, limit int) ([]models.Trade, error)
	ListUserIDsWithClosedTrades(ctx context.Context) ([]uint64, error)

	// Trading accounts
	InsertTradingAccount(ctx context.Context, item *models.TradingAccount) error
	GetTradingAccountByID(ctx context.Context, id uint64) (*models.TradingAccount, error)
	GetTradingAccountByTradovateID(ctx context.Context, userID uint64, tradovateID string) (*models.TradingAccount, error)
	UpdateTradingAccountFields(ctx context.Context, id uint64, updates map[string]any) error
	DeleteTradingAccount(ctx context.Context, id uint64) error
	ListTradingAccounts(ctx context.Context, userID uint64) ([]models.TradingAccount, error)

	// Daily stats (upsert keyed user_id+date)
	UpsertDailyStats(ctx context.Context, item *models.DailyStats) error
	GetDailyStats(ctx context.Context, userID uint64, date string) (*models.DailyStats, error)
	ListDailyStats(ctx context.Context, params ListDailyStatsParams) ([]models.DailyStats, error)

	// Alerts
	InsertAlert(ctx context.Context, item *models.Alert) error
	GetAlertByID(ctx context.Context, id uint64) (*models.Alert, error)
	ListAlerts(ctx context.Context, params ListAlertsParams) ([]models.Alert, error)
	CountAlerts(ctx context.Context, params ListAlertsParams) (int64, error)
	MarkAlertRead(ctx context.Context, id uint64) error
	DismissAlert(ctx context.Context, id uint64) error

	// Strategies
	InsertStrategy(ctx context.Context, item *models.Strategy) error
	GetStrategyByID(ctx context.Context, id uint64) (*models.Strategy, error)
	UpdateStrategyFields(ctx context.Context, id uint64, updates map[string]any) error
	DeleteStrategy(ctx context.Context, id uint64) error
	ListStrategies(ctx context.Context, userID uint64, status *string) ([]models.Strategy, error)

	// Emotional logs
	InsertEmotionalLog(ctx context.Context, item *models.EmotionalLog) error
	GetEmotionalLogByID(ctx context.Context, id uint64) (*models.EmotionalLog, error)
	UpdateEmotionalLogFields(ctx context.Context, id uint64, updates map[string]any) error
	ListEmotionalLogs(ctx context.Context, params ListEmotionalLogsParams) ([]models.EmotionalLog, error)
	// Most recent logs sorted by date descending.
	ListRecentEmotionalLogs(ctx context.Context, userID uint64, limit int) ([]models.EmotionalLog, error)

	// Users
	GetUserByID(ctx context.Context, id uint64) (*models.User, error)
	UpdateUserFields(ctx context.Context, id uint64, updates map[string]any) error
}
