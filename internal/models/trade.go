package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Trade statuses and sources.
const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"

	TradeSourceManual    = "manual"
	TradeSourceImport    = "import"
	TradeSourceTradovate = "tradovate"

	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade is a single journaled trade. Computed fields (gross/net P&L,
// pnl_percentage, r_multiple, duration_minutes) are derived from the price and
// time fields and rewritten by the P&L calculator, never entered directly.
type Trade struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint64  `gorm:"not null;index;uniqueIndex:idx_trades_user_external" json:"user_id"`
	AccountID  uint64  `gorm:"not null;index" json:"account_id"`
	StrategyID *uint64 `gorm:"index" json:"strategy_id,omitempty"`

	// External id for broker-synced trades, e.g. tradovate_demo_12345.
	// Unique per user to match the lookup key.
	ExternalTradeID *string `gorm:"type:varchar(100);uniqueIndex:idx_trades_user_external" json:"external_trade_id,omitempty"`
	Source          string  `gorm:"type:varchar(20);not null;default:'manual'" json:"source"`

	Symbol     string  `gorm:"type:varchar(30);not null;index" json:"symbol"`
	Direction  string  `gorm:"type:varchar(10);not null" json:"direction"`
	AssetClass string  `gorm:"type:varchar(30)" json:"asset_class"`
	SetupType  *string `gorm:"type:varchar(50)" json:"setup_type,omitempty"`
	Session    *string `gorm:"type:varchar(30)" json:"session,omitempty"`

	EntryPrice decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"entry_price"`
	ExitPrice  *decimal.Decimal `gorm:"type:numeric(20,8)" json:"exit_price,omitempty"`
	Quantity   decimal.Decimal  `gorm:"type:numeric(20,8);not null" json:"quantity"`
	Commission decimal.Decimal  `gorm:"type:numeric(20,8);not null;default:0" json:"commission"`
	Fees       decimal.Decimal  `gorm:"type:numeric(20,8);not null;default:0" json:"fees"`

	StopLoss    *decimal.Decimal `gorm:"type:numeric(20,8)" json:"stop_loss,omitempty"`
	TakeProfit  *decimal.Decimal `gorm:"type:numeric(20,8)" json:"take_profit,omitempty"`
	InitialRisk *decimal.Decimal `gorm:"type:numeric(20,8)" json:"initial_risk,omitempty"`

	GrossPnL        *decimal.Decimal `gorm:"column:gross_pnl;type:numeric(20,8)" json:"gross_pnl,omitempty"`
	NetPnL          *decimal.Decimal `gorm:"column:net_pnl;type:numeric(20,8)" json:"net_pnl,omitempty"`
	PnLPercentage   *decimal.Decimal `gorm:"column:pnl_percentage;type:numeric(20,8)" json:"pnl_percentage,omitempty"`
	RMultiple       *decimal.Decimal `gorm:"column:r_multiple;type:numeric(20,8)" json:"r_multiple,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`

	EntryTime *time.Time `gorm:"type:timestamptz;index" json:"entry_time,omitempty"`
	ExitTime  *time.Time `gorm:"type:timestamptz" json:"exit_time,omitempty"`

	Status string `gorm:"type:varchar(10);not null;default:'open';index" json:"status"`

	TradeQuality        *int           `json:"trade_quality,omitempty"`
	FollowedRules       bool           `gorm:"default:false" json:"followed_rules"`
	Mistakes            datatypes.JSON `gorm:"type:jsonb" json:"mistakes,omitempty"`
	Tags                datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	EmotionalStateEntry *string        `gorm:"type:varchar(30)" json:"emotional_state_entry,omitempty"`
	EmotionalStateExit  *string        `gorm:"type:varchar(30)" json:"emotional_state_exit,omitempty"`
	Notes               string         `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Trade) TableName() string {
	return "trades"
}
