package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RiskSettings is the JSON payload stored in TradingAccount.RiskSettings.
type RiskSettings struct {
	MaxDailyLoss     *float64 `json:"max_daily_loss,omitempty"`
	MaxPositionSize  *float64 `json:"max_position_size,omitempty"`
	MaxOpenPositions *int     `json:"max_open_positions,omitempty"`
	RiskPerTradePct  *float64 `json:"risk_per_trade_pct,omitempty"`
}

type TradingAccount struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint64 `gorm:"not null;index;uniqueIndex:idx_accounts_user_tradovate" json:"user_id"`

	AccountName   string `gorm:"type:varchar(100);not null" json:"account_name"`
	Broker        string `gorm:"type:varchar(50)" json:"broker"`
	AccountType   string `gorm:"type:varchar(20)" json:"account_type"`
	AccountNumber string `gorm:"type:varchar(50)" json:"account_number"`

	StartingBalance decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"starting_balance"`
	CurrentBalance  decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"current_balance"`
	Currency        string          `gorm:"type:varchar(10);default:'USD'" json:"currency"`

	Status         string `gorm:"type:varchar(20);default:'active'" json:"status"`
	ConnectionType string `gorm:"type:varchar(20);default:'manual'" json:"connection_type"`

	RiskSettings datatypes.JSON `gorm:"type:jsonb" json:"risk_settings,omitempty"`

	// Tradovate linkage, set by the broker sync adapter.
	TradovateEnvironment *string    `gorm:"type:varchar(10)" json:"tradovate_environment,omitempty"`
	TradovateAccountID   *string    `gorm:"type:varchar(50);uniqueIndex:idx_accounts_user_tradovate" json:"tradovate_account_id,omitempty"`
	LastSyncAt           *time.Time `gorm:"type:timestamptz" json:"last_sync_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (TradingAccount) TableName() string {
	return "trading_accounts"
}

// ParsedRiskSettings decodes the JSONB risk settings. A missing or malformed
// payload yields the zero value, never an error: risk rules are advisory.
func (a *TradingAccount) ParsedRiskSettings() RiskSettings {
	var rs RiskSettings
	if a == nil || len(a.RiskSettings) == 0 {
		return rs
	}
	_ = json.Unmarshal(a.RiskSettings, &rs)
	return rs
}
