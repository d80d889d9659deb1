package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DailyStats is one fully derived summary row per (user_id, date). Rows are
// recomputable from the closed trades of that date; the aggregator upserts
// against the uniqueIndex tuple.
type DailyStats struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint64 `gorm:"not null;uniqueIndex:idx_daily_stats_user_date" json:"user_id"`
	// Calendar date in ISO form (UTC date portion of entry_time).
	Date string `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_stats_user_date;index" json:"date"`

	TotalTrades     int `gorm:"not null;default:0" json:"total_trades"`
	WinningTrades   int `gorm:"not null;default:0" json:"winning_trades"`
	LosingTrades    int `gorm:"not null;default:0" json:"losing_trades"`
	BreakevenTrades int `gorm:"not null;default:0" json:"breakeven_trades"`

	GrossPnL    decimal.Decimal `gorm:"column:gross_pnl;type:numeric(20,8);not null;default:0" json:"gross_pnl"`
	NetPnL      decimal.Decimal `gorm:"column:net_pnl;type:numeric(20,8);not null;default:0" json:"net_pnl"`
	Commissions decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"commissions"`

	WinRate       decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"win_rate"`
	AvgWinner     decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"avg_winner"`
	AvgLoser      decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"avg_loser"`
	LargestWinner decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"largest_winner"`
	LargestLoser  decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"largest_loser"`
	ProfitFactor  decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"profit_factor"`

	AvgRR  decimal.Decimal `gorm:"column:avg_rr;type:numeric(10,4);not null;default:0" json:"avg_rr"`
	TotalR decimal.Decimal `gorm:"column:total_r;type:numeric(10,4);not null;default:0" json:"total_r"`

	DisciplineScore  decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"discipline_score"`
	RulesFollowedPct decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0" json:"rules_followed_pct"`
	MistakesCount    int             `gorm:"not null;default:0" json:"mistakes_count"`

	SessionsTraded datatypes.JSON `gorm:"type:jsonb" json:"sessions_traded,omitempty"`
	SymbolsTraded  datatypes.JSON `gorm:"type:jsonb" json:"symbols_traded,omitempty"`
	StrategiesUsed datatypes.JSON `gorm:"type:jsonb" json:"strategies_used,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (DailyStats) TableName() string {
	return "daily_stats"
}
