package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	AlertTypeStreak         = "streak_alert"
	AlertTypeDailyLossLimit = "daily_loss_limit"
	AlertTypeTiltDetected   = "tilt_detected"

	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)

// Alert is produced by the alert rule evaluator and consumed by the UI.
type Alert struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint64 `gorm:"not null;index" json:"user_id"`

	Type     string `gorm:"type:varchar(30);not null;index" json:"type"`
	Severity string `gorm:"type:varchar(10);not null" json:"severity"`
	Title    string `gorm:"type:varchar(200);not null" json:"title"`
	Message  string `gorm:"type:text" json:"message"`

	Data datatypes.JSON `gorm:"type:jsonb" json:"data,omitempty"`

	IsRead      bool `gorm:"default:false;index" json:"is_read"`
	IsDismissed bool `gorm:"default:false" json:"is_dismissed"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (Alert) TableName() string {
	return "alerts"
}
