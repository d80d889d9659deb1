package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	StrategyStatusActive   = "active"
	StrategyStatusArchived = "archived"
)

// Strategy holds matching criteria used by the auto-matcher plus the trader's
// written entry/exit/risk rules.
type Strategy struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint64 `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Status      string `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	Symbols      datatypes.JSON `gorm:"type:jsonb" json:"symbols,omitempty"`
	AssetClasses datatypes.JSON `gorm:"type:jsonb" json:"asset_classes,omitempty"`
	Sessions     datatypes.JSON `gorm:"type:jsonb" json:"sessions,omitempty"`
	SetupTypes   datatypes.JSON `gorm:"type:jsonb" json:"setup_types,omitempty"`

	EntryRules datatypes.JSON `gorm:"type:jsonb" json:"entry_rules,omitempty"`
	ExitRules  datatypes.JSON `gorm:"type:jsonb" json:"exit_rules,omitempty"`
	RiskRules  datatypes.JSON `gorm:"type:jsonb" json:"risk_rules,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Strategy) TableName() string {
	return "strategies"
}

// StringList decodes a JSONB string array column; nil and malformed payloads
// both decode to an empty list.
func StringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
