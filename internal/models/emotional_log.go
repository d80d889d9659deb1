package models

import (
	"time"

	"gorm.io/datatypes"
)

// EmotionalLog is a per-day pre/post-session psychology journal entry, read by
// the tilt-detection alert rule.
type EmotionalLog struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint64 `gorm:"not null;index" json:"user_id"`
	Date   string `gorm:"type:varchar(10);not null;index" json:"date"`

	OverallMood  *int           `json:"overall_mood,omitempty"`
	StressLevel  *int           `json:"stress_level,omitempty"`
	Emotions     datatypes.JSON `gorm:"type:jsonb" json:"emotions,omitempty"`
	TiltDetected bool           `gorm:"default:false" json:"tilt_detected"`

	PreSessionNotes  string `gorm:"type:text" json:"pre_session_notes"`
	PostSessionNotes string `gorm:"type:text" json:"post_session_notes"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (EmotionalLog) TableName() string {
	return "emotional_logs"
}
