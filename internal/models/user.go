package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User carries identity plus the per-environment Tradovate token blobs. Token
// blobs are AES-GCM ciphertext (base64 iv||ct) when an encryption key is
// configured, plaintext JSON otherwise.
type User struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email       string `gorm:"type:varchar(200);uniqueIndex;not null" json:"email"`
	DisplayName string `gorm:"type:varchar(100)" json:"display_name"`
	Role        string `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	TradovateDemoTokens    *string    `gorm:"type:text" json:"-"`
	TradovateDemoExpiresAt *time.Time `gorm:"type:timestamptz" json:"tradovate_demo_expires_at,omitempty"`
	TradovateLiveTokens    *string    `gorm:"type:text" json:"-"`
	TradovateLiveExpiresAt *time.Time `gorm:"type:timestamptz" json:"tradovate_live_expires_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
