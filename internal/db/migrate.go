package db

import (
	"tradejournal/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.User{},
		&models.TradingAccount{},
		&models.Strategy{},
		&models.Trade{},
		&models.DailyStats{},
		&models.Alert{},
		&models.EmotionalLog{},
	)
}
