package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"uphold-trade-bot-go/internal/config"
	"uphold-trade-bot-go/internal/models"
)

// NewDatabase opens the database, migrates the schema and seeds the
// initial configuration and trading pairs.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := Seed(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema. Existing rows are kept: trade
// history survives restarts and is only ever trimmed by the retention
// policy.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.BotConfig{},
		&models.TradingPair{},
		&models.TradeRecord{},
		&models.PriceSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Seed creates the singleton config row and the configured trading
// pairs when they do not exist yet. Pairs listed first get the higher
// priority.
func Seed(db *gorm.DB, cfg *config.Config) error {
	seed := cfg.Runtime()
	var stored models.BotConfig
	if err := db.Where(models.BotConfig{}).Attrs(seed).FirstOrCreate(&stored).Error; err != nil {
		return fmt.Errorf("failed to seed bot config: %w", err)
	}

	for i, symbol := range cfg.Bot.Pairs {
		pair := models.TradingPair{
			Symbol:   symbol,
			Priority: len(cfg.Bot.Pairs) - i,
			Enabled:  true,
		}
		if err := db.FirstOrCreate(&pair, models.TradingPair{Symbol: symbol}).Error; err != nil {
			return fmt.Errorf("failed to seed pair '%s': %w", symbol, err)
		}
	}

	return nil
}
