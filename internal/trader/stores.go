package trader

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"uphold-trade-bot-go/internal/models"
)

// ConfigStore reads and writes the singleton runtime configuration row.
// The runner snapshots it once per cycle; writes from the admin surface
// become visible at the next cycle boundary.
type ConfigStore struct {
	db *gorm.DB
}

// NewConfigStore creates a store over the given database.
func NewConfigStore(db *gorm.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// Snapshot returns the current configuration.
func (s *ConfigStore) Snapshot() (models.BotConfig, error) {
	var cfg models.BotConfig
	if err := s.db.First(&cfg).Error; err != nil {
		return models.BotConfig{}, fmt.Errorf("failed to load bot config: %w", err)
	}
	return cfg, nil
}

// Update validates and persists a new configuration. An invalid config
// is rejected with the offending field and the stored one is kept.
func (s *ConfigStore) Update(next models.BotConfig) (models.BotConfig, error) {
	if err := next.Validate(); err != nil {
		return models.BotConfig{}, err
	}

	current, err := s.Snapshot()
	if err != nil {
		return models.BotConfig{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	if err := s.db.Save(&next).Error; err != nil {
		return models.BotConfig{}, fmt.Errorf("failed to save bot config: %w", err)
	}
	return next, nil
}

// SetActive flips only the active flag.
func (s *ConfigStore) SetActive(active bool) error {
	current, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.db.Model(&current).Update("active", active).Error; err != nil {
		return fmt.Errorf("failed to update active flag: %w", err)
	}
	return nil
}

// PairStore reads and writes the trading pair set.
type PairStore struct {
	db *gorm.DB
}

// NewPairStore creates a store over the given database.
func NewPairStore(db *gorm.DB) *PairStore {
	return &PairStore{db: db}
}

// Enabled returns the enabled pairs in descending priority, ties broken
// by symbol.
func (s *PairStore) Enabled() ([]models.TradingPair, error) {
	var pairs []models.TradingPair
	err := s.db.Where("enabled = ?", true).
		Order("priority DESC, symbol ASC").
		Find(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load enabled pairs: %w", err)
	}
	return pairs, nil
}

// All returns every pair, enabled or not, in the same order as Enabled.
func (s *PairStore) All() ([]models.TradingPair, error) {
	var pairs []models.TradingPair
	err := s.db.Order("priority DESC, symbol ASC").Find(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pairs: %w", err)
	}
	return pairs, nil
}

// Add creates a pair if it does not exist yet. Symbols are normalized
// to upper case and must have the BASE-QUOTE form.
func (s *PairStore) Add(symbol string, priority int) (models.TradingPair, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	base, quote, ok := strings.Cut(symbol, "-")
	if !ok || base == "" || quote == "" {
		return models.TradingPair{}, fmt.Errorf("invalid pair symbol '%s', expected BASE-QUOTE", symbol)
	}

	pair := models.TradingPair{Symbol: symbol, Priority: priority, Enabled: true}
	if err := s.db.FirstOrCreate(&pair, models.TradingPair{Symbol: symbol}).Error; err != nil {
		return models.TradingPair{}, fmt.Errorf("failed to create pair '%s': %w", symbol, err)
	}
	return pair, nil
}

// SetEnabled toggles a pair by symbol.
func (s *PairStore) SetEnabled(symbol string, enabled bool) error {
	result := s.db.Model(&models.TradingPair{}).
		Where("symbol = ?", strings.ToUpper(strings.TrimSpace(symbol))).
		Update("enabled", enabled)
	if result.Error != nil {
		return fmt.Errorf("failed to update pair '%s': %w", symbol, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("unknown pair '%s'", symbol)
	}
	return nil
}
