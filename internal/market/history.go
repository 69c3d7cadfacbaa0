package market

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"uphold-trade-bot-go/internal/models"
	"uphold-trade-bot-go/internal/risk"
)

// History tracks recent prices per pair, in memory for risk scoring and
// in the database for the admin surface.
type History struct {
	db     *gorm.DB
	logger *zap.Logger
	keep   time.Duration

	mu      sync.Mutex
	windows map[string]*risk.Window
}

// NewHistory creates a History keeping database snapshots for the given
// retention window. A zero retention disables trimming.
func NewHistory(db *gorm.DB, keep time.Duration, logger *zap.Logger) *History {
	return &History{
		db:      db,
		logger:  logger,
		keep:    keep,
		windows: make(map[string]*risk.Window),
	}
}

// Observe records a fresh quote in the pair's window and persists a
// snapshot. Stale quotes are skipped: their last price already entered
// the window when it was first fetched.
func (h *History) Observe(q Quote) {
	if q.Stale {
		return
	}

	h.mu.Lock()
	w, ok := h.windows[q.Pair]
	if !ok {
		w = risk.NewWindow(risk.DefaultWindowSize)
		h.windows[q.Pair] = w
	}
	w.Add(q.Last)
	h.mu.Unlock()

	if h.db == nil {
		return
	}
	snapshot := models.PriceSnapshot{Pair: q.Pair, Bid: q.Bid, Ask: q.Ask, Last: q.Last}
	if err := h.db.Create(&snapshot).Error; err != nil {
		h.logger.Warn("Failed to store price snapshot", zap.String("pair", q.Pair), zap.Error(err))
	}
}

// Window returns the price window for a pair, or an empty one if the
// pair has never been observed.
func (h *History) Window(pair string) *risk.Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.windows[pair]; ok {
		return w
	}
	return risk.NewWindow(risk.DefaultWindowSize)
}

// Trim deletes snapshots older than the retention window.
func (h *History) Trim() {
	if h.db == nil || h.keep <= 0 {
		return
	}
	cutoff := time.Now().Add(-h.keep)
	if err := h.db.Unscoped().Where("created_at < ?", cutoff).Delete(&models.PriceSnapshot{}).Error; err != nil {
		h.logger.Warn("Failed to trim price snapshots", zap.Error(err))
	}
}

// BestPrice is the most favorable bid and ask seen for a pair within
// the retained snapshot history: the lowest bid to buy at and the
// highest ask to sell at.
type BestPrice struct {
	Pair    string  `json:"pair"`
	BestBid float64 `json:"best_bid"`
	BestAsk float64 `json:"best_ask"`
}

// BestPrices aggregates the retained snapshots for one pair.
func BestPrices(db *gorm.DB, pair string) (*BestPrice, error) {
	var row struct {
		BestBid *float64
		BestAsk *float64
	}
	err := db.Model(&models.PriceSnapshot{}).
		Select("MIN(bid) AS best_bid, MAX(ask) AS best_ask").
		Where("pair = ?", pair).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate prices for '%s': %w", pair, err)
	}
	if row.BestBid == nil || row.BestAsk == nil {
		return nil, fmt.Errorf("no price history for '%s'", pair)
	}

	return &BestPrice{Pair: pair, BestBid: *row.BestBid, BestAsk: *row.BestAsk}, nil
}

// AllBestPrices aggregates the retained snapshots for every pair seen.
func AllBestPrices(db *gorm.DB) ([]BestPrice, error) {
	var rows []BestPrice
	err := db.Model(&models.PriceSnapshot{}).
		Select("pair, MIN(bid) AS best_bid, MAX(ask) AS best_ask").
		Group("pair").
		Order("pair").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate prices: %w", err)
	}
	return rows, nil
}

// RecentLasts returns up to limit of the most recent last prices for a
// pair, oldest first.
func RecentLasts(db *gorm.DB, pair string, limit int) ([]float64, error) {
	var lasts []float64
	err := db.Model(&models.PriceSnapshot{}).
		Where("pair = ?", pair).
		Order("id DESC").
		Limit(limit).
		Pluck("last", &lasts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price history for '%s': %w", pair, err)
	}

	for i, j := 0, len(lasts)-1; i < j; i, j = i+1, j-1 {
		lasts[i], lasts[j] = lasts[j], lasts[i]
	}
	return lasts, nil
}
