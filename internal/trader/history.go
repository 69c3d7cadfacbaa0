package trader

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"uphold-trade-bot-go/internal/models"
)

// DefaultKeepCount is the retention bound on stored trade records.
const DefaultKeepCount = 100

// HistoryStore wraps trade persistence with the retention policy:
// after every insert the oldest records beyond the bound are deleted.
type HistoryStore struct {
	db        *gorm.DB
	keepCount int
	logger    *zap.Logger
}

// NewHistoryStore creates a store bounded to keepCount records.
func NewHistoryStore(db *gorm.DB, keepCount int, logger *zap.Logger) *HistoryStore {
	if keepCount < 1 {
		keepCount = DefaultKeepCount
	}
	return &HistoryStore{db: db, keepCount: keepCount, logger: logger}
}

// SetKeepCount adjusts the retention bound. Applies from the next insert.
func (h *HistoryStore) SetKeepCount(keepCount int) {
	if keepCount >= 1 {
		h.keepCount = keepCount
	}
}

// Append inserts a record, then enforces the retention bound.
func (h *HistoryStore) Append(record *models.TradeRecord) error {
	if err := h.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert trade record: %w", err)
	}
	if err := h.trim(); err != nil {
		h.logger.Warn("Failed to trim trade history", zap.Error(err))
	}
	return nil
}

// trim keeps the newest keepCount records and deletes the rest.
func (h *HistoryStore) trim() error {
	var keepIDs []uint
	err := h.db.Model(&models.TradeRecord{}).
		Order("id DESC").
		Limit(h.keepCount).
		Pluck("id", &keepIDs).Error
	if err != nil {
		return err
	}
	if len(keepIDs) == 0 {
		return nil
	}
	return h.db.Unscoped().Where("id NOT IN ?", keepIDs).Delete(&models.TradeRecord{}).Error
}

// Recent returns up to limit records, newest first.
func (h *HistoryStore) Recent(limit int) ([]models.TradeRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var trades []models.TradeRecord
	err := h.db.Order("id DESC").Limit(limit).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent trades: %w", err)
	}
	return trades, nil
}

// Count returns the number of stored records.
func (h *HistoryStore) Count() (int64, error) {
	var count int64
	if err := h.db.Model(&models.TradeRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count trade records: %w", err)
	}
	return count, nil
}

// Stats summarizes the stored trade records. TotalDifference is the
// summed gap between execution price and traded amount across records.
type Stats struct {
	Total             int64   `json:"total"`
	Executed          int64   `json:"executed"`
	Failed            int64   `json:"failed"`
	Pending           int64   `json:"pending"`
	Simulated         int64   `json:"simulated"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgRiskScore      float64 `json:"avg_risk_score"`
	AvgExpectedReturn float64 `json:"avg_expected_return"`
	TotalDifference   float64 `json:"total_difference"`
}

// Statistics aggregates the stored records into a Stats summary.
func (h *HistoryStore) Statistics() (*Stats, error) {
	var stats Stats

	var byStatus []struct {
		Status string
		N      int64
	}
	err := h.db.Model(&models.TradeRecord{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trade statuses: %w", err)
	}
	for _, row := range byStatus {
		stats.Total += row.N
		switch row.Status {
		case models.StatusExecuted:
			stats.Executed = row.N
		case models.StatusFailed:
			stats.Failed = row.N
		case models.StatusPending:
			stats.Pending = row.N
		}
	}

	err = h.db.Model(&models.TradeRecord{}).
		Where("is_simulation = ?", true).
		Count(&stats.Simulated).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count simulated trades: %w", err)
	}

	if stats.Total > 0 {
		var avgs struct {
			Confidence      float64
			RiskScore       float64
			ExpectedReturn  float64
			TotalDifference float64
		}
		err = h.db.Model(&models.TradeRecord{}).
			Select("AVG(confidence) AS confidence, AVG(risk_score) AS risk_score, AVG(expected_return) AS expected_return, SUM(price - amount) AS total_difference").
			Scan(&avgs).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate trade scores: %w", err)
		}
		stats.AvgConfidence = avgs.Confidence
		stats.AvgRiskScore = avgs.RiskScore
		stats.AvgExpectedReturn = avgs.ExpectedReturn
		stats.TotalDifference = avgs.TotalDifference
	}

	return &stats, nil
}
