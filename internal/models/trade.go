package models

import "gorm.io/gorm"

// Trade decisions.
const (
	DecisionBuy  = "BUY"
	DecisionSell = "SELL"
	DecisionHold = "HOLD"
)

// Trade record statuses.
const (
	StatusPending  = "PENDING"
	StatusExecuted = "EXECUTED"
	StatusFailed   = "FAILED"
)

// TradeRecord is the persisted audit trail of one attempted trade.
// Records are append-only; the only other mutation is the retention
// trim that deletes the oldest rows. HOLD outcomes are never recorded.
type TradeRecord struct {
	gorm.Model
	FromPair       string  `gorm:"not null" json:"from_pair"`
	ToPair         string  `gorm:"not null" json:"to_pair"`
	Decision       string  `gorm:"not null" json:"decision"` // BUY or SELL
	Status         string  `gorm:"not null" json:"status"`   // PENDING, EXECUTED or FAILED
	Amount         float64 `json:"amount"`
	Price          float64 `json:"price"`
	Confidence     float64 `json:"confidence"`
	RiskScore      float64 `json:"risk_score"`
	Volatility     float64 `json:"volatility"`
	ExpectedReturn float64 `json:"expected_return"`
	Reason         string  `json:"reason,omitempty"`
	IsSimulation   bool    `json:"is_simulation"`
}
