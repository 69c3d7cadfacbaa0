package models

import (
	"fmt"

	"gorm.io/gorm"
)

// BotConfig is the single mutable runtime configuration row. There is
// only ever one row in this table; callers load a value copy at the
// start of each trading cycle so concurrent edits apply at the next
// cycle boundary, never mid-cycle.
type BotConfig struct {
	gorm.Model
	Active               bool    `gorm:"default:false" json:"active"`
	DryRun               bool    `gorm:"default:false" json:"dry_run"`
	RiskTolerance        float64 `gorm:"default:0.5" json:"risk_tolerance"`
	MinConfidence        float64 `gorm:"default:0.6" json:"min_confidence"`
	TradeSizeAmount      float64 `gorm:"default:0" json:"trade_size_amount"`
	TradeSizePercentage  float64 `gorm:"default:0.1" json:"trade_size_percentage"`
	CheckIntervalSeconds int     `gorm:"default:60" json:"check_interval_seconds"`
	CacheTTLSeconds      int     `gorm:"default:10" json:"cache_ttl_seconds"`
	KeepCount            int     `gorm:"default:100" json:"keep_count"`
}

// ValidationError reports the single offending field of a rejected
// configuration so the caller can surface it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config field %s: %s", e.Field, e.Reason)
}

// Validate checks every field against its allowed range. It returns a
// *ValidationError naming the first offending field, or nil.
func (c BotConfig) Validate() error {
	if c.RiskTolerance < 0 || c.RiskTolerance > 1 {
		return &ValidationError{Field: "risk_tolerance", Reason: "must be in [0,1]"}
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &ValidationError{Field: "min_confidence", Reason: "must be in [0,1]"}
	}
	if c.TradeSizeAmount < 0 {
		return &ValidationError{Field: "trade_size_amount", Reason: "must not be negative"}
	}
	if c.TradeSizePercentage != 0 && (c.TradeSizePercentage < 0.01 || c.TradeSizePercentage > 1) {
		return &ValidationError{Field: "trade_size_percentage", Reason: "must be in [0.01,1.0]"}
	}
	if c.TradeSizePercentage == 0 && c.TradeSizeAmount == 0 {
		return &ValidationError{Field: "trade_size_percentage", Reason: "one sizing mode must be set"}
	}
	if c.CheckIntervalSeconds < 1 || c.CheckIntervalSeconds > 300 {
		return &ValidationError{Field: "check_interval_seconds", Reason: "must be in [1,300]"}
	}
	if c.CacheTTLSeconds < 1 || c.CacheTTLSeconds > 60 {
		return &ValidationError{Field: "cache_ttl_seconds", Reason: "must be in [1,60]"}
	}
	if c.KeepCount < 1 {
		return &ValidationError{Field: "keep_count", Reason: "must be at least 1"}
	}
	return nil
}

// SizeFor resolves the trade amount for a given available balance.
// The percentage mode wins when both sizing fields are set; the result
// never exceeds the balance itself.
func (c BotConfig) SizeFor(balance float64) float64 {
	amount := c.TradeSizeAmount
	if c.TradeSizePercentage > 0 {
		amount = balance * c.TradeSizePercentage
	}
	if amount > balance {
		amount = balance
	}
	return amount
}
