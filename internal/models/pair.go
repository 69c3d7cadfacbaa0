package models

import (
	"strings"

	"gorm.io/gorm"
)

// TradingPair is a tradeable market the bot is allowed to consider,
// e.g. "BTC-USD". Pairs are edited externally (admin surface or the
// --add-pair flag) and are read-only to the trading core.
type TradingPair struct {
	gorm.Model
	Symbol   string `gorm:"uniqueIndex;not null" json:"symbol"`
	Priority int    `gorm:"default:0" json:"priority"`
	Enabled  bool   `gorm:"default:true" json:"enabled"`
}

// Base returns the left side of the pair symbol ("BTC" for "BTC-USD").
func (p TradingPair) Base() string {
	base, _, _ := strings.Cut(p.Symbol, "-")
	return base
}

// Quote returns the right side of the pair symbol ("USD" for "BTC-USD").
func (p TradingPair) Quote() string {
	_, quote, _ := strings.Cut(p.Symbol, "-")
	return quote
}
