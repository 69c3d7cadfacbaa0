package models

import "gorm.io/gorm"

// PriceSnapshot is one observed quote kept for the best-price queries
// and the price history view. Snapshots older than the configured
// retention window are deleted, so the table stays bounded.
type PriceSnapshot struct {
	gorm.Model
	Pair string  `gorm:"index;not null" json:"pair"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
	Last float64 `json:"last"`
}
