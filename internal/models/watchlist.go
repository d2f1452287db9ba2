package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSector is the sector given to watchlist entries that carry none.
const DefaultSector = "Unknown"

// WatchlistEntry represents a stock a user follows without holding it
type WatchlistEntry struct {
	ID               int                 `json:"id"`
	UserID           int                 `json:"userId"`
	Symbol           string              `json:"symbol"`
	Name             string              `json:"name"`
	Sector           string              `json:"sector"`
	CurrentPrice     decimal.NullDecimal `json:"currentPrice"`
	DayChange        decimal.NullDecimal `json:"dayChange"`
	DayChangePercent decimal.NullDecimal `json:"dayChangePercent"`
	TargetPrice      decimal.NullDecimal `json:"targetPrice"`
	StopLoss         decimal.NullDecimal `json:"stopLoss"`
	Notes            *string             `json:"notes"`
	AddedDate        time.Time           `json:"addedDate"`
	LastUpdated      time.Time           `json:"lastUpdated"`
	CreatedAt        time.Time           `json:"createdAt"`
}
