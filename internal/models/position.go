package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPositionSize is the size label given to positions that carry none.
const DefaultPositionSize = "Medium"

// Position represents an open holding owned by a user
type Position struct {
	ID               int                 `json:"id"`
	UserID           int                 `json:"userId"`
	Symbol           string              `json:"symbol"`
	Name             string              `json:"name"`
	Sector           string              `json:"sector,omitempty"`
	BuyPrice         decimal.Decimal     `json:"buyPrice"`
	CurrentPrice     decimal.Decimal     `json:"currentPrice"`
	Quantity         int                 `json:"quantity"`
	Invested         decimal.Decimal     `json:"invested"`
	CurrentValue     decimal.Decimal     `json:"currentValue"`
	PurchaseDate     time.Time           `json:"purchaseDate"`
	LastUpdated      time.Time           `json:"lastUpdated"`
	PL               decimal.Decimal     `json:"pl"`
	PLPercent        decimal.Decimal     `json:"plPercent"`
	DayChange        decimal.Decimal     `json:"dayChange"`
	DayChangePercent decimal.Decimal     `json:"dayChangePercent"`
	TargetPrice      decimal.NullDecimal `json:"targetPrice"`
	StopLoss         decimal.NullDecimal `json:"stopLoss"`
	PositionSize     string              `json:"position"`
	CreatedAt        time.Time           `json:"createdAt"`
}
