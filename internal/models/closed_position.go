package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClosedPosition represents a completed (fully or partially) sold holding
type ClosedPosition struct {
	ID            int             `json:"id"`
	UserID        int             `json:"userId"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Sector        string          `json:"sector,omitempty"`
	BuyPrice      decimal.Decimal `json:"buyPrice"`
	SellPrice     decimal.Decimal `json:"sellPrice"`
	Quantity      int             `json:"quantity"`
	Invested      decimal.Decimal `json:"invested"`
	Realized      decimal.Decimal `json:"realized"`
	PL            decimal.Decimal `json:"pl"`
	PLPercent     decimal.Decimal `json:"plPercent"`
	BuyDate       time.Time       `json:"buyDate"`
	SellDate      time.Time       `json:"sellDate"`
	HoldingPeriod HoldingPeriod   `json:"holdingPeriod"`
	Notes         *string         `json:"notes"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ClosedSummary holds totals recomputed from a user's closed positions
type ClosedSummary struct {
	Positions     []*ClosedPosition `json:"positions"`
	Count         int               `json:"count"`
	TotalInvested decimal.Decimal   `json:"totalInvested"`
	TotalRealized decimal.Decimal   `json:"totalRealized"`
	TotalPL       decimal.Decimal   `json:"totalPl"`
	AverageReturn decimal.Decimal   `json:"averageReturn"`
}
