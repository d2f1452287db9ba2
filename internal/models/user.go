package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the owner of the three collections
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserStats aggregates a user's collections for the admin view
type UserStats struct {
	UserID               int             `json:"user_id"`
	PortfolioCount       int             `json:"portfolio_count"`
	ClosedPositionsCount int             `json:"closed_positions_count"`
	WatchlistCount       int             `json:"watchlist_count"`
	TotalInvested        decimal.Decimal `json:"total_invested"`
	TotalCurrentValue    decimal.Decimal `json:"total_current_value"`
}
