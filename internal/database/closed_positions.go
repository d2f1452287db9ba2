package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

var closedPositionsTable = &collection[*models.ClosedPosition]{
	kind:  models.KindClosedPositions,
	table: "closed_positions",
	insertSQL: `
		INSERT INTO closed_positions (
			user_id, symbol, name, sector, buy_price, sell_price, quantity,
			invested, realized, pl, pl_percent, buy_date, sell_date,
			holding_period_days, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`,
	selectSQL: `
		SELECT id, user_id, symbol, name, sector, buy_price, sell_price, quantity,
		       invested, realized, pl, pl_percent, buy_date, sell_date,
		       holding_period_days, notes, created_at
		FROM closed_positions
		WHERE user_id = $1
		ORDER BY sell_date DESC, id DESC
	`,
	resolve: (*reconcile.Reconciler).ClosedPosition,
	bind: func(userID int, c *models.ClosedPosition) []any {
		return []any{
			userID, c.Symbol, c.Name, nullString(c.Sector), c.BuyPrice, c.SellPrice, c.Quantity,
			c.Invested, c.Realized, c.PL, c.PLPercent, dateValue(c.BuyDate), dateValue(c.SellDate),
			c.HoldingPeriod, nullStringPtr(c.Notes),
		}
	},
	assign: func(c *models.ClosedPosition, id, userID int, createdAt time.Time) {
		c.ID = id
		c.UserID = userID
		c.CreatedAt = createdAt
	},
	scan: scanClosedPosition,
}

func scanClosedPosition(rows *sql.Rows) (*models.ClosedPosition, error) {
	var c models.ClosedPosition
	var sector, notes sql.NullString

	err := rows.Scan(
		&c.ID, &c.UserID, &c.Symbol, &c.Name, &sector, &c.BuyPrice, &c.SellPrice, &c.Quantity,
		&c.Invested, &c.Realized, &c.PL, &c.PLPercent, &c.BuyDate, &c.SellDate,
		&c.HoldingPeriod, &notes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Sector = sector.String
	c.Notes = stringPtr(notes)
	c.BuyDate = models.DateOf(c.BuyDate)
	c.SellDate = models.DateOf(c.SellDate)
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// ListClosedPositions returns the user's closed positions, most recently sold first.
func (db *DB) ListClosedPositions(ctx context.Context, userID int) ([]*models.ClosedPosition, error) {
	return closedPositionsTable.list(ctx, db.conn, userID)
}

// ReplaceAllClosedPositions atomically replaces the user's closed positions.
func (db *DB) ReplaceAllClosedPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.ClosedPosition, error) {
	return closedPositionsTable.replaceAll(ctx, db, userID, records)
}
