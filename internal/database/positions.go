package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

const positionColumns = `
	id, user_id, symbol, name, sector, buy_price, current_price, quantity,
	invested, current_value, purchase_date, last_updated, pl, pl_percent,
	day_change, day_change_percent, target_price, stop_loss, position_size, created_at`

var positionsTable = &collection[*models.Position]{
	kind:  models.KindPositions,
	table: "portfolio",
	insertSQL: `
		INSERT INTO portfolio (
			user_id, symbol, name, sector, buy_price, current_price, quantity,
			invested, current_value, purchase_date, last_updated, pl, pl_percent,
			day_change, day_change_percent, target_price, stop_loss, position_size, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
		RETURNING id
	`,
	selectSQL: `
		SELECT` + positionColumns + `
		FROM portfolio
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`,
	resolve: (*reconcile.Reconciler).Position,
	bind: func(userID int, p *models.Position) []any {
		return []any{
			userID, p.Symbol, p.Name, nullString(p.Sector), p.BuyPrice, p.CurrentPrice, p.Quantity,
			p.Invested, p.CurrentValue, dateValue(p.PurchaseDate), p.LastUpdated, p.PL, p.PLPercent,
			p.DayChange, p.DayChangePercent, p.TargetPrice, p.StopLoss, p.PositionSize,
		}
	},
	assign: func(p *models.Position, id, userID int, createdAt time.Time) {
		p.ID = id
		p.UserID = userID
		p.CreatedAt = createdAt
	},
	scan: scanPosition,
}

func scanPosition(rows *sql.Rows) (*models.Position, error) {
	var p models.Position
	var sector sql.NullString
	var currentPrice decimal.NullDecimal

	err := rows.Scan(
		&p.ID, &p.UserID, &p.Symbol, &p.Name, &sector, &p.BuyPrice, &currentPrice, &p.Quantity,
		&p.Invested, &p.CurrentValue, &p.PurchaseDate, &p.LastUpdated, &p.PL, &p.PLPercent,
		&p.DayChange, &p.DayChangePercent, &p.TargetPrice, &p.StopLoss, &p.PositionSize, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Sector = sector.String
	p.CurrentPrice = p.BuyPrice
	if currentPrice.Valid {
		p.CurrentPrice = currentPrice.Decimal
	}
	p.PurchaseDate = models.DateOf(p.PurchaseDate)
	p.LastUpdated = p.LastUpdated.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// ListPositions returns the user's open positions, newest first.
func (db *DB) ListPositions(ctx context.Context, userID int) ([]*models.Position, error) {
	return positionsTable.list(ctx, db.conn, userID)
}

// ReplaceAllPositions atomically replaces the user's open positions with the
// reconciled form of records and returns what was stored.
func (db *DB) ReplaceAllPositions(ctx context.Context, userID int, records []models.RawRecord) ([]*models.Position, error) {
	return positionsTable.replaceAll(ctx, db, userID, records)
}
