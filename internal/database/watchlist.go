package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

var watchlistTable = &collection[*models.WatchlistEntry]{
	kind:  models.KindWatchlist,
	table: "watchlist",
	insertSQL: `
		INSERT INTO watchlist (
			user_id, symbol, name, sector, current_price, day_change, day_change_percent,
			target_price, stop_loss, notes, added_date, last_updated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`,
	selectSQL: `
		SELECT id, user_id, symbol, name, sector, current_price, day_change, day_change_percent,
		       target_price, stop_loss, notes, added_date, last_updated, created_at
		FROM watchlist
		WHERE user_id = $1
		ORDER BY added_date DESC, id DESC
	`,
	resolve: (*reconcile.Reconciler).WatchlistEntry,
	bind: func(userID int, w *models.WatchlistEntry) []any {
		return []any{
			userID, w.Symbol, w.Name, w.Sector, w.CurrentPrice, w.DayChange, w.DayChangePercent,
			w.TargetPrice, w.StopLoss, nullStringPtr(w.Notes), dateValue(w.AddedDate), w.LastUpdated,
		}
	},
	assign: func(w *models.WatchlistEntry, id, userID int, createdAt time.Time) {
		w.ID = id
		w.UserID = userID
		w.CreatedAt = createdAt
	},
	scan: scanWatchlistEntry,
}

func scanWatchlistEntry(rows *sql.Rows) (*models.WatchlistEntry, error) {
	var w models.WatchlistEntry
	var notes sql.NullString

	err := rows.Scan(
		&w.ID, &w.UserID, &w.Symbol, &w.Name, &w.Sector, &w.CurrentPrice, &w.DayChange, &w.DayChangePercent,
		&w.TargetPrice, &w.StopLoss, &notes, &w.AddedDate, &w.LastUpdated, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Notes = stringPtr(notes)
	w.AddedDate = models.DateOf(w.AddedDate)
	w.LastUpdated = w.LastUpdated.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}

// ListWatchlist returns the user's watchlist, most recently added first.
func (db *DB) ListWatchlist(ctx context.Context, userID int) ([]*models.WatchlistEntry, error) {
	return watchlistTable.list(ctx, db.conn, userID)
}

// ReplaceAllWatchlist atomically replaces the user's watchlist.
func (db *DB) ReplaceAllWatchlist(ctx context.Context, userID int, records []models.RawRecord) ([]*models.WatchlistEntry, error) {
	return watchlistTable.replaceAll(ctx, db, userID, records)
}
