package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

// collection describes how one record kind is stored. A single replace and a
// single list routine serve every kind through it.
type collection[T any] struct {
	kind  models.Kind
	table string

	// insertSQL takes the bound record columns followed by created_at and
	// returns the new id.
	insertSQL string
	// selectSQL takes the user id and returns rows in listing order.
	selectSQL string

	resolve func(rec *reconcile.Reconciler, raw models.RawRecord) (T, bool)
	bind    func(userID int, rec T) []any
	assign  func(rec T, id, userID int, createdAt time.Time)
	scan    func(rows *sql.Rows) (T, error)
}

func (c *collection[T]) deleteSQL() string {
	return "DELETE FROM " + c.table + " WHERE user_id = $1"
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// list returns the user's records. It returns an empty slice, not an error,
// when there are none.
func (c *collection[T]) list(ctx context.Context, q querier, userID int) ([]T, error) {
	rows, err := q.QueryContext(ctx, c.selectSQL, userID)
	if err != nil {
		return nil, readError(fmt.Sprintf("failed to list %s", c.kind), err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		rec, err := c.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.kind, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, readError(fmt.Sprintf("failed to iterate %s", c.kind), err)
	}
	return out, nil
}

// replace deletes the user's rows and inserts the resolved records inside tx.
// Records are inserted last to first so that the newest id belongs to the
// first record, which keeps listing order equal to input order.
func (c *collection[T]) replace(ctx context.Context, tx *sql.Tx, db *DB, userID int, raws []models.RawRecord) ([]T, error) {
	recs := c.resolveAll(db, userID, raws)

	if _, err := tx.ExecContext(ctx, c.deleteSQL(), userID); err != nil {
		return nil, fmt.Errorf("%w: failed to delete existing %s: %w", ErrPersistenceFailed, c.kind, err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	for i := len(recs) - 1; i >= 0; i-- {
		args := append(c.bind(userID, recs[i]), now)

		var id int
		if err := tx.QueryRowContext(ctx, c.insertSQL, args...).Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: failed to insert %s record %d: %w", ErrPersistenceFailed, c.kind, i, err)
		}
		c.assign(recs[i], id, userID, now)
	}

	db.log.Debug().
		Int("user_id", userID).
		Str("kind", string(c.kind)).
		Int("stored", len(recs)).
		Int("skipped", len(raws)-len(recs)).
		Msg("collection replaced")

	return recs, nil
}

// resolveAll reconciles raws, dropping records without identity.
func (c *collection[T]) resolveAll(db *DB, userID int, raws []models.RawRecord) []T {
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		rec, ok := c.resolve(db.rec, raw)
		if !ok {
			db.log.Warn().
				Int("user_id", userID).
				Str("kind", string(c.kind)).
				Int("index", i).
				Msg("skipping record without symbol")
			continue
		}
		out = append(out, rec)
	}
	return out
}

// replaceAll runs replace in its own transaction.
func (c *collection[T]) replaceAll(ctx context.Context, db *DB, userID int, raws []models.RawRecord) ([]T, error) {
	var out []T
	err := db.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		var err error
		out, err = c.replace(ctx, tx, db, userID, raws)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// dateValue formats a calendar date for a DATE column.
func dateValue(t time.Time) string {
	return t.Format(models.DateFormat)
}
