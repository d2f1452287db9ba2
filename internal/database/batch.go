package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Batch collects replacements of several collections that must commit together.
type Batch struct {
	kinds   []models.Kind
	records map[models.Kind][]models.RawRecord
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{records: make(map[models.Kind][]models.RawRecord)}
}

// Replace schedules a replace-all of kind with records. Scheduling the same
// kind twice keeps its first position and the last records.
func (b *Batch) Replace(kind models.Kind, records []models.RawRecord) *Batch {
	if _, ok := b.records[kind]; !ok {
		b.kinds = append(b.kinds, kind)
	}
	if records == nil {
		records = []models.RawRecord{}
	}
	b.records[kind] = records
	return b
}

// Kinds returns the scheduled kinds in scheduling order.
func (b *Batch) Kinds() []models.Kind {
	return b.kinds
}

// Records returns the records scheduled for kind.
func (b *Batch) Records(kind models.Kind) []models.RawRecord {
	return b.records[kind]
}

// BatchResult holds what each replaced collection now contains. Collections
// that were not part of the batch are nil.
type BatchResult struct {
	Positions       []*models.Position
	Watchlist       []*models.WatchlistEntry
	ClosedPositions []*models.ClosedPosition
}

// Count returns the number of stored records of kind.
func (r *BatchResult) Count(kind models.Kind) int {
	switch kind {
	case models.KindPositions:
		return len(r.Positions)
	case models.KindWatchlist:
		return len(r.Watchlist)
	case models.KindClosedPositions:
		return len(r.ClosedPositions)
	}
	return 0
}

// ReplaceCollections applies every replacement in b in a single transaction.
// Either all scheduled collections are replaced or none are.
func (db *DB) ReplaceCollections(ctx context.Context, userID int, b *Batch) (*BatchResult, error) {
	if b == nil || len(b.kinds) == 0 {
		return &BatchResult{}, nil
	}

	var result *BatchResult
	err := db.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		var err error
		result, err = db.applyBatch(ctx, tx, userID, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Collections is a user's three collections as read inside a mutation.
type Collections struct {
	Positions       []*models.Position
	Watchlist       []*models.WatchlistEntry
	ClosedPositions []*models.ClosedPosition
}

// MutateCollections reads the user's collections, passes them to fn and
// applies the batch fn returns, all in one transaction holding the user's
// lock. Concurrent mutations of the same user therefore each see the result
// of the previous one. An error from fn is returned unchanged and nothing is
// written; a nil or empty batch commits nothing.
func (db *DB) MutateCollections(ctx context.Context, userID int, fn func(cur *Collections) (*Batch, error)) (*BatchResult, error) {
	var result *BatchResult
	err := db.withUserTx(ctx, userID, func(tx *sql.Tx) error {
		cur, err := db.readCollections(ctx, tx, userID)
		if err != nil {
			return err
		}

		b, err := fn(cur)
		if err != nil {
			return err
		}
		if b == nil || len(b.kinds) == 0 {
			result = &BatchResult{}
			return nil
		}

		result, err = db.applyBatch(ctx, tx, userID, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (db *DB) readCollections(ctx context.Context, tx *sql.Tx, userID int) (*Collections, error) {
	var cur Collections
	var err error
	if cur.Positions, err = positionsTable.list(ctx, tx, userID); err != nil {
		return nil, err
	}
	if cur.Watchlist, err = watchlistTable.list(ctx, tx, userID); err != nil {
		return nil, err
	}
	if cur.ClosedPositions, err = closedPositionsTable.list(ctx, tx, userID); err != nil {
		return nil, err
	}
	return &cur, nil
}

func (db *DB) applyBatch(ctx context.Context, tx *sql.Tx, userID int, b *Batch) (*BatchResult, error) {
	result := &BatchResult{}
	for _, kind := range b.kinds {
		var err error
		records := b.Records(kind)
		switch kind {
		case models.KindPositions:
			result.Positions, err = positionsTable.replace(ctx, tx, db, userID, records)
		case models.KindWatchlist:
			result.Watchlist, err = watchlistTable.replace(ctx, tx, db, userID, records)
		case models.KindClosedPositions:
			result.ClosedPositions, err = closedPositionsTable.replace(ctx, tx, db, userID, records)
		default:
			err = fmt.Errorf("%w: unknown collection kind %q", ErrPersistenceFailed, kind)
		}
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
