// Package database persists each user's positions, watchlist and closed
// positions in PostgreSQL with replace-all semantics.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-tracker/internal/reconcile"
)

const pingTimeout = 5 * time.Second

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	log  zerolog.Logger
	rec  *reconcile.Reconciler
}

// PoolConfig bounds the connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger used for skipped records and replace summaries.
func WithLogger(log zerolog.Logger) Option {
	return func(db *DB) {
		db.log = log.With().Str("component", "database").Logger()
	}
}

// WithReconciler overrides the reconciler used to resolve raw records.
func WithReconciler(rec *reconcile.Reconciler) Option {
	return func(db *DB) {
		db.rec = rec
	}
}

// WithPool applies connection pool limits. Zero values keep the driver defaults.
func WithPool(pool PoolConfig) Option {
	return func(db *DB) {
		if pool.MaxOpenConns > 0 {
			db.conn.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			db.conn.SetMaxIdleConns(pool.MaxIdleConns)
		}
		if pool.ConnMaxLifetime > 0 {
			db.conn.SetConnMaxLifetime(pool.ConnMaxLifetime)
		}
	}
}

// New opens a connection pool and verifies it with a ping.
func New(connStr string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := newDB(conn, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrStorageUnavailable, err)
	}

	return db, nil
}

func newDB(conn *sql.DB, opts ...Option) *DB {
	db := &DB{
		conn: conn,
		log:  zerolog.Nop(),
		rec:  reconcile.New(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Connect calls New until it succeeds, ctx is done, or maxElapsed has passed.
// log is used for retry notices and is passed on to the DB.
func Connect(ctx context.Context, connStr string, maxElapsed time.Duration, log zerolog.Logger, opts ...Option) (*DB, error) {
	opts = append([]Option{WithLogger(log)}, opts...)

	attempt := 0
	db, err := backoff.Retry(ctx, func() (*DB, error) {
		attempt++
		return New(connStr, opts...)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("database not ready")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect after %d attempts: %w", attempt, err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// withTx runs fn in a transaction and commits when fn returns nil. The
// transaction is rolled back on any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", ErrPersistenceFailed, err)
	}
	return nil
}

// userLockNamespace is the first key of the advisory locks taken per user.
const userLockNamespace = 7301

// withUserTx is withTx holding a transaction-scoped advisory lock on userID,
// so that writes to one user's collections run one at a time. The lock does
// not need the user row to exist.
func (db *DB) withUserTx(ctx context.Context, userID int, fn func(tx *sql.Tx) error) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1, $2)", userLockNamespace, userID); err != nil {
			if isConnectionError(err) {
				return fmt.Errorf("%w: failed to lock user %d: %w", ErrStorageUnavailable, userID, err)
			}
			return fmt.Errorf("%w: failed to lock user %d: %w", ErrPersistenceFailed, userID, err)
		}
		return fn(tx)
	})
}
