package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (username, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := db.conn.QueryRowContext(ctx, query, u.Username, u.Email, nullString(u.Phone), now).Scan(&u.ID)
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%w: failed to create user: %w", ErrStorageUnavailable, err)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w: user %s already exists: %w", ErrPersistenceFailed, ErrDuplicate, u.Username, err)
		}
		return fmt.Errorf("%w: failed to create user: %w", ErrPersistenceFailed, err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, username, email, phone, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	rows, err := db.conn.QueryContext(ctx, query, id)
	users, err := scanUsers(rows, err)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return users[0], nil
}

// GetAllUsers retrieves every user, newest first
func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, username, email, phone, created_at, updated_at
		FROM users
		ORDER BY created_at DESC, id DESC
	`
	return scanUsers(db.conn.QueryContext(ctx, query))
}

// DeleteUser removes a user together with all of their collections
func (db *DB) DeleteUser(ctx context.Context, id int) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%w: failed to delete user: %w", ErrStorageUnavailable, err)
		}
		return fmt.Errorf("%w: failed to delete user: %w", ErrPersistenceFailed, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetUserStats returns collection counts and position totals for a user
func (db *DB) GetUserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE id = $1),
			(SELECT COUNT(*) FROM portfolio WHERE user_id = $1),
			(SELECT COUNT(*) FROM closed_positions WHERE user_id = $1),
			(SELECT COUNT(*) FROM watchlist WHERE user_id = $1),
			(SELECT COALESCE(SUM(invested), 0) FROM portfolio WHERE user_id = $1),
			(SELECT COALESCE(SUM(current_value), 0) FROM portfolio WHERE user_id = $1)
	`
	stats := &models.UserStats{UserID: userID}
	var exists bool

	err := db.conn.QueryRowContext(ctx, query, userID).Scan(
		&exists,
		&stats.PortfolioCount,
		&stats.ClosedPositionsCount,
		&stats.WatchlistCount,
		&stats.TotalInvested,
		&stats.TotalCurrentValue,
	)
	if err != nil {
		return nil, readError("failed to get user stats", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return stats, nil
}

func scanUsers(rows *sql.Rows, err error) ([]*models.User, error) {
	if err != nil {
		return nil, readError("failed to query users", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		var u models.User
		var phone sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &phone, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Phone = phone.String
		u.CreatedAt = u.CreatedAt.UTC()
		u.UpdatedAt = u.UpdatedAt.UTC()
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, readError("failed to iterate users", err)
	}
	return users, nil
}
