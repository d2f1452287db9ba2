package database

import (
	"context"
	"time"
)

// Database connectivity states reported by Health
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

const healthTimeout = 2 * time.Second

// HealthStatus is the result of a connectivity check
type HealthStatus struct {
	Database  string    `json:"database"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Connected reports whether the database answered the check.
func (h HealthStatus) Connected() bool {
	return h.Database == StatusConnected
}

// Health pings the database.
func (db *DB) Health(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	status := HealthStatus{Database: StatusConnected, CheckedAt: time.Now().UTC()}
	if err := db.conn.PingContext(ctx); err != nil {
		status.Database = StatusDisconnected
		status.Error = err.Error()
	}
	return status
}
