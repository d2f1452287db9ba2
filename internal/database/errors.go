package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
)

var (
	// ErrStorageUnavailable means the database could not be reached. The
	// operation did not run and may be retried.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrPersistenceFailed means a write failed and its transaction was
	// rolled back. Nothing changed.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate means a unique column already holds the value.
	ErrDuplicate = errors.New("duplicate")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isConnectionError reports whether err comes from a lost or refused connection
// rather than from the statement itself.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// class 08: connection exception
		return pqErr.Code.Class() == "08"
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// readError wraps a failed read, tagging connection failures as ErrStorageUnavailable.
func readError(msg string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
