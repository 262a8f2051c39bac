package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type scanner interface {
	Scan(dest ...any) error
}

const (
	pqUniqueViolation  = "23505"
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"
)

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// IsLockFailure reports whether err came from Postgres giving up on a row
// lock, either through lock_timeout or deadlock detection.
func IsLockFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case pqLockNotAvailable, pqDeadlockDetected:
		return true
	}
	return false
}

// SetLockTimeout bounds how long statements in tx wait for row locks.
// The setting is local to the transaction.
func SetLockTimeout(ctx context.Context, tx *sql.Tx, d time.Duration) error {
	_, err := tx.ExecContext(ctx,
		`SELECT set_config('lock_timeout', $1, true)`,
		fmt.Sprintf("%dms", d.Milliseconds()),
	)
	if err != nil {
		return fmt.Errorf("SetLockTimeout: %w", err)
	}
	return nil
}
