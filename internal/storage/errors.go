package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"trackex/internal/apperr"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique row already exists.
	ErrConflict = errors.New("already exists")
	// ErrInsufficientFunds is returned when a guarded debit would make a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// unavailable classifies a driver or context failure as a store outage.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStoreUnavailable, err)
}

// rowErr maps sql.ErrNoRows to ErrNotFound and everything else to unavailable.
func rowErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return unavailable(op, err)
}

// rowErrConflict maps sql.ErrNoRows from an ON CONFLICT DO NOTHING insert to ErrConflict.
func rowErrConflict(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	return unavailable(op, err)
}
