package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"
)

var (
	// ErrDuplicateEvent is returned when an event with the same ID is already stored.
	ErrDuplicateEvent = errors.New("event already stored")

	// ErrInvalidEvent is returned when an event violates a table constraint.
	ErrInvalidEvent = errors.New("invalid event")
)

// MapError maps a database error to a package error, wrapping the original
// so the driver detail stays available to errors.As.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %w", ErrDuplicateEvent, err)
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %w",
				ErrInvalidEvent, pgErr.ConstraintName, err)
		case notNullViolationCode:
			return fmt.Errorf("%w: not null violation (%s): %w",
				ErrInvalidEvent, pgErr.ColumnName, err)
		}
	}

	return err
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
