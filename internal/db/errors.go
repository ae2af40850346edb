package db

import (
	"context"
	"errors"
	"net"

	"order-engine/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Classify maps a storage error onto the engine's error kinds. Domain errors
// and nil pass through unchanged; op names the failed operation.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, domain.ErrConflict) {
		return domain.Wrap(domain.KindStorageConflict, err, op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return domain.Wrap(domain.KindStorageConflict, err, op)
		}
		return err
	}

	if IsTransient(err) {
		return domain.Wrap(domain.KindStorageUnavailable, err, op)
	}
	return err
}

// IsTransient reports whether err is a connectivity or timeout failure that a
// retry may clear.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
