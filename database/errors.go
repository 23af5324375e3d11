package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/ormtest/errors"
)

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"connection closed",
		"driver: bad connection",
		"database is closed",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if the error is a duplicate-key violation. Drivers
// only report gorm.ErrDuplicatedKey when error translation is enabled, which
// Open always does; the message check covers connections opened elsewhere.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unique constraint") || strings.Contains(errStr, "duplicate key")
}

// FromDatabase converts a database error to an AppError.
func FromDatabase(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}

	if IsNotFoundError(err) {
		return apperrors.NotFound(resource, "").WithCause(err)
	}

	if IsDuplicateError(err) {
		return apperrors.AlreadyExists(resource).WithCause(err)
	}

	if IsConnectionError(err) {
		return apperrors.ConnectionFailed("database").WithCause(err)
	}

	return apperrors.DatabaseError(fmt.Errorf("%s: %w", resource, err))
}
