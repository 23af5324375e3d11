package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Entity and session errors (caller bugs, never retryable)
const (
	// ErrCodeEntityNotManaged indicates an entity is not known to the session or the store.
	ErrCodeEntityNotManaged ErrorCode = "ENTITY_NOT_MANAGED"
	// ErrCodeInvalidEntity indicates a value cannot be handled as an entity.
	ErrCodeInvalidEntity ErrorCode = "INVALID_ENTITY"
	// ErrCodeConflict indicates an identity is already managed by another instance.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeNotFound indicates the requested record was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the record already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Configuration errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Environment errors
const (
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeConnectionFailed indicates a failed connection to the database.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeSchema indicates schema creation or removal failed.
	ErrCodeSchema ErrorCode = "SCHEMA_ERROR"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeDatabaseError:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
