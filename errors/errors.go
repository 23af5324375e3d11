package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Common Error Constructors ---

// EntityNotManaged reports an entity that is neither managed by the session
// nor present in the store. description identifies the offending entity.
func EntityNotManaged(description string) *AppError {
	return &AppError{
		Code: ErrCodeEntityNotManaged, Message: fmt.Sprintf("Entity not within manager: %s", description),
		Details: map[string]any{"entity": description},
	}
}

// InvalidEntity reports a value that cannot be used as an entity.
func InvalidEntity(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidEntity, Message: fmt.Sprintf("Invalid entity: %s", reason),
	}
}

// Conflict creates a new AppError for a conflict with the current session state.
func Conflict(reason string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: reason}
}

// NotFound creates a new AppError for a record that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		Details: details,
	}
}

// AlreadyExists creates a new AppError for a record that already exists.
func AlreadyExists(resource string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("A %s with these details already exists.", resource),
		Details: map[string]any{"resource": resource},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// DatabaseError creates a new AppError for a database error.
func DatabaseError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeDatabaseError, Message: "A database error occurred.",
		Retryable: true, Cause: cause,
	}
}

// ConnectionFailed creates a new AppError for a failed database connection.
func ConnectionFailed(target string) *AppError {
	return &AppError{
		Code: ErrCodeConnectionFailed, Message: fmt.Sprintf("Unable to connect to %s.", target),
		Retryable: true, Details: map[string]any{"target": target},
	}
}

// SchemaError creates a new AppError for a failed schema operation.
func SchemaError(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSchema, Message: fmt.Sprintf("Schema %s failed.", operation),
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// Internal creates a new AppError for an unexpected error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.", Cause: cause,
	}
}

// --- Inspection helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
