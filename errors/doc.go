// Package errors provides the structured error type shared by the ormtest
// packages. Every error carries a machine-readable code so callers can tell
// caller bugs (an entity that is not managed, an invalid entity value) apart
// from environment failures (database errors).
package errors
