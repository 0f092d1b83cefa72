// Package core provides the Recall client and the user memory store it fronts.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrValidation indicates malformed input. Never retried automatically.
	ErrValidation = errors.New("validation failed")

	// ErrTransactionConflict indicates a concurrent-write conflict that
	// persisted through the bounded retry loop.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrQuotaExceeded indicates that a user is at their memory quota and
	// eviction itself failed. Normal quota pressure is handled transparently.
	ErrQuotaExceeded = errors.New("memory quota exceeded")

	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrRestoreInProgress indicates that ingestion was rejected because a
	// restore covering the user's records is running.
	ErrRestoreInProgress = errors.New("restore in progress")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates that a connection to the storage backend failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// StoreError wraps errors with operation context.
//
// It records which store operation failed, making error messages more
// informative for debugging.
//
// Example:
//
//	err := &StoreError{
//	    Op:  "Ingest",
//	    Err: ErrValidation,
//	}
//	// Error() returns: "recall: Ingest: validation failed"
type StoreError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "recall: <Op>: <Err>"
func (e *StoreError) Error() string {
	return fmt.Sprintf("recall: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with StoreError.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewStoreError("Ingest", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "Ingest", "Retrieve", "Cleanup")
//   - err: The underlying error to wrap
//
// Returns a StoreError, or nil if err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{
		Op:  op,
		Err: err,
	}
}
