package domain

import "errors"

var (
	// Lifecycle taxonomy. Use cases wrap these with a human readable message
	// (fmt.Errorf("%w: ...")) so callers can still match with errors.Is.
	ErrNotFound     = errors.New("entity not found")
	ErrAccessDenied = errors.New("access denied")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")

	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many requests")
	ErrLockBusy     = errors.New("resource is locked")

	// Storage errors
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
