package model

import "errors"

// Sentinel errors shared across repositories and services. Callers match with
// errors.Is; handlers translate them to HTTP status codes.
var (
	// ErrInsufficientStock is a business-rule violation: the requested
	// quantity exceeds what is available (or on hand, for non-backorder
	// products). Never retried automatically.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrValidation marks a malformed movement or request — a programming
	// error in the caller, not a transient condition.
	ErrValidation = errors.New("validation error")

	// ErrConcurrencyConflict is transient: the atomic unit could not commit
	// due to contention. Safe to retry the whole operation.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrNotFound is returned for direct lookups of absent records.
	ErrNotFound = errors.New("not found")
)
