package table

import "errors"

// Sentinel errors returned by the process table. Callers detect them with
// errors.Is; the table wraps them with the offending pid.
var (
	// ErrResourceExhausted is returned when no pid is free or the table is at
	// capacity.
	ErrResourceExhausted = errors.New("table: resource exhausted")

	// ErrInvalidState indicates a lifecycle operation against a record in the
	// wrong state, or against a record that does not exist.
	ErrInvalidState = errors.New("table: invalid state")

	// ErrInvalidParent is returned when a child is requested for a parent that
	// is not a live runnable record.
	ErrInvalidParent = errors.New("table: invalid parent")

	// ErrNotFound is returned when the requested pid has no record.
	ErrNotFound = errors.New("table: not found")
)
