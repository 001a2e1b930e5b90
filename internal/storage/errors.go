package storage

import "errors"

var (
	// ErrNotFound keeps storage-specific 404s consistent across in-memory and
	// postgres implementations.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict signals that a versioned update lost a race with a
	// concurrent writer. Callers recompute and retry.
	ErrVersionConflict = errors.New("version conflict")
)
