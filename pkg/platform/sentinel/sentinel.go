// Package sentinel holds store-level error facts. Stores return them, possibly
// wrapped, and the service maps them to domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound means no row or entry exists for the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint rejected the write.
	ErrConflict = errors.New("conflict")
)
