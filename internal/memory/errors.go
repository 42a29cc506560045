package memory

import "errors"

// Errors returned by store operations.
var (
	// ErrDestroyed indicates a write to a destroyed store.
	ErrDestroyed = errors.New("memory store destroyed")

	// ErrEmptyName indicates a write with an empty variable name.
	ErrEmptyName = errors.New("empty variable name")
)
