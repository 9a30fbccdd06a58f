package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a group, tile or content bundle does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique or primary key collision in storage
	ErrConflict = errors.New("already exists")

	// ErrInvalidFormat indicates malformed content or import data
	ErrInvalidFormat = errors.New("invalid format")

	// ErrValidation indicates a record failed validation rules
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a backing store could not be used
	ErrUnavailable = errors.New("store unavailable")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
