package dictionary

import (
	"errors"
	"fmt"
)

// Errors returned by dictionary operations.
var (
	// ErrInvalidWord indicates the word is empty or whitespace-only.
	ErrInvalidWord = errors.New("invalid dictionary word")
)

// LoadError indicates the persisted store could not be parsed.
// The dictionary recovers by starting from an empty in-memory set,
// so callers should treat this as a warning, not a failure.
type LoadError struct {
	// Path is the store file that failed to parse.
	Path string
	// Err is the underlying parse error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("dictionary store %s is corrupt: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// IOError indicates persistence failed after the in-memory mutation
// was applied. The in-memory state remains authoritative.
type IOError struct {
	// Path is the store file that could not be written.
	Path string
	// Err is the underlying write error.
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("dictionary store %s write failed: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}
