package postgres

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a single-row lookup matches nothing.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidFilterField is returned when a criterion or update names an
	// unknown column or operator.
	ErrInvalidFilterField = errors.New("storage: invalid filter field")
	// ErrInvalidFilterValue is returned for malformed criterion values,
	// such as an IN list with no elements.
	ErrInvalidFilterValue = errors.New("storage: invalid filter value")
)

// StorageError wraps a driver-level failure. The underlying error is kept
// intact and reachable through errors.Unwrap; this layer does not interpret
// it further.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrapStorage(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
