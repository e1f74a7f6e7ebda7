package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUninitialized is returned when a repository is requested before
	// one was constructed and no connection provider was supplied.
	ErrUninitialized = errors.New("repository not initialized: call with a connection provider first")

	ErrNotFound = errors.New("not found")
)

// PersistenceError wraps any failure surfaced by the storage layer. The
// driver error is kept intact and reachable through errors.As/Unwrap.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
