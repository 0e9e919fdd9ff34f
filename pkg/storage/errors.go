package storage

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// PersistenceError is returned when durable storage could not be read or
// written. Committed reports whether the stored state may have changed.
type PersistenceError struct {
	Op        string
	Path      string
	Committed bool
	Err       error
}

func (e *PersistenceError) Error() string {
	state := "nothing written"
	if e.Committed {
		state = "storage may have changed"
	}

	return fmt.Sprintf("persistence %s %s (%s): %s", e.Op, e.Path, state, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsPersistence(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

// IsCommitted reports whether err is a PersistenceError raised after the
// new state was already written
func IsCommitted(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr) && pErr.Committed
}
