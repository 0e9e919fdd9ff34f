package ledger

import "github.com/pkg/errors"

var (
	// ErrConcurrentAppend means the tip moved while a block was being
	// sealed. Appends are serialized so this indicates a bug.
	ErrConcurrentAppend = errors.New("concurrent append conflict")
)
