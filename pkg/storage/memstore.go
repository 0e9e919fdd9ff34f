package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ Store = (*MemStore)(nil)

	ErrSaveRefused = errors.New("save refused")
	ErrNotDurable  = errors.New("write not confirmed durable")
)

// MemStore keeps an encoded copy of the chain in memory. Encoding on every
// save keeps callers from sharing block memory with the store.
type MemStore struct {
	mu sync.Mutex

	data  []byte
	saves int

	// FailSaves makes every Save return a PersistenceError
	FailSaves bool

	// CommitFailures stores the chain but still returns a committed
	// PersistenceError, like a file renamed into place whose directory
	// sync failed
	CommitFailures bool
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) Load(_ context.Context) (chain.Chain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := chain.Chain{}
	if m.data == nil {
		return c, nil
	}

	if err := msgpack.Unmarshal(m.data, &c); err != nil {
		return nil, &chain.CorruptChainError{Index: -1, Reason: "decoding memory store", Err: err}
	}

	return c, nil
}

func (m *MemStore) Save(_ context.Context, c chain.Chain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves {
		return &PersistenceError{Op: "save", Path: "memory", Err: ErrSaveRefused}
	}

	d, err := msgpack.Marshal(c)
	if err != nil {
		return &PersistenceError{Op: "save", Path: "memory", Err: errors.Wrap(err, "marshalling chain")}
	}

	m.data = d
	m.saves++

	if m.CommitFailures {
		return &PersistenceError{Op: "save", Path: "memory", Committed: true, Err: ErrNotDurable}
	}

	return nil
}

func (m *MemStore) SetFailSaves(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailSaves = fail
}

func (m *MemStore) SetCommitFailures(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CommitFailures = fail
}

// Saves is the number of successful saves
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}
