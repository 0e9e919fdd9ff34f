package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/chain"
)

var (
	_ Index = (*MemIndex)(nil)

	ErrOutOfOrder = errors.New("block applied out of order")
)

// MemIndex is a map backed Index
type MemIndex struct {
	mu sync.RWMutex

	height   uint64
	tip      string
	balances map[string]int64
	history  map[string][]HistoryEntry
}

func NewMemIndex() *MemIndex {
	return &MemIndex{
		balances: make(map[string]int64),
		history:  make(map[string][]HistoryEntry),
	}
}

func (m *MemIndex) Head(_ context.Context) (uint64, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.height, m.tip, nil
}

func (m *MemIndex) ApplyBlock(_ context.Context, b *chain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.applyBlock(b)
}

// applyBlock assumes m.mu is held
func (m *MemIndex) applyBlock(b *chain.Block) error {
	if b.Index != m.height {
		return errors.Wrapf(ErrOutOfOrder, "expected block %d, got %d", m.height, b.Index)
	}

	credited := map[string]int64{}
	for _, t := range b.Transactions {
		if _, ok := credited[t.Address]; !ok {
			credited[t.Address] = m.balances[t.Address]
		}
	}
	if err := chain.Credit(credited, b.Transactions); err != nil {
		return errors.Wrapf(err, "indexing block %d", b.Index)
	}

	for addr, bal := range credited {
		m.balances[addr] = bal
	}

	for i, t := range b.Transactions {
		m.history[t.Address] = append(m.history[t.Address], NewHistoryEntry(b, i))
	}

	m.height++
	m.tip = b.Hash

	return nil
}

func (m *MemIndex) Rebuild(_ context.Context, c chain.Chain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.height = 0
	m.tip = ""
	m.balances = make(map[string]int64)
	m.history = make(map[string][]HistoryEntry)

	for i := range c {
		if err := m.applyBlock(&c[i]); err != nil {
			return err
		}
	}

	return nil
}

func (m *MemIndex) Balances(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b := make(map[string]int64, len(m.balances))
	for k, v := range m.balances {
		b[k] = v
	}

	return b, nil
}

func (m *MemIndex) History(_ context.Context, address string) ([]HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.history[address]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]HistoryEntry(nil), h...), nil
}

func (m *MemIndex) Stop() error {
	return nil
}
