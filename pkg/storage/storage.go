package storage

import (
	"context"

	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/tx"
)

// Store persists the whole chain. Save replaces everything previously
// stored so a successful Save followed by Load returns the same chain.
type Store interface {
	Load(context.Context) (chain.Chain, error)
	Save(context.Context, chain.Chain) error
}

// Index provides lookups over blocks that have been appended to the
// ledger. The information must be rebuildable from the chain alone and is
// only a performance measure for reading ledger records.
//
// Head returns the number of indexed blocks and the hash of the last one,
// empty when nothing is indexed.
type Index interface {
	Head(context.Context) (uint64, string, error)
	ApplyBlock(context.Context, *chain.Block) error
	Rebuild(context.Context, chain.Chain) error

	Balances(context.Context) (map[string]int64, error)
	History(context.Context, string) ([]HistoryEntry, error)

	Stop() error
}

// HistoryEntry locates a transaction credited to an address
type HistoryEntry struct {
	Block    uint64    `json:"block" msgpack:"b"`
	Position int       `json:"position" msgpack:"p"`
	Type     tx.TxType `json:"type" msgpack:"T"`
	Amount   int64     `json:"amount" msgpack:"m"`
	Ts       int64     `json:"timestamp" msgpack:"t"`
}

func NewHistoryEntry(b *chain.Block, pos int) HistoryEntry {
	t := &b.Transactions[pos]

	return HistoryEntry{
		Block:    b.Index,
		Position: pos,
		Type:     t.Type,
		Amount:   t.Amount,
		Ts:       t.Ts,
	}
}
