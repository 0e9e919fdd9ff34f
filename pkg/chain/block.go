package chain

import (
	"github.com/tcfw/cognitechain/pkg/tx"
)

const (
	// GenesisPrevHash is the previous hash recorded by the block at index 0
	GenesisPrevHash = "0"
)

type Block struct {
	Index        uint64  `json:"index" msgpack:"i"`
	PreviousHash string  `json:"previousHash" msgpack:"p"`
	Timestamp    int64   `json:"timestamp" msgpack:"t"`
	Transactions []tx.Tx `json:"transactions" msgpack:"x"`
	Nonce        uint64  `json:"nonce" msgpack:"n"`
	Hash         string  `json:"hash" msgpack:"h"`
}

// ComputeHash recomputes the digest over the block's sealed fields
func (b *Block) ComputeHash() (string, error) {
	return CalculateHash(b.Index, b.PreviousHash, b.Timestamp, b.Transactions, b.Nonce)
}

// Chain is the ordered list of sealed blocks, lowest index first
type Chain []Block

func (c Chain) Tip() *Block {
	if len(c) == 0 {
		return nil
	}

	return &c[len(c)-1]
}

// Next returns the index and previous hash for a block appended after the
// current tip.
func (c Chain) Next() (uint64, string) {
	tip := c.Tip()
	if tip == nil {
		return 0, GenesisPrevHash
	}

	return tip.Index + 1, tip.Hash
}

// Copy returns b with its own transactions and payloads
func (b *Block) Copy() Block {
	n := *b
	if b.Transactions != nil {
		n.Transactions = make([]tx.Tx, len(b.Transactions))
		for i := range b.Transactions {
			n.Transactions[i] = b.Transactions[i].Copy()
		}
	}

	return n
}

// Copy returns a new slice of the same blocks so appends do not alias c.
// Blocks still share transactions with c; use DeepCopy to hand blocks to
// code that may modify them.
func (c Chain) Copy() Chain {
	n := make(Chain, len(c), len(c)+1)
	copy(n, c)
	return n
}

// DeepCopy returns a chain sharing no memory with c
func (c Chain) DeepCopy() Chain {
	n := make(Chain, len(c), len(c)+1)
	for i := range c {
		n[i] = c[i].Copy()
	}

	return n
}
