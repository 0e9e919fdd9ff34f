package chain

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/tx"
)

const (
	DefaultDifficulty = 3

	// MaxDifficulty is the length of a hex encoded sha256 digest
	MaxDifficulty = sha256HexLen

	sha256HexLen = 64

	ctxCheckInterval = 1 << 10
)

var (
	ErrMiningTimeout     = errors.New("mining budget exhausted")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// MeetsDifficulty reports whether the hash starts with difficulty '0' chars
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty < 0 || difficulty > len(hash) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == difficulty
}

// Miner searches for a nonce whose block hash meets Difficulty. A zero
// MaxAttempts leaves the search bounded only by the context.
type Miner struct {
	Difficulty  int
	MaxAttempts uint64
}

func NewMiner(difficulty int, maxAttempts uint64) (*Miner, error) {
	m := &Miner{Difficulty: difficulty, MaxAttempts: maxAttempts}
	if err := m.check(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Miner) check() error {
	if m.Difficulty < 0 || m.Difficulty > MaxDifficulty {
		return errors.Wrapf(ErrInvalidDifficulty, "difficulty %d outside [0, %d]", m.Difficulty, MaxDifficulty)
	}

	return nil
}

// Seal increments the nonce from 1 until the block hash meets the miner
// difficulty. The search stops with ErrMiningTimeout once MaxAttempts
// nonces have been tried or ctx is done.
func (m *Miner) Seal(ctx context.Context, index uint64, previousHash string, timestamp int64, txs []tx.Tx) (uint64, string, error) {
	if err := m.check(); err != nil {
		return 0, "", err
	}

	txd, err := encodeTxs(txs)
	if err != nil {
		return 0, "", err
	}

	prefix := headerPrefix(index, previousHash, timestamp)

	var nonce uint64
	for {
		if m.MaxAttempts > 0 && nonce >= m.MaxAttempts {
			return 0, "", errors.Wrapf(ErrMiningTimeout, "no nonce after %d attempts", nonce)
		}

		if nonce%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, "", errors.Wrapf(ErrMiningTimeout, "stopped after %d attempts: %s", nonce, err)
			}
		}

		nonce++

		hash := hashPayload(prefix, txd, nonce)
		if MeetsDifficulty(hash, m.Difficulty) {
			return nonce, hash, nil
		}
	}
}

// SealBlock fills in the nonce and hash of b
func (m *Miner) SealBlock(ctx context.Context, b *Block) error {
	nonce, hash, err := m.Seal(ctx, b.Index, b.PreviousHash, b.Timestamp, b.Transactions)
	if err != nil {
		return err
	}

	b.Nonce = nonce
	b.Hash = hash

	return nil
}
