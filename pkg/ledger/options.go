package ledger

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tcfw/cognitechain/pkg/storage"
)

type Option func(*Ledger) error

func WithDifficulty(d int) Option {
	return func(l *Ledger) error {
		l.miner.Difficulty = d
		return nil
	}
}

// WithMaxAttempts bounds the nonce search. Zero leaves it unbounded.
func WithMaxAttempts(n uint64) Option {
	return func(l *Ledger) error {
		l.miner.MaxAttempts = n
		return nil
	}
}

// WithMiningTimeout bounds the wall clock time of a nonce search. Zero
// leaves it bounded only by the caller context.
func WithMiningTimeout(d time.Duration) Option {
	return func(l *Ledger) error {
		l.miningTimeout = d
		return nil
	}
}

// WithMinDifficulty sets the difficulty every stored block must meet when
// the chain is verified.
func WithMinDifficulty(d int) Option {
	return func(l *Ledger) error {
		l.minDifficulty = d
		return nil
	}
}

func WithIndex(idx storage.Index) Option {
	return func(l *Ledger) error {
		l.index = idx
		return nil
	}
}

func WithLogger(e *logrus.Entry) Option {
	return func(l *Ledger) error {
		l.logger = e
		return nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) error {
		l.clock = now
		return nil
	}
}
