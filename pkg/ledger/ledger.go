package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
	"github.com/tcfw/cognitechain/pkg/tx"
)

// Ledger owns the chain. Appends are serialized through writeMu and only
// become visible to readers once the new chain has been persisted.
type Ledger struct {
	store storage.Store
	index storage.Index
	miner *chain.Miner

	minDifficulty int
	miningTimeout time.Duration
	clock         func() time.Time
	logger        *logrus.Entry

	writeMu sync.Mutex

	mu      sync.RWMutex
	chain   chain.Chain
	indexed int

	balMu     sync.Mutex
	balHeight int
	balances  map[string]int64
}

func New(ctx context.Context, store storage.Store, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store: store,
		miner:   &chain.Miner{Difficulty: chain.DefaultDifficulty},
		clock:   time.Now,
		indexed: -1,
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	if l.logger == nil {
		l.logger = logrus.NewEntry(logrus.StandardLogger())
	}

	if _, err := chain.NewMiner(l.miner.Difficulty, l.miner.MaxAttempts); err != nil {
		return nil, err
	}

	if _, err := l.Load(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// Load replaces the in memory chain with the verified contents of the
// store. A chain that fails verification is never served.
func (l *Ledger) Load(ctx context.Context) (chain.Chain, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	c, err := l.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading chain")
	}

	if err := chain.Verify(c, l.minDifficulty); err != nil {
		return nil, errors.Wrap(err, "verifying chain")
	}

	l.publish(c)
	l.reconcileIndex(ctx, c)

	l.logger.WithField("height", len(c)).Info("ledger loaded")

	return c.DeepCopy(), nil
}

func (l *Ledger) publish(c chain.Chain) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.chain = c
}

func (l *Ledger) current() chain.Chain {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.chain
}

// AppendTransactions seals copies of txs into a new block, persists the
// chain and returns a copy of the block. Nothing is mined when any tx is
// invalid or would overflow an address balance.
//
// On a PersistenceError with Committed set the block was written and is
// returned along with the error.
func (l *Ledger) AppendTransactions(ctx context.Context, txs []tx.Tx) (*chain.Block, error) {
	if len(txs) == 0 {
		return nil, errors.Wrap(tx.ErrInvalidTransaction, "no transactions")
	}

	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			return nil, errors.Wrapf(err, "tx %d", i)
		}
	}

	sealed := make([]tx.Tx, len(txs))
	for i := range txs {
		sealed[i] = txs[i].Copy()
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := chain.Credit(l.Balances(), sealed); err != nil {
		return nil, errors.Wrapf(tx.ErrInvalidTransaction, "%s", err)
	}

	tip := l.current()
	index, prev := tip.Next()

	block := chain.Block{
		Index:        index,
		PreviousHash: prev,
		Timestamp:    l.clock().UnixMilli(),
		Transactions: sealed,
	}

	mctx := ctx
	if l.miningTimeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(ctx, l.miningTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := l.miner.SealBlock(mctx, &block); err != nil {
		l.logger.WithError(err).WithField("index", index).Error("sealing block")
		return nil, errors.Wrap(err, "sealing block")
	}
	elapsed := time.Since(start)

	if len(l.current()) != len(tip) {
		return nil, errors.Wrapf(ErrConcurrentAppend, "tip moved while sealing block %d", index)
	}

	next := append(tip.Copy(), block)

	if err := l.store.Save(ctx, next); err != nil {
		var pErr *storage.PersistenceError
		if errors.As(err, &pErr) && pErr.Committed {
			l.logger.WithError(err).WithField("index", index).Warn("chain written but not confirmed durable")
			l.commit(ctx, next)
			b := block.Copy()
			return &b, err
		}

		l.logger.WithError(err).WithField("index", index).Error("persisting chain")
		return nil, errors.Wrap(err, "persisting chain")
	}

	l.commit(ctx, next)

	l.logger.WithFields(logrus.Fields{
		"index":   block.Index,
		"nonce":   block.Nonce,
		"hash":    block.Hash,
		"elapsed": elapsed,
	}).Info("sealed block")

	b := block.Copy()
	return &b, nil
}

// commit publishes next and indexes its tip. Assumes writeMu is held.
func (l *Ledger) commit(ctx context.Context, next chain.Chain) {
	l.publish(next)
	l.applyIndex(ctx, next)
}

// RecordTransaction seals t into its own block and returns the block index
func (l *Ledger) RecordTransaction(ctx context.Context, t tx.Tx) (uint64, error) {
	b, err := l.AppendTransactions(ctx, []tx.Tx{t})
	if b == nil {
		return 0, err
	}

	return b.Index, err
}

// Snapshot returns a copy of the current chain the caller may modify
func (l *Ledger) Snapshot() chain.Chain {
	return l.current().DeepCopy()
}

func (l *Ledger) Height() uint64 {
	return uint64(len(l.current()))
}

func (l *Ledger) Tip() *chain.Block {
	tip := l.current().Tip()
	if tip == nil {
		return nil
	}

	b := tip.Copy()
	return &b
}

func (l *Ledger) Difficulty() int {
	return l.miner.Difficulty
}

// Balances returns per address totals, read from the index when it matches
// the served chain and otherwise projected from the chain. The projection
// is reused until the chain grows.
func (l *Ledger) Balances() map[string]int64 {
	c := l.current()

	if l.indexReady(c) {
		b, err := l.index.Balances(context.Background())
		if err == nil {
			return b
		}

		l.logger.WithError(err).Warn("reading balances from index")
	}

	l.balMu.Lock()
	defer l.balMu.Unlock()

	if l.balances == nil || l.balHeight != len(c) {
		b, err := chain.Project(c)
		if err != nil {
			l.logger.WithError(err).Error("projecting balances")
			return map[string]int64{}
		}
		l.balances = b
		l.balHeight = len(c)
	}

	b := make(map[string]int64, len(l.balances))
	for k, v := range l.balances {
		b[k] = v
	}

	return b
}

// Verify rechecks the chain currently being served
func (l *Ledger) Verify() error {
	return chain.Verify(l.current(), l.minDifficulty)
}
