package ledger

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
)

// reconcileIndex rebuilds the index unless its height and tip hash match
// c. Index failures only leave it unused since the chain remains
// authoritative.
func (l *Ledger) reconcileIndex(ctx context.Context, c chain.Chain) {
	if l.index == nil {
		return
	}

	h, tip, err := l.index.Head(ctx)
	if err == nil && h == uint64(len(c)) && tip == tipHash(c) {
		l.setIndexed(len(c))
		return
	}

	l.logger.WithField("index_height", h).WithField("height", len(c)).Info("rebuilding index")

	if err := l.index.Rebuild(ctx, c); err != nil {
		l.logger.WithError(err).Warn("rebuilding index")
		l.setIndexed(-1)
		return
	}

	l.setIndexed(len(c))
}

// applyIndex indexes the tip of c, which must be one block past the
// previously published chain
func (l *Ledger) applyIndex(ctx context.Context, c chain.Chain) {
	if l.index == nil {
		return
	}

	if l.indexedHeight() != len(c)-1 {
		l.reconcileIndex(ctx, c)
		return
	}

	if err := l.index.ApplyBlock(ctx, c.Tip()); err != nil {
		l.logger.WithError(err).WithField("index", c.Tip().Index).Warn("indexing block")
		l.reconcileIndex(ctx, c)
		return
	}

	l.setIndexed(len(c))
}

func tipHash(c chain.Chain) string {
	if tip := c.Tip(); tip != nil {
		return tip.Hash
	}

	return ""
}

// setIndexed records how many blocks of the published chain the index
// holds. -1 marks it unusable until the next reconcile.
func (l *Ledger) setIndexed(h int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.indexed = h
}

func (l *Ledger) indexedHeight() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.indexed
}

// indexReady reports whether reads for c can be served by the index
func (l *Ledger) indexReady(c chain.Chain) bool {
	return l.index != nil && l.indexedHeight() == len(c)
}

// History lists the transactions credited to address in chain order
func (l *Ledger) History(ctx context.Context, address string) ([]storage.HistoryEntry, error) {
	c := l.current()

	if l.indexReady(c) {
		h, err := l.index.History(ctx, address)
		if err == nil {
			return h, nil
		}
		if errors.Is(err, storage.ErrNotFound) {
			return []storage.HistoryEntry{}, nil
		}

		l.logger.WithError(err).Warn("reading history from index")
	}

	return scanHistory(c, address), nil
}

func scanHistory(c chain.Chain, address string) []storage.HistoryEntry {
	hist := []storage.HistoryEntry{}

	for i := range c {
		for j := range c[i].Transactions {
			if c[i].Transactions[j].Address == address {
				hist = append(hist, storage.NewHistoryEntry(&c[i], j))
			}
		}
	}

	return hist
}
