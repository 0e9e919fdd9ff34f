package ledger

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
	"github.com/tcfw/cognitechain/pkg/tx"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return logrus.NewEntry(l)
}

func newTestLedger(t *testing.T, s storage.Store, opts ...Option) *Ledger {
	opts = append([]Option{WithDifficulty(1), WithLogger(quietLogger())}, opts...)

	l, err := New(context.Background(), s, opts...)
	require.NoError(t, err)

	return l
}

func mining(addr string, amount int64) tx.Tx {
	return tx.Tx{
		Version: tx.Version1,
		Type:    tx.TxType_Mining,
		Address: addr,
		Amount:  amount,
		Ts:      time.Now().UnixMilli(),
		Data:    &tx.Mining{BlocksMined: 1},
	}
}

func TestEmptyChainBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "chain.json")
	l := newTestLedger(t, storage.NewFileStore(path, 1))

	assert.Empty(t, l.Snapshot())
	assert.Nil(t, l.Tip())

	idx, err := l.RecordTransaction(context.Background(), mining("A", 690))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx)

	tip := l.Tip()
	require.NotNil(t, tip)
	assert.Equal(t, chain.GenesisPrevHash, tip.PreviousHash)
}

func TestChainLinkageAndHashes(t *testing.T) {
	l := newTestLedger(t, storage.NewMemStore(), WithDifficulty(2))

	for i := 0; i < 5; i++ {
		idx, err := l.RecordTransaction(context.Background(), mining("A", 1))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), idx)
	}

	c := l.Snapshot()
	require.Len(t, c, 5)
	assert.Equal(t, chain.GenesisPrevHash, c[0].PreviousHash)

	for i := range c {
		if i > 0 {
			assert.Equal(t, c[i-1].Hash, c[i].PreviousHash)
		}

		h, err := c[i].ComputeHash()
		require.NoError(t, err)
		assert.Equal(t, h, c[i].Hash)
		assert.True(t, chain.MeetsDifficulty(c[i].Hash, 2))
	}

	assert.NoError(t, l.Verify())
}

func TestConcurrentAppends(t *testing.T) {
	s := storage.NewMemStore()
	l := newTestLedger(t, s)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.RecordTransaction(context.Background(), mining("A", 1)); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}

	c := l.Snapshot()
	require.Len(t, c, n)
	for i := range c {
		assert.Equal(t, uint64(i), c[i].Index)
	}
	assert.NoError(t, chain.Verify(c, 1))

	stored, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c, stored)
}

func TestBalances(t *testing.T) {
	l := newTestLedger(t, storage.NewMemStore())

	for _, tr := range []tx.Tx{mining("A", 690), mining("B", 100), mining("A", 690)} {
		_, err := l.RecordTransaction(context.Background(), tr)
		require.NoError(t, err)
	}

	assert.Equal(t, map[string]int64{"A": 1380, "B": 100}, l.Balances())

	// cached projection is refreshed once the chain grows
	_, err := l.RecordTransaction(context.Background(), mining("B", 5))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 1380, "B": 105}, l.Balances())

	// returned maps are copies
	b := l.Balances()
	b["A"] = 0
	assert.Equal(t, int64(1380), l.Balances()["A"])
}

func TestRejectMalformed(t *testing.T) {
	s := storage.NewMemStore()
	l := newTestLedger(t, s)

	noAddr := mining("", 10)
	_, err := l.RecordTransaction(context.Background(), noAddr)
	assert.True(t, errors.Is(err, tx.ErrInvalidTransaction))

	negative := mining("A", -1)
	_, err = l.RecordTransaction(context.Background(), negative)
	assert.True(t, errors.Is(err, tx.ErrInvalidTransaction))

	_, err = l.AppendTransactions(context.Background(), nil)
	assert.True(t, errors.Is(err, tx.ErrInvalidTransaction))

	assert.Empty(t, l.Snapshot())
	assert.Equal(t, 0, s.Saves())
}

func TestPersistenceFailureLeavesChain(t *testing.T) {
	s := storage.NewMemStore()
	l := newTestLedger(t, s)

	_, err := l.RecordTransaction(context.Background(), mining("A", 1))
	require.NoError(t, err)

	s.SetFailSaves(true)
	_, err = l.RecordTransaction(context.Background(), mining("B", 1))
	require.Error(t, err)
	assert.True(t, storage.IsPersistence(err))

	assert.Len(t, l.Snapshot(), 1)
	assert.Equal(t, map[string]int64{"A": 1}, l.Balances())

	s.SetFailSaves(false)
	idx, err := l.RecordTransaction(context.Background(), mining("B", 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx)
}

func TestMiningTimeout(t *testing.T) {
	s := storage.NewMemStore()
	l := newTestLedger(t, s, WithDifficulty(chain.MaxDifficulty), WithMaxAttempts(50))

	_, err := l.RecordTransaction(context.Background(), mining("A", 1))
	assert.True(t, errors.Is(err, chain.ErrMiningTimeout))
	assert.Empty(t, l.Snapshot())

	l = newTestLedger(t, s, WithDifficulty(chain.MaxDifficulty), WithMiningTimeout(20*time.Millisecond))
	_, err = l.RecordTransaction(context.Background(), mining("A", 1))
	assert.True(t, errors.Is(err, chain.ErrMiningTimeout))
}

func TestInvalidDifficulty(t *testing.T) {
	_, err := New(context.Background(), storage.NewMemStore(), WithDifficulty(-1), WithLogger(quietLogger()))
	assert.True(t, errors.Is(err, chain.ErrInvalidDifficulty))
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	l := newTestLedger(t, storage.NewFileStore(path, 1))

	for i := 0; i < 4; i++ {
		_, err := l.RecordTransaction(context.Background(), mining("A", int64(i)))
		require.NoError(t, err)
	}

	reloaded := newTestLedger(t, storage.NewFileStore(path, 1))
	assert.Equal(t, l.Snapshot(), reloaded.Snapshot())
}

func TestLoadRejectsCorruptChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	l := newTestLedger(t, storage.NewFileStore(path, 1))

	for i := 0; i < 3; i++ {
		_, err := l.RecordTransaction(context.Background(), mining("A", 1))
		require.NoError(t, err)
	}

	c := l.Snapshot()
	c[1].Transactions = []tx.Tx{mining("A", 1_000_000)}
	require.NoError(t, storage.NewFileStore(path, 1).Save(context.Background(), c))

	_, err := New(context.Background(), storage.NewFileStore(path, 1), WithLogger(quietLogger()))
	require.Error(t, err)
	assert.True(t, chain.IsCorrupt(err))
}

func TestClock(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	l := newTestLedger(t, storage.NewMemStore(), WithClock(func() time.Time { return ts }))

	_, err := l.RecordTransaction(context.Background(), mining("A", 1))
	require.NoError(t, err)

	assert.Equal(t, ts.UnixMilli(), l.Tip().Timestamp)
}

func TestSnapshotIsolated(t *testing.T) {
	l := newTestLedger(t, storage.NewMemStore())

	_, err := l.RecordTransaction(context.Background(), mining("A", 1))
	require.NoError(t, err)

	snap := l.Snapshot()
	snap = append(snap, chain.Block{Index: 99})
	assert.Len(t, snap, 2)
	assert.Len(t, l.Snapshot(), 1)
	assert.Equal(t, uint64(1), l.Height())
}

func TestRejectBalanceOverflow(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()
	l := newTestLedger(t, s, WithIndex(storage.NewMemIndex()))

	_, err := tx.NewMining("A", 26734411701028346, 0)
	assert.True(t, errors.Is(err, tx.ErrInvalidTransaction))

	big, err := tx.NewMining("B", 13367205850514167, 0)
	require.NoError(t, err)

	_, err = l.RecordTransaction(ctx, *big)
	require.NoError(t, err)

	_, err = l.RecordTransaction(ctx, *big)
	assert.True(t, errors.Is(err, tx.ErrInvalidTransaction), "got %v", err)

	// a batch that overflows part way through is refused whole
	_, err = l.AppendTransactions(ctx, []tx.Tx{mining("A", 1), *big})
	assert.True(t, errors.Is(err, tx.ErrInvalidTransaction), "got %v", err)

	assert.Equal(t, uint64(1), l.Height())
	assert.Equal(t, 1, s.Saves())

	bal := l.Balances()
	assert.Equal(t, map[string]int64{"B": big.Amount}, bal)
	assert.GreaterOrEqual(t, bal["B"], int64(0))

	_, err = l.RecordTransaction(ctx, mining("A", 1))
	assert.NoError(t, err)
}

func TestCommittedPersistenceError(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()
	idx := storage.NewMemIndex()
	l := newTestLedger(t, s, WithIndex(idx))

	_, err := l.RecordTransaction(ctx, mining("A", 1))
	require.NoError(t, err)

	s.SetCommitFailures(true)

	b, err := l.AppendTransactions(ctx, []tx.Tx{mining("B", 2)})
	require.Error(t, err)
	assert.True(t, storage.IsCommitted(err))
	require.NotNil(t, b)
	assert.Equal(t, uint64(1), b.Index)

	assert.Equal(t, uint64(2), l.Height())
	assert.Equal(t, b.Hash, l.Tip().Hash)

	h, tip, err := idx.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h)
	assert.Equal(t, b.Hash, tip)

	i, err := l.RecordTransaction(ctx, mining("C", 3))
	assert.True(t, storage.IsCommitted(err))
	assert.Equal(t, uint64(2), i)

	stored, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, l.Snapshot(), stored)
	assert.Equal(t, map[string]int64{"A": 1, "B": 2, "C": 3}, l.Balances())
	assert.NoError(t, l.Verify())
}

func TestCallerCannotAlterSealedBlocks(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, storage.NewMemStore())

	tr := mining("A", 1)
	_, err := l.RecordTransaction(ctx, tr)
	require.NoError(t, err)
	tr.Data.(*tx.Mining).BlocksMined = 7

	txs := []tx.Tx{mining("B", 1)}
	b, err := l.AppendTransactions(ctx, txs)
	require.NoError(t, err)
	txs[0].Amount = 9
	txs[0].Data.(*tx.Mining).BlocksMined = 9
	b.Transactions[0].Data.(*tx.Mining).Score = 9

	snap := l.Snapshot()
	snap[0].Transactions[0].Amount = 100
	snap[1].Transactions[0].Data.(*tx.Mining).BlocksMined = 100

	l.Tip().Transactions[0].Amount = 5

	assert.NoError(t, l.Verify())
	assert.Equal(t, map[string]int64{"A": 1, "B": 1}, l.Balances())
}
