package storage

import (
	"context"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/tx"
)

func sealedChain(t *testing.T, n int) chain.Chain {
	m, err := chain.NewMiner(1, 0)
	require.NoError(t, err)

	c := chain.Chain{}
	for i := 0; i < n; i++ {
		index, prev := c.Next()
		b := chain.Block{
			Index:        index,
			PreviousHash: prev,
			Timestamp:    int64(1700000000000 + i),
			Transactions: []tx.Tx{*mustMining(t, "addr", int64(i+1))},
		}
		require.NoError(t, m.SealBlock(context.Background(), &b))
		c = append(c, b)
	}

	return c
}

func mustMining(t *testing.T, address string, blocksMined int64) *tx.Tx {
	tr, err := tx.NewMining(address, blocksMined, 0)
	require.NoError(t, err)
	return tr
}

func TestFileStoreBootstrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "chain.json")
	fs := NewFileStore(path, DefaultWriteRetries)

	c, err := fs.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c)

	d, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(d))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	fs := NewFileStore(path, DefaultWriteRetries)

	c := sealedChain(t, 5)
	require.NoError(t, fs.Save(context.Background(), c))

	loaded, err := NewFileStore(path, DefaultWriteRetries).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, c, loaded)
	assert.NoError(t, chain.Verify(loaded, 1))
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	require.NoError(t, ioutil.WriteFile(path, nil, 0600))

	c, err := NewFileStore(path, 1).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(`{"not":"a chain"}`), 0600))

	_, err := NewFileStore(path, 1).Load(context.Background())
	assert.True(t, chain.IsCorrupt(err))
}

func TestFileStoreSaveFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing", "chain.json")
	fs := NewFileStore(path, 2)

	err := fs.Save(context.Background(), sealedChain(t, 1))
	require.Error(t, err)
	assert.True(t, IsPersistence(err))

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.False(t, pErr.Committed)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStoreNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(filepath.Join(dir, "chain.json"), 1)

	require.NoError(t, fs.Save(context.Background(), sealedChain(t, 2)))

	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemStoreRoundTrip(t *testing.T) {
	m := NewMemStore()

	c := sealedChain(t, 3)
	require.NoError(t, m.Save(context.Background(), c))

	loaded, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
	assert.Equal(t, 1, m.Saves())

	m.SetFailSaves(true)
	assert.True(t, IsPersistence(m.Save(context.Background(), c)))
	assert.Equal(t, 1, m.Saves())
}

func TestMemIndex(t *testing.T) {
	ctx := context.Background()
	idx := NewMemIndex()
	c := sealedChain(t, 3)

	require.NoError(t, idx.Rebuild(ctx, c[:2]))
	require.NoError(t, idx.ApplyBlock(ctx, &c[2]))

	h, tip, err := idx.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), h)
	assert.Equal(t, c[2].Hash, tip)

	want, err := chain.Project(c)
	require.NoError(t, err)

	bal, err := idx.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, bal)

	hist, err := idx.History(ctx, "addr")
	require.NoError(t, err)
	assert.Len(t, hist, 3)
	assert.Equal(t, uint64(2), hist[2].Block)

	_, err = idx.History(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, idx.ApplyBlock(ctx, &c[0]), ErrOutOfOrder)

	require.NoError(t, idx.Rebuild(ctx, nil))
	h, tip, err = idx.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), h)
	assert.Empty(t, tip)
}

func TestMemIndexRefusesOverflow(t *testing.T) {
	ctx := context.Background()
	idx := NewMemIndex()

	big := chain.Block{Index: 0, Hash: "h0", Transactions: []tx.Tx{{Address: "B", Amount: math.MaxInt64}}}
	require.NoError(t, idx.ApplyBlock(ctx, &big))

	more := chain.Block{Index: 1, Hash: "h1", Transactions: []tx.Tx{{Address: "A", Amount: 1}, {Address: "B", Amount: 1}}}
	assert.ErrorIs(t, idx.ApplyBlock(ctx, &more), chain.ErrBalanceOverflow)

	h, tip, err := idx.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h)
	assert.Equal(t, "h0", tip)

	bal, err := idx.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"B": math.MaxInt64}, bal)
}

func TestMemStoreCommitFailures(t *testing.T) {
	m := NewMemStore()
	c := sealedChain(t, 2)

	m.SetCommitFailures(true)
	err := m.Save(context.Background(), c)
	require.Error(t, err)
	assert.True(t, IsCommitted(err))
	assert.ErrorIs(t, err, ErrNotDurable)

	loaded, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
