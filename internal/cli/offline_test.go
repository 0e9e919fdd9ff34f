package cli

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	internalStorage "github.com/tcfw/cognitechain/internal/storage"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
	"github.com/tcfw/cognitechain/pkg/tx"
)

func writeTestChain(t *testing.T, path string) chain.Chain {
	ctx := context.Background()
	m, err := chain.NewMiner(1, 0)
	require.NoError(t, err)

	c := chain.Chain{}
	for i, addr := range []string{"A", "B", "A"} {
		tr, err := tx.NewMining(addr, 1, 0)
		require.NoError(t, err)

		idx, prev := c.Next()
		b := &chain.Block{
			Index:        idx,
			PreviousHash: prev,
			Timestamp:    int64(1000 + i),
			Transactions: []tx.Tx{*tr},
		}
		require.NoError(t, m.SealBlock(ctx, b))
		c = append(c, *b)
	}

	require.NoError(t, storage.NewFileStore(path, 1).Save(ctx, c))

	return c
}

func TestLoadVerified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	want := writeTestChain(t, path)

	c, err := loadVerified(context.Background(), path, 1)
	require.NoError(t, err)
	assert.Len(t, c, len(want))
	assert.Equal(t, want.Tip().Hash, c.Tip().Hash)
}

func TestLoadVerifiedMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")

	_, err := loadVerified(context.Background(), path, 0)
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestLoadVerifiedTampered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	c := writeTestChain(t, path)

	c[1].Transactions[0].Amount = 1_000_000
	require.NoError(t, storage.NewFileStore(path, 1).Save(context.Background(), c))

	_, err := loadVerified(context.Background(), path, 0)
	require.Error(t, err)
	assert.True(t, chain.IsCorrupt(err))
}

func TestLoadVerifiedGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.json")
	require.NoError(t, ioutil.WriteFile(path, []byte("{not json"), 0600))

	_, err := loadVerified(context.Background(), path, 0)
	require.Error(t, err)
	assert.True(t, chain.IsCorrupt(err))
}

func TestReindex(t *testing.T) {
	dir := t.TempDir()
	c := writeTestChain(t, filepath.Join(dir, "chain.json"))

	idxPath := filepath.Join(dir, "index")
	require.NoError(t, reindex(context.Background(), idxPath, c))

	idx, err := internalStorage.NewPebbleIndex(idxPath)
	require.NoError(t, err)
	defer idx.Stop()

	h, tip, err := idx.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(len(c)), h)
	assert.Equal(t, c.Tip().Hash, tip)

	want, err := chain.Project(c)
	require.NoError(t, err)

	bals, err := idx.Balances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, bals)
}
