package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/tx"
)

func TestBloom(t *testing.T) {
	b := &chain.Block{
		Transactions: []tx.Tx{
			*mustMining(t, "alice", 1),
			*mustMining(t, "bob", 1),
		},
	}

	d, err := MakeBloom(b)
	if err != nil {
		t.Fatal(err)
	}

	yes, err := BloomContains(d, "alice")
	if err != nil {
		t.Fatal(err)
	}

	assert.True(t, yes)

	no, err := BloomContains(d, "carol")
	if err != nil {
		t.Fatal(err)
	}

	assert.False(t, no)
}

func TestBloomBadData(t *testing.T) {
	_, err := BloomContains([]byte{1, 2, 3}, "alice")
	assert.Error(t, err)
}
