package storage

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/tcfw/cognitechain/pkg/chain"
)

const (
	bloomEstimatedAddresses = 64
	falsePositive           = 0.01
)

// MakeBloom builds a filter over every payee address in the block
func MakeBloom(b *chain.Block) ([]byte, error) {
	f := bloom.NewWithEstimates(bloomEstimatedAddresses, falsePositive)

	for _, t := range b.Transactions {
		f.AddString(t.Address)
	}

	return f.GobEncode()
}

func BloomContains(b []byte, address string) (bool, error) {
	f := bloom.NewWithEstimates(bloomEstimatedAddresses, falsePositive)

	if err := f.GobDecode(b); err != nil {
		return false, err
	}

	return f.TestString(address), nil
}
