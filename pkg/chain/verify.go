package chain

import (
	"fmt"

	"github.com/pkg/errors"
)

// CorruptChainError reports the first block that breaks chain integrity.
// Index is -1 when the data could not be decoded at all.
type CorruptChainError struct {
	Index  int
	Reason string
	Err    error
}

func (e *CorruptChainError) Error() string {
	msg := "corrupt chain"
	if e.Index >= 0 {
		msg = fmt.Sprintf("corrupt chain at block %d", e.Index)
	}

	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *CorruptChainError) Unwrap() error {
	return e.Err
}

func IsCorrupt(err error) bool {
	var cErr *CorruptChainError
	return errors.As(err, &cErr)
}

// Verify checks indexes, previous hash linkage, block hashes and every
// transaction. Each hash must also meet minDifficulty and no address
// balance may overflow.
func Verify(c Chain, minDifficulty int) error {
	balances := map[string]int64{}

	for i := range c {
		if err := VerifyBlock(c, i, minDifficulty); err != nil {
			return err
		}

		if err := Credit(balances, c[i].Transactions); err != nil {
			return &CorruptChainError{Index: i, Reason: "crediting balances", Err: err}
		}
	}

	return nil
}

// VerifyBlock checks block i of c against its predecessor
func VerifyBlock(c Chain, i int, minDifficulty int) error {
	b := &c[i]

	if b.Index != uint64(i) {
		return &CorruptChainError{Index: i, Reason: fmt.Sprintf("index %d out of sequence", b.Index)}
	}

	prev := GenesisPrevHash
	if i > 0 {
		prev = c[i-1].Hash
	}

	if b.PreviousHash != prev {
		return &CorruptChainError{Index: i, Reason: "previous hash does not match"}
	}

	hash, err := b.ComputeHash()
	if err != nil {
		return &CorruptChainError{Index: i, Reason: "hashing block", Err: err}
	}

	if hash != b.Hash {
		return &CorruptChainError{Index: i, Reason: "hash does not match block contents"}
	}

	if !MeetsDifficulty(b.Hash, minDifficulty) {
		return &CorruptChainError{Index: i, Reason: fmt.Sprintf("hash below difficulty %d", minDifficulty)}
	}

	for j := range b.Transactions {
		if err := b.Transactions[j].Validate(); err != nil {
			return &CorruptChainError{Index: i, Reason: fmt.Sprintf("tx %d", j), Err: err}
		}
	}

	return nil
}
