package tx

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
)

const contentHashLen = 64

// Validate checks the fields every sealed transaction must carry. The
// returned error always wraps ErrInvalidTransaction.
func (t *Tx) Validate() error {
	if strings.TrimSpace(t.Address) == "" {
		return errors.Wrap(ErrInvalidTransaction, "missing address")
	}

	if t.Amount < 0 {
		return errors.Wrapf(ErrInvalidTransaction, "negative amount %d", t.Amount)
	}

	switch t.Type {
	case TxType_Mining:
		return t.validateMining()
	case TxType_FileUpload:
		return t.validateFileUpload()
	default:
		return errors.Wrapf(ErrInvalidTransaction, "unknown tx type %q", t.Type)
	}
}

func (t *Tx) validateMining() error {
	m, ok := t.Data.(*Mining)
	if !ok || m == nil {
		return errors.Wrapf(ErrInvalidTransaction, "mining tx has %T data", t.Data)
	}

	if m.BlocksMined <= 0 {
		return errors.Wrapf(ErrInvalidTransaction, "blocks mined must be positive, got %d", m.BlocksMined)
	}

	return nil
}

func (t *Tx) validateFileUpload() error {
	f, ok := t.Data.(*FileUpload)
	if !ok || f == nil {
		return errors.Wrapf(ErrInvalidTransaction, "file upload tx has %T data", t.Data)
	}

	if strings.TrimSpace(f.Filename) == "" {
		return errors.Wrap(ErrInvalidTransaction, "missing filename")
	}

	if len(f.ContentHash) != contentHashLen {
		return errors.Wrapf(ErrInvalidTransaction, "content hash must be %d hex chars", contentHashLen)
	}

	if _, err := hex.DecodeString(f.ContentHash); err != nil {
		return errors.Wrap(ErrInvalidTransaction, "content hash is not hex")
	}

	return nil
}
