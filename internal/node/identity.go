package node

import (
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

const addressKeySize = 32

// NewDisplayAddress derives an opaque payee address from fresh key material
// the same way the game client shortens its local key.
func NewDisplayAddress(r io.Reader) (string, error) {
	k := make([]byte, addressKeySize)
	if _, err := io.ReadFull(r, k); err != nil {
		return "", errors.Wrap(err, "generating key material")
	}

	h := hex.EncodeToString(k)

	return h[:16] + "..." + h[len(h)-8:], nil
}
