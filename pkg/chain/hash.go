package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/tx"
)

// CalculateHash returns the lowercase hex sha256 of
// index || previousHash || timestamp || json(txs) || nonce
// with integers written in base 10.
func CalculateHash(index uint64, previousHash string, timestamp int64, txs []tx.Tx, nonce uint64) (string, error) {
	txd, err := encodeTxs(txs)
	if err != nil {
		return "", err
	}

	return hashPayload(headerPrefix(index, previousHash, timestamp), txd, nonce), nil
}

func encodeTxs(txs []tx.Tx) ([]byte, error) {
	if txs == nil {
		txs = []tx.Tx{}
	}

	d, err := json.Marshal(txs)
	if err != nil {
		return nil, errors.Wrap(err, "encoding transactions")
	}

	return d, nil
}

func headerPrefix(index uint64, previousHash string, timestamp int64) []byte {
	p := strconv.AppendUint(nil, index, 10)
	p = append(p, previousHash...)
	return strconv.AppendInt(p, timestamp, 10)
}

func hashPayload(prefix, txd []byte, nonce uint64) string {
	h := sha256.New()
	h.Write(prefix)
	h.Write(txd)

	var nb [20]byte
	h.Write(strconv.AppendUint(nb[:0], nonce, 10))

	return hex.EncodeToString(h.Sum(nil))
}
