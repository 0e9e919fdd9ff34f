package api

import (
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
	"github.com/tcfw/cognitechain/pkg/tx"
)

type RecordRequest struct {
	Tx tx.Tx `msgpack:"tx"`
}

type RecordResponse struct {
	Index uint64 `msgpack:"index"`
	Hash  string `msgpack:"hash"`
	Nonce uint64 `msgpack:"nonce"`
}

type BalancesRequest struct{}

type BalancesResponse struct {
	Balances map[string]int64 `msgpack:"balances"`
}

type ChainRequest struct {
	// From skips blocks below this index
	From uint64 `msgpack:"from"`
}

type ChainResponse struct {
	Blocks chain.Chain `msgpack:"blocks"`
}

type HistoryRequest struct {
	Address string `msgpack:"address"`
}

type HistoryResponse struct {
	Entries []storage.HistoryEntry `msgpack:"entries"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Height      uint64 `msgpack:"height" json:"height"`
	Tip         string `msgpack:"tip" json:"tip"`
	Difficulty  int    `msgpack:"difficulty" json:"difficulty"`
	VerifyError string `msgpack:"verifyError" json:"verifyError,omitempty"`
}
