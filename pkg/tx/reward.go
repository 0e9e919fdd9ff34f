package tx

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultMiningReward int64 = 690
	DefaultUploadReward int64 = 100
)

// Mining is credited when the game client reports a mined block
type Mining struct {
	BlocksMined int64 `json:"blocksMined" msgpack:"b"`
	Score       int64 `json:"score" msgpack:"s"`
}

// FileUpload is credited once per stored file. ContentHash is the hex
// sha256 of the file contents.
type FileUpload struct {
	Filename    string `json:"filename" msgpack:"f"`
	ContentHash string `json:"hash" msgpack:"h"`
}

// Rewards holds the amounts credited per transaction kind.
type Rewards struct {
	Mining int64
	Upload int64
}

var DefaultRewards = Rewards{
	Mining: DefaultMiningReward,
	Upload: DefaultUploadReward,
}

// NewMining credits r.Mining per block mined. A product that does not fit
// in an int64 is an invalid transaction.
func (r Rewards) NewMining(address string, blocksMined, score int64) (*Tx, error) {
	if r.Mining > 0 && blocksMined > math.MaxInt64/r.Mining {
		return nil, errors.Wrapf(ErrInvalidTransaction, "reward for %d blocks overflows", blocksMined)
	}

	return &Tx{
		Version: Version1,
		Type:    TxType_Mining,
		Address: address,
		Amount:  r.Mining * blocksMined,
		Ts:      time.Now().UnixMilli(),
		Data: &Mining{
			BlocksMined: blocksMined,
			Score:       score,
		},
	}, nil
}

func (r Rewards) NewFileUpload(address, filename, contentHash string) *Tx {
	return &Tx{
		Version: Version1,
		Type:    TxType_FileUpload,
		Address: address,
		Amount:  r.Upload,
		Ts:      time.Now().UnixMilli(),
		Data: &FileUpload{
			Filename:    filename,
			ContentHash: contentHash,
		},
	}
}

func NewMining(address string, blocksMined, score int64) (*Tx, error) {
	return DefaultRewards.NewMining(address, blocksMined, score)
}

func NewFileUpload(address, filename, contentHash string) *Tx {
	return DefaultRewards.NewFileUpload(address, filename, contentHash)
}
