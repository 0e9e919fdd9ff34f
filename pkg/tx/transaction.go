package tx

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

const (
	Version1 uint8 = 1
)

type TxType string

const (
	TxType_Mining     TxType = "MINING"
	TxType_FileUpload TxType = "FILE_UPLOAD"
)

// Tx is a single reward bearing event. Data holds the variant payload
// and must be a *Mining or *FileUpload matching Type.
type Tx struct {
	Version uint8       `json:"version" msgpack:"v"`
	Type    TxType      `json:"type" msgpack:"T"`
	Address string      `json:"address" msgpack:"a"`
	Amount  int64       `json:"amount" msgpack:"m"`
	Ts      int64       `json:"timestamp" msgpack:"t"`
	Data    interface{} `json:"data" msgpack:"d,noinline"`
}

// wireTx mirrors Tx with the payload left undecoded until the type is known
type wireTx struct {
	Version uint8           `json:"version"`
	Type    TxType          `json:"type"`
	Address string          `json:"address"`
	Amount  json.Number     `json:"amount"`
	Ts      int64           `json:"timestamp"`
	Data    json.RawMessage `json:"data"`
}

type wireMsgpackTx struct {
	Version uint8              `msgpack:"v"`
	Type    TxType             `msgpack:"T"`
	Address string             `msgpack:"a"`
	Amount  int64              `msgpack:"m"`
	Ts      int64              `msgpack:"t"`
	Data    msgpack.RawMessage `msgpack:"d"`
}

func (t *Tx) Marshal() ([]byte, error) {
	b, err := msgpack.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(err, "mashaling tx")
	}

	return b, nil
}

func (t *Tx) Unmarshal(b []byte) error {
	return msgpack.Unmarshal(b, t)
}

func (t *Tx) DecodeMsgpack(dec *msgpack.Decoder) error {
	w := &wireMsgpackTx{}
	if err := dec.Decode(w); err != nil {
		return err
	}

	t.Version = w.Version
	t.Type = w.Type
	t.Address = w.Address
	t.Amount = w.Amount
	t.Ts = w.Ts
	t.Data = nil

	data, err := newData(t.Type)
	if err != nil {
		return err
	}

	if len(w.Data) == 0 || (len(w.Data) == 1 && w.Data[0] == msgpcode.Nil) {
		return nil
	}

	if err := msgpack.Unmarshal(w.Data, data); err != nil {
		return errors.Wrap(err, "decoding tx data")
	}
	t.Data = data

	return nil
}

func (t *Tx) UnmarshalJSON(b []byte) error {
	w := &wireTx{}
	if err := json.Unmarshal(b, w); err != nil {
		return errors.Wrapf(ErrInvalidTransaction, "decoding tx: %s", err)
	}

	amount, err := w.Amount.Int64()
	if w.Amount != "" && err != nil {
		return errors.Wrapf(ErrInvalidTransaction, "amount %q is not an integer", w.Amount)
	}

	t.Version = w.Version
	t.Type = w.Type
	t.Address = w.Address
	t.Amount = amount
	t.Ts = w.Ts
	t.Data = nil

	data, err := newData(t.Type)
	if err != nil {
		return err
	}

	if len(w.Data) == 0 || string(w.Data) == "null" {
		return nil
	}

	if err := json.Unmarshal(w.Data, data); err != nil {
		return errors.Wrapf(ErrInvalidTransaction, "decoding %s data: %s", t.Type, err)
	}
	t.Data = data

	return nil
}

// Copy returns t with its own copy of the variant payload
func (t Tx) Copy() Tx {
	switch d := t.Data.(type) {
	case *Mining:
		if d != nil {
			m := *d
			t.Data = &m
		}
	case *FileUpload:
		if d != nil {
			f := *d
			t.Data = &f
		}
	}

	return t
}

func newData(t TxType) (interface{}, error) {
	switch t {
	case TxType_Mining:
		return &Mining{}, nil
	case TxType_FileUpload:
		return &FileUpload{}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidTransaction, "unknown tx type %q", t)
	}
}
