package storage

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/storage"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ storage.Index = (*PebbleIndex)(nil)
)

const (
	cacheSize = 1 << 20 * 16

	tableSep byte = ':'
)

type metadataKeyType byte

const (
	heightTPrefix metadataKeyType = iota + 1
	balanceTPrefix
	blockTxTPrefix
	bloomTPrefix
)

// indexedTx is the per block record History filters by address
type indexedTx struct {
	Address string               `msgpack:"a"`
	Entry   storage.HistoryEntry `msgpack:"e"`
}

// PebbleIndex keeps balances, per block tx summaries and per block address
// blooms in a pebble database. Everything in it can be rebuilt from the
// chain file.
type PebbleIndex struct {
	db *pebble.DB
	mu sync.Mutex
}

func NewPebbleIndex(path string) (*PebbleIndex, error) {
	c := pebble.NewCache(cacheSize)
	tc := pebble.NewTableCache(c, 16, 100)
	defer tc.Unref()
	defer c.Unref()

	db, err := pebble.Open(path, &pebble.Options{Cache: c, TableCache: tc})
	if err != nil {
		return nil, errors.Wrap(err, "opening index db")
	}

	return &PebbleIndex{db: db}, nil
}

func (s *PebbleIndex) Head(_ context.Context) (uint64, string, error) {
	return s.head()
}

// head decodes the height record: big endian block count followed by the
// hash of the last indexed block
func (s *PebbleIndex) head() (uint64, string, error) {
	d, done, err := s.db.Get(typedKey(heightTPrefix))
	if err != nil {
		if err == pebble.ErrNotFound {
			return 0, "", nil
		}
		return 0, "", errors.Wrap(err, "getting index height")
	}
	defer done.Close()

	if len(d) < 8 {
		return 0, "", errors.New("malformed index height")
	}

	return binary.BigEndian.Uint64(d[:8]), string(d[8:]), nil
}

func (s *PebbleIndex) ApplyBlock(_ context.Context, b *chain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, _, err := s.head()
	if err != nil {
		return err
	}

	if b.Index != h {
		return errors.Wrapf(storage.ErrOutOfOrder, "expected block %d, got %d", h, b.Index)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := s.indexBlock(batch, b, s.balance); err != nil {
		return err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "applying index batch")
	}

	return nil
}

// indexBlock writes b into batch. lookup returns the balance an address
// held before b.
func (s *PebbleIndex) indexBlock(batch *pebble.Batch, b *chain.Block, lookup func(string) (int64, error)) error {
	entries := make([]indexedTx, 0, len(b.Transactions))
	balances := map[string]int64{}

	for i, t := range b.Transactions {
		if _, ok := balances[t.Address]; !ok {
			bal, err := lookup(t.Address)
			if err != nil {
				return err
			}
			balances[t.Address] = bal
		}

		entries = append(entries, indexedTx{Address: t.Address, Entry: storage.NewHistoryEntry(b, i)})
	}

	if err := chain.Credit(balances, b.Transactions); err != nil {
		return errors.Wrapf(err, "indexing block %d", b.Index)
	}

	for addr, bal := range balances {
		d, err := msgpack.Marshal(bal)
		if err != nil {
			return errors.Wrap(err, "encoding balance")
		}
		if err := batch.Set(typedKey(balanceTPrefix, []byte(addr)), d, nil); err != nil {
			return errors.Wrap(err, "setting balance")
		}
	}

	d, err := msgpack.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encoding block txs")
	}
	if err := batch.Set(typedKey(blockTxTPrefix, heightKey(b.Index)), d, nil); err != nil {
		return errors.Wrap(err, "setting block txs")
	}

	bf, err := storage.MakeBloom(b)
	if err != nil {
		return errors.Wrap(err, "building address bloom")
	}
	if err := batch.Set(typedKey(bloomTPrefix, heightKey(b.Index)), bf, nil); err != nil {
		return errors.Wrap(err, "setting address bloom")
	}

	head := append(heightKey(b.Index+1), b.Hash...)
	if err := batch.Set(typedKey(heightTPrefix), head, nil); err != nil {
		return errors.Wrap(err, "setting index height")
	}

	return nil
}

func (s *PebbleIndex) balance(address string) (int64, error) {
	d, done, err := s.db.Get(typedKey(balanceTPrefix, []byte(address)))
	if err != nil {
		if err == pebble.ErrNotFound {
			return 0, nil
		}
		return 0, errors.Wrap(err, "getting balance")
	}
	defer done.Close()

	var bal int64
	if err := msgpack.Unmarshal(d, &bal); err != nil {
		return 0, errors.Wrap(err, "decoding balance")
	}

	return bal, nil
}

// Rebuild drops every indexed record and replays c in a single batch
func (s *PebbleIndex) Rebuild(_ context.Context, c chain.Chain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, p := range []metadataKeyType{heightTPrefix, balanceTPrefix, blockTxTPrefix, bloomTPrefix} {
		if err := batch.DeleteRange([]byte{byte(p)}, []byte{byte(p) + 1}, nil); err != nil {
			return errors.Wrap(err, "clearing index")
		}
	}

	balances := map[string]int64{}
	lookup := func(addr string) (int64, error) {
		return balances[addr], nil
	}

	for i := range c {
		b := &c[i]
		if b.Index != uint64(i) {
			return errors.Wrapf(storage.ErrOutOfOrder, "expected block %d, got %d", i, b.Index)
		}

		if err := s.indexBlock(batch, b, lookup); err != nil {
			return err
		}

		if err := chain.Credit(balances, b.Transactions); err != nil {
			return err
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "committing rebuilt index")
	}

	return nil
}

func (s *PebbleIndex) Balances(_ context.Context) (map[string]int64, error) {
	iter := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{byte(balanceTPrefix)},
		UpperBound: []byte{byte(balanceTPrefix) + 1},
	})
	defer iter.Close()

	balances := map[string]int64{}

	for iter.First(); iter.Valid(); iter.Next() {
		var bal int64
		if err := msgpack.Unmarshal(iter.Value(), &bal); err != nil {
			return nil, errors.Wrap(err, "decoding balance")
		}

		k := iter.Key()
		balances[string(k[2:])] = bal
	}

	return balances, nil
}

// History walks the per block address blooms and only decodes the tx
// summaries of blocks that may reference address.
func (s *PebbleIndex) History(_ context.Context, address string) ([]storage.HistoryEntry, error) {
	iter := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{byte(bloomTPrefix)},
		UpperBound: []byte{byte(bloomTPrefix) + 1},
	})
	defer iter.Close()

	hist := []storage.HistoryEntry{}

	for iter.First(); iter.Valid(); iter.Next() {
		ok, err := storage.BloomContains(iter.Value(), address)
		if err != nil {
			return nil, errors.Wrap(err, "decoding address bloom")
		}
		if !ok {
			continue
		}

		k := iter.Key()
		entries, err := s.blockTxs(k[2:])
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if e.Address == address {
				hist = append(hist, e.Entry)
			}
		}
	}

	if len(hist) == 0 {
		return nil, storage.ErrNotFound
	}

	return hist, nil
}

func (s *PebbleIndex) blockTxs(hk []byte) ([]indexedTx, error) {
	d, done, err := s.db.Get(typedKey(blockTxTPrefix, hk))
	if err != nil {
		return nil, errors.Wrap(err, "getting block txs")
	}
	defer done.Close()

	entries := []indexedTx{}
	if err := msgpack.Unmarshal(d, &entries); err != nil {
		return nil, errors.Wrap(err, "decoding block txs")
	}

	return entries, nil
}

func (s *PebbleIndex) Stop() error {
	return s.db.Close()
}

func heightKey(h uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, h)
	return k
}

// typedKey builds prefix[:part] keys. Heights are big endian so keys
// iterate in block order.
func typedKey(kType metadataKeyType, part ...[]byte) []byte {
	k := []byte{byte(kType)}
	for _, p := range part {
		k = append(k, tableSep)
		k = append(k, p...)
	}

	return k
}
