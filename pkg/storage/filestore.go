package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/tcfw/cognitechain/pkg/chain"
)

const (
	DefaultWriteRetries = 3

	filePerm = 0600
	dirPerm  = 0700
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the chain as a single JSON array. Every save rewrites
// the whole file through a temp file and rename.
type FileStore struct {
	path    string
	retries int
	backoff backoff.Backoff

	mu sync.Mutex
}

func NewFileStore(path string, retries int) *FileStore {
	if retries < 1 {
		retries = 1
	}

	return &FileStore{
		path:    path,
		retries: retries,
		backoff: backoff.Backoff{
			Min:    20 * time.Millisecond,
			Max:    500 * time.Millisecond,
			Factor: 2,
		},
	}
}

func (fs *FileStore) Path() string {
	return fs.path
}

// Load reads the chain file, creating an empty chain file when none exists
func (fs *FileStore) Load(ctx context.Context) (chain.Chain, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), dirPerm); err != nil {
		return nil, &PersistenceError{Op: "load", Path: fs.path, Err: errors.Wrap(err, "creating chain dir")}
	}

	d, err := ioutil.ReadFile(fs.path)
	if os.IsNotExist(err) {
		c := chain.Chain{}
		if err := fs.write(c); err != nil {
			return nil, err
		}
		return c, nil
	} else if err != nil {
		return nil, &PersistenceError{Op: "load", Path: fs.path, Err: errors.Wrap(err, "reading chain file")}
	}

	c := chain.Chain{}
	if len(bytes.TrimSpace(d)) == 0 {
		return c, nil
	}

	if err := json.Unmarshal(d, &c); err != nil {
		return nil, &chain.CorruptChainError{Index: -1, Reason: "decoding " + fs.path, Err: err}
	}

	return c, nil
}

func (fs *FileStore) Save(ctx context.Context, c chain.Chain) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	bo := fs.backoff
	var err error

	for attempt := 0; attempt < fs.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(ctx.Err(), "waiting to retry write")}
			case <-time.After(bo.Duration()):
			}
		}

		err = fs.write(c)

		var pErr *PersistenceError
		if err == nil || (errors.As(err, &pErr) && pErr.Committed) {
			return err
		}
	}

	return err
}

// write assumes fs.mu is held
func (fs *FileStore) write(c chain.Chain) error {
	if c == nil {
		c = chain.Chain{}
	}

	d, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(err, "marshalling chain")}
	}

	dir := filepath.Dir(fs.path)

	f, err := ioutil.TempFile(dir, filepath.Base(fs.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(err, "opening temp chain file")}
	}
	tmp := f.Name()

	if _, err := f.Write(d); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(err, "writing temp chain file")}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(err, "syncing temp chain file")}
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(err, "closing temp chain file")}
	}

	if err := os.Chmod(tmp, filePerm); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(err, "setting chain file mode")}
	}

	if err := os.Rename(tmp, fs.path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: fs.path, Err: errors.Wrap(err, "replacing chain file")}
	}

	if err := syncDir(dir); err != nil {
		return &PersistenceError{Op: "save", Path: fs.path, Committed: true, Err: errors.Wrap(err, "syncing chain dir")}
	}

	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Sync()
}
