package pebble

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/eigerco/fraudledger/pkg/db"
)

var _ db.KVStore = (*KVStore)(nil)

// Options configures a KVStore. The zero value opens an in-memory store.
type Options struct {
	// Path of the on-disk database. Empty means in-memory.
	Path string
	// CacheSize is the block cache size in bytes.
	CacheSize int64
	// MemTableSize is the size of a single memtable in bytes.
	MemTableSize uint64
}

// KVStore is a db.KVStore backed by a pebble database.
type KVStore struct {
	db     *pebble.DB
	mu     sync.RWMutex
	closed bool
}

// NewKVStore opens a store. Without options it is backed by an in-memory
// filesystem, which is what the tests use.
func NewKVStore(opts ...Options) (*KVStore, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.CacheSize == 0 {
		o.CacheSize = 64 << 20
	}
	if o.MemTableSize == 0 {
		o.MemTableSize = 32 << 20
	}

	cache := pebble.NewCache(o.CacheSize)
	defer cache.Unref()

	pebbleOpts := &pebble.Options{
		Cache:        cache,
		MemTableSize: o.MemTableSize,
	}
	path := o.Path
	if path == "" {
		pebbleOpts.FS = vfs.NewMem()
		path = "mem"
	}

	pdb, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, err
	}
	return &KVStore{db: pdb}, nil
}

func (p *KVStore) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close() //nolint:errcheck

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Has(key []byte) (bool, error) {
	_, err := p.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (p *KVStore) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *KVStore) Delete(key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
