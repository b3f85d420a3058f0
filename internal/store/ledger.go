package store

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/eigerco/fraudledger/internal/record"
	"github.com/eigerco/fraudledger/pkg/db"
	"github.com/eigerco/fraudledger/pkg/db/pebble"
)

const (
	ErrFailedBatchCommit = "failed to commit batch: %w"

	reportCacheSize = 4096
	reportCacheTTL  = 10 * time.Minute
)

var (
	ErrLedgerClosed       = errors.New("ledger store is closed")
	ErrTxDone             = errors.New("transaction already committed or discarded")
	ErrReportNotFound     = errors.New("report not found")
	ErrSettlementNotFound = errors.New("settlement not found")
	ErrDuplicateVote      = errors.New("validator already voted on report")
)

// Ledger is the persistent state of the fraud ledger. All writes go through
// a Tx, which is applied to the underlying KVStore as a single batch.
//
// The report cache is filled only by Commit. Callers must serialize
// transactions that write the same keys; the store does not detect
// conflicting writers.
type Ledger struct {
	db      db.KVStore
	reports *expirable.LRU[uint64, record.Report]
	closed  atomic.Bool
}

// NewLedger creates a ledger store on top of a KVStore
func NewLedger(kv db.KVStore) *Ledger {
	return &Ledger{
		db:      kv,
		reports: expirable.NewLRU[uint64, record.Report](reportCacheSize, nil, reportCacheTTL),
	}
}

// Begin starts a transaction. Transactions are not safe for concurrent use
// and concurrent transactions do not see each other; callers serialize them.
func (l *Ledger) Begin() *Tx {
	return &Tx{
		l:       l,
		writes:  make(map[string]write),
		reports: make(map[uint64]record.Report),
	}
}

// View runs fn in a transaction that is always discarded.
func (l *Ledger) View(fn func(tx *Tx) error) error {
	if l.closed.Load() {
		return ErrLedgerClosed
	}
	tx := l.Begin()
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn in a transaction and commits it if fn succeeds.
func (l *Ledger) Update(fn func(tx *Tx) error) error {
	if l.closed.Load() {
		return ErrLedgerClosed
	}
	tx := l.Begin()
	defer tx.Discard()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the ledger and the underlying KVStore. Closing twice is a no-op.
func (l *Ledger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.reports.Purge()
	return l.db.Close()
}

type write struct {
	value   []byte
	deleted bool
}

// Tx buffers writes in memory and reads its own writes before falling back
// to committed state.
type Tx struct {
	l       *Ledger
	writes  map[string]write
	order   []string
	reports map[uint64]record.Report
	done    bool
}

// Commit applies every write of the transaction atomically.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	if len(tx.order) == 0 {
		return nil
	}
	if tx.l.closed.Load() {
		return ErrLedgerClosed
	}

	batch := tx.l.db.NewBatch()
	defer batch.Close()

	for _, k := range tx.order {
		w := tx.writes[k]
		var err error
		if w.deleted {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Put([]byte(k), w.value)
		}
		if err != nil {
			return fmt.Errorf("stage %s write: %w", PrefixToString(k[0]), err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf(ErrFailedBatchCommit, err)
	}

	for id, r := range tx.reports {
		tx.l.reports.Add(id, r)
	}
	return nil
}

// Discard drops every buffered write. It is a no-op after Commit.
func (tx *Tx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	tx.writes = nil
	tx.order = nil
	tx.reports = nil
}

// Len is the number of keys written by the transaction.
func (tx *Tx) Len() int {
	return len(tx.order)
}

func (tx *Tx) set(key []byte, w write) {
	k := string(key)
	if _, ok := tx.writes[k]; !ok {
		tx.order = append(tx.order, k)
	}
	tx.writes[k] = w
}

func (tx *Tx) put(key, value []byte) {
	tx.set(key, write{value: value})
}

func (tx *Tx) del(key []byte) {
	tx.set(key, write{deleted: true})
}

// get returns pebble.ErrNotFound for absent keys.
func (tx *Tx) get(key []byte) ([]byte, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	if w, ok := tx.writes[string(key)]; ok {
		if w.deleted {
			return nil, pebble.ErrNotFound
		}
		return w.value, nil
	}
	return tx.l.db.Get(key)
}

func (tx *Tx) has(key []byte) (bool, error) {
	_, err := tx.get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// getValue decodes the value at key into v and reports whether it existed.
func (tx *Tx) getValue(key []byte, v any) (bool, error) {
	b, err := tx.get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", PrefixToString(key[0]), err)
	}
	if err := decMode.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", PrefixToString(key[0]), err)
	}
	return true, nil
}

func (tx *Tx) putValue(key []byte, v any) error {
	if tx.done {
		return ErrTxDone
	}
	b, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", PrefixToString(key[0]), err)
	}
	tx.put(key, b)
	return nil
}

func (tx *Tx) getUint64(key []byte) (uint64, error) {
	var v uint64
	if _, err := tx.getValue(key, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (tx *Tx) putUint64(key []byte, v uint64) error {
	return tx.putValue(key, v)
}

// scan visits, in key order, every key with the given prefix as seen by the
// transaction.
func (tx *Tx) scan(prefix []byte, fn func(key, value []byte) error) error {
	return tx.scanRange(prefix, db.PrefixEnd(prefix), fn)
}

func (tx *Tx) scanRange(start, end []byte, fn func(key, value []byte) error) error {
	if tx.done {
		return ErrTxDone
	}
	merged := make(map[string][]byte)

	iter, err := tx.l.db.NewIterator(start, end)
	if err != nil {
		return fmt.Errorf("create iterator: %w", err)
	}
	for iter.Next() {
		v, err := iter.Value()
		if err != nil {
			iter.Close()
			return fmt.Errorf("read iterator value: %w", err)
		}
		merged[string(iter.Key())] = v
	}
	if err := iter.Close(); err != nil {
		return fmt.Errorf("close iterator: %w", err)
	}

	for k, w := range tx.writes {
		kb := []byte(k)
		if bytes.Compare(kb, start) < 0 || (end != nil && bytes.Compare(kb, end) >= 0) {
			continue
		}
		if w.deleted {
			delete(merged, k)
		} else {
			merged[k] = w.value
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}
