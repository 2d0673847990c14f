package btreedb

import (
	"bytes"
	"errors"
	"sync"

	"github.com/google/btree"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
)

var _ kvstore.KVStore = &Store{}

// ErrStoreClosed is returned for operations against a closed store.
var ErrStoreClosed = errors.New("btreedb store closed")

type dbItem struct {
	key   []byte
	value []byte
}

func (dbi *dbItem) Less(item btree.Item) bool {
	return bytes.Compare(dbi.key, item.(*dbItem).key) < 0
}

type StoreConfig struct {
	Degree int
}

var DefaultConfig = &StoreConfig{Degree: 32}

// Store is a purely in-memory engine backed by a copy-on-write btree.
// Snapshots are O(1) btree clones.
type Store struct {
	mu     sync.RWMutex
	keys   *btree.BTree
	closed bool
}

func New(config *StoreConfig) (kvstore.KVStore, error) {
	if config == nil {
		config = DefaultConfig
	}
	if config.Degree < 2 {
		return nil, errors.New("invalid btree degree")
	}
	return &Store{keys: btree.New(config.Degree)}, nil
}

func (ms *Store) Put(key, value []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	ms.keys.ReplaceOrInsert(&dbItem{key: cloneBytes(key), value: cloneBytes(value)})
	return nil
}

func (ms *Store) Get(key []byte) ([]byte, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.closed {
		return nil, ErrStoreClosed
	}
	item := ms.keys.Get(&dbItem{key: key})
	if item == nil {
		return nil, nil
	}
	return cloneBytes(item.(*dbItem).value), nil
}

func (ms *Store) Delete(key []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.closed {
		return ErrStoreClosed
	}
	ms.keys.Delete(&dbItem{key: key})
	return nil
}

func (ms *Store) MultiGet(keys [][]byte) ([][]byte, error) {
	snap, err := ms.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Close()
	return snap.MultiGet(keys)
}

func (ms *Store) GetSnapshot() (kvstore.Snapshot, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.closed {
		return nil, ErrStoreClosed
	}
	return &Snapshot{keys: ms.keys.Clone()}, nil
}

func (ms *Store) PrefixIterator(prefix []byte) kvstore.KVIterator {
	snap, err := ms.GetSnapshot()
	if err != nil {
		return nil
	}
	return snap.PrefixIterator(prefix)
}

func (ms *Store) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.closed = true
	ms.keys = nil
	return nil
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

// Snapshot reads from a cloned tree, isolated from later writes.
type Snapshot struct {
	keys *btree.BTree
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	item := s.keys.Get(&dbItem{key: key})
	if item == nil {
		return nil, nil
	}
	return cloneBytes(item.(*dbItem).value), nil
}

func (s *Snapshot) MultiGet(keys [][]byte) ([][]byte, error) {
	return kvstore.MultiGet(s, keys)
}

func (s *Snapshot) PrefixIterator(prefix []byte) kvstore.KVIterator {
	rv := &Iterator{keys: s.keys, prefix: prefix}
	rv.Seek(prefix)
	return rv
}

func (s *Snapshot) Close() error {
	s.keys = nil
	return nil
}

// Iterator materializes the prefix range from the cloned tree on Seek.
type Iterator struct {
	keys    *btree.BTree
	prefix  []byte
	items   []*dbItem
	current int
}

func (i *Iterator) Seek(key []byte) {
	if bytes.Compare(key, i.prefix) < 0 {
		key = i.prefix
	}
	i.items = i.items[:0]
	i.current = 0
	i.keys.AscendGreaterOrEqual(&dbItem{key: key}, func(item btree.Item) bool {
		dbi := item.(*dbItem)
		if !bytes.HasPrefix(dbi.key, i.prefix) {
			return false
		}
		i.items = append(i.items, dbi)
		return true
	})
}

func (i *Iterator) Next() {
	i.current++
}

func (i *Iterator) Key() []byte {
	if !i.Valid() {
		return nil
	}
	return i.items[i.current].key
}

func (i *Iterator) Value() []byte {
	if !i.Valid() {
		return nil
	}
	return i.items[i.current].value
}

func (i *Iterator) Valid() bool {
	return i.current < len(i.items)
}

func (i *Iterator) Current() ([]byte, []byte, bool) {
	return i.Key(), i.Value(), i.Valid()
}

func (i *Iterator) Close() error {
	i.items = nil
	return nil
}
