package badgerdb

import (
	"github.com/dgraph-io/badger"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
)

var _ kvstore.Snapshot = &Snapshot{}

// Snapshot is a read-only badger transaction.
type Snapshot struct {
	tx *badger.Txn
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	item, err := s.tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (s *Snapshot) MultiGet(keys [][]byte) ([][]byte, error) {
	return kvstore.MultiGet(s, keys)
}

func (s *Snapshot) PrefixIterator(prefix []byte) kvstore.KVIterator {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 10
	it := s.tx.NewIterator(opts)
	rv := &Iterator{
		iter:   it,
		prefix: prefix,
	}
	rv.Seek(prefix)
	return rv
}

func (s *Snapshot) Close() error {
	s.tx.Discard()
	return nil
}
