package boltdb

import (
	"github.com/boltdb/bolt"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
)

var _ kvstore.Snapshot = &Snapshot{}

// Snapshot is a read-only bolt transaction.
type Snapshot struct {
	tx     *bolt.Tx
	bucket *bolt.Bucket
}

func (s *Snapshot) Get(key []byte) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	var rv []byte
	v := s.bucket.Get(key)
	if v != nil {
		rv = cloneBytes(v)
	}
	return rv, nil
}

func (s *Snapshot) MultiGet(keys [][]byte) ([][]byte, error) {
	return kvstore.MultiGet(s, keys)
}

func (s *Snapshot) PrefixIterator(prefix []byte) kvstore.KVIterator {
	rv := &Iterator{
		// the snapshot owns tx, do not set it here
		cursor: s.bucket.Cursor(),
		prefix: prefix,
	}
	rv.Seek(prefix)
	return rv
}

func (s *Snapshot) Close() error {
	return s.tx.Rollback()
}
