package boltdb

import (
	"bytes"

	"github.com/boltdb/bolt"
)

// Iterator walks keys in order. When tx is set the iterator owns the
// transaction and rolls it back on Close.
type Iterator struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	prefix []byte
	key    []byte
	value  []byte
	valid  bool
}

func (i *Iterator) Seek(k []byte) {
	if bytes.Compare(k, i.prefix) < 0 {
		k = i.prefix
	}
	i.key, i.value = i.cursor.Seek(k)
	i.refresh()
}

func (i *Iterator) Next() {
	i.key, i.value = i.cursor.Next()
	i.refresh()
}

func (i *Iterator) refresh() {
	i.valid = i.key != nil && bytes.HasPrefix(i.key, i.prefix)
	if !i.valid {
		i.key = nil
		i.value = nil
	}
}

func (i *Iterator) Key() []byte {
	if !i.valid {
		return nil
	}
	return i.key
}

func (i *Iterator) Value() []byte {
	if !i.valid {
		return nil
	}
	return i.value
}

func (i *Iterator) Valid() bool {
	return i.valid
}

func (i *Iterator) Current() ([]byte, []byte, bool) {
	return i.Key(), i.Value(), i.valid
}

func (i *Iterator) Close() error {
	if i.tx != nil {
		return i.tx.Rollback()
	}
	return nil
}
