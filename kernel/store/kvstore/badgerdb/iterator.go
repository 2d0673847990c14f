package badgerdb

import (
	"bytes"

	"github.com/dgraph-io/badger"
)

// Iterator walks keys in order. When tx is set the iterator owns the
// transaction and discards it on Close.
type Iterator struct {
	tx     *badger.Txn
	iter   *badger.Iterator
	prefix []byte
	valid  bool
	key    []byte
	value  []byte
}

func (i *Iterator) Seek(key []byte) {
	if bytes.Compare(key, i.prefix) < 0 {
		key = i.prefix
	}
	i.iter.Seek(key)
	i.refresh()
}

func (i *Iterator) Next() {
	i.iter.Next()
	i.refresh()
}

func (i *Iterator) refresh() {
	i.valid = i.iter.ValidForPrefix(i.prefix)
	if !i.valid {
		i.key = nil
		i.value = nil
		return
	}
	item := i.iter.Item()
	i.key = item.KeyCopy(nil)
	v, err := item.ValueCopy(nil)
	if err != nil {
		i.valid = false
		return
	}
	i.value = v
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
	i.iter.Close()
	if i.tx != nil {
		i.tx.Discard()
	}
	return nil
}
