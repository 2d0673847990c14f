package boltdb

import (
	"errors"
	"os"

	"github.com/boltdb/bolt"
	"github.com/tiglabs/cellgraph/kernel/store/kvstore"
)

var _ kvstore.KVStore = &Store{}

type StoreConfig struct {
	Path     string
	Bucket   string
	NoSync   bool
	ReadOnly bool
}

type Store struct {
	path   string
	bucket []byte
	db     *bolt.DB
}

func New(config *StoreConfig) (kvstore.KVStore, error) {
	if config == nil {
		return nil, errors.New("must provide config")
	}
	if config.Path == "" {
		return nil, os.ErrInvalid
	}
	bucket := config.Bucket
	if bucket == "" {
		bucket = "cells"
	}

	bo := &bolt.Options{}
	bo.ReadOnly = config.ReadOnly

	db, err := bolt.Open(config.Path, 0600, bo)
	if err != nil {
		return nil, err
	}
	db.NoSync = config.NoSync

	if !bo.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists([]byte(bucket))
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	rv := Store{
		path:   config.Path,
		bucket: []byte(bucket),
		db:     db,
	}
	return &rv, nil
}

func (bs *Store) Get(key []byte) (value []byte, err error) {
	if bs == nil {
		return nil, nil
	}
	err = bs.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		v := b.Get(key)
		if v != nil {
			value = cloneBytes(v)
		}
		return nil
	})
	return
}

func (bs *Store) Put(key []byte, value []byte) error {
	if bs == nil {
		return nil
	}
	return bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).Put(key, value)
	})
}

func (bs *Store) Delete(key []byte) error {
	if bs == nil {
		return nil
	}
	return bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).Delete(key)
	})
}

func (bs *Store) MultiGet(keys [][]byte) ([][]byte, error) {
	if bs == nil {
		return nil, nil
	}
	snap, err := bs.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Close()
	return snap.MultiGet(keys)
}

func (bs *Store) GetSnapshot() (kvstore.Snapshot, error) {
	tx, err := bs.db.Begin(false)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		tx:     tx,
		bucket: tx.Bucket(bs.bucket),
	}, nil
}

func (bs *Store) PrefixIterator(prefix []byte) kvstore.KVIterator {
	tx, err := bs.db.Begin(false)
	if err != nil {
		return nil
	}
	rv := &Iterator{
		tx:     tx,
		cursor: tx.Bucket(bs.bucket).Cursor(),
		prefix: prefix,
	}
	rv.Seek(prefix)
	return rv
}

func (bs *Store) Close() error {
	if bs == nil {
		return nil
	}
	return bs.db.Close()
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
