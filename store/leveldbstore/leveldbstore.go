// Copyright 2026 The nanod Authors
// This file is part of the nanod library.
//
// The nanod library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The nanod library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the nanod library. If not, see <http://www.gnu.org/licenses/>.

// Package leveldbstore is the default on-disk Store backend (L1),
// multiplexing every named table into one goleveldb database via a key
// prefix and using goleveldb's native transaction/snapshot support for
// the read/write transaction abstraction.
package leveldbstore

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/store"
)

var logger = log.NewModuleLogger(log.Store)

type levelStore struct {
	db *leveldb.DB

	// writeMu serializes write transactions; goleveldb transactions
	// already exclude each other but we want Begin(true) to block rather
	// than fail when a writer is already open, matching the ledger's
	// single-writer model.
	writeMu sync.Mutex
}

// Open opens (or creates) a leveldb-backed Store at dir.
func Open(dir string, cacheSizeMB, handles int) (store.Store, error) {
	if cacheSizeMB < 16 {
		cacheSizeMB = 16
	}
	if handles < 16 {
		handles = 16
	}
	opts := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(dir, opts)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		logger.Warn("Recovering corrupted leveldb", "dir", dir)
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, err
	}
	return &levelStore{db: db}, nil
}

func tableKey(table store.Table, key []byte) []byte {
	out := make([]byte, 0, len(table)+1+len(key))
	out = append(out, table...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

func (s *levelStore) Close() error {
	return s.db.Close()
}

// txn adapts either a *leveldb.Transaction (writable) or a
// *leveldb.Snapshot (read-only) to the store.Txn interface.
type txn struct {
	s        *levelStore
	writable bool
	wtxn     *leveldb.Transaction
	snap     *leveldb.Snapshot
	done     bool
}

func (s *levelStore) Begin(writable bool) (store.Txn, error) {
	if writable {
		s.writeMu.Lock()
		wt, err := s.db.OpenTransaction()
		if err != nil {
			s.writeMu.Unlock()
			return nil, err
		}
		return &txn{s: s, writable: true, wtxn: wt}, nil
	}
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &txn{s: s, writable: false, snap: snap}, nil
}

func (s *levelStore) View(fn func(store.Txn) error) error {
	t, err := s.Begin(false)
	if err != nil {
		return err
	}
	defer t.Abort()
	return fn(t)
}

func (s *levelStore) Update(fn func(store.Txn) error) error {
	t, err := s.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		t.Abort()
		return err
	}
	return t.Commit()
}

func (t *txn) Writable() bool { return t.writable }

func (t *txn) Get(table store.Table, key []byte) ([]byte, error) {
	k := tableKey(table, key)
	var (
		v   []byte
		err error
	)
	if t.writable {
		v, err = t.wtxn.Get(k, nil)
	} else {
		v, err = t.snap.Get(k, nil)
	}
	if err == leveldb.ErrNotFound {
		return nil, store.ErrNotFound
	}
	return v, err
}

func (t *txn) Has(table store.Table, key []byte) (bool, error) {
	k := tableKey(table, key)
	if t.writable {
		return t.wtxn.Has(k, nil)
	}
	return t.snap.Has(k, nil)
}

func (t *txn) Put(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrNotFound
	}
	return t.wtxn.Put(tableKey(table, key), value, nil)
}

func (t *txn) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrNotFound
	}
	return t.wtxn.Delete(tableKey(table, key), nil)
}

func (t *txn) Commit() error {
	if t.done || !t.writable {
		return nil
	}
	t.done = true
	defer t.s.writeMu.Unlock()
	return t.wtxn.Commit()
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	if t.writable {
		t.wtxn.Discard()
		t.s.writeMu.Unlock()
		return
	}
	t.snap.Release()
}

type cursor struct {
	it     iterator.Iterator
	prefix []byte
	primed bool
}

func (t *txn) NewCursor(table store.Table) store.Cursor {
	prefix := append([]byte(table), ':')
	var it iterator.Iterator
	r := util.BytesPrefix(prefix)
	if t.writable {
		it = t.wtxn.NewIterator(r, nil)
	} else {
		it = t.snap.NewIterator(r, nil)
	}
	return &cursor{it: it, prefix: prefix}
}

func (c *cursor) Seek(key []byte) bool {
	c.primed = true
	return c.it.Seek(append(append([]byte(nil), c.prefix...), key...))
}

func (c *cursor) Next() bool {
	if !c.primed {
		c.primed = true
		return c.it.First()
	}
	return c.it.Next()
}

func (c *cursor) Key() []byte {
	k := c.it.Key()
	if len(k) < len(c.prefix) {
		return nil
	}
	return k[len(c.prefix):]
}

func (c *cursor) Value() []byte { return c.it.Value() }

func (c *cursor) Close() { c.it.Release() }
