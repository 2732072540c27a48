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

// Package badgerstore is the alternate on-disk Store backend (L1),
// selected by config.DBType == "badger". Badger's own transactions map
// directly onto the read/write Txn abstraction, unlike the leveldb
// backend which has to borrow goleveldb's lower-level Transaction type.
package badgerstore

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/store"
)

var logger = log.NewModuleLogger(log.Store)

const (
	gcThreshold    = int64(1 << 30)
	gcTickInterval = time.Minute
)

type badgerStore struct {
	db       *badger.DB
	gcTicker *time.Ticker
	stopGC   chan struct{}
}

// Open opens (or creates) a badger-backed Store at dir.
func Open(dir string) (store.Store, error) {
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, fmt.Errorf("badgerstore: %s is not a directory", dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("badgerstore: mkdir %s: %w", dir, err)
		}
	} else {
		return nil, err
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %s: %w", dir, err)
	}

	bs := &badgerStore{db: db, gcTicker: time.NewTicker(gcTickInterval), stopGC: make(chan struct{})}
	go bs.runValueLogGC()
	return bs, nil
}

func (s *badgerStore) runValueLogGC() {
	_, lastSize := s.db.Size()
	for {
		select {
		case <-s.gcTicker.C:
			_, size := s.db.Size()
			if size-lastSize < gcThreshold {
				continue
			}
			if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				logger.Warn("value log gc failed", "err", err)
			}
			lastSize = size
		case <-s.stopGC:
			return
		}
	}
}

func (s *badgerStore) Close() error {
	close(s.stopGC)
	s.gcTicker.Stop()
	return s.db.Close()
}

func tableKey(table store.Table, key []byte) []byte {
	out := make([]byte, 0, len(table)+1+len(key))
	out = append(out, table...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

type txn struct {
	s        *badgerStore
	writable bool
	t        *badger.Txn
	done     bool
}

func (s *badgerStore) Begin(writable bool) (store.Txn, error) {
	return &txn{s: s, writable: writable, t: s.db.NewTransaction(writable)}, nil
}

func (s *badgerStore) View(fn func(store.Txn) error) error {
	t, err := s.Begin(false)
	if err != nil {
		return err
	}
	defer t.Abort()
	return fn(t)
}

func (s *badgerStore) Update(fn func(store.Txn) error) error {
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
	item, err := t.t.Get(tableKey(table, key))
	if err == badger.ErrKeyNotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.Value()
}

func (t *txn) Has(table store.Table, key []byte) (bool, error) {
	_, err := t.t.Get(tableKey(table, key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *txn) Put(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrNotFound
	}
	return t.t.Set(tableKey(table, key), value)
}

func (t *txn) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrNotFound
	}
	return t.t.Delete(tableKey(table, key))
}

func (t *txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.t.Commit()
}

func (t *txn) Abort() {
	if t.done {
		return
	}
	t.done = true
	t.t.Discard()
}

type cursor struct {
	it     *badger.Iterator
	prefix []byte
	primed bool
}

func (t *txn) NewCursor(table store.Table) store.Cursor {
	prefix := append([]byte(table), ':')
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.t.NewIterator(opts)
	return &cursor{it: it, prefix: prefix}
}

func (c *cursor) Seek(key []byte) bool {
	c.primed = true
	c.it.Seek(append(append([]byte(nil), c.prefix...), key...))
	return c.it.ValidForPrefix(c.prefix)
}

func (c *cursor) Next() bool {
	if !c.primed {
		c.primed = true
		c.it.Rewind()
	} else {
		c.it.Next()
	}
	return c.it.ValidForPrefix(c.prefix)
}

func (c *cursor) Key() []byte {
	k := c.it.Item().Key()
	if len(k) < len(c.prefix) {
		return nil
	}
	return k[len(c.prefix):]
}

func (c *cursor) Value() []byte {
	v, err := c.it.Item().Value()
	if err != nil {
		return nil
	}
	return v
}

func (c *cursor) Close() { c.it.Close() }
