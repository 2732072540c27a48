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

// Package memstore is an in-process Store backend used by unit tests and
// by the "memory" DBType for ephemeral nodes (e.g. bootstrap smoke tests).
// A write Txn holds the store's lock exclusively until Commit or Abort,
// so read Txns wait for it rather than reading a snapshot alongside it.
package memstore

import (
	"sort"
	"sync"

	"github.com/nanocurrency/nano-node-sub005/store"
)

type memStore struct {
	mu     sync.RWMutex
	tables map[store.Table]map[string][]byte
}

// New returns a fresh, empty in-memory Store.
func New() store.Store {
	m := &memStore{tables: make(map[store.Table]map[string][]byte)}
	for _, t := range store.AllTables {
		m.tables[t] = make(map[string][]byte)
	}
	return m
}

type memTxn struct {
	s        *memStore
	writable bool
	done     bool
	// overlay buffers pending writes until Commit; nil entries mark a
	// pending delete.
	overlay map[store.Table]map[string][]byte
}

func (m *memStore) Begin(writable bool) (store.Txn, error) {
	if writable {
		m.mu.Lock()
	} else {
		m.mu.RLock()
	}
	t := &memTxn{s: m, writable: writable}
	if writable {
		t.overlay = make(map[store.Table]map[string][]byte)
	}
	return t, nil
}

func (m *memStore) View(fn func(store.Txn) error) error {
	txn, err := m.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Abort()
	return fn(txn)
}

func (m *memStore) Update(fn func(store.Txn) error) error {
	txn, err := m.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		txn.Abort()
		return err
	}
	return txn.Commit()
}

func (m *memStore) Close() error { return nil }

func (t *memTxn) Writable() bool { return t.writable }

func (t *memTxn) Get(table store.Table, key []byte) ([]byte, error) {
	if t.writable {
		if ov, ok := t.overlay[table]; ok {
			if v, ok := ov[string(key)]; ok {
				if v == nil {
					return nil, store.ErrNotFound
				}
				return append([]byte(nil), v...), nil
			}
		}
	}
	v, ok := t.s.tables[table][string(key)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (t *memTxn) Has(table store.Table, key []byte) (bool, error) {
	_, err := t.Get(table, key)
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *memTxn) Put(table store.Table, key, value []byte) error {
	if !t.writable {
		return store.ErrNotFound
	}
	ov, ok := t.overlay[table]
	if !ok {
		ov = make(map[string][]byte)
		t.overlay[table] = ov
	}
	ov[string(key)] = append([]byte(nil), value...)
	return nil
}

func (t *memTxn) Delete(table store.Table, key []byte) error {
	if !t.writable {
		return store.ErrNotFound
	}
	ov, ok := t.overlay[table]
	if !ok {
		ov = make(map[string][]byte)
		t.overlay[table] = ov
	}
	ov[string(key)] = nil
	return nil
}

func (t *memTxn) Commit() error {
	if t.done || !t.writable {
		return nil
	}
	t.done = true
	defer t.s.mu.Unlock()
	for table, ov := range t.overlay {
		dst := t.s.tables[table]
		for k, v := range ov {
			if v == nil {
				delete(dst, k)
			} else {
				dst[k] = v
			}
		}
	}
	return nil
}

func (t *memTxn) Abort() {
	if t.done {
		return
	}
	t.done = true
	if t.writable {
		t.s.mu.Unlock()
	} else {
		t.s.mu.RUnlock()
	}
}

type memCursor struct {
	keys []string
	vals [][]byte
	pos  int
}

func (t *memTxn) NewCursor(table store.Table) store.Cursor {
	base := t.s.tables[table]
	keys := make([]string, 0, len(base))
	for k := range base {
		keys = append(keys, k)
	}
	if t.writable {
		if ov, ok := t.overlay[table]; ok {
			seen := make(map[string]bool, len(keys))
			for _, k := range keys {
				seen[k] = true
			}
			for k, v := range ov {
				if v == nil {
					continue
				}
				if !seen[k] {
					keys = append(keys, k)
				}
			}
		}
	}
	sort.Strings(keys)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		if t.writable {
			if ov, ok := t.overlay[table]; ok {
				if v, ok := ov[k]; ok {
					if v == nil {
						continue
					}
					vals[i] = v
					continue
				}
			}
		}
		vals[i] = base[k]
	}
	return &memCursor{keys: keys, vals: vals, pos: -1}
}

func (c *memCursor) Seek(key []byte) bool {
	target := string(key)
	idx := sort.SearchStrings(c.keys, target)
	if idx >= len(c.keys) {
		c.pos = len(c.keys)
		return false
	}
	c.pos = idx
	return true
}

func (c *memCursor) Next() bool {
	if c.pos+1 >= len(c.keys) {
		c.pos = len(c.keys)
		return false
	}
	c.pos++
	return true
}

func (c *memCursor) Key() []byte {
	if c.pos < 0 || c.pos >= len(c.keys) {
		return nil
	}
	return []byte(c.keys[c.pos])
}

func (c *memCursor) Value() []byte {
	if c.pos < 0 || c.pos >= len(c.keys) {
		return nil
	}
	return c.vals[c.pos]
}

func (c *memCursor) Close() {}
