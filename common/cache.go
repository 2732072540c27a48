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

package common

import "github.com/VictoriaMetrics/fastcache"

// TallySnapshotCache is a fixed-memory, off-heap cache of each election
// root's leading candidate and its tally, refreshed every time an
// election recomputes. It exists so a status query or an RPC handler can
// read an election's current winner without taking the election
// engine's lock: approximate, lock-free, and bounded regardless of how
// many elections are live.
//
// fastcache replaces this file's previous hand-rolled
// LRU/ARC/shard-cache trio: those wrapped golang-lru behind a
// CacheKey/CacheConfiger abstraction this tree never needed more than
// one concrete shape of, and golang-lru is already used directly where
// this tree wants map-of-interfaces LRU semantics (votecache, the block
// processor's dedup filter). fastcache's byte-in/byte-out, shard-free
// API fits a write-heavy, read-heavier, fixed-size-value cache better
// than reimplementing sharding over golang-lru by hand.
type TallySnapshotCache struct {
	c *fastcache.Cache
}

// NewTallySnapshotCache builds a cache bounded to maxBytes of storage.
func NewTallySnapshotCache(maxBytes int) *TallySnapshotCache {
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &TallySnapshotCache{c: fastcache.New(maxBytes)}
}

// Set records root's current leading candidate hash and its tally.
func (t *TallySnapshotCache) Set(root, leader Hash, tally Amount) {
	if t == nil {
		return
	}
	val := make([]byte, 0, HashSize+AmountSize)
	val = append(val, leader.Bytes()...)
	val = append(val, tally[:]...)
	t.c.Set(root.Bytes(), val)
}

// Get returns root's last-cached leading candidate and tally, if any.
func (t *TallySnapshotCache) Get(root Hash) (leader Hash, tally Amount, ok bool) {
	if t == nil {
		return Hash{}, Amount{}, false
	}
	val, found := t.c.HasGet(nil, root.Bytes())
	if !found || len(val) != HashSize+AmountSize {
		return Hash{}, Amount{}, false
	}
	leader = BytesToHash(val[:HashSize])
	tally = BytesToAmount(val[HashSize:])
	return leader, tally, true
}

// Del drops root's cached snapshot, called once an election retires so
// a stale winner never outlives its election.
func (t *TallySnapshotCache) Del(root Hash) {
	if t == nil {
		return
	}
	t.c.Del(root.Bytes())
}

// Reset clears every cached snapshot.
func (t *TallySnapshotCache) Reset() {
	if t == nil {
		return
	}
	t.c.Reset()
}
