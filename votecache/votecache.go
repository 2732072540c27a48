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

// Package votecache holds votes that arrived before the election they
// apply to existed, so they can be replayed the moment that election
// starts instead of being lost to timing. Entries are kept in an LRU
// keyed by block hash and bounded by a count of distinct hashes; the
// least recently used hash is evicted first. Entries are not ranked by
// stake, and no byte budget is enforced.
package votecache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/log"
)

var logger = log.NewModuleLogger(log.VoteCache)

// Vote is the subset of a received vote this package needs: who cast
// it, at what sequence number, whether it is a final vote, and which
// block hashes it covers.
type Vote struct {
	Voter    common.Account
	Sequence uint64
	Final    bool
	Hashes   []common.Hash
}

// Code is the outcome of routing a vote to its election(s).
type Code int

const (
	// Vote was applied to at least one live election.
	Applied Code = iota
	// Replay means every hash named only cached (not live) elections;
	// the vote was merged into the cache for future replay.
	Replay
	// Indeterminate means some hashes matched live elections and some
	// did not; both paths were taken.
	Indeterminate
	// Ignored means the vote was a duplicate or older than one already
	// recorded for every hash it named.
	Ignored
)

// entry is the cached set of per-voter votes for a single block hash.
type entry struct {
	mu     sync.Mutex
	voters map[common.Account]Vote
}

func newEntry() *entry {
	return &entry{voters: make(map[common.Account]Vote)}
}

// merge folds v's contribution for this hash into the entry, applying
// the (sequence, is_final)-dominated replacement rule: a vote only
// overwrites an existing one from the same voter if it is newer, and a
// final vote is never superseded by a non-final one.
func (e *entry) merge(v Vote) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	prior, ok := e.voters[v.Voter]
	if ok {
		if prior.Final && !v.Final {
			return false
		}
		if prior.Sequence >= v.Sequence && !(v.Final && !prior.Final) {
			return false
		}
	}
	e.voters[v.Voter] = v
	return true
}

// Weigher resolves a representative's stake; set to the ledger's
// Weight method by whoever wires this package into the election engine.
type Weigher func(rep common.Account) (common.Amount, error)

// Cache is the bounded vote cache and router.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache
	live    map[common.Hash]func(Vote) bool
	weigh   Weigher

	maxPerBucket int
}

// New builds a Cache holding at most maxEntries distinct block hashes.
func New(maxEntries int, maxPerBucket int, weigh Weigher) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	if maxPerBucket <= 0 {
		maxPerBucket = 128
	}
	entries, err := lru.New(maxEntries)
	if err != nil {
		// lru.New only fails on a non-positive size, already guarded above.
		panic(err)
	}
	return &Cache{
		entries:      entries,
		live:         make(map[common.Hash]func(Vote) bool),
		weigh:        weigh,
		maxPerBucket: maxPerBucket,
	}
}

// RegisterElection tells the cache a live election exists for hash;
// apply is called with every vote the cache routes to it from then on.
// Any votes already cached for hash are replayed immediately, one per
// voter, before this call returns; the replay order is not defined.
func (c *Cache) RegisterElection(hash common.Hash, apply func(Vote) bool) {
	c.mu.Lock()
	c.live[hash] = apply
	raw, ok := c.entries.Get(hash)
	c.mu.Unlock()
	if !ok {
		return
	}
	e := raw.(*entry)
	e.mu.Lock()
	votes := make([]Vote, 0, len(e.voters))
	for _, v := range e.voters {
		votes = append(votes, v)
	}
	e.mu.Unlock()
	for _, v := range votes {
		apply(v)
	}
}

// UnregisterElection stops routing live votes for hash to an election;
// future votes fall back to the cache so a late restart can still
// replay them.
func (c *Cache) UnregisterElection(hash common.Hash) {
	c.mu.Lock()
	delete(c.live, hash)
	c.mu.Unlock()
}

// Vote routes v to every hash it names, returning the dominant outcome
// code across them.
func (c *Cache) Vote(v Vote) (Code, error) {
	weight, err := c.weigh(v.Voter)
	if err != nil {
		return Ignored, err
	}
	if weight.IsZero() {
		return Ignored, nil
	}

	var appliedLive, cachedAny, ignoredAll bool
	ignoredAll = true

	for _, hash := range v.Hashes {
		c.mu.Lock()
		apply, isLive := c.live[hash]
		c.mu.Unlock()

		if isLive {
			if apply(v) {
				appliedLive = true
				ignoredAll = false
			}
			continue
		}

		if c.cache(hash, v) {
			cachedAny = true
			ignoredAll = false
		}
	}

	switch {
	case ignoredAll:
		return Ignored, nil
	case appliedLive && cachedAny:
		return Indeterminate, nil
	case appliedLive:
		return Applied, nil
	default:
		return Replay, nil
	}
}

func (c *Cache) cache(hash common.Hash, v Vote) bool {
	c.mu.Lock()
	raw, ok := c.entries.Get(hash)
	var e *entry
	if ok {
		e = raw.(*entry)
	} else {
		e = newEntry()
		c.entries.Add(hash, e)
	}
	c.mu.Unlock()
	return e.merge(v)
}

// Len reports how many distinct hashes currently have cached votes.
func (c *Cache) Len() int {
	return c.entries.Len()
}
