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

// Package confirm is the confirming/cementation set: a FIFO of blocks an
// election (or bootstrap) has decided are final, walked in chain order
// so a block is never marked cemented before every ancestor it depends
// on already is.
package confirm

import (
	"sync"

	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/log"
)

var logger = log.NewModuleLogger(log.ConfirmingSet)

// Observer is notified once per newly cemented block, in chain order.
type Observer func(hash common.Hash, acct common.Account, height uint64)

// item is a pending cementation request: a decided block and the root
// its election ran under. The root is recorded but not consulted:
// cementChain walks previous links only.
type item struct {
	hash common.Hash
	root common.Hash
}

// Set is the bounded, at-most-once cementation queue.
type Set struct {
	ledger *ledger.Ledger

	mu       sync.Mutex
	queue    []item
	queued   map[common.Hash]struct{}
	cemented map[common.Hash]struct{}

	observers []Observer

	notify chan struct{}
	quit   chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Set over ledger l and wires itself back in as l's
// CementedChecker.
func New(l *ledger.Ledger) *Set {
	s := &Set{
		ledger:   l,
		queued:   make(map[common.Hash]struct{}),
		cemented: make(map[common.Hash]struct{}),
		notify:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	l.SetCementedChecker(s)
	return s
}

// IsCemented implements ledger.CementedChecker.
func (s *Set) IsCemented(hash common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cemented[hash]
	return ok
}

// AddObserver registers fn to run after every cementation. Not safe to
// call once Start has been invoked.
func (s *Set) AddObserver(fn Observer) {
	s.observers = append(s.observers, fn)
}

// Add enqueues hash (decided by an election rooted at root) for
// cementation. Idempotent: a hash already queued or already cemented is
// a no-op, matching the confirming set's at-most-once contract.
func (s *Set) Add(hash, root common.Hash) {
	s.mu.Lock()
	if _, done := s.cemented[hash]; done {
		s.mu.Unlock()
		return
	}
	if _, pending := s.queued[hash]; pending {
		s.mu.Unlock()
		return
	}
	s.queued[hash] = struct{}{}
	s.queue = append(s.queue, item{hash: hash, root: root})
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Start launches the background worker that drains the queue.
func (s *Set) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop signals the worker to exit and waits for it.
func (s *Set) Stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *Set) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.quit:
			return
		case <-s.notify:
			s.drain()
		}
	}
}

func (s *Set) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if err := s.cementChain(next.hash); err != nil {
			logger.Warn("cement chain failed", "hash", next.hash, "err", err)
		}

		s.mu.Lock()
		delete(s.queued, next.hash)
		s.mu.Unlock()
	}
}

// cementChain walks from hash's account's first uncemented block up to
// and including hash, cementing each in order so a descendant is never
// marked final before its ancestors.
func (s *Set) cementChain(hash common.Hash) error {
	if _, ok, err := s.ledger.GetBlock(hash); err != nil || !ok {
		return err
	}

	var chain []common.Hash
	cursor := hash
	for {
		s.mu.Lock()
		_, done := s.cemented[cursor]
		s.mu.Unlock()
		if done {
			break
		}
		chain = append(chain, cursor)
		b, ok, err := s.ledger.GetBlock(cursor)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		prev := b.Previous()
		if prev.IsZero() {
			break
		}
		cursor = prev
	}

	for i := len(chain) - 1; i >= 0; i-- {
		h := chain[i]
		acct, ok, err := s.ledger.AccountOf(h)
		if err != nil || !ok {
			continue
		}
		s.mu.Lock()
		s.cemented[h] = struct{}{}
		s.mu.Unlock()
		info, _, err := s.ledger.AccountInfo(acct)
		var height uint64
		if err == nil {
			height = info.BlockCount
		}
		for _, obs := range s.observers {
			obs(h, acct, height)
		}
	}
	return nil
}
