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

// Package blockproc is the single-writer block processor (L7): the only
// caller allowed to open a ledger write transaction. It accepts blocks
// from any source, dispatches them to the ledger, and routes the
// outcome to the election engine, the vote cache, or an unchecked
// holding area.
package blockproc

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/election"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/store"
)

var logger = log.NewModuleLogger(log.BlockProcessor)

// Source identifies where a block came from, for queue accounting and
// Old-status bookkeeping.
type Source int

const (
	SourceLive Source = iota
	SourceBootstrap
	SourceLocal
)

// Metrics are the counters the processor bumps. Nil fields are safe to
// call.
type Metrics struct {
	Enqueued func(source Source)
	Dropped  func(status ledger.Status)
	Gap      func()
	Old      func()
}

func (m Metrics) enqueued(s Source) {
	if m.Enqueued != nil {
		m.Enqueued(s)
	}
}

func (m Metrics) dropped(s ledger.Status) {
	if m.Dropped != nil {
		m.Dropped(s)
	}
}

func (m Metrics) gap() {
	if m.Gap != nil {
		m.Gap()
	}
}

func (m Metrics) old() {
	if m.Old != nil {
		m.Old()
	}
}

// item is a queued unit of work.
type item struct {
	blk     block.Block
	source  Source
	arrival time.Time
	done    chan struct{} // set only for the flush() barrier
}

// Processor is the single-threaded FIFO described above.
type Processor struct {
	cfg     config.Config
	ledger  *ledger.Ledger
	manager *election.Manager
	metrics Metrics

	dedup *lru.Cache

	mu        sync.Mutex
	unchecked map[common.Hash][]pendingRetry

	queue chan item
	quit  chan struct{}
	wg    sync.WaitGroup
}

type pendingRetry struct {
	blk      block.Block
	source   Source
	arrival  time.Time
	attempts int
}

// New builds a Processor. manager receives Progress/Fork notifications;
// it may be nil in tests that only exercise ledger dispatch.
func New(cfg config.Config, l *ledger.Ledger, manager *election.Manager, metrics Metrics) *Processor {
	limit := cfg.BlockProcessorQueueLimitLive + cfg.BlockProcessorQueueLimitBootstrap
	if limit <= 0 {
		limit = 16384
	}
	dedup, err := lru.New(limit)
	if err != nil {
		panic(err)
	}
	return &Processor{
		cfg:       cfg,
		ledger:    l,
		manager:   manager,
		metrics:   metrics,
		dedup:     dedup,
		unchecked: make(map[common.Hash][]pendingRetry),
		queue:     make(chan item, limit),
		quit:      make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (p *Processor) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop signals the worker to exit and waits for it.
func (p *Processor) Stop() {
	close(p.quit)
	p.wg.Wait()
}

// Add enqueues blk for processing. Returns false if the queue is full
// (the caller should apply its own source-dependent backpressure
// policy — e.g. drop live traffic but block for local wallet sends).
func (p *Processor) Add(blk block.Block, source Source) bool {
	select {
	case p.queue <- item{blk: blk, source: source, arrival: time.Now()}:
		p.metrics.enqueued(source)
		return true
	default:
		return false
	}
}

// Flush blocks until every item enqueued before this call has been
// processed, the way a wallet send action waits to observe its own
// block's effect before returning.
func (p *Processor) Flush() {
	done := make(chan struct{})
	p.queue <- item{done: done}
	<-done
}

func (p *Processor) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case it := <-p.queue:
			if it.done != nil {
				close(it.done)
				continue
			}
			p.process(it)
		}
	}
}

func (p *Processor) process(it item) {
	hash := it.blk.Hash()
	if _, known := p.dedup.Get(hash); known {
		p.metrics.old()
		return
	}

	var status ledger.Status
	err := p.ledger.Update(func(txn store.Txn) error {
		var err error
		status, err = p.ledger.Process(txn, it.blk)
		return err
	})
	if err != nil {
		logger.Error("ledger write failed", "hash", hash, "err", err)
		return
	}

	switch status {
	case ledger.Progress:
		p.dedup.Add(hash, struct{}{})
		if p.manager != nil {
			p.manager.Activate(it.blk, election.BucketPriority)
		}
		p.retryDependents(hash)
	case ledger.Fork:
		p.handleFork(it.blk)
	case ledger.GapPrevious:
		p.stash(it.blk.Previous(), it)
	case ledger.GapSource, ledger.GapEpochOpenPending:
		if src, ok := sourceHash(it.blk); ok {
			p.stash(src, it)
		} else {
			p.metrics.dropped(status)
		}
	case ledger.Old:
		p.metrics.old()
	default:
		p.metrics.dropped(status)
		logger.Debug("block rejected", "hash", hash, "status", status, "source", it.source)
	}
}

// sourceHash returns the hash a Gap_Source/Gap_Epoch_Open_Pending block
// is waiting on: a receive's send hash, or a state block's link when it
// behaves as a receive.
func sourceHash(blk block.Block) (common.Hash, bool) {
	switch b := blk.(type) {
	case *block.ReceiveBlock:
		return b.Source, true
	case *block.OpenBlock:
		return b.Source, true
	case *block.StateBlock:
		if !b.Link.IsZero() {
			return b.Link, true
		}
	}
	return common.Hash{}, false
}

func (p *Processor) handleFork(incoming block.Block) {
	if p.manager == nil {
		p.metrics.dropped(ledger.Fork)
		return
	}
	existingHash, ok, err := p.occupantHash(incoming)
	if err != nil || !ok {
		logger.Warn("fork reported but no occupant found", "root", incoming.Root(), "err", err)
		return
	}
	existing, ok, err := p.ledger.GetBlock(existingHash)
	if err != nil || !ok {
		logger.Warn("fork occupant hash has no block body", "hash", existingHash, "err", err)
		return
	}
	p.manager.Fork(existing, incoming)
}

func (p *Processor) occupantHash(sample block.Block) (common.Hash, bool, error) {
	if sample.Previous().IsZero() {
		acct := common.Account(sample.Root())
		info, ok, err := p.ledger.AccountInfo(acct)
		if err != nil || !ok {
			return common.Hash{}, false, err
		}
		return info.Open, true, nil
	}
	return p.ledger.Successor(sample.Root())
}

// stash parks a gapped block behind the hash it is waiting on. It is
// retried when that hash arrives via retryDependents, and swept by Sweep
// once it exceeds the unchecked retention window.
func (p *Processor) stash(missing common.Hash, it item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unchecked[missing] = append(p.unchecked[missing], pendingRetry{
		blk: it.blk, source: it.source, arrival: it.arrival,
	})
	p.metrics.gap()
}

// retryDependents re-enqueues every block that was waiting on hash,
// called after hash lands in the ledger.
func (p *Processor) retryDependents(hash common.Hash) {
	p.mu.Lock()
	waiting := p.unchecked[hash]
	delete(p.unchecked, hash)
	p.mu.Unlock()

	for _, r := range waiting {
		p.Add(r.blk, r.source)
	}
}

// Sweep drops unchecked entries older than cfg.UncheckedCutoff, the way
// the original bounds unchecked retention by age as well as count.
func (p *Processor) Sweep(now time.Time) int {
	cutoff := p.cfg.UncheckedCutoff
	if cutoff <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	dropped := 0
	for missing, retries := range p.unchecked {
		kept := retries[:0]
		for _, r := range retries {
			if now.Sub(r.arrival) > cutoff {
				dropped++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			delete(p.unchecked, missing)
		} else {
			p.unchecked[missing] = kept
		}
	}
	return dropped
}

// UncheckedLen reports how many distinct missing hashes currently have
// blocks waiting behind them.
func (p *Processor) UncheckedLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.unchecked)
}
