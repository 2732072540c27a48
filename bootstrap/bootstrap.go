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

// Package bootstrap is the lazy/legacy bootstrap attempt (L8): it pulls
// a node from an empty or stale ledger up to the network's frontier by
// scanning peers' account frontiers, queueing the chains that differ
// from the local ledger, and pulling each one's missing blocks over a
// scaling pool of peer connections.
package bootstrap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/blockproc"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/message"
)

var logger = log.NewModuleLogger(log.Bootstrap)

// Frontier is one account's reported chain head.
type Frontier struct {
	Account common.Account
	Head    common.Hash
}

// Connection is one bootstrap peer link. A running node implements it
// over a dialed TCP connection framed with message.Header and, for the
// ascending confirmed-frontier path, over message.AscBootstrapClient;
// tests implement it directly against an in-memory peer.
type Connection interface {
	Peer() string
	Frontiers(ctx context.Context, start common.Account, count uint32) ([]Frontier, error)
	Pull(ctx context.Context, account common.Account, end common.Hash) ([]block.Block, error)
	AscPull(ctx context.Context, req *message.AscPullReq) (*message.AscPullAck, error)
	Close() error
}

// Dialer opens a new Connection to some peer chosen by the caller's own
// peer list/discovery mechanism — out of scope for this package.
type Dialer func(ctx context.Context) (Connection, error)

// Metrics are the counters an Attempt bumps. Nil fields are safe to call.
type Metrics struct {
	Connected       func(peer string)
	Disconnected    func(peer string, slow bool)
	BlocksPulled    func(n int)
	FrontiersQueued func(n int)
	FrontierExhausted func(acct common.Account)
}

func (m Metrics) connected(p string) {
	if m.Connected != nil {
		m.Connected(p)
	}
}
func (m Metrics) disconnected(p string, slow bool) {
	if m.Disconnected != nil {
		m.Disconnected(p, slow)
	}
}
func (m Metrics) blocksPulled(n int) {
	if m.BlocksPulled != nil {
		m.BlocksPulled(n)
	}
}
func (m Metrics) frontiersQueued(n int) {
	if m.FrontiersQueued != nil {
		m.FrontiersQueued(n)
	}
}
func (m Metrics) frontierExhausted(a common.Account) {
	if m.FrontierExhausted != nil {
		m.FrontierExhausted(a)
	}
}

type pullJob struct {
	account common.Account
	end     common.Hash
}

// Attempt is one run of the bootstrap process: from construction it
// pulls until the peer pool reports no further work, the way a single
// attempt object owns one bootstrap pass in the original design (a new
// Attempt replaces it if the node falls behind again later).
type Attempt struct {
	cfg    config.Config
	ledger *ledger.Ledger
	proc   *blockproc.Processor
	dial   Dialer
	metrics Metrics

	startedAt    time.Time
	blocksPulled uint64 // atomic

	mu              sync.Mutex
	conns           map[Connection]*connState
	frontierRetries map[common.Account]int

	pullQueue chan pullJob
	quit      chan struct{}
	wg        sync.WaitGroup
}

type connState struct {
	pulledAt time.Time
	slow     bool
}

// New builds an Attempt. proc is the node's single block processor —
// every pulled block is fed through it with SourceBootstrap, exactly as
// live traffic is, so fork/gap handling never forks between the two
// paths.
func New(cfg config.Config, l *ledger.Ledger, proc *blockproc.Processor, dial Dialer, metrics Metrics) *Attempt {
	queueSize := cfg.BlockProcessorQueueLimitBootstrap
	if queueSize <= 0 {
		queueSize = 65536
	}
	return &Attempt{
		cfg:             cfg,
		ledger:          l,
		proc:            proc,
		dial:            dial,
		metrics:         metrics,
		conns:           make(map[Connection]*connState),
		frontierRetries: make(map[common.Account]int),
		pullQueue:       make(chan pullJob, queueSize),
		quit:            make(chan struct{}),
	}
}

// Run drives the attempt to completion: it dials the base connection
// count, scans frontiers on one of them, queues every chain whose
// reported head the ledger doesn't already have, and blocks until ctx
// is cancelled or Stop is called. The pull workers exit once the queue
// is closed and empty, but the populate loop keeps running until then,
// so Run does not return when the queue drains. It returns ctx.Err().
func (a *Attempt) Run(ctx context.Context) error {
	a.startedAt = time.Now()

	base := a.cfg.BootstrapBaseConnections
	if base <= 0 {
		base = 4
	}
	for i := 0; i < base; i++ {
		if err := a.connect(ctx); err != nil {
			logger.Debug("bootstrap dial failed", "err", err)
		}
	}

	a.wg.Add(1)
	go a.populateLoop(ctx)

	if err := a.scanFrontiers(ctx); err != nil {
		logger.Warn("frontier scan failed", "err", err)
	}

	a.wg.Wait()
	return ctx.Err()
}

// Stop signals every worker to exit and closes all connections.
func (a *Attempt) Stop() {
	close(a.quit)
	a.mu.Lock()
	for c := range a.conns {
		c.Close()
	}
	a.mu.Unlock()
}

// BlocksPulled reports the running total of blocks pulled this attempt.
func (a *Attempt) BlocksPulled() uint64 { return atomic.LoadUint64(&a.blocksPulled) }

// QueueLen reports the number of chains still queued for pulling.
func (a *Attempt) QueueLen() int { return len(a.pullQueue) }
