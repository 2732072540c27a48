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

package bootstrap

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nanocurrency/nano-node-sub005/blockproc"
)

// connect dials one new peer and launches its pull worker, generalizing
// blockproc.Processor's single-goroutine run()/Start() lifecycle to a
// pool of N concurrent workers instead of one.
func (a *Attempt) connect(ctx context.Context) error {
	conn, err := a.dial(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.conns[conn] = &connState{pulledAt: time.Now()}
	a.mu.Unlock()
	a.metrics.connected(conn.Peer())

	a.wg.Add(1)
	go a.pullWorker(ctx, conn)
	return nil
}

// pullWorker dequeues pull jobs and pulls them over conn until the
// queue is empty and the attempt is stopping, or conn is evicted as a
// slow peer.
func (a *Attempt) pullWorker(ctx context.Context, conn Connection) {
	defer a.wg.Done()
	defer a.disconnect(conn, false)

	timeout := a.cfg.BootstrapIOTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	for {
		select {
		case <-a.quit:
			return
		case <-ctx.Done():
			return
		case job, ok := <-a.pullQueue:
			if !ok {
				return
			}
			if a.pullOne(ctx, conn, job, timeout) {
				a.disconnect(conn, true)
				return
			}
		}
	}
}

// pullOne pulls one account's missing blocks over conn and feeds them
// into the block processor. It returns true if conn should be evicted
// as too slow to keep (no progress within its I/O timeout).
func (a *Attempt) pullOne(ctx context.Context, conn Connection, job pullJob, timeout time.Duration) bool {
	pullCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	blocks, err := conn.Pull(pullCtx, job.account, job.end)
	elapsed := time.Since(start)

	if err != nil {
		logger.Debug("pull failed", "peer", conn.Peer(), "account", job.account, "err", err)
		evict := a.requeueOrExhaust(job)
		// A pull that ran out its I/O timeout made no progress: the job
		// is requeued above and conn is evicted.
		return evict || pullCtx.Err() == context.DeadlineExceeded
	}

	for _, blk := range blocks {
		a.proc.Add(blk, blockproc.SourceBootstrap)
	}
	a.proc.Flush()
	atomic.AddUint64(&a.blocksPulled, uint64(len(blocks)))
	a.metrics.blocksPulled(len(blocks))

	a.mu.Lock()
	if st, ok := a.conns[conn]; ok {
		st.pulledAt = time.Now()
	}
	a.mu.Unlock()

	// A peer that takes the entire I/O timeout only to answer with no
	// blocks at all is too slow to keep in the active pool — it will only
	// ever service one job per timeout window while a healthy peer
	// services several.
	if elapsed >= timeout && len(blocks) == 0 {
		return true
	}
	return false
}

// requeueOrExhaust re-queues job unless it has already been retried
// frontier_retry_limit times, in which case it is dropped and reported.
func (a *Attempt) requeueOrExhaust(job pullJob) bool {
	limit := a.cfg.BootstrapFrontierRetryLimit
	if limit <= 0 {
		limit = 16
	}
	a.mu.Lock()
	a.frontierRetries[job.account]++
	attempts := a.frontierRetries[job.account]
	a.mu.Unlock()

	if attempts > limit {
		a.metrics.frontierExhausted(job.account)
		logger.Warn("frontier retry limit exceeded, dropping account", "account", job.account, "attempts", attempts)
		return false
	}
	select {
	case a.pullQueue <- job:
	default:
		logger.Warn("pull queue full, dropping retry", "account", job.account)
	}
	return false
}

func (a *Attempt) disconnect(conn Connection, slow bool) {
	a.mu.Lock()
	delete(a.conns, conn)
	a.mu.Unlock()
	conn.Close()
	a.metrics.disconnected(conn.Peer(), slow)
}

func (a *Attempt) connectionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conns)
}

// populateLoop is populate_connections: it periodically compares the
// pull rate achieved against the configured minimum and scales the
// connection pool up (never past BootstrapMaxConnections, and never by
// more than BootstrapMaxNewConnections per tick) to compensate for slow
// or insufficient peers, the way the original bootstrap attempt
// continuously rebalances its own connection count instead of fixing
// it once at startup.
func (a *Attempt) populateLoop(ctx context.Context) {
	defer a.wg.Done()
	cadence := a.cfg.BootstrapPopulateCadence
	if cadence <= 0 {
		cadence = time.Second
	}
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	var lastPulled uint64
	for {
		select {
		case <-a.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pulled := atomic.LoadUint64(&a.blocksPulled)
			rate := float64(pulled-lastPulled) / cadence.Seconds()
			lastPulled = pulled

			if time.Since(a.startedAt) < a.cfg.BootstrapWarmupTime {
				continue
			}
			a.scaleToward(ctx, rate)
		}
	}
}

func (a *Attempt) scaleToward(ctx context.Context, rate float64) {
	base := a.cfg.BootstrapBaseConnections
	max := a.cfg.BootstrapMaxConnections
	if base <= 0 {
		base = 4
	}
	if max <= 0 {
		max = 32
	}
	minRate := a.cfg.BootstrapMinimumBlocksPerSec
	if minRate <= 0 {
		minRate = 10
	}

	current := a.connectionCount()
	if rate >= minRate || rate <= 0 {
		return
	}

	shortfall := minRate / rate
	desired := int(float64(base) * shortfall)
	if desired > max {
		desired = max
	}
	if desired <= current {
		return
	}

	newConns := desired - current
	limit := a.cfg.BootstrapMaxNewConnections
	if limit <= 0 {
		limit = 10
	}
	if newConns > limit {
		newConns = limit
	}
	for i := 0; i < newConns; i++ {
		if err := a.connect(ctx); err != nil {
			logger.Debug("populate_connections dial failed", "err", err)
			break
		}
	}
}

// drainQueue closes the pull queue as soon as the frontier scan has
// finished enqueuing. Jobs already queued are still handed out; once
// they are consumed, idle workers see the closed queue and exit instead
// of blocking forever.
func (a *Attempt) drainQueue() {
	close(a.pullQueue)
}
