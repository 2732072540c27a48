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
	"errors"
	"time"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/blockproc"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/message"
)

// frontierPageSize is how many frontiers are requested per Frontiers
// call, capping memory use while keeping the round-trip count low.
const frontierPageSize = 1024

// ErrNoConnections is returned when a frontier scan or ascending pull
// is attempted with no live peer connection available.
var ErrNoConnections = errors.New("bootstrap: no peer connections")

// scanFrontiers walks the peer's reported account frontiers in account
// order, starting from the zero account, and queues a pullJob for every
// chain whose reported head differs from what the local ledger already
// has. It stops paging once a page comes back short of a full page,
// mirroring the legacy frontier_req protocol's end-of-stream signal.
func (a *Attempt) scanFrontiers(ctx context.Context) error {
	conn, ok := a.anyConnection()
	if !ok {
		return ErrNoConnections
	}

	var start common.Account
	queued := 0
	for {
		select {
		case <-a.quit:
			a.drainQueue()
			return ctx.Err()
		case <-ctx.Done():
			a.drainQueue()
			return ctx.Err()
		default:
		}

		frontiers, err := conn.Frontiers(ctx, start, frontierPageSize)
		if err != nil {
			a.drainQueue()
			return err
		}
		if len(frontiers) == 0 {
			break
		}

		for _, f := range frontiers {
			if a.queueIfStale(f) {
				queued++
			}
		}

		last := frontiers[len(frontiers)-1].Account
		if len(frontiers) < frontierPageSize || last == start {
			break
		}
		start = last
	}

	a.metrics.frontiersQueued(queued)
	a.drainQueue()
	return nil
}

// queueIfStale compares f against the local ledger's head for the same
// account and enqueues a pull job if they differ. An account the local
// ledger has never heard of is pulled from its open block forward (a
// zero end hash).
func (a *Attempt) queueIfStale(f Frontier) bool {
	local, err := a.ledger.Latest(f.Account)
	if err != nil {
		logger.Debug("frontier lookup failed", "account", f.Account, "err", err)
		return false
	}
	if local == f.Head {
		return false
	}

	select {
	case a.pullQueue <- pullJob{account: f.Account, end: local}:
		return true
	default:
		logger.Warn("pull queue full during frontier scan, dropping", "account", f.Account)
		return false
	}
}

func (a *Attempt) anyConnection() (Connection, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for c := range a.conns {
		return c, true
	}
	return nil, false
}

// AscendingPull runs the confirmed-frontier ascending bootstrap path: it
// asks conn, in one request of at most frontierPageSize blocks, for the
// blocks after the local ledger's current head of account's chain (from
// the start of the chain if the account is unknown) via the
// protobuf-framed asc_pull exchange,
// the newer complement to the legacy frontier_req/bulk_pull scan above
// used once a node is already close to the network frontier and only
// needs to top up recently-confirmed blocks rather than rescan every
// account.
func (a *Attempt) AscendingPull(ctx context.Context, conn Connection, account common.Account) (int, error) {
	info, ok, err := a.ledger.AccountInfo(account)
	if err != nil {
		return 0, err
	}
	var startHash common.Hash
	if ok {
		startHash = info.Head
	}

	timeout := a.cfg.BootstrapIOTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pullCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &message.AscPullReq{
		Account:   account[:],
		StartHash: startHash[:],
		Count:     frontierPageSize,
	}
	ack, err := conn.AscPull(pullCtx, req)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, raw := range ack.Blocks {
		blk, err := block.ParseBody(raw)
		if err != nil {
			logger.Debug("asc pull block decode failed", "account", account, "err", err)
			continue
		}
		a.proc.Add(blk, blockproc.SourceBootstrap)
		n++
	}
	a.proc.Flush()
	return n, nil
}
