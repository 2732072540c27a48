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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/blockproc"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/message"
	"github.com/nanocurrency/nano-node-sub005/store/memstore"
)

// fakeConn is an in-memory Connection backed by a fixed chain of
// accounts, so Attempt.Run can be driven end to end without a socket.
type fakeConn struct {
	mu        sync.Mutex
	peer      string
	frontiers []Frontier
	chains    map[common.Account][]block.Block
	closed    bool
}

func (c *fakeConn) Peer() string { return c.peer }

func (c *fakeConn) Frontiers(_ context.Context, start common.Account, count uint32) ([]Frontier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Frontier
	started := start == common.Account{}
	for _, f := range c.frontiers {
		if !started {
			if f.Account == start {
				started = true
			}
			continue
		}
		out = append(out, f)
		if uint32(len(out)) >= count {
			break
		}
	}
	return out, nil
}

func (c *fakeConn) Pull(_ context.Context, account common.Account, end common.Hash) ([]block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chain := c.chains[account]
	var out []block.Block
	for _, b := range chain {
		if b.Hash() == end {
			out = nil
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *fakeConn) AscPull(context.Context, *message.AscPullReq) (*message.AscPullAck, error) {
	return &message.AscPullAck{}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newTestAccount(t *testing.T) (common.Account, ed25519.PrivateKey) {
	pub, prv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return common.BytesToAccount(pub), prv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestAttemptPullsStaleChainFromPeer(t *testing.T) {
	l := ledger.New(memstore.New(), ledger.Options{})
	genesisAcct, genesisPrv := newTestAccount(t)
	genesisHead, err := l.OpenGenesis(genesisAcct, common.AmountFromUint64(1_000_000))
	require.NoError(t, err)

	alice, _ := newTestAccount(t)
	remaining, err := common.AmountFromUint64(1_000_000).Sub(common.AmountFromUint64(1_000))
	require.NoError(t, err)

	send := &block.SendBlock{PreviousHash: genesisHead, Destination: alice, Balance: remaining}
	block.Sign(send, genesisPrv)

	cfg := config.Default()
	proc := blockproc.New(cfg, l, nil, blockproc.Metrics{})
	proc.Start()
	defer proc.Stop()
	require.True(t, proc.Add(send, blockproc.SourceLocal))
	proc.Flush()

	conn := &fakeConn{
		peer: "test-peer",
		frontiers: []Frontier{
			{Account: genesisAcct, Head: send.Hash()},
		},
		chains: map[common.Account][]block.Block{
			genesisAcct: {send},
		},
	}

	dialed := 0
	dial := func(context.Context) (Connection, error) {
		dialed++
		return conn, nil
	}

	otherLedger := ledger.New(memstore.New(), ledger.Options{})
	_, err = otherLedger.OpenGenesis(genesisAcct, common.AmountFromUint64(1_000_000))
	require.NoError(t, err)
	otherProc := blockproc.New(cfg, otherLedger, nil, blockproc.Metrics{})
	otherProc.Start()
	defer otherProc.Stop()

	cfg.BootstrapBaseConnections = 1
	cfg.BootstrapWarmupTime = time.Hour // keep populateLoop from interfering
	a := New(cfg, otherLedger, otherProc, dial, Metrics{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	a.Run(ctx)

	waitFor(t, func() bool {
		head, err := otherLedger.Latest(genesisAcct)
		return err == nil && head == send.Hash()
	})
	assert.Equal(t, 1, dialed)
}

func TestDesiredConnectionsScalesUpWhenSlow(t *testing.T) {
	cfg := config.Default()
	cfg.BootstrapBaseConnections = 2
	cfg.BootstrapMaxConnections = 8
	cfg.BootstrapMaxNewConnections = 8
	cfg.BootstrapMinimumBlocksPerSec = 100

	l := ledger.New(memstore.New(), ledger.Options{})
	proc := blockproc.New(cfg, l, nil, blockproc.Metrics{})

	var mu sync.Mutex
	conns := 0
	dial := func(context.Context) (Connection, error) {
		mu.Lock()
		defer mu.Unlock()
		conns++
		return &fakeConn{peer: "p"}, nil
	}

	a := New(cfg, l, proc, dial, Metrics{})
	defer a.Stop()
	a.startedAt = time.Now().Add(-time.Hour)
	a.scaleToward(context.Background(), 1) // far below the 100/s minimum

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, conns, 0)
}

func TestRequeueOrExhaustDropsAfterLimit(t *testing.T) {
	cfg := config.Default()
	cfg.BootstrapFrontierRetryLimit = 2
	l := ledger.New(memstore.New(), ledger.Options{})
	proc := blockproc.New(cfg, l, nil, blockproc.Metrics{})
	a := New(cfg, l, proc, func(context.Context) (Connection, error) { return nil, nil }, Metrics{})

	acct, _ := newTestAccount(t)
	job := pullJob{account: acct}

	assert.False(t, a.requeueOrExhaust(job))
	exhausted := a.requeueOrExhaust(job)
	assert.False(t, exhausted)
	assert.Equal(t, 2, a.frontierRetries[acct])
	assert.Equal(t, 2, a.QueueLen())

	// The third failure is past the limit: the job is dropped, not requeued.
	a.requeueOrExhaust(job)
	assert.Equal(t, 2, a.QueueLen())
}
