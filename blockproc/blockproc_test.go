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

package blockproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/store/memstore"
)

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

func TestProcessorAppliesProgressBlock(t *testing.T) {
	l := ledger.New(memstore.New(), ledger.Options{})
	genesis, genesisPrv := newTestAccount(t)
	head, err := l.OpenGenesis(genesis, common.AmountFromUint64(1_000_000))
	require.NoError(t, err)

	alice, _ := newTestAccount(t)
	remaining, err := common.AmountFromUint64(1_000_000).Sub(common.AmountFromUint64(1_000))
	require.NoError(t, err)
	send := &block.SendBlock{PreviousHash: head, Destination: alice, Balance: remaining}
	block.Sign(send, genesisPrv)

	p := New(config.Default(), l, nil, Metrics{})
	p.Start()
	defer p.Stop()

	require.True(t, p.Add(send, SourceLocal))
	p.Flush()

	exists, err := l.BlockExists(send.Hash())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProcessorStashesGapPreviousAndRetriesOnArrival(t *testing.T) {
	l := ledger.New(memstore.New(), ledger.Options{})
	genesis, genesisPrv := newTestAccount(t)
	head, err := l.OpenGenesis(genesis, common.AmountFromUint64(1_000_000))
	require.NoError(t, err)

	alice, _ := newTestAccount(t)
	remaining, err := common.AmountFromUint64(1_000_000).Sub(common.AmountFromUint64(1_000))
	require.NoError(t, err)
	send := &block.SendBlock{PreviousHash: head, Destination: alice, Balance: remaining}
	block.Sign(send, genesisPrv)

	second, err := remaining.Sub(common.AmountFromUint64(500))
	require.NoError(t, err)
	dependent := &block.SendBlock{PreviousHash: send.Hash(), Destination: alice, Balance: second}
	block.Sign(dependent, genesisPrv)

	p := New(config.Default(), l, nil, Metrics{})
	p.Start()
	defer p.Stop()

	require.True(t, p.Add(dependent, SourceLive))
	p.Flush()
	assert.Equal(t, 1, p.UncheckedLen())

	exists, err := l.BlockExists(dependent.Hash())
	require.NoError(t, err)
	assert.False(t, exists)

	require.True(t, p.Add(send, SourceLocal))
	waitFor(t, func() bool {
		ok, _ := l.BlockExists(dependent.Hash())
		return ok
	})
	assert.Equal(t, 0, p.UncheckedLen())
}

func TestProcessorDedupsKnownHash(t *testing.T) {
	l := ledger.New(memstore.New(), ledger.Options{})
	genesis, genesisPrv := newTestAccount(t)
	head, err := l.OpenGenesis(genesis, common.AmountFromUint64(1_000_000))
	require.NoError(t, err)

	alice, _ := newTestAccount(t)
	remaining, err := common.AmountFromUint64(1_000_000).Sub(common.AmountFromUint64(1_000))
	require.NoError(t, err)
	send := &block.SendBlock{PreviousHash: head, Destination: alice, Balance: remaining}
	block.Sign(send, genesisPrv)

	var dropped int
	p := New(config.Default(), l, nil, Metrics{Old: func() { dropped++ }})
	p.Start()
	defer p.Stop()

	require.True(t, p.Add(send, SourceLocal))
	p.Flush()
	require.True(t, p.Add(send, SourceLocal))
	p.Flush()

	assert.Equal(t, 1, dropped)
}

func TestSweepDropsExpiredUnchecked(t *testing.T) {
	l := ledger.New(memstore.New(), ledger.Options{})
	cfg := config.Default()
	cfg.UncheckedCutoff = time.Millisecond

	alice, _ := newTestAccount(t)
	dangling := &block.SendBlock{PreviousHash: common.Hash{9, 9}, Destination: alice, Balance: common.AmountFromUint64(1)}

	p := New(cfg, l, nil, Metrics{})
	p.Start()
	defer p.Stop()

	require.True(t, p.Add(dangling, SourceLive))
	p.Flush()
	require.Equal(t, 1, p.UncheckedLen())

	time.Sleep(5 * time.Millisecond)
	dropped := p.Sweep(time.Now())
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 0, p.UncheckedLen())
}
