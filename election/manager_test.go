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

package election

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/confirm"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/store/memstore"
	"github.com/nanocurrency/nano-node-sub005/votecache"
)

type fakeTransport struct {
	mu   sync.Mutex
	reqs int
}

func (f *fakeTransport) SendConfirmReq(common.Account, common.Hash, common.Hash) error {
	f.mu.Lock()
	f.reqs++
	f.mu.Unlock()
	return nil
}

func newTestManager(t *testing.T, weights map[common.Account]common.Amount, quorum common.Amount, transport Transport, reps []common.Account) *Manager {
	t.Helper()
	l := ledger.New(memstore.New(), ledger.Options{})
	cs := confirm.New(l)
	vc := votecache.New(64, 64, flatWeigher(weights))

	cfg := config.Default()
	cfg.ActiveElectionsSize = 10
	cfg.HintedLimitPercentage = 20
	cfg.OptimisticLimitPercentage = 10

	return &Manager{
		cfg:           cfg,
		ledger:        l,
		confirm:       cs,
		votes:         vc,
		weigh:         flatWeigher(weights),
		transport:     transport,
		principalReps: func() []common.Account { return reps },
		byRoot:        make(map[common.Hash]*slot),
		capacity:      map[Bucket]int{BucketOptimistic: 1, BucketHinted: 2, BucketPriority: 7},
		quorum:        quorum,
		quit:          make(chan struct{}),
	}
}

func TestManagerActivateCreatesElectionAndAddsCandidateOnReactivate(t *testing.T) {
	m := newTestManager(t, nil, common.AmountFromUint64(1_000_000), nil, nil)
	acct := common.Account{1}
	blk := stateBlock(acct, 1)

	e := m.Activate(blk, BucketPriority)
	require.NotNil(t, e)
	assert.Equal(t, 1, m.Len())

	e2 := m.Activate(blk, BucketPriority)
	assert.Same(t, e, e2)
	assert.Equal(t, 1, m.Len())
}

func TestManagerForkAddsBothCandidatesToOneElection(t *testing.T) {
	m := newTestManager(t, nil, common.AmountFromUint64(1_000_000), nil, nil)
	acct := common.Account{1}
	existing := stateBlock(acct, 1)
	incoming := &block.StateBlock{Account: acct, PreviousHash: existing.PreviousHash, Balance: common.AmountFromUint64(2)}

	e := m.Fork(existing, incoming)
	require.NotNil(t, e)
	assert.Equal(t, 1, m.Len())
	assert.ElementsMatch(t, []common.Hash{existing.Hash(), incoming.Hash()}, e.CandidateHashes())
}

func TestManagerEvictsOptimisticWhenOptimisticBucketFull(t *testing.T) {
	m := newTestManager(t, nil, common.AmountFromUint64(1_000_000), nil, nil)
	m.capacity[BucketOptimistic] = 1

	first := stateBlock(common.Account{1}, 1)
	e1 := m.Activate(first, BucketOptimistic)
	require.NotNil(t, e1)

	second := stateBlock(common.Account{2}, 2)
	e2 := m.Activate(second, BucketOptimistic)
	require.NotNil(t, e2)

	// Capacity was 1: activating a second optimistic election must have
	// evicted the first to make room rather than being dropped.
	assert.Equal(t, 1, m.Len())
	_, stillThere := m.Election(first.Root())
	assert.False(t, stillThere)
	_, nowThere := m.Election(second.Root())
	assert.True(t, nowThere)
}

func TestManagerConfirmationRetiresElection(t *testing.T) {
	rep := common.Account{5}
	weights := map[common.Account]common.Amount{rep: common.AmountFromUint64(100)}
	m := newTestManager(t, weights, common.AmountFromUint64(100), nil, nil)

	acct := common.Account{1}
	blk := stateBlock(acct, 1)
	e := m.Activate(blk, BucketPriority)
	require.NotNil(t, e)

	code, err := m.votes.Vote(votecache.Vote{Voter: rep, Sequence: 1, Final: true, Hashes: []common.Hash{blk.Hash()}})
	require.NoError(t, err)
	assert.Equal(t, votecache.Applied, code)

	_, stillActive := m.Election(blk.Root())
	assert.False(t, stillActive, "a confirmed election must be retired from the active set")
}

func TestManagerConfirmReqTickPollsSampledReps(t *testing.T) {
	transport := &fakeTransport{}
	reps := []common.Account{{1}, {2}, {3}}
	m := newTestManager(t, nil, common.AmountFromUint64(1_000_000), transport, reps)

	blk := stateBlock(common.Account{9}, 1)
	require.NotNil(t, m.Activate(blk, BucketPriority))

	m.tick()

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Greater(t, transport.reqs, 0)
}
