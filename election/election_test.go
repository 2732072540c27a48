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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/votecache"
)

func flatWeigher(weights map[common.Account]common.Amount) votecache.Weigher {
	return func(a common.Account) (common.Amount, error) { return weights[a], nil }
}

func stateBlock(acct common.Account, seed byte) *block.StateBlock {
	return &block.StateBlock{Account: acct, PreviousHash: common.Hash{seed}, Balance: common.AmountFromUint64(1)}
}

func TestElectionAddCandidateWithinBound(t *testing.T) {
	e := New(common.Hash{9}, 2, common.AmountFromUint64(100), flatWeigher(nil))
	acct := common.Account{1}

	a := stateBlock(acct, 1)
	b := stateBlock(acct, 2)
	assert.True(t, e.AddCandidate(a))
	assert.True(t, e.AddCandidate(b))
	assert.ElementsMatch(t, []common.Hash{a.Hash(), b.Hash()}, e.CandidateHashes())
}

func TestElectionForkFilterEvictsOnlyWhenIncomingHeavier(t *testing.T) {
	rep1, rep2, rep3 := common.Account{1}, common.Account{2}, common.Account{3}
	weights := map[common.Account]common.Amount{
		rep1: common.AmountFromUint64(10),
		rep2: common.AmountFromUint64(5),
		rep3: common.AmountFromUint64(100),
	}
	e := New(common.Hash{9}, 2, common.AmountFromUint64(1_000_000), flatWeigher(weights))

	a := stateBlock(common.Account{1}, 1)
	b := stateBlock(common.Account{1}, 2)
	c := stateBlock(common.Account{1}, 3)
	require.True(t, e.AddCandidate(a))
	require.True(t, e.AddCandidate(b))

	require.True(t, e.ApplyVoteForHash(a.Hash(), votecache.Vote{Voter: rep1, Sequence: 1, Hashes: []common.Hash{a.Hash()}}))
	require.True(t, e.ApplyVoteForHash(b.Hash(), votecache.Vote{Voter: rep2, Sequence: 1, Hashes: []common.Hash{b.Hash()}}))

	// A lightweight newcomer with no supporting votes must not evict.
	d := stateBlock(common.Account{1}, 4)
	assert.False(t, e.AddCandidate(d))
	assert.ElementsMatch(t, []common.Hash{a.Hash(), b.Hash()}, e.CandidateHashes())

	// c is backed by rep3's heavier vote before it is even a candidate,
	// so it must evict b (the lowest-tally incumbent at 5).
	require.True(t, e.ApplyVoteForHash(c.Hash(), votecache.Vote{Voter: rep3, Sequence: 1, Hashes: []common.Hash{c.Hash()}}))
	assert.True(t, e.AddCandidate(c))
	assert.ElementsMatch(t, []common.Hash{a.Hash(), c.Hash()}, e.CandidateHashes())
}

func TestElectionConfirmsOnSingleHashQuorum(t *testing.T) {
	rep := common.Account{7}
	weights := map[common.Account]common.Amount{rep: common.AmountFromUint64(100)}
	e := New(common.Hash{9}, 10, common.AmountFromUint64(100), flatWeigher(weights))

	a := stateBlock(common.Account{1}, 1)
	require.True(t, e.AddCandidate(a))

	_, confirmed := e.Confirmed()
	assert.False(t, confirmed)

	require.True(t, e.ApplyVoteForHash(a.Hash(), votecache.Vote{Voter: rep, Sequence: 1, Final: true, Hashes: []common.Hash{a.Hash()}}))

	winner, confirmed := e.Confirmed()
	assert.True(t, confirmed)
	assert.Equal(t, a.Hash(), winner)
}

func TestElectionConfirmedRejectsFurtherVotes(t *testing.T) {
	rep1, rep2 := common.Account{1}, common.Account{2}
	weights := map[common.Account]common.Amount{
		rep1: common.AmountFromUint64(100),
		rep2: common.AmountFromUint64(100),
	}
	e := New(common.Hash{9}, 10, common.AmountFromUint64(100), flatWeigher(weights))

	a := stateBlock(common.Account{1}, 1)
	b := stateBlock(common.Account{1}, 2)
	require.True(t, e.AddCandidate(a))
	require.True(t, e.AddCandidate(b))

	require.True(t, e.ApplyVoteForHash(a.Hash(), votecache.Vote{Voter: rep1, Sequence: 1, Final: true, Hashes: []common.Hash{a.Hash()}}))
	winner, confirmed := e.Confirmed()
	require.True(t, confirmed)
	require.Equal(t, a.Hash(), winner)

	changed := e.ApplyVoteForHash(b.Hash(), votecache.Vote{Voter: rep2, Sequence: 1, Final: true, Hashes: []common.Hash{b.Hash()}})
	assert.False(t, changed)
	winner, confirmed = e.Confirmed()
	assert.True(t, confirmed)
	assert.Equal(t, a.Hash(), winner)
}

func TestElectionVoteSequenceMustAdvance(t *testing.T) {
	rep := common.Account{1}
	weights := map[common.Account]common.Amount{rep: common.AmountFromUint64(10)}
	e := New(common.Hash{9}, 10, common.AmountFromUint64(1_000_000), flatWeigher(weights))
	a := stateBlock(common.Account{1}, 1)
	require.True(t, e.AddCandidate(a))

	require.True(t, e.ApplyVoteForHash(a.Hash(), votecache.Vote{Voter: rep, Sequence: 5, Hashes: []common.Hash{a.Hash()}}))
	assert.False(t, e.ApplyVoteForHash(a.Hash(), votecache.Vote{Voter: rep, Sequence: 5, Hashes: []common.Hash{a.Hash()}}))
	assert.False(t, e.ApplyVoteForHash(a.Hash(), votecache.Vote{Voter: rep, Sequence: 4, Hashes: []common.Hash{a.Hash()}}))
	assert.True(t, e.ApplyVoteForHash(a.Hash(), votecache.Vote{Voter: rep, Sequence: 6, Final: true, Hashes: []common.Hash{a.Hash()}}))
}
