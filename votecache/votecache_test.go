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

package votecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanocurrency/nano-node-sub005/common"
)

func flatWeigher(w common.Amount) Weigher {
	return func(common.Account) (common.Amount, error) { return w, nil }
}

func TestVoteCachesWhenNoLiveElection(t *testing.T) {
	c := New(16, 16, flatWeigher(common.AmountFromUint64(100)))
	hash := common.Hash{1}
	voter := common.Account{1}

	code, err := c.Vote(Vote{Voter: voter, Sequence: 1, Hashes: []common.Hash{hash}})
	require.NoError(t, err)
	assert.Equal(t, Replay, code)
	assert.Equal(t, 1, c.Len())
}

func TestVoteReplaysOnElectionStart(t *testing.T) {
	c := New(16, 16, flatWeigher(common.AmountFromUint64(100)))
	hash := common.Hash{2}
	voter := common.Account{2}

	_, err := c.Vote(Vote{Voter: voter, Sequence: 1, Hashes: []common.Hash{hash}})
	require.NoError(t, err)

	var replayed []Vote
	c.RegisterElection(hash, func(v Vote) bool {
		replayed = append(replayed, v)
		return true
	})

	require.Len(t, replayed, 1)
	assert.Equal(t, voter, replayed[0].Voter)
}

func TestVoteRoutesDirectlyToLiveElection(t *testing.T) {
	c := New(16, 16, flatWeigher(common.AmountFromUint64(100)))
	hash := common.Hash{3}
	voter := common.Account{3}

	var applied int
	c.RegisterElection(hash, func(Vote) bool { applied++; return true })

	code, err := c.Vote(Vote{Voter: voter, Sequence: 1, Hashes: []common.Hash{hash}})
	require.NoError(t, err)
	assert.Equal(t, Applied, code)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 0, c.Len(), "a vote routed to a live election is never cached")
}

func TestZeroWeightVoteIsIgnored(t *testing.T) {
	c := New(16, 16, flatWeigher(common.Amount{}))
	hash := common.Hash{4}

	code, err := c.Vote(Vote{Voter: common.Account{4}, Sequence: 1, Hashes: []common.Hash{hash}})
	require.NoError(t, err)
	assert.Equal(t, Ignored, code)
}

func TestFinalVoteIsNotSupersededByNonFinal(t *testing.T) {
	e := newEntry()
	voter := common.Account{5}

	assert.True(t, e.merge(Vote{Voter: voter, Sequence: 5, Final: true}))
	assert.False(t, e.merge(Vote{Voter: voter, Sequence: 6, Final: false}))
	assert.True(t, e.merge(Vote{Voter: voter, Sequence: 6, Final: true}))
}
