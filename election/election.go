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

// Package election is the per-root election engine (L6): a transient
// object that tallies stake-weighted votes over a bounded set of
// competing blocks and decides, by quorum, which one is confirmed.
package election

import (
	"sync"
	"time"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/votecache"
)

var logger = log.NewModuleLogger(log.Election)

// Status is an election's lifecycle state.
type Status int

const (
	StatusRunning Status = iota
	StatusConfirmed
)

type candidate struct {
	blk   block.Block
	tally common.Amount
}

// votedAt is the latest vote recorded from one representative, with the
// stake weight snapshotted at receipt time so tallying never needs to
// re-resolve weight for historical votes.
type votedAt struct {
	sequence uint64
	hash     common.Hash
	final    bool
	weight   common.Amount
}

// Election tallies votes for the candidate blocks competing at a single
// root. Not safe for concurrent use except through its exported methods.
type Election struct {
	mu sync.Mutex

	root   common.Hash
	maxLen int
	quorum common.Amount
	weigh  votecache.Weigher

	candidates map[common.Hash]*candidate
	order      []common.Hash
	votes      map[common.Account]votedAt
	polled     map[common.Account]struct{}

	status Status
	winner common.Hash

	confirmationRequestCount int
	createdAt                time.Time

	snapshots *common.TallySnapshotCache
}

// New creates a running election at root with no candidates. quorum is
// the absolute weight threshold (online trended weight times the
// configured quorum fraction) required to confirm.
func New(root common.Hash, maxCandidates int, quorum common.Amount, weigh votecache.Weigher) *Election {
	if maxCandidates <= 0 {
		maxCandidates = 10
	}
	return &Election{
		root:       root,
		maxLen:     maxCandidates,
		quorum:     quorum,
		weigh:      weigh,
		candidates: make(map[common.Hash]*candidate),
		votes:      make(map[common.Account]votedAt),
		polled:     make(map[common.Account]struct{}),
		createdAt:  time.Now(),
	}
}

func (e *Election) Root() common.Hash { return e.root }

// SetSnapshotCache attaches the shared leading-candidate cache this
// election writes through to on every recompute. Nil is a valid no-op.
func (e *Election) SetSnapshotCache(c *common.TallySnapshotCache) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshots = c
}

// AddCandidate inserts blk as a competitor at this root. Beyond maxLen
// candidates, the lowest-tally existing candidate is evicted only if
// blk's hash already carries strictly more supporting weight than the
// evictee (the fork filter); otherwise blk is dropped and AddCandidate
// reports false.
func (e *Election) AddCandidate(blk block.Block) bool {
	hash := blk.Hash()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusConfirmed {
		return hash == e.winner
	}
	if _, ok := e.candidates[hash]; ok {
		return true
	}
	if len(e.candidates) < e.maxLen {
		e.insertCandidateLocked(hash, blk)
		e.recomputeLocked()
		return true
	}

	evictHash, evictTally, ok := e.lowestTallyLocked()
	if !ok {
		return false
	}
	incoming := e.tallyForLocked(hash)
	if incoming.Cmp(evictTally) <= 0 {
		return false
	}
	delete(e.candidates, evictHash)
	e.removeFromOrderLocked(evictHash)
	e.insertCandidateLocked(hash, blk)
	e.recomputeLocked()
	return true
}

func (e *Election) insertCandidateLocked(hash common.Hash, blk block.Block) {
	e.candidates[hash] = &candidate{blk: blk}
	e.order = append(e.order, hash)
}

func (e *Election) removeFromOrderLocked(hash common.Hash) {
	for i, h := range e.order {
		if h == hash {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}

func (e *Election) lowestTallyLocked() (common.Hash, common.Amount, bool) {
	var (
		best    common.Hash
		lowest  common.Amount
		hasBest bool
	)
	for _, hash := range e.order {
		t := e.candidates[hash].tally
		if !hasBest || t.Cmp(lowest) < 0 {
			best, lowest, hasBest = hash, t, true
		}
	}
	return best, lowest, hasBest
}

func (e *Election) tallyForLocked(hash common.Hash) common.Amount {
	var total common.Amount
	for _, vt := range e.votes {
		if vt.hash == hash {
			total, _ = total.Add(vt.weight)
		}
	}
	return total
}

// ApplyVoteForHash folds a vote into this election's tally for hash,
// applying the (sequence, is_final)-dominated replacement rule per
// voter: a vote only overwrites the voter's prior entry if strictly
// newer, and a final vote is never superseded by a non-final one. It
// returns whether the vote changed anything.
func (e *Election) ApplyVoteForHash(hash common.Hash, v votecache.Vote) bool {
	weight, err := e.weigh(v.Voter)
	if err != nil || weight.IsZero() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusConfirmed {
		return false
	}
	if prior, ok := e.votes[v.Voter]; ok {
		if prior.final && !v.Final {
			return false
		}
		if prior.sequence >= v.Sequence && !(v.Final && !prior.final) {
			return false
		}
	}
	e.votes[v.Voter] = votedAt{sequence: v.Sequence, hash: hash, final: v.Final, weight: weight}
	e.recomputeLocked()
	return true
}

// recomputeLocked refreshes every candidate's tally and checks the
// confirmation rule: a single candidate reaching quorum of final-vote
// weight, or a final vote from every polled representative summing to
// quorum.
func (e *Election) recomputeLocked() {
	tallies := make(map[common.Hash]common.Amount, len(e.candidates))
	finalTallies := make(map[common.Hash]common.Amount, len(e.candidates))
	var finalTotal common.Amount

	for _, vt := range e.votes {
		t, _ := tallies[vt.hash].Add(vt.weight)
		tallies[vt.hash] = t
		if vt.final {
			ft, _ := finalTallies[vt.hash].Add(vt.weight)
			finalTallies[vt.hash] = ft
			finalTotal, _ = finalTotal.Add(vt.weight)
		}
	}
	for h, c := range e.candidates {
		c.tally = tallies[h]
	}
	if e.snapshots != nil {
		if leader, ok := e.pluralityLocked(tallies); ok {
			e.snapshots.Set(e.root, leader, tallies[leader])
		}
	}

	if e.status == StatusConfirmed {
		return
	}

	for _, h := range e.order {
		if finalTallies[h].Cmp(e.quorum) >= 0 {
			e.confirmLocked(h)
			return
		}
	}

	if len(e.polled) == 0 {
		return
	}
	for rep := range e.polled {
		vt, ok := e.votes[rep]
		if !ok || !vt.final {
			return
		}
	}
	if finalTotal.Cmp(e.quorum) < 0 {
		return
	}
	if winner, ok := e.pluralityLocked(tallies); ok {
		e.confirmLocked(winner)
	}
}

func (e *Election) pluralityLocked(tallies map[common.Hash]common.Amount) (common.Hash, bool) {
	var (
		best    common.Hash
		top     common.Amount
		hasBest bool
	)
	for _, h := range e.order {
		t := tallies[h]
		if !hasBest || t.Cmp(top) > 0 {
			best, top, hasBest = h, t, true
		}
	}
	return best, hasBest
}

func (e *Election) confirmLocked(hash common.Hash) {
	e.status = StatusConfirmed
	e.winner = hash
	e.snapshots.Del(e.root)
	logger.Info("election confirmed", "root", e.root, "winner", hash)
}

// RecordPoll adds reps to the set of representatives this election has
// sent a confirm_req to; used by rule (b) of the confirmation test
// ("a final vote from every weight-holder the election has polled").
func (e *Election) RecordPoll(reps []common.Account) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range reps {
		e.polled[r] = struct{}{}
	}
	e.confirmationRequestCount++
}

// Confirmed reports the winning hash and whether the election has
// reached quorum.
func (e *Election) Confirmed() (common.Hash, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner, e.status == StatusConfirmed
}

// Winner returns the currently-leading candidate block, or nil if the
// election has no candidates yet. Before confirmation this is the best
// guess, not a final answer.
func (e *Election) Winner() block.Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	hash := e.winner
	if e.status != StatusConfirmed {
		if h, ok := e.pluralityLocked(e.tallySnapshotLocked()); ok {
			hash = h
		} else {
			return nil
		}
	}
	c, ok := e.candidates[hash]
	if !ok {
		return nil
	}
	return c.blk
}

func (e *Election) tallySnapshotLocked() map[common.Hash]common.Amount {
	out := make(map[common.Hash]common.Amount, len(e.candidates))
	for h, c := range e.candidates {
		out[h] = c.tally
	}
	return out
}

// CandidateHashes returns the hashes currently competing at this root.
func (e *Election) CandidateHashes() []common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]common.Hash, len(e.order))
	copy(out, e.order)
	return out
}

// ConfirmationRequestCount reports how many confirm_req rounds this
// election has emitted.
func (e *Election) ConfirmationRequestCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmationRequestCount
}

// Age reports how long this election has been running.
func (e *Election) Age() time.Duration { return time.Since(e.createdAt) }

// Tally reports a candidate's current tally, for priority/eviction
// decisions in the active set.
func (e *Election) Tally(hash common.Hash) common.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.candidates[hash]; ok {
		return c.tally
	}
	return common.Amount{}
}

// LowestTally reports the smallest tally among this election's current
// candidates, used to rank elections against each other for eviction.
func (e *Election) LowestTally() common.Amount {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, t, _ := e.lowestTallyLocked()
	return t
}
