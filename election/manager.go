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
	"math/big"
	"math/rand"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/confirm"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/store"
	"github.com/nanocurrency/nano-node-sub005/votecache"
)

// Bucket is the active set's priority class. Capacity is split three
// ways so a flood of low-priority elections can never starve the ones a
// live block actually depends on.
type Bucket int

const (
	BucketOptimistic Bucket = iota
	BucketHinted
	BucketPriority
)

// Transport emits a confirm_req for root/hash to peer. Wired to the
// message package's outbound path in a running node; nil is a valid
// no-op transport for tests and network-less nodes.
type Transport interface {
	SendConfirmReq(peer common.Account, root, hash common.Hash) error
}

// PrincipalReps resolves the current set of principal representatives
// (those with delegated weight above the configured minimum), backed by
// the wallet store's representative cache plus peer gossip.
type PrincipalReps func() []common.Account

type slot struct {
	election *Election
	bucket   Bucket
}

// Manager is the active election set: it creates, tallies, confirms and
// evicts elections, and drives the periodic confirm_req scheduler.
type Manager struct {
	cfg     config.Config
	ledger  *ledger.Ledger
	confirm *confirm.Set
	votes   *votecache.Cache
	weigh   votecache.Weigher

	transport     Transport
	principalReps PrincipalReps

	mu       sync.Mutex
	byRoot   map[common.Hash]*slot
	capacity map[Bucket]int

	snapshots *common.TallySnapshotCache

	quorum common.Amount

	quit chan struct{}
	wg   sync.WaitGroup
}

// New builds a Manager with capacity split across priority buckets
// according to cfg, and an absolute quorum weight of
// onlineTrendedWeight * cfg.QuorumFraction.
func New(cfg config.Config, l *ledger.Ledger, cs *confirm.Set, vc *votecache.Cache, onlineTrendedWeight common.Amount, transport Transport, principalReps PrincipalReps) *Manager {
	weigh := func(a common.Account) (common.Amount, error) { return l.Weight(a) }

	total := cfg.ActiveElectionsSize
	if total <= 0 {
		total = 5000
	}
	hinted := total * cfg.HintedLimitPercentage / 100
	optimistic := total * cfg.OptimisticLimitPercentage / 100
	priority := total - hinted - optimistic
	if priority < 0 {
		priority = 0
	}

	quorum := quorumWeight(onlineTrendedWeight, cfg.QuorumFraction)

	return &Manager{
		cfg:           cfg,
		ledger:        l,
		confirm:       cs,
		votes:         vc,
		weigh:         weigh,
		transport:     transport,
		principalReps: principalReps,
		byRoot:        make(map[common.Hash]*slot),
		capacity: map[Bucket]int{
			BucketOptimistic: optimistic,
			BucketHinted:     hinted,
			BucketPriority:   priority,
		},
		snapshots: common.NewTallySnapshotCache(cfg.ElectionTallyCacheBytes),
		quorum:    quorum,
		quit:      make(chan struct{}),
	}
}

// CachedTally reports root's last-cached leading candidate and tally
// without taking the active set's lock, for status/RPC reads that can
// tolerate a slightly stale answer.
func (m *Manager) CachedTally(root common.Hash) (common.Hash, common.Amount, bool) {
	return m.snapshots.Get(root)
}

func quorumWeight(online common.Amount, fraction float64) common.Amount {
	scaled := new(big.Float).Mul(new(big.Float).SetInt(online.Big()), big.NewFloat(fraction))
	i, _ := scaled.Int(nil)
	out, _ := common.AmountFromBig(i)
	return out
}

// Activate starts or joins an election for blk's root in bucket. It is
// the priority-path entry point: the block processor calls this after a
// successful ledger Progress, and the hinted/optimistic schedulers call
// it when their own triggers fire.
func (m *Manager) Activate(blk block.Block, bucket Bucket) *Election {
	root := blk.Root()

	m.mu.Lock()
	if s, ok := m.byRoot[root]; ok {
		m.mu.Unlock()
		s.election.AddCandidate(blk)
		return s.election
	}
	if len(m.electionsInBucketLocked(bucket)) >= m.capacity[bucket] {
		if !m.evictForLocked(bucket) {
			m.mu.Unlock()
			logger.Debug("active set full, election dropped", "root", root, "bucket", bucket)
			return nil
		}
	}
	e := New(root, m.cfg.MaxBlocksPerElection, m.quorum, m.weigh)
	e.SetSnapshotCache(m.snapshots)
	m.byRoot[root] = &slot{election: e, bucket: bucket}
	m.mu.Unlock()

	e.AddCandidate(blk)
	m.votes.RegisterElection(blk.Hash(), func(v votecache.Vote) bool {
		return m.onVote(e, blk.Hash(), v)
	})
	return e
}

// Fork starts (or joins) an election at root with both the ledger's
// existing occupant and the newly-arrived competitor as candidates, the
// way the block processor reacts to a Fork status from ledger.Process.
func (m *Manager) Fork(existing, incoming block.Block) *Election {
	e := m.Activate(existing, BucketPriority)
	if e == nil {
		return nil
	}
	if e.AddCandidate(incoming) {
		m.votes.RegisterElection(incoming.Hash(), func(v votecache.Vote) bool {
			return m.onVote(e, incoming.Hash(), v)
		})
	}
	return e
}

func (m *Manager) electionsInBucketLocked(b Bucket) []*slot {
	var out []*slot
	for _, s := range m.byRoot {
		if s.bucket == b {
			out = append(out, s)
		}
	}
	return out
}

// evictForLocked makes room for a new election in bucket, following the
// documented order: evict optimistic elections first, then hinted, then
// the lowest-tally priority election, never a confirmed one. Called
// with m.mu held.
func (m *Manager) evictForLocked(wanted Bucket) bool {
	order := []Bucket{BucketOptimistic, BucketHinted, BucketPriority}
	for _, b := range order {
		if victim, ok := m.lowestTallyInBucketLocked(b); ok {
			delete(m.byRoot, victim.election.Root())
			m.snapshots.Del(victim.election.Root())
			logger.Debug("evicted election under pressure", "root", victim.election.Root(), "bucket", b)
			return true
		}
		if b == wanted {
			break
		}
	}
	return false
}

func (m *Manager) lowestTallyInBucketLocked(b Bucket) (*slot, bool) {
	var (
		best    *slot
		lowest  common.Amount
		hasBest bool
	)
	for _, s := range m.byRoot {
		if s.bucket != b {
			continue
		}
		if _, confirmed := s.election.Confirmed(); confirmed {
			continue
		}
		t := s.election.LowestTally()
		if !hasBest || t.Cmp(lowest) < 0 {
			best, lowest, hasBest = s, t, true
		}
	}
	return best, hasBest
}

func (m *Manager) onVote(e *Election, hash common.Hash, v votecache.Vote) bool {
	changed := e.ApplyVoteForHash(hash, v)
	if winner, ok := e.Confirmed(); ok {
		m.onConfirmed(e, winner)
	}
	return changed
}

// onConfirmed applies a confirmed election's outcome: switches the
// winner into the ledger if a different chain currently occupies the
// root (rolling back the loser first), enqueues the winner for
// cementation, and retires the election.
func (m *Manager) onConfirmed(e *Election, winnerHash common.Hash) {
	winner := e.Winner()
	if winner == nil {
		return
	}
	root := e.Root()

	current, hasCurrent, err := m.occupant(root, winner)
	if err != nil {
		logger.Warn("occupant lookup failed while applying confirmed election", "root", root, "err", err)
	}

	if !hasCurrent || current != winnerHash {
		err := m.ledger.Update(func(txn store.Txn) error {
			if hasCurrent {
				if err := m.ledger.Rollback(txn, current); err != nil {
					return err
				}
			}
			_, err := m.ledger.Process(txn, winner)
			return err
		})
		if err != nil {
			logger.Error("failed to switch confirmed winner into ledger", "root", root, "err", err)
		}
	}

	m.confirm.Add(winnerHash, root)

	m.mu.Lock()
	for _, hash := range e.CandidateHashes() {
		m.votes.UnregisterElection(hash)
	}
	delete(m.byRoot, root)
	m.mu.Unlock()
}

// occupant resolves the block hash currently occupying root in the
// ledger, if any: for an open root that is the account's recorded open
// block, for any other root it is the block whose previous is root.
func (m *Manager) occupant(root common.Hash, sample block.Block) (common.Hash, bool, error) {
	if sample.Previous().IsZero() {
		acct := common.Account(root)
		info, ok, err := m.ledger.AccountInfo(acct)
		if err != nil || !ok {
			return common.Hash{}, false, err
		}
		return info.Open, true, nil
	}
	return m.ledger.Successor(root)
}

// Start launches the confirm_req scheduler goroutine.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.schedulerLoop()
}

// Stop signals the scheduler to exit and waits for it.
func (m *Manager) Stop() {
	close(m.quit)
	m.wg.Wait()
}

func (m *Manager) schedulerLoop() {
	defer m.wg.Done()
	interval := m.cfg.ConfirmReqTickInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick broadcasts a confirm_req for every unconfirmed election's current
// best candidate to a sample of principal representatives, the way an
// active election periodically re-polls the network for a final vote.
func (m *Manager) tick() {
	m.mu.Lock()
	slots := make([]*slot, 0, len(m.byRoot))
	for _, s := range m.byRoot {
		slots = append(slots, s)
	}
	m.mu.Unlock()

	sample := m.sampleReps()
	if len(sample) == 0 {
		return
	}

	for _, s := range slots {
		if _, confirmed := s.election.Confirmed(); confirmed {
			continue
		}
		winner := s.election.Winner()
		if winner == nil {
			continue
		}
		s.election.RecordPoll(sample)
		if m.transport == nil {
			continue
		}
		for _, rep := range sample {
			if err := m.transport.SendConfirmReq(rep, s.election.Root(), winner.Hash()); err != nil {
				logger.Debug("confirm_req send failed", "peer", rep, "root", s.election.Root(), "err", err)
			}
		}
	}
}

// sampleReps draws up to cfg.ConfirmReqSampleSize principal
// representatives to poll this round, deduplicated through a set the
// way the teacher's validator-address tracking uses golang-set.
func (m *Manager) sampleReps() []common.Account {
	if m.principalReps == nil {
		return nil
	}
	all := m.principalReps()
	set := mapset.NewSet()
	for _, a := range all {
		set.Add(a)
	}
	n := m.cfg.ConfirmReqSampleSize
	if n <= 0 || set.Cardinality() <= n {
		out := make([]common.Account, 0, set.Cardinality())
		for v := range set.Iter() {
			out = append(out, v.(common.Account))
		}
		return out
	}

	items := set.ToSlice()
	rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	out := make([]common.Account, 0, n)
	for _, v := range items[:n] {
		out = append(out, v.(common.Account))
	}
	return out
}

// Len reports the number of live elections.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byRoot)
}

// Election returns the live election at root, if any.
func (m *Manager) Election(root common.Hash) (*Election, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byRoot[root]
	if !ok {
		return nil, false
	}
	return s.election, true
}
