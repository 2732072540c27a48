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

// Package ledger is the content-addressed store of account chains:
// strict block validation, balance/representation bookkeeping and
// rollback. Write transactions against it come from the block processor
// and from the election engine's fork switch (via Update); every other
// caller uses the read-only helpers below.
package ledger

import (
	"errors"
	"time"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/store"
)

var logger = log.NewModuleLogger(log.Ledger)

var (
	ErrRollbackCemented = errors.New("ledger: refusing to roll back a cemented block")
	ErrNotHead          = errors.New("ledger: can only roll back an account's current chain head")
	ErrReadOnly         = errors.New("ledger: write operation attempted on a read transaction")
	ErrUnknownBlockType = errors.New("ledger: unknown block type")
)

// CementedChecker answers whether a block is already part of the
// confirmed, cemented history. The ledger never cements blocks itself;
// it only refuses to undo one. Wired in via SetCementedChecker once the
// confirming set exists, breaking the construction cycle between the
// two packages.
type CementedChecker interface {
	IsCemented(hash common.Hash) bool
}

type noCementedChecker struct{}

func (noCementedChecker) IsCemented(common.Hash) bool { return false }

// Ledger owns the account-chain tables over a generic key-value Store.
type Ledger struct {
	db     store.Store
	cement CementedChecker

	genesisAccount common.Account
	genesisSupply  common.Amount
	burnAccount    common.Account
	blockInfoMax   uint64

	metrics Metrics
}

// Metrics are the counters the ledger bumps on notable outcomes. Nil
// fields are safe to call.
type Metrics struct {
	RollbackFailed func()
	Rejected       func(status Status)
}

func (m Metrics) rollbackFailed() {
	if m.RollbackFailed != nil {
		m.RollbackFailed()
	}
}

func (m Metrics) rejected(s Status) {
	if m.Rejected != nil {
		m.Rejected(s)
	}
}

// Options configures a new Ledger.
type Options struct {
	GenesisAccount common.Account
	GenesisSupply  common.Amount
	BurnAccount    common.Account
	BlockInfoMax   uint64
	Metrics        Metrics
}

func New(db store.Store, opt Options) *Ledger {
	if opt.BlockInfoMax == 0 {
		opt.BlockInfoMax = 128
	}
	return &Ledger{
		db:             db,
		cement:         noCementedChecker{},
		genesisAccount: opt.GenesisAccount,
		genesisSupply:  opt.GenesisSupply,
		burnAccount:    opt.BurnAccount,
		blockInfoMax:   opt.BlockInfoMax,
		metrics:        opt.Metrics,
	}
}

// SetCementedChecker wires the confirming set once it has been
// constructed over this ledger.
func (l *Ledger) SetCementedChecker(c CementedChecker) { l.cement = c }

// Update runs fn in a write transaction over the underlying store,
// committing on a nil return. The election engine uses this to switch a
// fork's winner into the ledger (rollback the loser, process the
// winner) as a single atomic step; the block processor uses it for
// ordinary block application.
func (l *Ledger) Update(fn func(store.Txn) error) error { return l.db.Update(fn) }

// OpenGenesis plants the genesis account directly, bypassing the normal
// open-block pending-entry requirement: genesis supply exists ex nihilo,
// it is never the destination of a real send. Returns the genesis open
// block's hash. Intended for node startup (and tests) only — any other
// caller should go through Process.
func (l *Ledger) OpenGenesis(acct common.Account, supply common.Amount) (common.Hash, error) {
	openBlk := &block.OpenBlock{Representative: acct, Account: acct}
	hash := openBlk.Hash()
	err := l.db.Update(func(txn store.Txn) error {
		if existing, ok, err := l.getAccountInfo(txn, acct); err != nil {
			return err
		} else if ok {
			hash = existing.Head
			return nil
		}
		if err := putRecord(txn, store.TableBlocksOpen, hash, openBlk, sideband{
			account: acct, representative: acct, balance: supply, height: 1, timestamp: time.Now().Unix(),
		}); err != nil {
			return err
		}
		if err := l.setFrontier(txn, common.Hash{}, hash, acct); err != nil {
			return err
		}
		if err := l.addWeight(txn, acct, supply, false); err != nil {
			return err
		}
		return l.putAccountInfo(txn, acct, AccountInfo{
			Head: hash, Open: hash, Representative: acct, Balance: supply, BlockCount: 1,
		})
	})
	return hash, err
}

var blockTables = []struct {
	typ   block.Type
	table store.Table
}{
	{block.TypeSend, store.TableBlocksSend},
	{block.TypeReceive, store.TableBlocksReceive},
	{block.TypeOpen, store.TableBlocksOpen},
	{block.TypeChange, store.TableBlocksChange},
	{block.TypeState, store.TableBlocksState},
}

func tableForType(t block.Type) (store.Table, bool) {
	for _, e := range blockTables {
		if e.typ == t {
			return e.table, true
		}
	}
	return "", false
}

// sideband is cached, ledger-maintained metadata stored alongside every
// block body: the account it belongs to, the chain's representative and
// balance immediately after the block, its position in the chain, and
// the hash that succeeds it (zero if it is still the head). It exists
// so Rollback never has to replay a chain from genesis to recover the
// state a block undid.
type sideband struct {
	account        common.Account
	representative common.Account
	balance        common.Amount
	height         uint64
	timestamp      int64
	successor      common.Hash
}

const sidebandSize = common.AccountSize*2 + common.AmountSize + 8 + 8 + common.HashSize

func encodeSideband(sb sideband) []byte {
	buf := make([]byte, 0, sidebandSize)
	buf = append(buf, sb.account[:]...)
	buf = append(buf, sb.representative[:]...)
	buf = append(buf, sb.balance[:]...)
	buf = append(buf, block.EncodeUint64(sb.height)...)
	buf = append(buf, block.EncodeUint64(uint64(sb.timestamp))...)
	buf = append(buf, sb.successor[:]...)
	return buf
}

func decodeSideband(b []byte) sideband {
	var sb sideband
	off := 0
	sb.account = common.BytesToAccount(b[off : off+common.AccountSize])
	off += common.AccountSize
	sb.representative = common.BytesToAccount(b[off : off+common.AccountSize])
	off += common.AccountSize
	sb.balance = common.BytesToAmount(b[off : off+common.AmountSize])
	off += common.AmountSize
	sb.height = block.DecodeUint64(b[off : off+8])
	off += 8
	sb.timestamp = int64(block.DecodeUint64(b[off : off+8]))
	off += 8
	sb.successor = common.BytesToHash(b[off : off+common.HashSize])
	return sb
}

// record is the on-disk encoding of a stored block: canonical body,
// signature, epoch tag, and the sideband.
type record struct {
	body []byte
	sig  common.Signature
	ep   block.Epoch
	sb   sideband
}

func encodeRecord(blk block.Block, sb sideband) []byte {
	body := blk.CanonicalBytes()
	out := make([]byte, 0, len(body)+common.SignatureSize+1+sidebandSize)
	out = append(out, body...)
	sig := blk.Signature()
	out = append(out, sig[:]...)
	out = append(out, byte(blk.Epoch()))
	out = append(out, encodeSideband(sb)...)
	return out
}

var errTruncatedRecord = errors.New("ledger: truncated block record")

func decodeRecord(raw []byte) (record, error) {
	if len(raw) < common.SignatureSize+1+sidebandSize {
		return record{}, errTruncatedRecord
	}
	bodyLen := len(raw) - common.SignatureSize - 1 - sidebandSize
	var r record
	r.body = raw[:bodyLen]
	r.sig = common.BytesToSignature(raw[bodyLen : bodyLen+common.SignatureSize])
	r.ep = block.Epoch(raw[bodyLen+common.SignatureSize])
	r.sb = decodeSideband(raw[bodyLen+common.SignatureSize+1:])
	return r, nil
}

// findRecord locates a block's stored record by hash, probing each
// variant table in turn; the set of variants is fixed and small enough
// that a dedicated hash->type index would only add bookkeeping.
func findRecord(txn store.Txn, hash common.Hash) (store.Table, record, block.Block, bool, error) {
	for _, e := range blockTables {
		raw, err := txn.Get(e.table, hash[:])
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return "", record{}, nil, false, err
		}
		r, err := decodeRecord(raw)
		if err != nil {
			return "", record{}, nil, false, err
		}
		blk, err := block.ParseBody(r.body)
		if err != nil {
			return "", record{}, nil, false, err
		}
		blk.SetSignature(r.sig)
		return e.table, r, blk, true, nil
	}
	return "", record{}, nil, false, nil
}

func putRecord(txn store.Txn, table store.Table, hash common.Hash, blk block.Block, sb sideband) error {
	return txn.Put(table, hash[:], encodeRecord(blk, sb))
}

func (l *Ledger) getAccountInfo(txn store.Txn, a common.Account) (AccountInfo, bool, error) {
	raw, err := txn.Get(store.TableAccounts, a[:])
	if err == store.ErrNotFound {
		return AccountInfo{}, false, nil
	}
	if err != nil {
		return AccountInfo{}, false, err
	}
	return decodeAccountInfo(raw), true, nil
}

func (l *Ledger) putAccountInfo(txn store.Txn, a common.Account, info AccountInfo) error {
	return txn.Put(store.TableAccounts, a[:], info.encode())
}

func (l *Ledger) deleteAccountInfo(txn store.Txn, a common.Account) error {
	return txn.Delete(store.TableAccounts, a[:])
}

func (l *Ledger) frontierAccount(txn store.Txn, head common.Hash) (common.Account, bool, error) {
	raw, err := txn.Get(store.TableFrontiers, head[:])
	if err == store.ErrNotFound {
		return common.Account{}, false, nil
	}
	if err != nil {
		return common.Account{}, false, err
	}
	return common.BytesToAccount(raw), true, nil
}

func (l *Ledger) setFrontier(txn store.Txn, oldHead, newHead common.Hash, acct common.Account) error {
	if !oldHead.IsZero() {
		if err := txn.Delete(store.TableFrontiers, oldHead[:]); err != nil {
			return err
		}
	}
	if newHead.IsZero() {
		return nil
	}
	return txn.Put(store.TableFrontiers, newHead[:], acct[:])
}

func (l *Ledger) getPending(txn store.Txn, k PendingKey) (PendingEntry, bool, error) {
	raw, err := txn.Get(store.TablePending, k.encode())
	if err == store.ErrNotFound {
		return PendingEntry{}, false, nil
	}
	if err != nil {
		return PendingEntry{}, false, err
	}
	return decodePendingEntry(raw), true, nil
}

func (l *Ledger) putPending(txn store.Txn, k PendingKey, e PendingEntry) error {
	return txn.Put(store.TablePending, k.encode(), e.encode())
}

func (l *Ledger) deletePending(txn store.Txn, k PendingKey) error {
	return txn.Delete(store.TablePending, k.encode())
}

func (l *Ledger) addWeight(txn store.Txn, rep common.Account, delta common.Amount, negative bool) error {
	if rep.IsZero() || delta.IsZero() {
		return nil
	}
	raw, err := txn.Get(store.TableRepresentation, rep[:])
	var cur common.Amount
	if err == nil {
		cur = common.BytesToAmount(raw)
	} else if err != store.ErrNotFound {
		return err
	}
	var next common.Amount
	if negative {
		next, err = cur.Sub(delta)
		if err != nil {
			// A weight ledger rebuilt mid-bootstrap can briefly underflow
			// on a subtraction it has not yet seen the matching addition
			// for; clamp instead of failing the whole block apply.
			next = common.Amount{}
		}
	} else {
		next, err = cur.Add(delta)
		if err != nil {
			return err
		}
	}
	return txn.Put(store.TableRepresentation, rep[:], next[:])
}

// Weight returns the total stake currently delegated to rep.
func (l *Ledger) Weight(rep common.Account) (common.Amount, error) {
	var out common.Amount
	err := l.db.View(func(txn store.Txn) error {
		raw, err := txn.Get(store.TableRepresentation, rep[:])
		if err == store.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		out = common.BytesToAmount(raw)
		return nil
	})
	return out, err
}

// AccountBalance returns an account's current balance.
func (l *Ledger) AccountBalance(a common.Account) (common.Amount, error) {
	var out common.Amount
	err := l.db.View(func(txn store.Txn) error {
		info, ok, err := l.getAccountInfo(txn, a)
		if err != nil {
			return err
		}
		if ok {
			out = info.Balance
		}
		return nil
	})
	return out, err
}

// Latest returns the current head block hash of an account's chain.
func (l *Ledger) Latest(a common.Account) (common.Hash, error) {
	var out common.Hash
	err := l.db.View(func(txn store.Txn) error {
		info, ok, err := l.getAccountInfo(txn, a)
		if err != nil {
			return err
		}
		if ok {
			out = info.Head
		}
		return nil
	})
	return out, err
}

// AccountOf returns the account a stored block belongs to, recovered
// from its cached sideband; this works for every variant, including the
// legacy send/receive/change blocks whose wire format carries no
// account field of their own.
func (l *Ledger) AccountOf(hash common.Hash) (common.Account, bool, error) {
	var (
		out common.Account
		ok  bool
	)
	err := l.db.View(func(txn store.Txn) error {
		_, r, _, found, err := findRecord(txn, hash)
		out, ok = r.sb.account, found
		return err
	})
	return out, ok, err
}

// AccountInfo exposes the raw per-account record for callers (bootstrap
// frontier scan, wallet representative probing) that need more than a
// single field.
func (l *Ledger) AccountInfo(a common.Account) (AccountInfo, bool, error) {
	var (
		out AccountInfo
		ok  bool
	)
	err := l.db.View(func(txn store.Txn) error {
		var err error
		out, ok, err = l.getAccountInfo(txn, a)
		return err
	})
	return out, ok, err
}

// BlockExists reports whether hash is present (and not pruned).
func (l *Ledger) BlockExists(hash common.Hash) (bool, error) {
	var found bool
	err := l.db.View(func(txn store.Txn) error {
		_, _, _, ok, err := findRecord(txn, hash)
		found = ok
		return err
	})
	return found, err
}

// BlockExistsOrPruned reports existence even for blocks whose body has
// been pruned but whose hash/metadata survives in blocks_info.
func (l *Ledger) BlockExistsOrPruned(hash common.Hash) (bool, error) {
	exists, err := l.BlockExists(hash)
	if err != nil || exists {
		return exists, err
	}
	var pruned bool
	err = l.db.View(func(txn store.Txn) error {
		ok, err := txn.Has(store.TableBlocksInfo, hash[:])
		pruned = ok
		return err
	})
	return pruned, err
}

// Successor returns the hash of the block that follows hash on its
// chain, if any.
func (l *Ledger) Successor(hash common.Hash) (common.Hash, bool, error) {
	var (
		out common.Hash
		ok  bool
	)
	err := l.db.View(func(txn store.Txn) error {
		_, r, _, found, err := findRecord(txn, hash)
		if err != nil || !found {
			return err
		}
		ok = !r.sb.successor.IsZero()
		out = r.sb.successor
		return nil
	})
	return out, ok, err
}

// GetBlock returns the parsed block for hash, if present.
func (l *Ledger) GetBlock(hash common.Hash) (block.Block, bool, error) {
	var (
		out block.Block
		ok  bool
	)
	err := l.db.View(func(txn store.Txn) error {
		_, _, blk, found, err := findRecord(txn, hash)
		out, ok = blk, found
		return err
	})
	return out, ok, err
}

// DependentsConfirmed reports whether every block a new block would
// reference (previous, and a receive's source) is already cemented,
// letting the election engine and bootstrap scheduler decide a block is
// safe to build on top of.
func (l *Ledger) DependentsConfirmed(blk block.Block) bool {
	prev := blk.Previous()
	if !prev.IsZero() && !l.cement.IsCemented(prev) {
		return false
	}
	switch b := blk.(type) {
	case *block.ReceiveBlock:
		return l.cement.IsCemented(b.Source)
	case *block.OpenBlock:
		return l.cement.IsCemented(b.Source)
	case *block.StateBlock:
		if !b.Link.IsZero() && l.looksLikeReceive(b) {
			return l.cement.IsCemented(b.Link)
		}
	}
	return true
}

func (l *Ledger) looksLikeReceive(b *block.StateBlock) bool {
	info, ok, err := l.AccountInfo(b.Account)
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	return b.Balance.Cmp(info.Balance) > 0
}

// resolvePrevious resolves a legacy (non-state) block's implicit signer
// account by walking the frontier index: previous must name the current
// head of some account's chain, exactly as the original source's
// ledger::account(previous) lookup does.
func (l *Ledger) resolvePrevious(txn store.Txn, previous common.Hash) (common.Account, AccountInfo, Status, error) {
	acct, isHead, err := l.frontierAccount(txn, previous)
	if err != nil {
		return common.Account{}, AccountInfo{}, Progress, err
	}
	if isHead {
		info, ok, err := l.getAccountInfo(txn, acct)
		if err != nil {
			return common.Account{}, AccountInfo{}, Progress, err
		}
		if !ok {
			return common.Account{}, AccountInfo{}, GapPrevious, nil
		}
		return acct, info, Progress, nil
	}
	_, _, _, exists, err := findRecord(txn, previous)
	if err != nil {
		return common.Account{}, AccountInfo{}, Progress, err
	}
	if exists {
		return common.Account{}, AccountInfo{}, Fork, nil
	}
	return common.Account{}, AccountInfo{}, GapPrevious, nil
}

// Process validates and applies a single block inside a write
// transaction, returning the terminal Status. Only Progress mutates the
// ledger; every other status leaves it unchanged.
func (l *Ledger) Process(txn store.Txn, blk block.Block) (Status, error) {
	if !txn.Writable() {
		return Progress, ErrReadOnly
	}
	// A block already stored is a replay, whatever position its previous
	// now holds; report it before the per-variant checks see a fork.
	if _, _, _, exists, err := findRecord(txn, blk.Hash()); err != nil {
		return Progress, err
	} else if exists {
		l.metrics.rejected(Old)
		return Old, nil
	}
	var (
		status Status
		err    error
	)
	switch b := blk.(type) {
	case *block.SendBlock:
		status, err = l.processSend(txn, b)
	case *block.ReceiveBlock:
		status, err = l.processReceive(txn, b)
	case *block.OpenBlock:
		status, err = l.processOpen(txn, b)
	case *block.ChangeBlock:
		status, err = l.processChange(txn, b)
	case *block.StateBlock:
		status, err = l.processState(txn, b)
	default:
		return Progress, ErrUnknownBlockType
	}
	if err == nil && status != Progress {
		l.metrics.rejected(status)
	}
	return status, err
}

func (l *Ledger) processSend(txn store.Txn, b *block.SendBlock) (Status, error) {
	if b.PreviousHash.IsZero() {
		return GapPrevious, nil
	}
	acct, info, status, err := l.resolvePrevious(txn, b.PreviousHash)
	if err != nil || status != Progress {
		return status, err
	}
	if err := block.VerifySignature(b, acct); err != nil {
		return BadSignature, nil
	}
	if b.Balance.Cmp(info.Balance) > 0 {
		return NegativeSpend, nil
	}
	hash := b.Hash()
	if _, _, _, exists, err := findRecord(txn, hash); err != nil {
		return Progress, err
	} else if exists {
		return Old, nil
	}

	amount, err := info.Balance.Sub(b.Balance)
	if err != nil {
		return NegativeSpend, nil
	}

	next := info
	next.Head = hash
	next.Balance = b.Balance
	next.BlockCount++
	next.Modified = time.Now().Unix()

	if err := l.advanceChain(txn, store.TableBlocksSend, b, hash, acct, info, next); err != nil {
		return Progress, err
	}
	if err := l.putPending(txn, PendingKey{Destination: b.Destination, SendHash: hash}, PendingEntry{
		Source: acct, Amount: amount, Epoch: info.Epoch,
	}); err != nil {
		return Progress, err
	}
	return Progress, nil
}

func (l *Ledger) processReceive(txn store.Txn, b *block.ReceiveBlock) (Status, error) {
	if b.PreviousHash.IsZero() {
		return GapPrevious, nil
	}
	acct, info, status, err := l.resolvePrevious(txn, b.PreviousHash)
	if err != nil || status != Progress {
		return status, err
	}
	if err := block.VerifySignature(b, acct); err != nil {
		return BadSignature, nil
	}
	hash := b.Hash()
	if _, _, _, exists, err := findRecord(txn, hash); err != nil {
		return Progress, err
	} else if exists {
		return Old, nil
	}

	pending, ok, err := l.getPending(txn, PendingKey{Destination: acct, SendHash: b.Source})
	if err != nil {
		return Progress, err
	}
	if !ok {
		if sendExists, err := l.BlockExists(b.Source); err != nil {
			return Progress, err
		} else if sendExists {
			return Unreceivable, nil
		}
		return GapSource, nil
	}

	newBalance, err := info.Balance.Add(pending.Amount)
	if err != nil {
		return Progress, err
	}

	next := info
	next.Head = hash
	next.Balance = newBalance
	next.BlockCount++
	next.Modified = time.Now().Unix()

	if err := l.advanceChain(txn, store.TableBlocksReceive, b, hash, acct, info, next); err != nil {
		return Progress, err
	}
	if err := l.deletePending(txn, PendingKey{Destination: acct, SendHash: b.Source}); err != nil {
		return Progress, err
	}
	return Progress, nil
}

func (l *Ledger) processOpen(txn store.Txn, b *block.OpenBlock) (Status, error) {
	if existing, ok, err := l.getAccountInfo(txn, b.Account); err != nil {
		return Progress, err
	} else if ok {
		if existing.Open == b.Hash() {
			return Old, nil
		}
		return Fork, nil
	}
	if err := block.VerifySignature(b, b.Account); err != nil {
		return BadSignature, nil
	}
	if b.Account == l.burnAccount {
		return OpenedBurnAccount, nil
	}

	pending, ok, err := l.getPending(txn, PendingKey{Destination: b.Account, SendHash: b.Source})
	if err != nil {
		return Progress, err
	}
	if !ok {
		return GapSource, nil
	}

	hash := b.Hash()
	next := AccountInfo{
		Head:           hash,
		Open:           hash,
		Representative: b.Representative,
		Balance:        pending.Amount,
		BlockCount:     1,
		Epoch:          pending.Epoch,
		Modified:       time.Now().Unix(),
	}

	if err := l.addWeight(txn, b.Representative, pending.Amount, false); err != nil {
		return Progress, err
	}
	if err := putRecord(txn, store.TableBlocksOpen, hash, b, sideband{
		account: b.Account, representative: b.Representative, balance: pending.Amount,
		height: 1, timestamp: next.Modified,
	}); err != nil {
		return Progress, err
	}
	if err := l.setFrontier(txn, common.Hash{}, hash, b.Account); err != nil {
		return Progress, err
	}
	if err := l.deletePending(txn, PendingKey{Destination: b.Account, SendHash: b.Source}); err != nil {
		return Progress, err
	}
	return Progress, l.putAccountInfo(txn, b.Account, next)
}

func (l *Ledger) processChange(txn store.Txn, b *block.ChangeBlock) (Status, error) {
	if b.PreviousHash.IsZero() {
		return GapPrevious, nil
	}
	acct, info, status, err := l.resolvePrevious(txn, b.PreviousHash)
	if err != nil || status != Progress {
		return status, err
	}
	if err := block.VerifySignature(b, acct); err != nil {
		return BadSignature, nil
	}
	hash := b.Hash()
	if _, _, _, exists, err := findRecord(txn, hash); err != nil {
		return Progress, err
	} else if exists {
		return Old, nil
	}

	next := info
	next.Representative = b.Representative
	next.Head = hash
	next.BlockCount++
	next.Modified = time.Now().Unix()

	return Progress, l.advanceChain(txn, store.TableBlocksChange, b, hash, acct, info, next)
}

// processState dispatches a state block to the open/send/receive/change
// path its balance delta and link imply; state blocks fold every legacy
// operation into one self-describing variant.
func (l *Ledger) processState(txn store.Txn, b *block.StateBlock) (Status, error) {
	if b.PreviousHash.IsZero() {
		return l.processStateOpen(txn, b)
	}

	info, ok, err := l.getAccountInfo(txn, b.Account)
	if err != nil {
		return Progress, err
	}
	if !ok {
		return GapPrevious, nil
	}
	if info.Head != b.PreviousHash {
		if _, _, _, exists, err := findRecord(txn, b.PreviousHash); err != nil {
			return Progress, err
		} else if exists {
			return Fork, nil
		}
		return GapPrevious, nil
	}
	if err := block.VerifySignature(b, b.Account); err != nil {
		return BadSignature, nil
	}
	hash := b.Hash()
	if _, _, _, exists, err := findRecord(txn, hash); err != nil {
		return Progress, err
	} else if exists {
		return Old, nil
	}

	var pendingKey PendingKey
	var deletePending, createPending bool
	var pendingEntry PendingEntry

	switch cmp := b.Balance.Cmp(info.Balance); {
	case cmp == 0:
		// representative change only
	case cmp < 0:
		amount, err := info.Balance.Sub(b.Balance)
		if err != nil {
			return NegativeSpend, nil
		}
		pendingKey = PendingKey{Destination: common.Account(b.Link), SendHash: hash}
		pendingEntry = PendingEntry{Source: b.Account, Amount: amount, Epoch: b.Epoch()}
		createPending = true
	default:
		if b.Link.IsZero() {
			return BalanceMismatch, nil
		}
		pending, ok, err := l.getPending(txn, PendingKey{Destination: b.Account, SendHash: b.Link})
		if err != nil {
			return Progress, err
		}
		if !ok {
			if sendExists, err := l.BlockExists(b.Link); err != nil {
				return Progress, err
			} else if sendExists {
				return Unreceivable, nil
			}
			return GapSource, nil
		}
		amount, err := b.Balance.Sub(info.Balance)
		if err != nil {
			return Progress, err
		}
		if pending.Amount.Cmp(amount) != 0 {
			return BalanceMismatch, nil
		}
		pendingKey = PendingKey{Destination: b.Account, SendHash: b.Link}
		deletePending = true
	}

	next := info
	next.Representative = b.Representative
	next.Balance = b.Balance
	next.Head = hash
	next.BlockCount++
	next.Modified = time.Now().Unix()

	if err := l.advanceChain(txn, store.TableBlocksState, b, hash, b.Account, info, next); err != nil {
		return Progress, err
	}
	switch {
	case createPending:
		if err := l.putPending(txn, pendingKey, pendingEntry); err != nil {
			return Progress, err
		}
	case deletePending:
		if err := l.deletePending(txn, pendingKey); err != nil {
			return Progress, err
		}
	}
	return Progress, nil
}

func (l *Ledger) processStateOpen(txn store.Txn, b *block.StateBlock) (Status, error) {
	if existing, ok, err := l.getAccountInfo(txn, b.Account); err != nil {
		return Progress, err
	} else if ok {
		if existing.Open == b.Hash() {
			return Old, nil
		}
		return Fork, nil
	}
	if err := block.VerifySignature(b, b.Account); err != nil {
		return BadSignature, nil
	}
	if b.Account == l.burnAccount {
		return OpenedBurnAccount, nil
	}
	if b.Link.IsZero() {
		return GapEpochOpenPending, nil
	}

	pending, ok, err := l.getPending(txn, PendingKey{Destination: b.Account, SendHash: b.Link})
	if err != nil {
		return Progress, err
	}
	if !ok {
		return GapSource, nil
	}
	if pending.Amount.Cmp(b.Balance) != 0 {
		return BalanceMismatch, nil
	}

	hash := b.Hash()
	next := AccountInfo{
		Head: hash, Open: hash, Representative: b.Representative,
		Balance: b.Balance, BlockCount: 1, Epoch: b.Epoch(), Modified: time.Now().Unix(),
	}

	if err := l.addWeight(txn, b.Representative, b.Balance, false); err != nil {
		return Progress, err
	}
	if err := putRecord(txn, store.TableBlocksState, hash, b, sideband{
		account: b.Account, representative: b.Representative, balance: b.Balance,
		height: 1, timestamp: next.Modified,
	}); err != nil {
		return Progress, err
	}
	if err := l.setFrontier(txn, common.Hash{}, hash, b.Account); err != nil {
		return Progress, err
	}
	if err := l.deletePending(txn, PendingKey{Destination: b.Account, SendHash: b.Link}); err != nil {
		return Progress, err
	}
	return Progress, l.putAccountInfo(txn, b.Account, next)
}

// advanceChain performs the bookkeeping common to every non-open block:
// remove the old representative's weight contribution and add the new
// one, point the predecessor's sideband successor at hash, move the
// frontier pointer, and write the new record and account info.
func (l *Ledger) advanceChain(txn store.Txn, table store.Table, blk block.Block, hash common.Hash, acct common.Account, prevInfo, nextInfo AccountInfo) error {
	if err := l.addWeight(txn, prevInfo.Representative, prevInfo.Balance, true); err != nil {
		return err
	}
	if err := l.addWeight(txn, nextInfo.Representative, nextInfo.Balance, false); err != nil {
		return err
	}

	previous := blk.Previous()
	prevTable, prevRec, prevBlk, found, err := findRecord(txn, previous)
	if err != nil {
		return err
	}
	if found {
		prevRec.sb.successor = hash
		if err := putRecord(txn, prevTable, previous, prevBlk, prevRec.sb); err != nil {
			return err
		}
	}

	if err := putRecord(txn, table, hash, blk, sideband{
		account: acct, representative: nextInfo.Representative, balance: nextInfo.Balance,
		height: nextInfo.BlockCount, timestamp: nextInfo.Modified,
	}); err != nil {
		return err
	}
	if err := l.setFrontier(txn, previous, hash, acct); err != nil {
		return err
	}
	return l.putAccountInfo(txn, acct, nextInfo)
}

// Rollback undoes a single block, which must currently be the head of
// its account's chain and must not already be cemented. Undoing a send
// or a state-send removes the pending entry it created; undoing a
// receive, open or state-receive restores the one it consumed.
func (l *Ledger) Rollback(txn store.Txn, hash common.Hash) error {
	if !txn.Writable() {
		return ErrReadOnly
	}
	if l.cement.IsCemented(hash) {
		l.metrics.rollbackFailed()
		return ErrRollbackCemented
	}

	table, rec, blk, found, err := findRecord(txn, hash)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotFound
	}
	info, ok, err := l.getAccountInfo(txn, rec.sb.account)
	if err != nil {
		return err
	}
	if !ok || info.Head != hash {
		return ErrNotHead
	}

	if err := l.restorePending(txn, blk, hash, rec); err != nil {
		return err
	}

	previous := blk.Previous()
	if previous.IsZero() {
		if err := l.addWeight(txn, info.Representative, info.Balance, true); err != nil {
			return err
		}
		if err := l.setFrontier(txn, hash, common.Hash{}, rec.sb.account); err != nil {
			return err
		}
		if err := l.deleteAccountInfo(txn, rec.sb.account); err != nil {
			return err
		}
	} else {
		prevTable, prevRec, prevBlk, ok, err := findRecord(txn, previous)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("ledger: predecessor missing during rollback")
		}
		if err := l.addWeight(txn, info.Representative, info.Balance, true); err != nil {
			return err
		}
		if err := l.addWeight(txn, prevRec.sb.representative, prevRec.sb.balance, false); err != nil {
			return err
		}
		prevRec.sb.successor = common.Hash{}
		if err := putRecord(txn, prevTable, previous, prevBlk, prevRec.sb); err != nil {
			return err
		}
		if err := l.setFrontier(txn, hash, previous, rec.sb.account); err != nil {
			return err
		}
		restored := AccountInfo{
			Head: previous, Open: info.Open, Representative: prevRec.sb.representative,
			Balance: prevRec.sb.balance, BlockCount: prevRec.sb.height, Epoch: prevRec.ep,
			Modified: prevRec.sb.timestamp,
		}
		if err := l.putAccountInfo(txn, rec.sb.account, restored); err != nil {
			return err
		}
	}

	return txn.Delete(table, hash[:])
}

// restorePending undoes blk's effect on the pending table: it removes the
// entry a send created and reinstates the entry a receive consumed.
func (l *Ledger) restorePending(txn store.Txn, blk block.Block, hash common.Hash, rec record) error {
	switch b := blk.(type) {
	case *block.SendBlock:
		return l.deletePending(txn, PendingKey{Destination: b.Destination, SendHash: hash})
	case *block.ReceiveBlock:
		return l.restoreConsumedPending(txn, rec.sb.account, b.Source)
	case *block.OpenBlock:
		return l.restoreConsumedPending(txn, rec.sb.account, b.Source)
	case *block.StateBlock:
		if b.PreviousHash.IsZero() {
			return l.restoreConsumedPending(txn, b.Account, b.Link)
		}
		_, prevRec, _, ok, err := findRecord(txn, b.PreviousHash)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		switch cmp := b.Balance.Cmp(prevRec.sb.balance); {
		case cmp < 0:
			return l.deletePending(txn, PendingKey{Destination: common.Account(b.Link), SendHash: hash})
		case cmp > 0:
			return l.restoreConsumedPending(txn, b.Account, b.Link)
		}
	}
	return nil
}

// restoreConsumedPending rebuilds the pending entry a receive-like block
// consumed, reconstructing the sender and the amount moved from the send
// block's own sideband and predecessor.
func (l *Ledger) restoreConsumedPending(txn store.Txn, destination common.Account, sendHash common.Hash) error {
	_, sendRec, sendBlk, ok, err := findRecord(txn, sendHash)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("ledger: source block missing during rollback")
	}
	_, priorRec, _, ok, err := findRecord(txn, sendBlk.Previous())
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("ledger: source block's predecessor missing during rollback")
	}
	amount, err := priorRec.sb.balance.Sub(sendRec.sb.balance)
	if err != nil {
		return err
	}
	return l.putPending(txn, PendingKey{Destination: destination, SendHash: sendHash}, PendingEntry{
		Source: sendRec.sb.account, Amount: amount, Epoch: sendRec.ep,
	})
}
