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

package ledger

import (
	"encoding/binary"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
)

// Status is the outcome of processing a single block.
type Status int

const (
	Progress Status = iota
	Old
	GapPrevious
	GapSource
	BadSignature
	NegativeSpend
	Fork
	Unreceivable
	InsufficientWork
	OpenedBurnAccount
	BalanceMismatch
	RepresentativeMismatch
	BlockPosition
	GapEpochOpenPending
)

func (s Status) String() string {
	switch s {
	case Progress:
		return "progress"
	case Old:
		return "old"
	case GapPrevious:
		return "gap_previous"
	case GapSource:
		return "gap_source"
	case BadSignature:
		return "bad_signature"
	case NegativeSpend:
		return "negative_spend"
	case Fork:
		return "fork"
	case Unreceivable:
		return "unreceivable"
	case InsufficientWork:
		return "insufficient_work"
	case OpenedBurnAccount:
		return "opened_burn_account"
	case BalanceMismatch:
		return "balance_mismatch"
	case RepresentativeMismatch:
		return "representative_mismatch"
	case BlockPosition:
		return "block_position"
	case GapEpochOpenPending:
		return "gap_epoch_open_pending"
	default:
		return "unknown"
	}
}

// AccountInfo is the single record kept per live account.
type AccountInfo struct {
	Head           common.Hash
	Open           common.Hash
	Representative common.Account
	Balance        common.Amount
	Modified       int64
	BlockCount     uint64
	Epoch          block.Epoch
}

func (a AccountInfo) encode() []byte {
	buf := make([]byte, 0, common.HashSize*2+common.AccountSize+common.AmountSize+8+8+1)
	buf = append(buf, a.Head[:]...)
	buf = append(buf, a.Open[:]...)
	buf = append(buf, a.Representative[:]...)
	buf = append(buf, a.Balance[:]...)
	var tb [8]byte
	binary.BigEndian.PutUint64(tb[:], uint64(a.Modified))
	buf = append(buf, tb[:]...)
	var cb [8]byte
	binary.BigEndian.PutUint64(cb[:], a.BlockCount)
	buf = append(buf, cb[:]...)
	buf = append(buf, byte(a.Epoch))
	return buf
}

func decodeAccountInfo(b []byte) AccountInfo {
	var a AccountInfo
	off := 0
	a.Head = common.BytesToHash(b[off : off+common.HashSize])
	off += common.HashSize
	a.Open = common.BytesToHash(b[off : off+common.HashSize])
	off += common.HashSize
	a.Representative = common.BytesToAccount(b[off : off+common.AccountSize])
	off += common.AccountSize
	a.Balance = common.BytesToAmount(b[off : off+common.AmountSize])
	off += common.AmountSize
	a.Modified = int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	a.BlockCount = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	a.Epoch = block.Epoch(b[off])
	return a
}

// PendingKey identifies an obligation owed to destination by a specific
// send block, keyed (destination, send_block_hash).
type PendingKey struct {
	Destination common.Account
	SendHash    common.Hash
}

func (k PendingKey) encode() []byte {
	buf := make([]byte, 0, common.AccountSize+common.HashSize)
	buf = append(buf, k.Destination[:]...)
	buf = append(buf, k.SendHash[:]...)
	return buf
}

// PendingEntry is the obligation's payload.
type PendingEntry struct {
	Source common.Account
	Amount common.Amount
	Epoch  block.Epoch
}

func (e PendingEntry) encode() []byte {
	buf := make([]byte, 0, common.AccountSize+common.AmountSize+1)
	buf = append(buf, e.Source[:]...)
	buf = append(buf, e.Amount[:]...)
	buf = append(buf, byte(e.Epoch))
	return buf
}

func decodePendingEntry(b []byte) PendingEntry {
	var e PendingEntry
	e.Source = common.BytesToAccount(b[:common.AccountSize])
	e.Amount = common.BytesToAmount(b[common.AccountSize : common.AccountSize+common.AmountSize])
	e.Epoch = block.Epoch(b[common.AccountSize+common.AmountSize])
	return e
}

// BlockInfo is the encoding of a blocks_info entry: an account and its
// balance at a block. The ledger writes no blocks_info entries;
// Options.BlockInfoMax is stored but not read.
type BlockInfo struct {
	Account common.Account
	Balance common.Amount
}

func (i BlockInfo) encode() []byte {
	buf := make([]byte, 0, common.AccountSize+common.AmountSize)
	buf = append(buf, i.Account[:]...)
	buf = append(buf, i.Balance[:]...)
	return buf
}

func decodeBlockInfo(b []byte) BlockInfo {
	var i BlockInfo
	i.Account = common.BytesToAccount(b[:common.AccountSize])
	i.Balance = common.BytesToAmount(b[common.AccountSize : common.AccountSize+common.AmountSize])
	return i
}
