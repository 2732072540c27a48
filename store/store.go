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

// Package store is the ordered key-value abstraction every other
// subsystem persists through. It exposes named tables and read/write
// transactions; the ledger and the wallet store open write
// transactions, everyone else opens read transactions.
package store

import "errors"

// Table names the logical tables a node persists. Backends are free to
// implement a table as a key prefix (leveldb) or a native namespace
// (badger).
type Table string

const (
	TableFrontiers      Table = "frontiers"
	TableAccounts       Table = "accounts"
	TablePending        Table = "pending"
	TableBlocksSend     Table = "blocks_send"
	TableBlocksReceive  Table = "blocks_receive"
	TableBlocksOpen     Table = "blocks_open"
	TableBlocksChange   Table = "blocks_change"
	TableBlocksState    Table = "blocks_state"
	TableBlocksInfo     Table = "blocks_info"
	TableRepresentation Table = "representation"
	TableUnchecked      Table = "unchecked"
	TableChecksum       Table = "checksum"
	TableMeta           Table = "meta"
	TableVote           Table = "vote"
	TableWallets        Table = "wallets"
)

// AllTables enumerates every table a backend must provision on open.
var AllTables = []Table{
	TableFrontiers, TableAccounts, TablePending,
	TableBlocksSend, TableBlocksReceive, TableBlocksOpen, TableBlocksChange, TableBlocksState,
	TableBlocksInfo, TableRepresentation, TableUnchecked, TableChecksum, TableMeta, TableVote,
	TableWallets,
}

var ErrNotFound = errors.New("store: key not found")

// Cursor iterates a table's keys in ascending lexicographic order,
// starting at or after Seek's argument, the way the original source's
// MDB cursor walks the accounts table for frontier scans.
type Cursor interface {
	Seek(key []byte) bool
	Next() bool
	Key() []byte
	Value() []byte
	Close()
}

// Txn is a single logical transaction over every table. A write Txn is
// exclusive with every other write Txn (single-writer); many read Txns
// may run concurrently with the current write Txn under snapshot
// isolation.
type Txn interface {
	Get(table Table, key []byte) ([]byte, error)
	Put(table Table, key, value []byte) error
	Delete(table Table, key []byte) error
	Has(table Table, key []byte) (bool, error)
	NewCursor(table Table) Cursor
	// Writable reports whether Put/Delete are permitted on this Txn.
	Writable() bool
	// Commit persists a write Txn's mutations. A no-op, returning nil, on
	// read Txns.
	Commit() error
	// Abort discards a write Txn's mutations, or releases a read Txn's
	// snapshot.
	Abort()
}

// Store is the backend-agnostic handle obtained from Open.
type Store interface {
	Begin(writable bool) (Txn, error)
	// View runs fn inside a read transaction, always Abort-ing it after.
	View(fn func(Txn) error) error
	// Update runs fn inside a write transaction, Commit-ing on a nil
	// return and Abort-ing otherwise.
	Update(fn func(Txn) error) error
	Close() error
}
