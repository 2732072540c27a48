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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/nanocurrency/nano-node-sub005/block"
	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/store"
	"github.com/nanocurrency/nano-node-sub005/store/memstore"
)

type testAccount struct {
	account common.Account
	prv     ed25519.PrivateKey
}

func newTestAccount(t *testing.T) testAccount {
	pub, prv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return testAccount{account: common.BytesToAccount(pub), prv: prv}
}

func newTestLedger() *Ledger {
	return New(memstore.New(), Options{BlockInfoMax: 128})
}

type alwaysCemented struct{}

func (alwaysCemented) IsCemented(common.Hash) bool { return true }

// seedGenesis plants a funded, already-opened account via the same
// path a node's genesis loader uses, so tests can exercise
// Process/Rollback starting from a realistic chain head.
func seedGenesis(t *testing.T, l *Ledger, acct common.Account, balance common.Amount) common.Hash {
	t.Helper()
	hash, err := l.OpenGenesis(acct, balance)
	require.NoError(t, err)
	return hash
}

func TestLedgerSendReceiveRoundTrip(t *testing.T) {
	l := newTestLedger()
	genesis := newTestAccount(t)
	alice := newTestAccount(t)

	genesisBalance := common.AmountFromUint64(1_000_000)
	head := seedGenesis(t, l, genesis.account, genesisBalance)

	sendAmount := common.AmountFromUint64(1_000)
	remaining, err := genesisBalance.Sub(sendAmount)
	require.NoError(t, err)

	sendBlk := &block.SendBlock{PreviousHash: head, Destination: alice.account, Balance: remaining}
	block.Sign(sendBlk, genesis.prv)
	sendHash := sendBlk.Hash()

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, sendBlk)
		require.NoError(t, err)
		assert.Equal(t, Progress, status)
		return nil
	}))

	bal, err := l.AccountBalance(genesis.account)
	require.NoError(t, err)
	assert.Equal(t, remaining, bal)

	openBlk := &block.OpenBlock{Source: sendHash, Representative: alice.account, Account: alice.account}
	block.Sign(openBlk, alice.prv)

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, openBlk)
		require.NoError(t, err)
		assert.Equal(t, Progress, status)
		return nil
	}))

	aliceBalance, err := l.AccountBalance(alice.account)
	require.NoError(t, err)
	assert.Equal(t, sendAmount, aliceBalance)

	weight, err := l.Weight(alice.account)
	require.NoError(t, err)
	assert.Equal(t, sendAmount, weight)

	// Replaying the same send is rejected as Old, not reapplied.
	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, sendBlk)
		require.NoError(t, err)
		assert.Equal(t, Old, status)
		return nil
	}))
}

func TestLedgerForkDetection(t *testing.T) {
	l := newTestLedger()
	genesis := newTestAccount(t)
	alice := newTestAccount(t)
	bob := newTestAccount(t)

	head := seedGenesis(t, l, genesis.account, common.AmountFromUint64(1_000_000))
	balanceAfter := common.AmountFromUint64(999_000)

	sendToAlice := &block.SendBlock{PreviousHash: head, Destination: alice.account, Balance: balanceAfter}
	block.Sign(sendToAlice, genesis.prv)
	sendToBob := &block.SendBlock{PreviousHash: head, Destination: bob.account, Balance: balanceAfter}
	block.Sign(sendToBob, genesis.prv)

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, sendToAlice)
		require.NoError(t, err)
		assert.Equal(t, Progress, status)
		return nil
	}))

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, sendToBob)
		require.NoError(t, err)
		assert.Equal(t, Fork, status)
		return nil
	}))
}

func TestLedgerRollbackRefusesCementedBlock(t *testing.T) {
	l := newTestLedger()
	genesis := newTestAccount(t)
	alice := newTestAccount(t)

	head := seedGenesis(t, l, genesis.account, common.AmountFromUint64(1_000_000))
	newBalance := common.AmountFromUint64(999_000)

	sendBlk := &block.SendBlock{PreviousHash: head, Destination: alice.account, Balance: newBalance}
	block.Sign(sendBlk, genesis.prv)
	sendHash := sendBlk.Hash()

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, sendBlk)
		require.NoError(t, err)
		require.Equal(t, Progress, status)
		return nil
	}))

	l.SetCementedChecker(alwaysCemented{})

	err := l.db.Update(func(txn store.Txn) error {
		return l.Rollback(txn, sendHash)
	})
	assert.True(t, errors.Is(err, ErrRollbackCemented))

	bal, err := l.AccountBalance(genesis.account)
	require.NoError(t, err)
	assert.Equal(t, newBalance, bal, "a refused rollback must leave the ledger untouched")
}

func TestLedgerRollbackUndoesSend(t *testing.T) {
	l := newTestLedger()
	genesis := newTestAccount(t)
	alice := newTestAccount(t)

	originalBalance := common.AmountFromUint64(1_000_000)
	head := seedGenesis(t, l, genesis.account, originalBalance)

	newBalance := common.AmountFromUint64(999_000)
	sendBlk := &block.SendBlock{PreviousHash: head, Destination: alice.account, Balance: newBalance}
	block.Sign(sendBlk, genesis.prv)
	sendHash := sendBlk.Hash()

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, sendBlk)
		require.NoError(t, err)
		require.Equal(t, Progress, status)
		return nil
	}))

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		return l.Rollback(txn, sendHash)
	}))

	bal, err := l.AccountBalance(genesis.account)
	require.NoError(t, err)
	assert.Equal(t, originalBalance, bal)

	newHead, err := l.Latest(genesis.account)
	require.NoError(t, err)
	assert.Equal(t, head, newHead)

	exists, err := l.BlockExists(sendHash)
	require.NoError(t, err)
	assert.False(t, exists)

	// The pending entry the send created must be gone too.
	require.NoError(t, l.db.View(func(txn store.Txn) error {
		_, ok, err := l.getPending(txn, PendingKey{Destination: alice.account, SendHash: sendHash})
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestLedgerStateBlockSendAndReceive(t *testing.T) {
	l := newTestLedger()
	genesis := newTestAccount(t)
	alice := newTestAccount(t)

	genesisBalance := common.AmountFromUint64(5_000_000)
	head := seedGenesis(t, l, genesis.account, genesisBalance)

	sendAmount := common.AmountFromUint64(2_500)
	remaining, err := genesisBalance.Sub(sendAmount)
	require.NoError(t, err)

	stateSend := &block.StateBlock{
		Account: genesis.account, PreviousHash: head, Representative: genesis.account,
		Balance: remaining, Link: common.Hash(alice.account),
	}
	block.Sign(stateSend, genesis.prv)
	sendHash := stateSend.Hash()

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, stateSend)
		require.NoError(t, err)
		assert.Equal(t, Progress, status)
		return nil
	}))

	stateOpen := &block.StateBlock{
		Account: alice.account, Representative: alice.account,
		Balance: sendAmount, Link: sendHash,
	}
	block.Sign(stateOpen, alice.prv)

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, stateOpen)
		require.NoError(t, err)
		assert.Equal(t, Progress, status)
		return nil
	}))

	bal, err := l.AccountBalance(alice.account)
	require.NoError(t, err)
	assert.Equal(t, sendAmount, bal)
}

func TestLedgerBadSignatureRejected(t *testing.T) {
	l := newTestLedger()
	genesis := newTestAccount(t)
	alice := newTestAccount(t)
	attacker := newTestAccount(t)

	head := seedGenesis(t, l, genesis.account, common.AmountFromUint64(1_000_000))

	forged := &block.SendBlock{PreviousHash: head, Destination: alice.account, Balance: common.AmountFromUint64(999_000)}
	block.Sign(forged, attacker.prv)

	require.NoError(t, l.db.Update(func(txn store.Txn) error {
		status, err := l.Process(txn, forged)
		require.NoError(t, err)
		assert.Equal(t, BadSignature, status)
		return nil
	}))
}
