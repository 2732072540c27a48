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

package wallet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/store/memstore"
)

func testConfig() config.Config {
	cfg := config.Default()
	// Argon2 at production cost would make every test slow; tests only
	// need the KDF to be exercised, not hardened.
	cfg.WalletKDFMemoryKiB = 8
	cfg.WalletKDFIterations = 1
	cfg.WalletKDFThreads = 1
	return cfg
}

func TestCreateThenOpenRoundTrip(t *testing.T) {
	db := memstore.New()
	s := New(testConfig(), db)

	w, err := s.Create("correct horse battery staple")
	require.NoError(t, err)

	acct, err := w.NextDeterministic("correct horse battery staple")
	require.NoError(t, err)

	s2 := New(testConfig(), db)
	reopened, err := s2.Open(w.ID(), "correct horse battery staple")
	require.NoError(t, err)

	got, _, err := reopened.Deterministic(0)
	require.NoError(t, err)
	assert.Equal(t, acct, got)
}

func TestOpenWithWrongPassphraseFails(t *testing.T) {
	db := memstore.New()
	s := New(testConfig(), db)
	w, err := s.Create("right-passphrase")
	require.NoError(t, err)

	_, err = s.Open(w.ID(), "wrong-passphrase")
	assert.True(t, errors.Is(err, ErrWrongPassword))
}

func TestDeterministicDerivationIsStableAndDistinct(t *testing.T) {
	db := memstore.New()
	s := New(testConfig(), db)
	w, err := s.Create("pw")
	require.NoError(t, err)

	a0, _, err := w.Deterministic(0)
	require.NoError(t, err)
	a0Again, _, err := w.Deterministic(0)
	require.NoError(t, err)
	assert.Equal(t, a0, a0Again)

	a1, _, err := w.Deterministic(1)
	require.NoError(t, err)
	assert.NotEqual(t, a0, a1)
}

func TestAdhocKeySurvivesReopen(t *testing.T) {
	db := memstore.New()
	s := New(testConfig(), db)
	w, err := s.Create("pw")
	require.NoError(t, err)

	_, prv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	acct, err := w.Adhoc(prv, "pw")
	require.NoError(t, err)

	s2 := New(testConfig(), db)
	reopened, err := s2.Open(w.ID(), "pw")
	require.NoError(t, err)

	resolved, err := reopened.PrivateKeyFor(acct)
	require.NoError(t, err)
	assert.Equal(t, prv, resolved)
}

func TestLockWipesSeedAndBlocksDerivation(t *testing.T) {
	db := memstore.New()
	s := New(testConfig(), db)
	w, err := s.Create("pw")
	require.NoError(t, err)

	w.Lock()
	assert.True(t, w.IsLocked())

	_, _, err = w.Deterministic(0)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestRepresentativeCache(t *testing.T) {
	db := memstore.New()
	s := New(testConfig(), db)
	w, err := s.Create("pw")
	require.NoError(t, err)

	acct, err := w.NextDeterministic("pw")
	require.NoError(t, err)
	rep, err := w.NextDeterministic("pw")
	require.NoError(t, err)

	w.SetRepresentative(acct, rep)
	got, ok := w.Representative(acct)
	require.True(t, ok)
	assert.Equal(t, rep, got)
}
