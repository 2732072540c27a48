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

package confirm

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/ledger"
	"github.com/nanocurrency/nano-node-sub005/store/memstore"
)

func TestSetIsCementedStaysFalseForMissingBlock(t *testing.T) {
	l := ledger.New(memstore.New(), ledger.Options{})
	s := New(l)

	hash := common.Hash{1, 2, 3}
	assert.False(t, s.IsCemented(hash))

	var calls int
	var mu sync.Mutex
	s.AddObserver(func(common.Hash, common.Account, uint64) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	s.Start()
	defer s.Stop()

	// A block missing from the ledger cements to nothing instead of
	// crashing the worker; IsCemented stays false.
	s.Add(hash, hash)
	time.Sleep(20 * time.Millisecond)

	assert.False(t, s.IsCemented(hash))
	mu.Lock()
	assert.Equal(t, 0, calls)
	mu.Unlock()
}

func TestSetAddIsIdempotent(t *testing.T) {
	l := ledger.New(memstore.New(), ledger.Options{})
	s := New(l)

	hash := common.Hash{4, 5, 6}
	s.Add(hash, hash)
	s.Add(hash, hash)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Len(t, s.queue, 1, "re-adding a hash already queued must not duplicate the cementation request")
}

