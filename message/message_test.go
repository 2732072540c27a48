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

package message

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanocurrency/nano-node-sub005/common"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		NetworkID: 1, VersionMax: 19, VersionUsing: 19, VersionMin: 18,
		MessageType: TypeConfirmReq, Extensions: 0x0102,
	}
	buf := h.Encode()
	assert.Len(t, buf, HeaderSize)

	got, n, err := DecodeHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, HeaderSize, n)
	assert.Equal(t, h, got)
}

func TestHeaderDecodeShortBufferFails(t *testing.T) {
	_, _, err := DecodeHeader([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrShortHeader))
}

func TestHeaderValidateRejectsWrongNetworkAndVersion(t *testing.T) {
	h := Header{NetworkID: 1, VersionMax: 19, VersionUsing: 19, VersionMin: 18, MessageType: TypeKeepalive}
	assert.NoError(t, h.Validate(1, 18))
	assert.True(t, errors.Is(h.Validate(2, 18), ErrWrongNetwork))

	old := Header{NetworkID: 1, VersionMax: 19, VersionUsing: 10, VersionMin: 18}
	assert.True(t, errors.Is(old.Validate(1, 18), ErrVersionTooOld))

	tooNew := Header{NetworkID: 1, VersionMax: 19, VersionUsing: 20, VersionMin: 18}
	assert.True(t, errors.Is(tooNew.Validate(1, 18), ErrVersionTooNew))
}

func TestConfirmAckEncodeDecodeRoundTrip(t *testing.T) {
	a := ConfirmAck{
		Voter:    common.Account{1, 2, 3},
		Sequence: 42,
		Final:    true,
		Hashes:   []common.Hash{{1}, {2}, {3}},
	}
	buf := a.Encode()
	got, err := DecodeConfirmAck(buf)
	require.NoError(t, err)
	assert.Equal(t, a.Voter, got.Voter)
	assert.Equal(t, a.Sequence, got.Sequence)
	assert.Equal(t, a.Final, got.Final)
	assert.Equal(t, a.Hashes, got.Hashes)
}

func TestAscPullReqAckProtobufRoundTrip(t *testing.T) {
	req := &AscPullReq{Id: 7, Account: []byte{9, 9}, StartHash: []byte{1, 1}, Count: 128}
	raw, err := MarshalAscPullReq(req)
	require.NoError(t, err)

	got, err := UnmarshalAscPullReq(raw)
	require.NoError(t, err)
	assert.Equal(t, req.Id, got.Id)
	assert.Equal(t, req.Account, got.Account)
	assert.Equal(t, req.Count, got.Count)

	ack := &AscPullAck{Id: 7, Blocks: [][]byte{{1, 2}, {3, 4}}}
	rawAck, err := MarshalAscPullAck(ack)
	require.NoError(t, err)

	gotAck, err := UnmarshalAscPullAck(rawAck)
	require.NoError(t, err)
	assert.Equal(t, ack.Id, gotAck.Id)
	assert.Equal(t, ack.Blocks, gotAck.Blocks)
}
