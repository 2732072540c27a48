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

// Package message is the wire envelope shared by every peer-to-peer
// exchange (L10): a fixed 7-byte header identifying the network,
// protocol version and payload type, followed by a type-specific body.
// Gossip/voting traffic (publish, confirm_req/ack, keepalive,
// node_id_handshake) uses the original fixed-header-plus-body framing;
// the newer ascending-bootstrap exchange (asc_pull_req/ack) is framed
// as a protobuf message instead, the way the real protocol's bulk
// bootstrap messages moved off the legacy header format.
package message

import (
	"encoding/binary"
	"errors"

	"github.com/nanocurrency/nano-node-sub005/common"
)

// Type identifies a message's payload.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeNotAType
	TypeKeepalive
	TypePublish
	TypeConfirmReq
	TypeConfirmAck
	TypeBulkPull
	TypeBulkPush
	TypeFrontierReq
	TypeNodeIDHandshake
	TypeBulkPullAccount
	TypeTelemetryReq
	TypeTelemetryAck
	TypeAscPullReq
	TypeAscPullAck
)

func (t Type) String() string {
	switch t {
	case TypeKeepalive:
		return "keepalive"
	case TypePublish:
		return "publish"
	case TypeConfirmReq:
		return "confirm_req"
	case TypeConfirmAck:
		return "confirm_ack"
	case TypeBulkPull:
		return "bulk_pull"
	case TypeBulkPush:
		return "bulk_push"
	case TypeFrontierReq:
		return "frontier_req"
	case TypeNodeIDHandshake:
		return "node_id_handshake"
	case TypeBulkPullAccount:
		return "bulk_pull_account"
	case TypeTelemetryReq:
		return "telemetry_req"
	case TypeTelemetryAck:
		return "telemetry_ack"
	case TypeAscPullReq:
		return "asc_pull_req"
	case TypeAscPullAck:
		return "asc_pull_ack"
	default:
		return "invalid"
	}
}

// HeaderSize is the wire size of Header: magic byte, three version
// bytes, a type byte and a 2-byte extensions field.
const HeaderSize = 1 + 1 + 1 + 1 + 1 + 2

// Extension bit flags carried in Header.Extensions, interpreted
// differently per Type (e.g. confirm_ack's vote-count nibble).
const (
	ExtTelemetrySize uint16 = 0x03ff
	ExtBlockType     uint16 = 0x0f00
	ExtCount         uint16 = 0xf000
)

// Header precedes every legacy-framed message on the wire.
type Header struct {
	NetworkID    uint32 // low byte carried on the wire as the network magic
	VersionMax   uint8
	VersionUsing uint8
	VersionMin   uint8
	MessageType  Type
	Extensions   uint16
}

var (
	ErrShortHeader    = errors.New("message: buffer shorter than header")
	ErrWrongNetwork   = errors.New("message: network id does not match")
	ErrVersionTooOld  = errors.New("message: peer version below VersionMin")
	ErrVersionTooNew  = errors.New("message: peer version above VersionMax")
)

// Encode writes h's wire form. The network id's low byte stands in for
// the single-byte magic the legacy framing allots it.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = byte(h.NetworkID)
	buf[1] = h.VersionMax
	buf[2] = h.VersionUsing
	buf[3] = h.VersionMin
	buf[4] = byte(h.MessageType)
	binary.BigEndian.PutUint16(buf[5:7], h.Extensions)
	return buf
}

// DecodeHeader parses a Header from the front of b and returns the
// number of bytes consumed.
func DecodeHeader(b []byte) (Header, int, error) {
	if len(b) < HeaderSize {
		return Header{}, 0, ErrShortHeader
	}
	h := Header{
		NetworkID:    uint32(b[0]),
		VersionMax:   b[1],
		VersionUsing: b[2],
		VersionMin:   b[3],
		MessageType:  Type(b[4]),
		Extensions:   binary.BigEndian.Uint16(b[5:7]),
	}
	return h, HeaderSize, nil
}

// Validate checks h against this node's own network id and supported
// version range, the way a handshake rejects an incompatible peer
// before any payload is parsed.
func (h Header) Validate(networkID uint32, versionMin uint8) error {
	if byte(networkID) != byte(h.NetworkID) {
		return ErrWrongNetwork
	}
	if h.VersionUsing < versionMin {
		return ErrVersionTooOld
	}
	if h.VersionUsing > h.VersionMax {
		return ErrVersionTooNew
	}
	return nil
}

// Keepalive lists up to 8 peer addresses, the way the legacy keepalive
// message gossips live peers without a dedicated discovery protocol.
type Keepalive struct {
	Peers []string
}

// Publish carries one block body for network-wide relay.
type Publish struct {
	Body []byte
}

// ConfirmReq asks a peer to vote on root/hash.
type ConfirmReq struct {
	Root common.Hash
	Hash common.Hash
}

// ConfirmAck carries one or more votes from Voter, signed over the
// concatenation of the voted hashes.
type ConfirmAck struct {
	Voter     common.Account
	Signature common.Signature
	Sequence  uint64
	Final     bool
	Hashes    []common.Hash
}

// Encode/Decode for ConfirmAck follow the same fixed-width,
// length-prefixed convention as block.go's CanonicalBytes.
func (a ConfirmAck) Encode() []byte {
	buf := make([]byte, 0, common.AccountSize+common.SignatureSize+8+1+2+len(a.Hashes)*common.HashSize)
	buf = append(buf, a.Voter.Bytes()...)
	buf = append(buf, a.Signature.Bytes()...)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], a.Sequence)
	buf = append(buf, seqBuf[:]...)
	if a.Final {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(a.Hashes)))
	buf = append(buf, countBuf[:]...)
	for _, h := range a.Hashes {
		buf = append(buf, h.Bytes()...)
	}
	return buf
}

var ErrShortConfirmAck = errors.New("message: truncated confirm_ack body")

func DecodeConfirmAck(b []byte) (ConfirmAck, error) {
	min := common.AccountSize + common.SignatureSize + 8 + 1 + 2
	if len(b) < min {
		return ConfirmAck{}, ErrShortConfirmAck
	}
	var a ConfirmAck
	a.Voter = common.BytesToAccount(b[:common.AccountSize])
	b = b[common.AccountSize:]
	a.Signature = common.BytesToSignature(b[:common.SignatureSize])
	b = b[common.SignatureSize:]
	a.Sequence = binary.BigEndian.Uint64(b[:8])
	b = b[8:]
	a.Final = b[0] != 0
	b = b[1:]
	count := binary.BigEndian.Uint16(b[:2])
	b = b[2:]
	if len(b) < int(count)*common.HashSize {
		return ConfirmAck{}, ErrShortConfirmAck
	}
	a.Hashes = make([]common.Hash, count)
	for i := range a.Hashes {
		a.Hashes[i] = common.BytesToHash(b[:common.HashSize])
		b = b[common.HashSize:]
	}
	return a, nil
}

// NodeIDHandshake proves peer identity: Query is a nonce the responder
// must sign with its node id key to answer with Response.
type NodeIDHandshake struct {
	Query    *common.Hash
	Response *NodeIDResponse
}

type NodeIDResponse struct {
	Account   common.Account
	Signature common.Signature
}

// FrontierReq asks for every account frontier starting at Start, the
// entry point of the legacy pull-based bootstrap attempt.
type FrontierReq struct {
	Start     common.Account
	AgeCutoff uint32
	Count     uint32
}

// BulkPull asks for every block from Start back to End (or genesis).
type BulkPull struct {
	Start common.Account
	End   common.Hash
}

// BulkPush has no fields of its own: it is a bare announcement that the
// sender is about to stream unsolicited blocks, terminated by a
// zero-type sentinel block.
type BulkPush struct{}
