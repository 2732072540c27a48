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
	proto "github.com/golang/protobuf/proto"
)

// AscPullReq and AscPullAck are the ascending-bootstrap pull exchange:
// unlike the rest of this package's fixed-header framing, these two are
// protobuf messages, hand-shaped the way cmd/sol2proto's
// protoc-gen-go output shapes a generated message (Reset/String/
// ProtoMessage plus protobuf struct tags), so they marshal through
// proto.Marshal/Unmarshal without any code generation step.
type AscPullReq struct {
	Id                   uint64   `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Account              []byte   `protobuf:"bytes,2,opt,name=account,proto3" json:"account,omitempty"`
	StartHash            []byte   `protobuf:"bytes,3,opt,name=start_hash,json=startHash,proto3" json:"start_hash,omitempty"`
	Count                uint32   `protobuf:"varint,4,opt,name=count,proto3" json:"count,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *AscPullReq) Reset()         { *m = AscPullReq{} }
func (m *AscPullReq) String() string { return proto.CompactTextString(m) }
func (*AscPullReq) ProtoMessage()    {}

type AscPullAck struct {
	Id                   uint64   `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Blocks               [][]byte `protobuf:"bytes,2,rep,name=blocks,proto3" json:"blocks,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *AscPullAck) Reset()         { *m = AscPullAck{} }
func (m *AscPullAck) String() string { return proto.CompactTextString(m) }
func (*AscPullAck) ProtoMessage()    {}

// MarshalAscPullReq/UnmarshalAscPullReq and their Ack counterparts are
// the wire codec bootstrap's confirmed-frontier pull path calls
// directly, without going through a gRPC stream, when pulling over a
// plain connection.
func MarshalAscPullReq(m *AscPullReq) ([]byte, error) { return proto.Marshal(m) }

func UnmarshalAscPullReq(b []byte) (*AscPullReq, error) {
	m := &AscPullReq{}
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

func MarshalAscPullAck(m *AscPullAck) ([]byte, error) { return proto.Marshal(m) }

func UnmarshalAscPullAck(b []byte) (*AscPullAck, error) {
	m := &AscPullAck{}
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}
