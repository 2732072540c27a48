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
	"context"

	"google.golang.org/grpc"
)

// AscBootstrapClient is the client API for the ascending-bootstrap pull
// service. Hand-written in the shape protoc-gen-go-grpc emits for a
// service with one unary RPC, the way cmd/sol2proto templates a
// service definition from an ABI instead of a .proto file — here the
// "source of truth" is this file itself rather than a generator.
type AscBootstrapClient interface {
	Pull(ctx context.Context, in *AscPullReq, opts ...grpc.CallOption) (*AscPullAck, error)
}

type ascBootstrapClient struct {
	cc *grpc.ClientConn
}

// NewAscBootstrapClient wraps an established gRPC connection to a peer.
func NewAscBootstrapClient(cc *grpc.ClientConn) AscBootstrapClient {
	return &ascBootstrapClient{cc}
}

func (c *ascBootstrapClient) Pull(ctx context.Context, in *AscPullReq, opts ...grpc.CallOption) (*AscPullAck, error) {
	out := new(AscPullAck)
	if err := c.cc.Invoke(ctx, "/message.AscBootstrap/Pull", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// AscBootstrapServer is the server API a node implements to answer
// peers' ascending pull requests.
type AscBootstrapServer interface {
	Pull(context.Context, *AscPullReq) (*AscPullAck, error)
}

// RegisterAscBootstrapServer attaches srv to s under the AscBootstrap
// service name.
func RegisterAscBootstrapServer(s *grpc.Server, srv AscBootstrapServer) {
	s.RegisterService(&ascBootstrapServiceDesc, srv)
}

func ascBootstrapPullHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AscPullReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AscBootstrapServer).Pull(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/message.AscBootstrap/Pull",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AscBootstrapServer).Pull(ctx, req.(*AscPullReq))
	}
	return interceptor(ctx, in, info, handler)
}

var ascBootstrapServiceDesc = grpc.ServiceDesc{
	ServiceName: "message.AscBootstrap",
	HandlerType: (*AscBootstrapServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Pull",
			Handler:    ascBootstrapPullHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "asc_bootstrap.proto",
}
