// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpcclient provides the gRPC-backed implementation of bridge.Conn.
// Messages travel as google.protobuf.Struct values built from the model types, so
// the client needs no generated stubs: unary calls go through ClientConn.Invoke and
// streaming calls through ClientConn.NewStream.
//
// Errors are mapped to typed kinds (transport, timeout, protocol) before they leave
// the package.
package grpcclient

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"assistbridge/cli/internal/bridge"
	apperrors "assistbridge/cli/internal/errors"
	"assistbridge/cli/internal/logging"
)

// ClientName is sent as x-client-name metadata on every call.
const ClientName = "assistbridge"

// DefaultDialTimeout bounds how long Dial waits for the backend to accept the connection.
const DefaultDialTimeout = 10 * time.Second

// Dialer opens plaintext gRPC connections to a local backend.
type Dialer struct {
	// DialTimeout overrides DefaultDialTimeout when positive.
	DialTimeout time.Duration
	// Options are appended to the default dial options (tests inject a bufconn dialer here).
	Options []grpc.DialOption
}

// Target normalizes a configured backend address into a gRPC dial target.
// "http://host:port" and bare "host:port" dial over TCP; "unix://" paths are kept.
func Target(addr string) string {
	addr = strings.TrimSpace(addr)
	switch {
	case strings.HasPrefix(addr, "unix://"), strings.HasPrefix(addr, "unix:"):
		return addr
	case strings.HasPrefix(addr, "http://"):
		addr = strings.TrimPrefix(addr, "http://")
	case strings.HasPrefix(addr, "grpc://"):
		addr = strings.TrimPrefix(addr, "grpc://")
	}
	return strings.TrimSuffix(addr, "/")
}

// Dial connects to addr and blocks until the connection is ready or the dial timeout expires.
func (d Dialer) Dial(ctx context.Context, addr string) (bridge.Conn, error) {
	timeout := d.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, d.Options...)

	cc, err := grpc.DialContext(dctx, Target(addr), opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(apperrors.Transport, "backend not reachable at "+addr, err)
		}
		return nil, apperrors.Wrap(apperrors.Transport, "dial "+addr, err)
	}
	return &Conn{cc: cc}, nil
}

// Conn is a bridge.Conn over a grpc.ClientConn.
type Conn struct {
	cc *grpc.ClientConn
}

func (c *Conn) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "x-client-name", ClientName)
}

// Invoke performs a unary call.
func (c *Conn) Invoke(ctx context.Context, method string, req, resp any) error {
	full := bridge.FullMethod(method)
	in, err := toStruct(req)
	if err != nil {
		return apperrors.Wrap(apperrors.InvalidInput, "encode "+method+" request", err)
	}
	out := &structpb.Struct{}
	if err := c.cc.Invoke(c.outgoing(ctx), full, in, out); err != nil {
		return logging.FromGRPC(method, err)
	}
	if err := fromStruct(out, resp); err != nil {
		return apperrors.Wrap(apperrors.Protocol, "decode "+method+" reply", err)
	}
	return nil
}

// Stream performs a server-streaming call and feeds each message to recv.
func (c *Conn) Stream(ctx context.Context, method string, req any, recv func(decode func(any) error) error) error {
	full := bridge.FullMethod(method)
	in, err := toStruct(req)
	if err != nil {
		return apperrors.Wrap(apperrors.InvalidInput, "encode "+method+" request", err)
	}

	sctx, cancel := context.WithCancel(c.outgoing(ctx))
	defer cancel()

	cs, err := c.cc.NewStream(sctx, &grpc.StreamDesc{StreamName: method, ServerStreams: true}, full)
	if err != nil {
		return logging.FromGRPC(method, err)
	}
	if err := cs.SendMsg(in); err != nil {
		return logging.FromGRPC(method, err)
	}
	if err := cs.CloseSend(); err != nil {
		return logging.FromGRPC(method, err)
	}

	for {
		msg := &structpb.Struct{}
		if err := cs.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return logging.FromGRPC(method, err)
		}
		decode := func(v any) error {
			if err := fromStruct(msg, v); err != nil {
				return apperrors.Wrap(apperrors.Protocol, "decode "+method+" message", err)
			}
			return nil
		}
		if err := recv(decode); err != nil {
			return err
		}
	}
}

// Close tears down the underlying ClientConn.
func (c *Conn) Close() error {
	if c.cc == nil {
		return nil
	}
	return c.cc.Close()
}
