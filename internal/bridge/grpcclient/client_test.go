// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package grpcclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"assistbridge/cli/internal/bridge"
	"assistbridge/cli/internal/bridge/model"
	apperrors "assistbridge/cli/internal/errors"
)

// fakeBackend answers every method through a single handler keyed by full method name.
type fakeBackend func(method string, req *structpb.Struct, send func(map[string]any) error) error

func startBackend(t *testing.T, h fakeBackend) Dialer {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
		method, _ := grpc.MethodFromServerStream(stream)
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		if md, ok := metadata.FromIncomingContext(stream.Context()); ok {
			if got := md.Get("x-client-name"); len(got) == 0 || got[0] != ClientName {
				return status.Error(codes.Unauthenticated, "missing client name")
			}
		}
		return h(method, req, func(m map[string]any) error {
			s, err := structpb.NewStruct(m)
			if err != nil {
				return err
			}
			return stream.SendMsg(s)
		})
	}))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return Dialer{
		DialTimeout: 2 * time.Second,
		Options: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	}
}

func TestInvokeRoundTrip(t *testing.T) {
	d := startBackend(t, func(method string, req *structpb.Struct, send func(map[string]any) error) error {
		if method != bridge.FullMethod(bridge.MethodSayHello) {
			return status.Errorf(codes.Unimplemented, "unexpected %s", method)
		}
		return send(map[string]any{"message": "Hello " + req.Fields["name"].GetStringValue()})
	})

	conn, err := d.Dial(context.Background(), "bufnet")
	require.NoError(t, err)
	defer conn.Close()

	var reply model.Reply
	err = conn.Invoke(context.Background(), bridge.MethodSayHello, model.SayHelloRequest{Name: "tester"}, &reply)
	require.NoError(t, err)
	assert.Equal(t, "Hello tester", reply.Message)
}

func TestInvokeMapsStatusCodes(t *testing.T) {
	d := startBackend(t, func(method string, _ *structpb.Struct, _ func(map[string]any) error) error {
		switch method {
		case bridge.FullMethod(bridge.MethodLoadModels):
			return status.Error(codes.Unavailable, "worker offline")
		case bridge.FullMethod(bridge.MethodConvertModel):
			return status.Error(codes.DeadlineExceeded, "too slow")
		}
		return status.Error(codes.Internal, "boom")
	})

	conn, err := d.Dial(context.Background(), "bufnet")
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	err = conn.Invoke(ctx, bridge.MethodLoadModels, model.LoadModelsRequest{}, nil)
	assert.Equal(t, apperrors.Transport, apperrors.KindOf(err))

	err = conn.Invoke(ctx, bridge.MethodConvertModel, model.ModelRequest{}, nil)
	assert.Equal(t, apperrors.Timeout, apperrors.KindOf(err))

	err = conn.Invoke(ctx, bridge.MethodRemoveModel, model.ModelRequest{}, nil)
	assert.Equal(t, apperrors.Protocol, apperrors.KindOf(err))
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	d := startBackend(t, func(method string, req *structpb.Struct, send func(map[string]any) error) error {
		if req.Fields["prompt"].GetStringValue() != "hi" {
			return status.Error(codes.InvalidArgument, "bad prompt")
		}
		for _, part := range []string{"Hel", "lo", "!"} {
			if err := send(map[string]any{"message": part}); err != nil {
				return err
			}
		}
		return nil
	})

	conn, err := d.Dial(context.Background(), "bufnet")
	require.NoError(t, err)
	defer conn.Close()

	var got []string
	err = conn.Stream(context.Background(), bridge.MethodChat, model.ChatRequest{Prompt: "hi"}, func(decode func(any) error) error {
		var c model.ChatChunk
		if err := decode(&c); err != nil {
			return err
		}
		got = append(got, c.Message)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "!"}, got)
}

func TestDialUnreachableIsTransport(t *testing.T) {
	lis := bufconn.Listen(1024)
	require.NoError(t, lis.Close())
	d := Dialer{
		DialTimeout: 200 * time.Millisecond,
		Options: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	}
	_, err := d.Dial(context.Background(), "bufnet")
	require.Error(t, err)
	assert.Equal(t, apperrors.Transport, apperrors.KindOf(err))
}

func TestTarget(t *testing.T) {
	tests := map[string]string{
		"localhost:5006":         "localhost:5006",
		"http://localhost:5006":  "localhost:5006",
		"grpc://127.0.0.1:5006/": "127.0.0.1:5006",
		"unix:///tmp/sb.sock":    "unix:///tmp/sb.sock",
	}
	for in, want := range tests {
		assert.Equal(t, want, Target(in), in)
	}
}

func TestCodecNilValues(t *testing.T) {
	s, err := toStruct(nil)
	require.NoError(t, err)
	assert.Empty(t, s.Fields)
	assert.NoError(t, fromStruct(s, nil))

	var r model.Reply
	require.NoError(t, fromStruct(nil, &r))
	assert.Equal(t, model.Reply{}, r)
}
