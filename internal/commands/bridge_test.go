// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package commands

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistbridge/cli/internal/bridge"
	"assistbridge/cli/internal/bridge/bridgetest"
	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/errors"
	"assistbridge/cli/internal/session"
)

// connected returns a Bridge whose session is already open on conn.
func connected(t *testing.T, conn *bridgetest.Conn, opts ...session.Option) *Bridge {
	t.Helper()
	d := &bridgetest.Dialer{New: func() *bridgetest.Conn { return conn }}
	b := NewBridge(session.New(d, "fake:5006", opts...), "1.2.3", zerolog.Nop())
	_, err := b.Connect(context.Background())
	require.NoError(t, err)
	return b
}

func decodeReq(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestConnectRegistersClient(t *testing.T) {
	conn := &bridgetest.Conn{}
	connected(t, conn)

	calls := conn.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, bridge.MethodConnectClient, calls[0].Method)
	req := decodeReq(t, calls[0].Req)
	assert.Equal(t, ClientName, req["clientName"])
	assert.Equal(t, "1.2.3", req["clientVersion"])
}

func TestOperationsRequireConnection(t *testing.T) {
	b := NewBridge(session.New(&bridgetest.Dialer{}, "fake:5006"), "dev", zerolog.Nop())

	_, err := b.SayHello(context.Background(), "ui")
	require.Error(t, err)
	assert.Equal(t, errors.NotConnected, errors.KindOf(err))
}

func TestUnaryReturnsReplyText(t *testing.T) {
	conn := &bridgetest.Conn{Reply: func(_ context.Context, method string, _ json.RawMessage) (any, error) {
		switch method {
		case bridge.MethodSayHello:
			return model.Reply{Message: "hello ui"}, nil
		case bridge.MethodGetMCPServers:
			return model.Reply{Message: "ok", Data: `[{"serverName":"fetch"}]`}, nil
		case bridge.MethodCheckHealth:
			return model.HealthReply{Status: "healthy"}, nil
		}
		return model.Reply{}, nil
	}}
	b := connected(t, conn)
	ctx := context.Background()

	msg, err := b.SayHello(ctx, "ui")
	require.NoError(t, err)
	assert.Equal(t, "hello ui", msg)

	data, err := b.GetMCPServers(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"serverName":"fetch"}]`, data)

	status, err := b.HealthCheck(ctx, "llm")
	require.NoError(t, err)
	assert.Equal(t, "healthy", status)
}

func TestBackendErrorKeepsKind(t *testing.T) {
	conn := &bridgetest.Conn{Reply: func(_ context.Context, method string, _ json.RawMessage) (any, error) {
		if method == bridge.MethodStartMCPServer {
			return nil, errors.Wrap(errors.Transport, method, stderrors.New("connection reset"))
		}
		return nil, nil
	}}
	b := connected(t, conn)

	_, err := b.StartMCPServer(context.Background(), "fetch")
	require.Error(t, err)
	assert.Equal(t, errors.Transport, errors.KindOf(err))
}

func TestListRequestsNeverSendNull(t *testing.T) {
	conn := &bridgetest.Conn{}
	b := connected(t, conn)

	_, err := b.LoadModels(context.Background(), nil)
	require.NoError(t, err)

	calls := conn.Calls()
	assert.JSONEq(t, `{"models":[]}`, string(calls[len(calls)-1].Req))
}

func TestChatConcatenatesChunksAndNotifies(t *testing.T) {
	conn := &bridgetest.Conn{Chunks: func(_ context.Context, method string, _ json.RawMessage, send func(any) error) error {
		for _, s := range []string{"Hel", "lo", "!"} {
			if err := send(model.ChatChunk{Message: s}); err != nil {
				return err
			}
		}
		return nil
	}}
	b := connected(t, conn)

	var events []model.ChatEvent
	answer, err := b.Chat(context.Background(), model.ChatRequest{Name: "user", Prompt: "hi", SessionID: 3}, func(e model.ChatEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", answer)
	assert.Equal(t, []model.ChatEvent{
		{Type: model.ChatEventChunk, Text: "Hel"},
		{Type: model.ChatEventChunk, Text: "lo"},
		{Type: model.ChatEventChunk, Text: "!"},
		{Type: model.ChatEventDone},
	}, events)

	req := decodeReq(t, conn.Calls()[1].Req)
	assert.Equal(t, "hi", req["prompt"])
	assert.EqualValues(t, 3, req["sessionId"])
}

func TestChatStreamFailureEmitsErrorEvent(t *testing.T) {
	conn := &bridgetest.Conn{Chunks: func(_ context.Context, _ string, _ json.RawMessage, send func(any) error) error {
		if err := send(model.ChatChunk{Message: "partial"}); err != nil {
			return err
		}
		return errors.Wrap(errors.Transport, "Chat", stderrors.New("stream reset"))
	}}
	b := connected(t, conn)

	var last model.ChatEvent
	answer, err := b.Chat(context.Background(), model.ChatRequest{Prompt: "hi"}, func(e model.ChatEvent) { last = e })
	require.Error(t, err)
	assert.Equal(t, errors.Transport, errors.KindOf(err))
	assert.Equal(t, "partial", answer)
	assert.Equal(t, model.ChatEventError, last.Type)
	assert.Contains(t, last.Message, "stream reset")
}

// slowChunks sends each message after gap, like a model generating a long answer.
func slowChunks(gap time.Duration, msgs ...any) func(context.Context, string, json.RawMessage, func(any) error) error {
	return func(ctx context.Context, _ string, _ json.RawMessage, send func(any) error) error {
		for _, msg := range msgs {
			select {
			case <-time.After(gap):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := send(msg); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestLongChatAnswerIsNotCutOff(t *testing.T) {
	var chunks []any
	for i := 0; i < 10; i++ {
		chunks = append(chunks, model.ChatChunk{Message: "x"})
	}
	conn := &bridgetest.Conn{Chunks: slowChunks(30*time.Millisecond, chunks...)}
	b := connected(t, conn, session.WithCallTimeout(100*time.Millisecond))

	answer, err := b.Chat(context.Background(), model.ChatRequest{Prompt: "write an essay"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "xxxxxxxxxx", answer)
}

func TestChatRejectsEmptyPrompt(t *testing.T) {
	conn := &bridgetest.Conn{}
	b := connected(t, conn)

	_, err := b.Chat(context.Background(), model.ChatRequest{Prompt: "  "}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.KindOf(err))
	assert.Equal(t, []string{bridge.MethodConnectClient}, conn.Methods())
}
