// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistbridge/cli/internal/bridge"
	"assistbridge/cli/internal/bridge/bridgetest"
	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/errors"
)

func connected(t *testing.T, d *bridgetest.Dialer, opts ...Option) *Manager {
	t.Helper()
	m := New(d, "fake:5006", opts...)
	require.NoError(t, m.Connect(context.Background()))
	require.True(t, m.Connected())
	return m
}

func TestWithConnectionBeforeConnect(t *testing.T) {
	m := New(&bridgetest.Dialer{}, "fake:5006")

	called := false
	err := m.WithConnection(context.Background(), func(context.Context, bridge.Conn) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotConnected))
	assert.False(t, called)
	assert.False(t, m.Connected())
}

func TestConcurrentCallsNeverOverlap(t *testing.T) {
	d := &bridgetest.Dialer{New: func() *bridgetest.Conn {
		return &bridgetest.Conn{Delay: 50 * time.Millisecond}
	}}
	m := connected(t, d)

	type span struct{ start, end time.Time }
	var (
		mu    sync.Mutex
		spans []span
		wg    sync.WaitGroup
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithConnection(context.Background(), func(ctx context.Context, c bridge.Conn) error {
				s := span{start: time.Now()}
				err := c.Stream(ctx, bridge.MethodChat, model.ChatRequest{Prompt: "hi"}, func(func(any) error) error { return nil })
				s.end = time.Now()
				mu.Lock()
				spans = append(spans, s)
				mu.Unlock()
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, spans, 2)
	first, second := spans[0], spans[1]
	if second.start.Before(first.start) {
		first, second = second, first
	}
	assert.False(t, second.start.Before(first.end), "second call started before the first released the guard")
	assert.Equal(t, 1, d.Last().MaxConcurrent())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	d := &bridgetest.Dialer{}
	m := connected(t, d)

	require.NoError(t, m.Disconnect(context.Background()))
	require.NoError(t, m.Disconnect(context.Background()))

	conn := d.Last()
	assert.Equal(t, []string{bridge.MethodDisconnectClient}, conn.Methods())
	assert.Equal(t, 1, conn.Closed())
	assert.False(t, m.Connected())
}

func TestDisconnectWithoutConnectIsNoop(t *testing.T) {
	m := New(&bridgetest.Dialer{}, "fake:5006")
	assert.NoError(t, m.Disconnect(context.Background()))
}

func TestDisconnectClearsSlotWhenTeardownFails(t *testing.T) {
	d := &bridgetest.Dialer{New: func() *bridgetest.Conn {
		return &bridgetest.Conn{Reply: func(context.Context, string, json.RawMessage) (any, error) {
			return nil, errors.New(errors.Transport, "stream reset")
		}}
	}}
	m := connected(t, d)

	err := m.Disconnect(context.Background())
	assert.True(t, errors.Is(err, errors.Transport))
	assert.False(t, m.Connected())
	assert.Equal(t, 1, d.Last().Closed())

	err = m.WithConnection(context.Background(), func(context.Context, bridge.Conn) error { return nil })
	assert.True(t, errors.Is(err, errors.NotConnected))
}

func TestCallTimeoutIsReportedAsTimeout(t *testing.T) {
	d := &bridgetest.Dialer{New: func() *bridgetest.Conn {
		return &bridgetest.Conn{Delay: time.Second}
	}}
	m := connected(t, d, WithCallTimeout(20*time.Millisecond))

	err := m.WithConnection(context.Background(), func(ctx context.Context, c bridge.Conn) error {
		return c.Invoke(ctx, bridge.MethodLoadModels, model.LoadModelsRequest{}, nil)
	})
	assert.True(t, errors.Is(err, errors.Timeout), "got %v", err)
}

func TestWaitingForGuardHonoursContext(t *testing.T) {
	m := connected(t, &bridgetest.Dialer{})

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithConnection(context.Background(), func(context.Context, bridge.Conn) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.WithConnection(ctx, func(context.Context, bridge.Conn) error { return nil })
	assert.True(t, errors.Is(err, errors.Timeout))

	close(release)
	assert.NoError(t, m.WithConnection(context.Background(), func(context.Context, bridge.Conn) error { return nil }))
}

func TestGuardReleasedAfterPanic(t *testing.T) {
	m := connected(t, &bridgetest.Dialer{})

	func() {
		defer func() { _ = recover() }()
		_ = m.WithConnection(context.Background(), func(context.Context, bridge.Conn) error {
			panic("op blew up")
		})
	}()

	done := make(chan error, 1)
	go func() {
		done <- m.WithConnection(context.Background(), func(context.Context, bridge.Conn) error { return nil })
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("guard still held after panic")
	}
}

func TestConnectReplacesExistingConnection(t *testing.T) {
	d := &bridgetest.Dialer{}
	m := connected(t, d)
	require.NoError(t, m.Connect(context.Background()))

	dialed := d.Dialed()
	require.Len(t, dialed, 2)
	assert.Equal(t, 1, dialed[0].Closed())
	assert.Equal(t, 0, dialed[1].Closed())
	assert.True(t, m.Connected())
}

func TestConnectFailureLeavesSlotEmpty(t *testing.T) {
	m := New(&bridgetest.Dialer{Err: errors.New(errors.Transport, "refused")}, "fake:5006")
	err := m.Connect(context.Background())
	assert.True(t, errors.Is(err, errors.Transport))
	assert.False(t, m.Connected())
}

func TestCallReturnsValue(t *testing.T) {
	d := &bridgetest.Dialer{New: func() *bridgetest.Conn {
		return &bridgetest.Conn{Reply: func(context.Context, string, json.RawMessage) (any, error) {
			return model.HealthReply{Status: "ok"}, nil
		}}
	}}
	m := connected(t, d)

	status, err := Call(context.Background(), m, func(ctx context.Context, c bridge.Conn) (string, error) {
		var r model.HealthReply
		err := c.Invoke(ctx, bridge.MethodCheckHealth, model.HealthRequest{TypeOfCheck: "RAG"}, &r)
		return r.Status, err
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", status)

	_, err = Call(context.Background(), m, func(context.Context, bridge.Conn) (int, error) {
		return 0, stderrors.New("nope")
	})
	assert.EqualError(t, err, "nope")
}

// trickle sends n chat chunks, gap apart, then stalls for stall before returning.
func trickle(n int, gap, stall time.Duration) func(context.Context, string, json.RawMessage, func(any) error) error {
	return func(ctx context.Context, _ string, _ json.RawMessage, send func(any) error) error {
		for i := 0; i < n; i++ {
			select {
			case <-time.After(gap):
			case <-ctx.Done():
				return ctx.Err()
			}
			if err := send(model.ChatChunk{Message: "x"}); err != nil {
				return err
			}
		}
		if stall > 0 {
			select {
			case <-time.After(stall):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
}

func streamChunks(ctx context.Context, m *Manager) (int, error) {
	got := 0
	err := m.WithStream(ctx, func(ctx context.Context, c bridge.Conn, alive func()) error {
		return c.Stream(ctx, bridge.MethodChat, model.ChatRequest{Prompt: "hi"}, func(decode func(any) error) error {
			alive()
			got++
			return nil
		})
	})
	return got, err
}

func TestStreamOutlivesCallTimeoutWhileProgressing(t *testing.T) {
	d := &bridgetest.Dialer{New: func() *bridgetest.Conn {
		return &bridgetest.Conn{Chunks: trickle(10, 30*time.Millisecond, 0)}
	}}
	m := connected(t, d, WithCallTimeout(100*time.Millisecond))

	start := time.Now()
	got, err := streamChunks(context.Background(), m)

	require.NoError(t, err)
	assert.Equal(t, 10, got)
	assert.Greater(t, time.Since(start), 100*time.Millisecond)
}

func TestIdleStreamIsReportedAsTimeout(t *testing.T) {
	d := &bridgetest.Dialer{New: func() *bridgetest.Conn {
		return &bridgetest.Conn{Chunks: trickle(2, 10*time.Millisecond, time.Second)}
	}}
	m := connected(t, d, WithCallTimeout(50*time.Millisecond))

	got, err := streamChunks(context.Background(), m)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Timeout), "got %v", err)
	assert.Contains(t, err.Error(), "idle")
	assert.Equal(t, 2, got)
}

func TestStreamBeforeConnect(t *testing.T) {
	m := New(&bridgetest.Dialer{}, "fake:5006")

	_, err := streamChunks(context.Background(), m)

	assert.True(t, errors.Is(err, errors.NotConnected))
}
