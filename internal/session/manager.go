// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session owns the single live connection to the assistant backend.
//
// The connection sits in one slot guarded by a weighted semaphore of size one.
// Waiting for the guard suspends only the calling goroutine, honours context
// cancellation and is served in arrival order. Every read or write of the slot
// happens while the guard is held, and the connection is never handed out
// beyond the callback passed to WithConnection.
package session

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"assistbridge/cli/internal/bridge"
	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/errors"
)

// DefaultCallTimeout bounds a single guarded call when no timeout is configured.
const DefaultCallTimeout = 60 * time.Second

// Manager is the shared connection slot.
type Manager struct {
	dialer      bridge.Dialer
	addr        string
	callTimeout time.Duration
	log         zerolog.Logger

	sem  *semaphore.Weighted
	conn bridge.Conn // guarded by sem

	// connected mirrors conn != nil for lock-free health reporting.
	connected atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithCallTimeout sets the per-call deadline applied inside WithConnection, and the
// idle limit between messages inside WithStream. Zero disables both.
func WithCallTimeout(d time.Duration) Option {
	return func(m *Manager) { m.callTimeout = d }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New returns a disconnected Manager that dials addr through d.
func New(d bridge.Dialer, addr string, opts ...Option) *Manager {
	m := &Manager{
		dialer:      d,
		addr:        addr,
		callTimeout: DefaultCallTimeout,
		log:         zerolog.Nop(),
		sem:         semaphore.NewWeighted(1),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Addr returns the backend address the manager dials.
func (m *Manager) Addr() string { return m.addr }

// Connected reports whether a connection is currently stored. It never blocks.
func (m *Manager) Connected() bool { return m.connected.Load() }

func (m *Manager) setConn(c bridge.Conn) {
	m.conn = c
	m.connected.Store(c != nil)
}

// acquire takes the guard, recording how long the caller waited.
func (m *Manager) acquire(ctx context.Context, op string) error {
	start := time.Now()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		lockWaitSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
		m.log.Warn().Str("op", op).Dur("waited", time.Since(start)).Msg("gave up waiting for backend session")
		return errors.Wrap(errors.Timeout, "waiting for backend session", err)
	}
	waited := time.Since(start)
	lockWaitSeconds.WithLabelValues(op).Observe(waited.Seconds())
	if waited > time.Second {
		m.log.Debug().Str("op", op).Dur("waited", waited).Msg("session guard contended")
	}
	return nil
}

// Connect dials the backend and stores the connection. Calling Connect while
// connected closes the old connection first and replaces it.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.acquire(ctx, "connect"); err != nil {
		return err
	}
	defer m.sem.Release(1)

	if m.conn != nil {
		m.log.Info().Str("addr", m.addr).Msg("replacing existing backend connection")
		if err := m.conn.Close(); err != nil {
			m.log.Warn().Err(err).Msg("closing previous connection")
		}
		m.setConn(nil)
	}

	conn, err := m.dialer.Dial(ctx, m.addr)
	if err != nil {
		callsTotal.WithLabelValues("connect", resultLabel(err)).Inc()
		return err
	}
	m.setConn(conn)
	callsTotal.WithLabelValues("connect", "ok").Inc()
	m.log.Info().Str("addr", m.addr).Msg("connected to backend")
	return nil
}

// WithConnection runs op with exclusive use of the connection. The guard is released
// on every exit path, including a panic inside op. A missing connection fails with
// NotConnected; running past the call timeout fails with Timeout.
func (m *Manager) WithConnection(ctx context.Context, op func(ctx context.Context, conn bridge.Conn) error) error {
	return m.guarded(ctx, func(conn bridge.Conn) error {
		cctx := ctx
		if m.callTimeout > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(ctx, m.callTimeout)
			defer cancel()
		}

		err := op(cctx, conn)
		if err != nil && !errors.Is(err, errors.Timeout) && stderrors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = errors.Wrap(errors.Timeout, "backend call exceeded "+m.callTimeout.String(), err)
		}
		return err
	})
}

// errStreamIdle is the cancel cause used when a stream stops delivering messages.
var errStreamIdle = stderrors.New("backend stream idle")

// WithStream is WithConnection for server streams. The call timeout bounds the gap
// between messages rather than the whole stream: op calls alive after every received
// message to push the deadline back. A stream that goes quiet for longer than the
// call timeout fails with Timeout.
func (m *Manager) WithStream(ctx context.Context, op func(ctx context.Context, conn bridge.Conn, alive func()) error) error {
	return m.guarded(ctx, func(conn bridge.Conn) error {
		sctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		alive := func() {}
		if m.callTimeout > 0 {
			idle := time.AfterFunc(m.callTimeout, func() { cancel(errStreamIdle) })
			defer idle.Stop()
			alive = func() { idle.Reset(m.callTimeout) }
		}

		err := op(sctx, conn, alive)
		if err != nil && !errors.Is(err, errors.Timeout) && stderrors.Is(context.Cause(sctx), errStreamIdle) {
			err = errors.Wrap(errors.Timeout, "backend stream idle for more than "+m.callTimeout.String(), err)
		}
		return err
	})
}

// guarded holds the session guard around run and records the outcome.
func (m *Manager) guarded(ctx context.Context, run func(conn bridge.Conn) error) error {
	if err := m.acquire(ctx, "call"); err != nil {
		callsTotal.WithLabelValues("call", string(errors.Timeout)).Inc()
		return err
	}
	defer m.sem.Release(1)

	if m.conn == nil {
		callsTotal.WithLabelValues("call", string(errors.NotConnected)).Inc()
		return errors.New(errors.NotConnected, "backend session is not connected")
	}

	err := run(m.conn)
	callsTotal.WithLabelValues("call", resultLabel(err)).Inc()
	return err
}

// Call is WithConnection for operations that produce a value.
func Call[T any](ctx context.Context, m *Manager, op func(ctx context.Context, conn bridge.Conn) (T, error)) (T, error) {
	var out T
	err := m.WithConnection(ctx, func(ctx context.Context, conn bridge.Conn) error {
		v, err := op(ctx, conn)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Disconnect sends one DisconnectClient call, closes the transport and clears the
// slot. It is a no-op when nothing is connected. The slot is cleared even when the
// teardown call fails; that failure is returned.
func (m *Manager) Disconnect(ctx context.Context) error {
	if err := m.acquire(ctx, "disconnect"); err != nil {
		return err
	}
	defer m.sem.Release(1)

	if m.conn == nil {
		m.log.Debug().Msg("disconnect requested but no backend session is open")
		return nil
	}
	conn := m.conn
	m.setConn(nil)

	cctx := ctx
	if m.callTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, m.callTimeout)
		defer cancel()
	}

	err := conn.Invoke(cctx, bridge.MethodDisconnectClient, model.Empty{}, nil)
	if cerr := conn.Close(); cerr != nil && err == nil {
		err = errors.Wrap(errors.Transport, "close backend connection", cerr)
	}
	callsTotal.WithLabelValues("disconnect", resultLabel(err)).Inc()
	if err != nil {
		m.log.Warn().Err(err).Msg("backend teardown failed")
		return err
	}
	m.log.Info().Str("addr", m.addr).Msg("disconnected from backend")
	return nil
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := errors.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
