// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridgetest provides an in-memory bridge.Conn for tests.
package bridgetest

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"assistbridge/cli/internal/bridge"
)

// Call records one request seen by a Conn.
type Call struct {
	Method string
	Req    json.RawMessage
}

// Conn is a scripted bridge.Conn. Replies are copied into the caller's value via JSON,
// the same way the gRPC client decodes them.
type Conn struct {
	// Reply answers unary calls. A nil Reply answers every call with an empty message.
	Reply func(ctx context.Context, method string, req json.RawMessage) (any, error)
	// Chunks answers streaming calls by sending each value in turn.
	Chunks func(ctx context.Context, method string, req json.RawMessage, send func(any) error) error
	// Delay is slept (context permitting) inside every call.
	Delay time.Duration

	mu     sync.Mutex
	calls  []Call
	closed int

	active    atomic.Int32
	maxActive atomic.Int32
}

var _ bridge.Conn = (*Conn)(nil)

func (c *Conn) enter(ctx context.Context, method string, req any) (json.RawMessage, func(), error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: method, Req: raw})
	c.mu.Unlock()

	n := c.active.Add(1)
	for {
		cur := c.maxActive.Load()
		if n <= cur || c.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	leave := func() { c.active.Add(-1) }

	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			leave()
			return nil, nil, ctx.Err()
		}
	}
	return raw, leave, nil
}

func (c *Conn) Invoke(ctx context.Context, method string, req, resp any) error {
	raw, leave, err := c.enter(ctx, method, req)
	if err != nil {
		return err
	}
	defer leave()

	if c.Reply == nil {
		return nil
	}
	v, err := c.Reply(ctx, method, raw)
	if err != nil {
		return err
	}
	return copyInto(v, resp)
}

func (c *Conn) Stream(ctx context.Context, method string, req any, recv func(decode func(any) error) error) error {
	raw, leave, err := c.enter(ctx, method, req)
	if err != nil {
		return err
	}
	defer leave()

	if c.Chunks == nil {
		return nil
	}
	return c.Chunks(ctx, method, raw, func(v any) error {
		return recv(func(out any) error { return copyInto(v, out) })
	})
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed++
	c.mu.Unlock()
	return nil
}

// Calls returns the recorded requests in arrival order.
func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Methods returns only the method names of the recorded requests.
func (c *Conn) Methods() []string {
	var out []string
	for _, call := range c.Calls() {
		out = append(out, call.Method)
	}
	return out
}

// Closed reports how many times Close was called.
func (c *Conn) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// MaxConcurrent reports the highest number of calls that were in flight at once.
func (c *Conn) MaxConcurrent() int { return int(c.maxActive.Load()) }

func copyInto(v, out any) error {
	if out == nil || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Dialer hands out Conns built by New, or fails with Err.
type Dialer struct {
	New func() *Conn
	Err error

	mu     sync.Mutex
	dialed []*Conn
}

func (d *Dialer) Dial(_ context.Context, _ string) (bridge.Conn, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	c := &Conn{}
	if d.New != nil {
		c = d.New()
	}
	d.mu.Lock()
	d.dialed = append(d.dialed, c)
	d.mu.Unlock()
	return c, nil
}

// Dialed returns every Conn handed out so far.
func (d *Dialer) Dialed() []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Conn(nil), d.dialed...)
}

// Last returns the most recently dialed Conn, or nil.
func (d *Dialer) Last() *Conn {
	all := d.Dialed()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}
