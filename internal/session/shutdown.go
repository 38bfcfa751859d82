// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import (
	"context"
	"time"
)

// WatchExit waits in its own goroutine for exit to close (or receive), then performs
// exactly one Disconnect bounded by timeout. The result is delivered on the returned
// channel, which is closed afterwards, so the host can block on it before terminating.
func WatchExit(m *Manager, exit <-chan struct{}, timeout time.Duration) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		<-exit

		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		m.log.Debug().Dur("timeout", timeout).Msg("exit requested, closing backend session")
		done <- m.Disconnect(ctx)
	}()
	return done
}
