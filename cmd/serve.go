// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"assistbridge/cli/internal/server"
	"assistbridge/cli/internal/session"
)

var (
	serveListen  string
	serveConnect bool
)

// serveCmd runs the invoke server until SIGINT or SIGTERM. On exit the HTTP server
// stops accepting work first, then the backend session is torn down once.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local invoke server for the assistant UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if serveListen != "" {
			a.cfg.ListenAddr = serveListen
		}
		if a.cache != nil {
			if n, err := a.cache.Purge(cmd.Context()); err == nil && n > 0 {
				a.log.Debug().Int64("rows", n).Msg("purged stale catalog cache entries")
			}
			defer a.cache.Close()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The exit watcher owns the final disconnect.
		exit := make(chan struct{})
		disconnected := session.WatchExit(a.sessions, exit, a.cfg.ExitTimeout.Std())

		if serveConnect {
			if err := a.connect(ctx); err != nil {
				a.log.Warn().Err(err).Str("addr", a.cfg.BackendAddr).Msg("backend not reachable yet; the UI can retry connect_client")
			}
		}

		ln, err := net.Listen("tcp", a.cfg.ListenAddr)
		if err != nil {
			close(exit)
			<-disconnected
			return err
		}
		srv := &http.Server{
			Handler:           server.New(a.registry, a.bridge, a.log.With().Str("component", "http").Logger()).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}

		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.Serve(ln) }()
		pterm.Success.Printf("Listening on http://%s (backend %s)\n", ln.Addr(), a.cfg.BackendAddr)

		select {
		case <-ctx.Done():
			a.log.Info().Msg("exit requested")
		case err := <-serveErr:
			if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Msg("invoke server stopped")
			}
		}

		return shutdown(srv, exit, disconnected, a.cfg.ExitTimeout.Std())
	},
}

// shutdown stops the HTTP server, signals the exit watcher and waits for the
// disconnect, all within timeout.
func shutdown(srv *http.Server, exit chan struct{}, disconnected <-chan error, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
	close(exit)

	select {
	case err := <-disconnected:
		if err != nil {
			pterm.Warning.Println("Backend teardown failed: " + err.Error())
		}
	case <-ctx.Done():
		pterm.Warning.Println("Backend did not confirm disconnect in time")
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, 127.0.0.1:6225)")
	serveCmd.Flags().BoolVar(&serveConnect, "connect", false, "Connect to the backend at startup instead of waiting for connect_client")
	rootCmd.AddCommand(serveCmd)
}
