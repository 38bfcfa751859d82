// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/logging"
)

const (
	chatReadLimit = 1 << 20
	writeWait     = 10 * time.Second
)

// handleChat upgrades to a websocket, reads one chat request and relays the
// answer as ChatEvents. Any later client message, or the client going away,
// cancels the stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(chatReadLimit)

	chatStreams.Inc()
	defer chatStreams.Dec()

	var req model.ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		send(conn, model.ChatEvent{Type: model.ChatEventError, Message: "invalid chat request: " + logging.Mask(err.Error())})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("chat client went away")
			}
		}
	}()

	_, _ = s.bridge.Chat(ctx, req, func(ev model.ChatEvent) {
		if err := send(conn, ev); err != nil {
			cancel()
		}
	})

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func send(conn *websocket.Conn, ev model.ChatEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

// allowOrigin admits non-browser clients and pages served from the local machine
// or the desktop shell.
func allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == "tauri" {
		return true
	}
	host := u.Hostname()
	if host == "localhost" || host == "tauri.localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
