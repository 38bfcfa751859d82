// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package server exposes the command registry to the local UI over HTTP.
//
// Routes:
//
//	POST /invoke/{command}  run one command with a JSON argument object
//	GET  /healthz           {"connected": bool}
//	GET  /metrics           Prometheus metrics
//	GET  /ws/chat           websocket chat stream
package server

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"assistbridge/cli/internal/commands"
)

// DefaultMaxBodyBytes caps invoke request bodies.
const DefaultMaxBodyBytes int64 = 8 << 20

// Server serves the invoke API.
type Server struct {
	registry *commands.Registry
	bridge   *commands.Bridge
	log      zerolog.Logger
	upgrader websocket.Upgrader
	maxBody  int64
}

// New returns a Server dispatching to reg. Chat streams run through b.
func New(reg *commands.Registry, b *commands.Bridge, log zerolog.Logger) *Server {
	s := &Server{registry: reg, bridge: b, log: log, maxBody: DefaultMaxBodyBytes}
	s.upgrader = websocket.Upgrader{CheckOrigin: allowOrigin}
	return s
}

// InvokeResponse is the body of every /invoke answer.
type InvokeResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Post("/invoke/{command}", s.handleInvoke)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/ws/chat", s.handleChat)
	return r
}

// requestID tags each request with a UUID, keeping a caller-supplied X-Request-ID.
// The id is stored where chi's middleware.GetReqID finds it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")
	if !s.registry.Has(name) {
		invokeTotal.WithLabelValues("unknown", "not_found").Inc()
		writeJSON(w, http.StatusNotFound, InvokeResponse{Error: "unknown command: " + name})
		return
	}

	// A JSON content type forces a CORS preflight, which this server never answers.
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, InvokeResponse{Error: "Content-Type must be application/json"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, InvokeResponse{Error: "could not read request body"})
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, InvokeResponse{Error: "invalid JSON body"})
		return
	}

	result, err := s.registry.Invoke(r.Context(), name, body)
	if err != nil {
		invokeTotal.WithLabelValues(name, "error").Inc()
		writeJSON(w, http.StatusOK, InvokeResponse{Error: err.Error()})
		return
	}
	invokeTotal.WithLabelValues(name, "ok").Inc()
	writeJSON(w, http.StatusOK, InvokeResponse{OK: true, Result: result})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"connected": s.bridge.Session().Connected()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
