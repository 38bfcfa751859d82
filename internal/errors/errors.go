// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. Components below the command boundary return *E so the
// kind survives until the outermost layer decides how to present it.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// NotConnected indicates the guarded session was used before connect or after disconnect.
	NotConnected Kind = "not_connected"
	// Transport indicates a network-level failure (DNS, refused, reset, TLS).
	Transport Kind = "transport"
	// HTTPStatus indicates a non-2xx HTTP response; Status carries the code.
	HTTPStatus Kind = "http_status"
	// Decode indicates malformed or unsupported image data.
	Decode Kind = "decode"
	// IO indicates a local filesystem failure.
	IO Kind = "io"
	// Protocol indicates a malformed or unexpected backend response.
	Protocol Kind = "protocol"
	// Timeout indicates a call or a wait for the session guard ran out of time.
	Timeout Kind = "timeout"
	// InvalidInput indicates caller-supplied arguments were rejected before any I/O.
	InvalidInput Kind = "invalid_input"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code for HTTPStatus errors.
	Status int
	Err    error
}

func (e *E) Error() string {
	msg := e.Message
	if e.Kind == HTTPStatus && e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// HTTP builds an HTTPStatus error carrying the numeric status code.
func HTTP(status int, msg string) *E {
	return &E{Kind: HTTPStatus, Message: msg, Status: status}
}

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *E
	if stderrors.As(err, &e) {
		return e.Status
	}
	return 0
}
