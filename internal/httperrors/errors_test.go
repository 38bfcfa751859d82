// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{name: "nil", err: nil, want: ""},
		{name: "canceled", err: fmt.Errorf("list: %w", context.Canceled), want: CategoryCanceled},
		{name: "deadline text", err: errors.New("context deadline exceeded"), want: CategoryTimeout},
		{name: "net timeout", err: &url.Error{Op: "Put", URL: "https://x", Err: timeoutErr{}}, want: CategoryTimeout},
		{name: "tls handshake timeout", err: errors.New("net/http: TLS handshake timeout"), want: CategoryTimeout},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "catalog.invalid"}, want: CategoryDNS},
		{
			name: "refused",
			err:  &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			want: CategoryRefused,
		},
		{name: "certificate", err: errors.New("x509: certificate signed by unknown authority"), want: CategoryTLS},
		{name: "bad gateway", err: errors.New("502 Bad Gateway"), want: CategoryServer},
		{name: "other", err: errors.New("connection reset by peer"), want: CategoryNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestDescribeStripsURLWrapper(t *testing.T) {
	err := &url.Error{Op: "Get", URL: "https://catalog.example/api/v1/mcpServers/abc", Err: errors.New("connection reset by peer")}

	assert.Equal(t, "network: connection reset by peer", Describe(err))
	assert.Empty(t, Describe(nil))
}

func TestFormatNetworkErrorWraps(t *testing.T) {
	base := errors.New("connection refused")

	err := FormatNetworkError(base, "contacting the bridge server")

	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "network error")
	assert.NoError(t, FormatNetworkError(nil, "anything"))
}

func TestExtractHostFromURL(t *testing.T) {
	assert.Equal(t, "127.0.0.1:7410", ExtractHostFromURL("http://127.0.0.1:7410/invoke/say_hello"))
	assert.Equal(t, "server", ExtractHostFromURL("not a url"))
	assert.Equal(t, "server", ExtractHostFromURL(""))
}
