// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := stderrors.New("connection reset by peer")
	e := Wrap(Transport, "chat", base)
	wrapped := fmt.Errorf("call_chat: %w", e)

	if got := KindOf(wrapped); got != Transport {
		t.Errorf("KindOf() = %q, want %q", got, Transport)
	}
	if !Is(wrapped, Transport) {
		t.Error("Is(Transport) = false, want true")
	}
	if !stderrors.Is(wrapped, base) {
		t.Error("underlying error lost through Unwrap")
	}
}

func TestHTTPCarriesStatus(t *testing.T) {
	err := fmt.Errorf("catalog: %w", HTTP(503, "catalog query failed"))

	if got := StatusOf(err); got != 503 {
		t.Errorf("StatusOf() = %d, want 503", got)
	}
	if got := KindOf(err); got != HTTPStatus {
		t.Errorf("KindOf() = %q, want %q", got, HTTPStatus)
	}
	want := "catalog: http_status: catalog query failed (status 503)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPlainErrorsHaveNoKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "nil", err: nil},
		{name: "stdlib", err: stderrors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != "" {
				t.Errorf("KindOf() = %q, want empty", got)
			}
			if Is(tt.err, IO) {
				t.Error("Is(IO) = true, want false")
			}
			if StatusOf(tt.err) != 0 {
				t.Error("StatusOf() != 0")
			}
		})
	}
}
