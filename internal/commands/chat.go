// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package commands

import (
	"context"
	"strings"

	"assistbridge/cli/internal/bridge"
	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/errors"
	"assistbridge/cli/internal/logging"
)

// Chat streams an answer for req and returns the concatenated text.
//
// observe, when non-nil, receives one chunk event per streamed piece followed by a
// single done or error event. The session guard is held for the whole stream, so
// other calls queue behind it; cancel ctx to abandon an answer early. The session's
// call timeout applies to the wait for each chunk, not to the whole answer.
func (b *Bridge) Chat(ctx context.Context, req model.ChatRequest, observe func(model.ChatEvent)) (string, error) {
	if observe == nil {
		observe = func(model.ChatEvent) {}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		err := errors.New(errors.InvalidInput, "chat prompt is empty")
		observe(model.ChatEvent{Type: model.ChatEventError, Message: err.Error()})
		return "", err
	}

	var answer strings.Builder
	chunks := 0
	err := b.sessions.WithStream(ctx, func(ctx context.Context, conn bridge.Conn, alive func()) error {
		return conn.Stream(ctx, bridge.MethodChat, req, func(decode func(any) error) error {
			var chunk model.ChatChunk
			if err := decode(&chunk); err != nil {
				return err
			}
			alive()
			chunks++
			answer.WriteString(chunk.Message)
			observe(model.ChatEvent{Type: model.ChatEventChunk, Text: chunk.Message})
			return nil
		})
	})
	if err != nil {
		b.log.Warn().Err(err).Int("chunks", chunks).Int("session", req.SessionID).Msg("chat stream ended with error")
		observe(model.ChatEvent{Type: model.ChatEventError, Message: logging.Mask(err.Error())})
		return answer.String(), err
	}

	b.log.Debug().Int("chunks", chunks).Int("session", req.SessionID).Msg("chat stream finished")
	observe(model.ChatEvent{Type: model.ChatEventDone})
	return answer.String(), nil
}
