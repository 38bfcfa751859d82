// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"os/signal"
	"strings"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/logging"
)

var (
	chatSession int
	chatFiles   []string
)

// chatCmd asks the backend one question and renders the streamed answer.
var chatCmd = &cobra.Command{
	Use:   "chat <prompt>",
	Short: "Ask the assistant a question and stream the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		defer a.close(cmd.Context())

		if err := a.connect(ctx); err != nil {
			pterm.Printf("❌ Failed to connect to the assistant backend at %s\n", a.cfg.BackendAddr)
			pterm.Println(logging.PresentError("", err))
			return err
		}

		cursor.Hide()
		defer cursor.Show()
		stopSpinner := startInlineSpinner(os.Stdout, "Thinking...", spinnerFrames, spinnerInterval)
		defer stopSpinner()

		req := model.ChatRequest{
			Name:          "user",
			Prompt:        strings.Join(args, " "),
			SessionID:     chatSession,
			AttachedFiles: chatFiles,
		}
		_, err = a.bridge.Chat(ctx, req, func(ev model.ChatEvent) {
			stopSpinner()
			switch ev.Type {
			case model.ChatEventChunk:
				pterm.Print(ev.Text)
			case model.ChatEventDone:
				pterm.Println()
			}
		})
		if err != nil {
			pterm.Println()
			logging.PresentStreamError(err)
			return err
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().IntVar(&chatSession, "session", 0, "Chat session id to continue")
	chatCmd.Flags().StringSliceVar(&chatFiles, "file", nil, "Uploaded file to attach (repeatable)")
	rootCmd.AddCommand(chatCmd)
}
