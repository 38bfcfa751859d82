// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"assistbridge/cli/internal/errors"
	"assistbridge/cli/internal/httperrors"
	"assistbridge/cli/internal/server"
)

var invokeDirect bool

// invokeCmd runs one UI command. By default it goes through the running invoke
// server so the server's session is reused; --direct opens a private session.
var invokeCmd = &cobra.Command{
	Use:   "invoke <command> [json-args]",
	Short: "Invoke a UI command by name",
	Example: `  assistbridge invoke mw_say_hello '{"name":"cli"}'
  assistbridge invoke get_missing_models '{"models":["qwen2.5-7b"]}' --direct`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		var raw json.RawMessage
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return errors.New(errors.InvalidInput, "arguments are not valid JSON")
			}
			raw = json.RawMessage(args[1])
		}

		var (
			out json.RawMessage
			err error
		)
		if invokeDirect {
			out, err = invokeInProcess(cmd, name, raw)
		} else {
			out, err = invokeRemote(cmd, name, raw)
		}
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func invokeInProcess(cmd *cobra.Command, name string, raw json.RawMessage) (json.RawMessage, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	defer a.close(ctx)

	if a.registry.NeedsSession(name) && name != "connect_client" {
		if err := a.connect(ctx); err != nil {
			return nil, err
		}
	}
	return a.registry.Invoke(ctx, name, raw)
}

func invokeRemote(cmd *cobra.Command, name string, raw json.RawMessage) (json.RawMessage, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	url := "http://" + cfg.ListenAddr + "/invoke/" + name
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: cfg.CallTimeout.Std() + 5*time.Second}
	resp, err := client.Do(req)
	if err != nil {
		host := httperrors.ExtractHostFromURL(url)
		return nil, httperrors.FormatNetworkError(err, "contacting the invoke server at "+host+" (is `assistbridge serve` running?)")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var ir server.InvokeResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return nil, fmt.Errorf("unexpected invoke server reply (status %d)", resp.StatusCode)
	}
	if !ir.OK {
		return nil, fmt.Errorf("%s", ir.Error)
	}
	return ir.Result, nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	_, err := fmt.Fprintln(w, buf.String())
	return err
}

func init() {
	invokeCmd.Flags().BoolVar(&invokeDirect, "direct", false, "Run the command in this process with its own backend session")
	rootCmd.AddCommand(invokeCmd)
}
