// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"assistbridge/cli/internal/config"
)

var (
	// Version holds the CLI version information.
	// This value is typically set at build time using -ldflags.
	Version = "0.0.0-dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "assistbridge %s\n", Version)
	if cfg, err := config.Load(); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "backend %s\n", cfg.BackendAddr)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
