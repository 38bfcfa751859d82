// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"assistbridge/cli/internal/keychain"
	"assistbridge/cli/internal/terminal"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the catalog API token kept in the OS keychain",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the catalog API token (read from the terminal without echo)",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		const prompt = "Catalog API token: "
		tok, err := terminal.ReadSecret(prompt)
		if err != nil {
			return err
		}
		terminal.ClearPreviousLines(len(prompt))
		if err := km.SaveCatalogToken(tok); err != nil {
			return err
		}
		pterm.Success.Println("Catalog token saved to the OS keychain.")
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored catalog API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		if err := km.ClearCatalogToken(); err != nil {
			return err
		}
		pterm.Success.Println("Catalog token removed.")
		return nil
	},
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a catalog API token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return err
		}
		if km.HasCatalogToken() {
			pterm.Info.Println("A catalog token is stored; catalog requests are authenticated.")
		} else {
			pterm.Info.Println("No catalog token stored; catalog requests are anonymous.")
		}
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd, tokenStatusCmd)
	rootCmd.AddCommand(tokenCmd)
}
