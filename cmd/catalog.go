// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"assistbridge/cli/internal/catalog"
	"assistbridge/cli/internal/logging"
)

var (
	catalogPage     int
	catalogSize     int
	catalogCategory string
	catalogSearch   string
	catalogRefresh  bool
	catalogRaw      bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse and install MCP servers from the catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of hosted MCP servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		q := catalog.Query{PageNumber: catalogPage, PageSize: catalogSize, Category: catalogCategory, Search: catalogSearch}
		stopSpinner := startInlineSpinner(os.Stderr, "Querying catalog...", spinnerFrames, spinnerInterval)
		var raw string
		if catalogRefresh {
			raw, err = a.cached.Refresh(cmd.Context(), q)
		} else {
			raw, err = a.cached.Query(cmd.Context(), q)
		}
		stopSpinner()
		if err != nil {
			return err
		}
		if catalogRaw {
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		}

		page, err := catalog.ParseList(raw)
		if err != nil {
			return err
		}
		if len(page.Entries) == 0 {
			pterm.Info.Println("No servers match.")
			return nil
		}
		rows := [][]string{{"ID", "Name", "Publisher", "Views"}}
		for _, e := range page.Entries {
			rows = append(rows, []string{e.ID, e.Name, e.Publisher, strconv.FormatInt(e.ViewCount, 10)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}
		pterm.Printf("Page %d of %d (%d servers)\n", q.PageNumber, page.TotalPages(q.PageSize), page.Total)
		return nil
	},
}

var catalogGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show the server configurations of one catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		raw, err := a.cached.QueryByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if catalogRaw {
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		}
		servers, err := catalog.ParseServers(args[0], raw)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			pterm.Warning.Println("This entry has no runnable server configuration.")
			return nil
		}
		for _, s := range servers {
			pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint(s.ServerName))
			items := []pterm.BulletListItem{}
			if s.Command != "" {
				items = append(items, pterm.BulletListItem{Text: "command: " + s.Command + " " + s.Args})
			}
			if s.URL != "" {
				items = append(items, pterm.BulletListItem{Text: "url: " + s.URL})
			}
			if s.Env != "" {
				items = append(items, pterm.BulletListItem{Text: "env: " + logging.Mask(s.Env)})
			}
			_ = pterm.DefaultBulletList.WithItems(items).Render()
		}
		return nil
	},
}

var catalogInstallCmd = &cobra.Command{
	Use:   "install <id>",
	Short: "Register a catalog entry's servers with the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		defer a.close(ctx)

		if err := a.connect(ctx); err != nil {
			pterm.Printf("❌ Failed to connect to the assistant backend at %s\n", a.cfg.BackendAddr)
			return err
		}
		res, err := a.bridge.InstallCatalogServer(ctx, a.local, args[0])
		for _, name := range res.Servers {
			pterm.Success.Println("Added " + name)
		}
		return err
	},
}

var catalogPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every cached catalog response",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())
		if a.cache == nil {
			pterm.Info.Println("Catalog cache is disabled.")
			return nil
		}
		if err := a.cache.Clear(cmd.Context()); err != nil {
			return err
		}
		pterm.Success.Println("Catalog cache cleared.")
		return nil
	},
}

func init() {
	catalogListCmd.Flags().IntVar(&catalogPage, "page", 1, "Page number (1-based)")
	catalogListCmd.Flags().IntVar(&catalogSize, "size", 20, "Page size")
	catalogListCmd.Flags().StringVar(&catalogCategory, "category", "", "Category filter")
	catalogListCmd.Flags().StringVar(&catalogSearch, "search", "", "Search text")
	catalogListCmd.Flags().BoolVar(&catalogRefresh, "refresh", false, "Bypass the cache and refetch")
	catalogCmd.PersistentFlags().BoolVar(&catalogRaw, "raw", false, "Print the raw JSON response")

	catalogCmd.AddCommand(catalogListCmd, catalogGetCmd, catalogInstallCmd, catalogPurgeCmd)
	rootCmd.AddCommand(catalogCmd)
}
