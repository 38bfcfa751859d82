// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"assistbridge/cli/internal/models"
	"assistbridge/cli/internal/thumbnail"
)

var (
	thumbWidth  int
	thumbHeight int
)

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail <image>",
	Short: "Print a Base64 PNG thumbnail of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, h := thumbWidth, thumbHeight
		if w == 0 || h == 0 {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if w == 0 {
				w = cfg.Thumbnail.MaxWidth
			}
			if h == 0 {
				h = cfg.Thumbnail.MaxHeight
			}
		}
		out, err := thumbnail.Encode(args[0], w, h)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the local models directory",
}

var modelsMissingCmd = &cobra.Command{
	Use:   "missing <dir> <model>...",
	Short: "List requested models that are not in dir",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := models.Missing(args[0], args[1:])
		if err != nil {
			return err
		}
		if len(res.Missing) == 0 {
			pterm.Success.Printf("All %d models present in %s\n", len(args)-1, res.Dir)
			return nil
		}
		for _, m := range res.Missing {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check <dir>",
	Short: "Check whether dir holds an OpenVINO model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.CheckOpenVINO(args[0]) {
			return fmt.Errorf("%s is missing %s or %s", args[0], models.OpenVINOWeights, models.OpenVINOTopology)
		}
		pterm.Success.Printf("%s contains an OpenVINO model\n", args[0])
		return nil
	},
}

func init() {
	thumbnailCmd.Flags().IntVar(&thumbWidth, "width", 0, "Maximum width (default from config, 48)")
	thumbnailCmd.Flags().IntVar(&thumbHeight, "height", 0, "Maximum height (default from config, 48)")
	modelsCmd.AddCommand(modelsMissingCmd, modelsCheckCmd)
	rootCmd.AddCommand(thumbnailCmd, modelsCmd)
}
