package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"slidemill/internal/outputs"
)

func newOutputCommand(ctx *commandContext) *cobra.Command {
	outputCmd := &cobra.Command{
		Use:   "output",
		Short: "Inspect and clean generated variation folders",
	}
	outputCmd.AddCommand(newOutputListCommand(ctx))
	outputCmd.AddCommand(newOutputCleanCommand(ctx))
	return outputCmd
}

func newOutputListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List variation folders in the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			variations, err := outputs.List(cfg.Paths.OutputDir)
			if err != nil {
				return fmt.Errorf("list outputs: %w", err)
			}
			pr := newPrinter(cmd.OutOrStdout())
			if len(variations) == 0 {
				pr.status(severityInfo, "No variations in %s", cfg.Paths.OutputDir)
				return nil
			}
			rows := make([][]string, 0, len(variations))
			for _, v := range variations {
				rows = append(rows, []string{
					strconv.Itoa(v.Number),
					strconv.Itoa(v.Posts),
					strconv.Itoa(v.Files),
					humanize.IBytes(uint64(v.Size)),
					v.ModTime.Local().Format("2006-01-02 15:04"),
				})
			}
			pr.println(renderTable([]string{"Variation", "Posts", "Files", "Size", "Modified"}, rows, 0, 1, 2, 3))
			return nil
		},
	}
}

func newOutputCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove variation folders",
		Long:  "Remove variation folders from the output directory. With --older-than 0 every variation folder is removed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}
			result := outputs.CleanStale(cmd.Context(), cfg.Paths.OutputDir, olderThan, logger)
			pr := newPrinter(cmd.OutOrStdout())
			for _, failure := range result.Errors {
				pr.status(severityError, "%s: %v", failure.Path, failure.Error)
			}
			pr.status(severityOK, "Removed %d variation folders", len(result.Removed))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d folders could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Only remove folders last modified before this age")
	return cmd
}
