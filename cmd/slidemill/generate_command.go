package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"slidemill/internal/config"
	"slidemill/internal/generation"
	"slidemill/internal/history"
	"slidemill/internal/preflight"
	"slidemill/internal/render"
	"slidemill/internal/resolve"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generation.Options
	var outputDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate every caption row for each variation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pr := newPrinter(cmd.OutOrStdout())

			if outputDir != "" {
				expanded, err := config.ExpandPath(outputDir)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(expanded, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
				cfg.Paths.OutputDir = expanded
			}
			if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
				for _, result := range failed {
					pr.status(severityError, "%s: %s", result.Name, result.Detail)
				}
				return errors.New("preflight checks failed")
			}

			p, err := ctx.openProject(false)
			if err != nil {
				return err
			}
			defer p.close()

			if err := printReport(pr, p.validate(cfg.Validation.Strict)); err != nil {
				return err
			}
			defaults, err := p.defaults()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if !flags.Changed("variations") {
				opts.Variations = cfg.Generation.Variations
			}
			if !flags.Changed("workers") {
				opts.Workers = cfg.Generation.Workers
			}
			if !flags.Changed("seed") {
				opts.Seed = cfg.Generation.Seed
			}
			if !flags.Changed("allow-all-duplicates") {
				opts.AllowAllDuplicates = cfg.Generation.AllowAllDuplicates
			}
			opts.BaseDir = cfg.Paths.BaseDir
			opts.OutputDir = cfg.Paths.OutputDir

			var options []generation.Option
			if cfg.History.Enabled {
				store, err := history.Open(cfg.Paths.HistoryDB, p.logger)
				if err != nil {
					return err
				}
				defer store.Close()
				options = append(options, generation.WithRecorder(store))
			}

			gen := generation.New(p.md, p.table, resolve.New(p.md, defaults, p.logger), render.NewCopyRenderer(p.logger), opts, p.logger, options...)
			sum, err := gen.Run(cmd.Context())
			if err != nil {
				pr.status(severityError, "Run %s stopped after %d posts", sum.RunID, sum.Posts)
				return err
			}
			pr.println(renderTable(
				[]string{"Run", "Seed", "Variations", "Posts", "Images", "Size", "Duration", "Images/s"},
				[][]string{{
					sum.RunID,
					fmt.Sprint(sum.Seed),
					fmt.Sprint(sum.Variations),
					fmt.Sprint(sum.Posts),
					fmt.Sprint(sum.Images),
					humanize.IBytes(uint64(sum.Bytes)),
					sum.Duration.Round(time.Millisecond).String(),
					fmt.Sprintf("%.1f", sum.ImagesPerSecond()),
				}},
				1, 2, 3, 4, 5, 7,
			))
			pr.status(severityOK, "Wrote %d images to %s", sum.Images, opts.OutputDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Variations, "variations", 1, "Number of variations to generate")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "Posts generated in parallel")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "Random seed; 0 picks a fresh one")
	cmd.Flags().BoolVar(&opts.AllowAllDuplicates, "allow-all-duplicates", false, "Let \"all\" slots use duplicate-guarded products")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	return cmd
}
