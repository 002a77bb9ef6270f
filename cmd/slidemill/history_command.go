package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"slidemill/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past generation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.Runs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				pr := newPrinter(cmd.OutOrStdout())
				if len(runs) == 0 {
					pr.status(severityInfo, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.ID,
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						string(run.Status),
						strconv.Itoa(run.Variations),
						strconv.Itoa(run.Posts),
						strconv.Itoa(run.Images),
						run.Duration().Round(time.Millisecond).String(),
						strconv.FormatInt(run.Seed, 10),
					})
				}
				pr.println(renderTable([]string{"Run", "Started", "Status", "Variations", "Posts", "Images", "Duration", "Seed"}, rows, 3, 4, 5, 6))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryUsageCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the images selected by one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				sels, err := store.Selections(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				pr := newPrinter(cmd.OutOrStdout())
				switch run.Status {
				case history.StatusFailed:
					pr.status(severityError, "Run %s failed: %s", run.ID, run.ErrorMessage)
				case history.StatusRunning:
					pr.status(severityWarn, "Run %s has not finished", run.ID)
				default:
					pr.status(severityOK, "Run %s completed %d posts", run.ID, run.Posts)
				}
				rows := make([][]string, 0, len(sels))
				for _, sel := range sels {
					rows = append(rows, []string{
						strconv.Itoa(sel.Variation),
						strconv.Itoa(sel.Post),
						strconv.Itoa(sel.Slot),
						sel.ContentType,
						sel.Product,
						sel.Image,
					})
				}
				if len(rows) > 0 {
					pr.println(renderTable([]string{"Variation", "Post", "Slot", "Content type", "Product", "Image"}, rows, 0, 1, 2))
				}
				return nil
			})
		},
	}
}

func newHistoryUsageCommand(ctx *commandContext) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Count how often each image was selected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				usage, err := store.Usage(cmd.Context(), contentType)
				if err != nil {
					return err
				}
				pr := newPrinter(cmd.OutOrStdout())
				if len(usage) == 0 {
					pr.status(severityInfo, "No selections recorded")
					return nil
				}
				rows := make([][]string, 0, len(usage))
				for _, u := range usage {
					rows = append(rows, []string{u.Image, u.ContentType, strconv.Itoa(u.Count), u.LastUsed.Local().Format("2006-01-02 15:04")})
				}
				pr.println(renderTable([]string{"Image", "Content type", "Uses", "Last used"}, rows, 2))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Only count selections of this content type")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				newPrinter(cmd.OutOrStdout()).status(severityOK, "Removed %d runs", removed)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "Number of runs to keep")
	return cmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.New("run history is disabled (history.enabled = false)")
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Paths.HistoryDB, logger)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}
