package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/prminer/internal/config"
)

func newRunCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single reconciliation pass and exit",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := newWatcher(ctx, cfg)
			if err != nil {
				return err
			}
			defer w.Close()

			report, err := w.service.RunPass(ctx)
			if err != nil {
				return fmt.Errorf("reconciliation pass: %w", err)
			}

			slog.Info("pass complete",
				"mode", report.Mode,
				"projects_visited", report.ProjectsVisited,
				"projects_failed", report.ProjectsFailed,
				"records_constructed", report.RecordsConstructed,
				"classifier_failures", report.ClassifierFailures,
				"stored_records", report.StoredRecords,
				"interesting", report.Interesting,
				"duration", report.Duration,
			)
			return nil
		},
	}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
