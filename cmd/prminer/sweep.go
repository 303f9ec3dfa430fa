package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/config"
)

func newSweepCmd(cfg *config.Config) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep [output-path]",
		Short: "Remove staging directories left behind by failed downloads",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return usageError{fmt.Errorf("--older-than must be positive, got %s", olderThan)}
			}

			root := cfg.OutputPath
			if len(args) == 1 {
				root = args[0]
			}

			removed, err := application.NewSweeper(nil).Sweep(root, olderThan)
			if err != nil {
				return err
			}

			for _, path := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			slog.Info("sweep finished", "root", root, "removed", len(removed))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "only remove staging directories older than this")

	return cmd
}
