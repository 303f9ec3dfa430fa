package main

import (
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/prminer/internal/application"
)

func newSummarizeCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "summarize <results-root>",
		Short: "Combine per-pull-request analysis CSVs into one file per kind",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := application.NewResultSummarizer().Summarize(cmd.Context(), args[0], outDir)
			if err != nil {
				return err
			}
			renderResultsReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "directory to write the combined all*.csv files into")

	return cmd
}
