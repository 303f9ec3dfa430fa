package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/prminer/internal/adapter/driven/flatfile"
	githubadapter "github.com/ericfisherdev/prminer/internal/adapter/driven/github"
	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/config"
	"github.com/ericfisherdev/prminer/internal/domain/model"
)

type mineOptions struct {
	outputPath    string
	force         bool
	includeClosed bool
	total         int
	idsOnly       bool
}

func newMineCmd(cfg *config.Config) *cobra.Command {
	var opts mineOptions

	cmd := &cobra.Command{
		Use:   "mine owner/repo [owner/repo...]",
		Short: "Download pull requests of one or more repositories",
		Example: `  prminer mine apache/commons-lang
  prminer mine -c -n 200 apache/commons-lang google/guava
  prminer mine -i apache/commons-lang`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				cfg.OutputPath = opts.outputPath
			}
			if opts.total < 0 {
				return usageError{fmt.Errorf("-n must not be negative, got %d", opts.total)}
			}
			for _, arg := range args {
				if _, _, err := model.SplitRepo(arg); err != nil {
					return usageError{err}
				}
			}
			return runMine(cmd, cfg, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "output path (default from config, \"output\")")
	cmd.Flags().BoolVarP(&opts.force, "force-redownload", "f", false, "redownload pull requests already present in the output path")
	cmd.Flags().BoolVarP(&opts.includeClosed, "closed", "c", false, "also download closed pull requests")
	cmd.Flags().IntVarP(&opts.total, "num", "n", math.MaxInt, "number of pull requests to download, split evenly across repositories")
	cmd.Flags().BoolVarP(&opts.idsOnly, "ids-only", "i", false, "only write the pull request ID queue of each repository")

	return cmd
}

func runMine(cmd *cobra.Command, cfg *config.Config, opts mineOptions, repos []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ghClient, err := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return err
	}
	if cfg.GitHubToken == "" {
		slog.Warn("no github token configured, using the unauthenticated rate limit")
	}

	// The config's zero means no retries; the downloader's zero means its default.
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}

	queue := application.NewIDQueue(ghClient, flatfile.NewIDQueueFile(), nil)
	downloader := application.NewDownloader(ghClient, application.DownloaderOptions{MaxRetries: maxRetries})
	svc := application.NewMineService(ghClient, queue, downloader, cfg.OutputPath)

	collections := make([]model.Collection, 0, len(repos))
	for _, r := range repos {
		collections = append(collections, model.Collection{FullName: r, IncludeClosed: opts.includeClosed})
	}

	req := application.MineRequest{
		Collections:         collections,
		PerCollectionTarget: opts.total / len(collections),
		SkipExisting:        !opts.force,
		IDsOnly:             opts.idsOnly,
	}

	slog.Info("mining started",
		"repos", len(collections),
		"per_repo_target", req.PerCollectionTarget,
		"output_path", cfg.OutputPath,
		"include_closed", opts.includeClosed,
	)

	report, mineErr := svc.Mine(ctx, req)
	renderMineReport(cmd.OutOrStdout(), report)

	if mineErr != nil {
		return fmt.Errorf("mining aborted: %w", mineErr)
	}

	slog.Info("mining finished", "accepted", report.TotalAccepted())
	return nil
}
