package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/prminer/internal/config"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(os.Stderr, "error:", err)
		fmt.Fprintln(os.Stderr, "run 'prwatcher --help' for usage")
		return exitUsage
	}

	slog.Error("fatal error", "error", err)
	return exitFailure
}

// watchFlags override the loaded configuration when set.
type watchFlags struct {
	firehose      bool
	findEmails    bool
	language      string
	classifierURL string
}

func (f watchFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("github-archive") {
		cfg.Firehose = f.firehose
	}
	if flags.Changed("find-emails") {
		cfg.FindEmails = f.findEmails
	}
	if flags.Changed("language") {
		cfg.Language = f.language
	}
	if flags.Changed("classifier-url") {
		cfg.ClassifierURL = f.classifierURL
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg   config.Config
		flags watchFlags
	)

	root := &cobra.Command{
		Use:   "prwatcher",
		Short: "Track new pull requests and classify them with the partitioning service",
		Long: `prwatcher keeps a local record of recent pull requests, either of the
projects named in the project list or of every public repository in the
configured language (GitHub Archive firehose). New or updated pull requests
are classified and an HTML report is written after every pass.

Configuration is read from the YAML file named by PRMINER_CONFIG and from
PRMINER_* environment variables; flags take precedence over both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = *loaded
			flags.apply(cmd, &cfg)

			if cfg.ClassifierURL == "" {
				return usageError{errors.New("classifier URL is required (PRMINER_CLASSIFIER_URL or --classifier-url)")}
			}

			level, err := cfg.SlogLevel()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger.With("run_id", uuid.NewString()))
			return nil
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.BoolVarP(&flags.firehose, "github-archive", "g", false, "examine new pull requests of all repositories in the configured language instead of the project list")
	pf.BoolVarP(&flags.findEmails, "find-emails", "e", false, "try to find the emails of interesting pull request authors")
	pf.StringVar(&flags.language, "language", "", "repository language tracked in firehose mode (default from config, \"Java\")")
	pf.StringVar(&flags.classifierURL, "classifier-url", "", "base URL of the partitioning service")

	root.AddCommand(newRunCmd(&cfg), newDaemonCmd(&cfg))
	return root
}
