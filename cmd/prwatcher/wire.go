package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/prminer/internal/adapter/driven/classifier"
	"github.com/ericfisherdev/prminer/internal/adapter/driven/flatfile"
	"github.com/ericfisherdev/prminer/internal/adapter/driven/gharchive"
	githubadapter "github.com/ericfisherdev/prminer/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/prminer/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/prminer/internal/adapter/driving/report"
	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/config"
	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// classifierOpenTimeout is how long an open classifier breaker waits before probing.
const classifierOpenTimeout = 30 * time.Second

// stores groups the persistence ports of the selected backend.
type stores struct {
	prs      driven.PRStore
	projects driven.ProjectStore
	users    driven.UserStore
	close    func() error
}

func openStores(cfg *config.Config) (*stores, error) {
	if cfg.StoreBackend != config.BackendSQLite {
		slog.Info("using flat-file stores", "data_dir", cfg.DataDir)
		return &stores{
			prs:      flatfile.NewPRStore(cfg.PRStorePath()),
			projects: flatfile.NewProjectStore(cfg.ProjectStorePath()),
			users:    flatfile.NewUserStore(cfg.UserStorePath()),
			close:    func() error { return nil },
		}, nil
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", db.Path())

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("migrations complete")

	return &stores{
		prs:      sqliteadapter.NewPRRepo(db),
		projects: sqliteadapter.NewProjectRepo(db),
		users:    sqliteadapter.NewUserRepo(db),
		close:    db.Close,
	}, nil
}

// watcher is the fully wired reconciliation stack.
type watcher struct {
	service *application.WatchService
	online  *application.OnlineUsers
	stores  *stores
}

func (w *watcher) Close() {
	if err := w.stores.close(); err != nil {
		slog.Error("error closing stores", "error", err)
	}
}

func newWatcher(ctx context.Context, cfg *config.Config) (*watcher, error) {
	ghClient, err := githubadapter.NewClient(cfg.GitHubToken, cfg.GitHubAPIURL)
	if err != nil {
		return nil, err
	}
	if cfg.GitHubToken == "" {
		slog.Warn("no github token configured, using the unauthenticated rate limit")
	}

	st, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	var presence driven.PresenceSource
	if cfg.PresenceListPath != "" {
		presence = flatfile.NewPresenceFile(cfg.PresenceListPath)
	}
	online := application.NewOnlineUsers(presence)
	if err := online.Refresh(ctx); err != nil {
		slog.Warn("presence list unavailable, no authors will be marked online", "error", err)
	}

	mode := model.WatchModeTracked
	if cfg.Firehose {
		mode = model.WatchModeFirehose
	}

	summary := application.NewSummaryService(ghClient, st.users, online, application.SummaryConfig{
		FindEmails:  cfg.FindEmails,
		Language:    cfg.Language,
		AnalysisURL: cfg.ClassifierURL,
	})

	cls := classifier.NewClient(nil, cfg.ClassifierURL, classifier.Options{
		RequestsPerSecond: cfg.ClassifierRate,
		FailureThreshold:  cfg.ClassifierBreakerThreshold,
		OpenTimeout:       classifierOpenTimeout,
	})

	svc := application.NewWatchService(
		ghClient,
		gharchive.NewClient(nil, ""),
		cls,
		st.prs,
		st.projects,
		flatfile.NewProjectList(cfg.ProjectListPath),
		summary,
		report.NewWriter(cfg.ReportPath),
		application.WatchConfig{
			Mode:       mode,
			Window:     cfg.Window,
			ArchiveLag: cfg.ArchiveLag,
			Language:   cfg.Language,
		},
	)

	slog.Info("watcher configured",
		"mode", mode,
		"store_backend", cfg.StoreBackend,
		"report_path", cfg.ReportPath,
		"find_emails", cfg.FindEmails,
	)

	return &watcher{service: svc, online: online, stores: st}, nil
}
