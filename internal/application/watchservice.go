package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// Watcher defaults.
const (
	DefaultWindow     = 72 * time.Hour
	DefaultArchiveLag = 3 * time.Hour
)

// WatchConfig configures a WatchService.
type WatchConfig struct {
	Mode model.WatchMode
	// Window bounds the first query of a never-refreshed project.
	Window time.Duration
	// ArchiveLag is how far behind the run start the firehose bucket is read.
	ArchiveLag time.Duration
	// Language restricts firehose events to base repositories in this
	// language. Empty accepts every language.
	Language string
}

// WatchService runs reconciliation passes: it merges newly observed pull
// requests into the stored state, classifies every new or changed record,
// and publishes a summary.
type WatchService struct {
	ghClient     driven.GitHubClient
	archive      driven.EventArchive
	classifier   driven.Classifier
	prStore      driven.PRStore
	projectStore driven.ProjectStore
	projectList  driven.ProjectList
	summary      *SummaryService
	reports      driven.ReportWriter
	cfg          WatchConfig
	now          func() time.Time
	shuffle      ShuffleFunc
}

// NewWatchService creates a WatchService. archive is only used in firehose
// mode; projectStore and projectList only in tracked mode. reports may be nil.
func NewWatchService(
	ghClient driven.GitHubClient,
	archive driven.EventArchive,
	classifier driven.Classifier,
	prStore driven.PRStore,
	projectStore driven.ProjectStore,
	projectList driven.ProjectList,
	summary *SummaryService,
	reports driven.ReportWriter,
	cfg WatchConfig,
) *WatchService {
	if cfg.Mode == "" {
		cfg.Mode = model.WatchModeTracked
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.ArchiveLag <= 0 {
		cfg.ArchiveLag = DefaultArchiveLag
	}
	return &WatchService{
		ghClient:     ghClient,
		archive:      archive,
		classifier:   classifier,
		prStore:      prStore,
		projectStore: projectStore,
		projectList:  projectList,
		summary:      summary,
		reports:      reports,
		cfg:          cfg,
		now:          time.Now,
		shuffle:      rand.Shuffle,
	}
}

// WithClock replaces the time source. It is intended for tests.
func (s *WatchService) WithClock(now func() time.Time) *WatchService {
	s.now = now
	return s
}

// WithShuffle replaces the project shuffle. It is intended for tests.
func (s *WatchService) WithShuffle(shuffle ShuffleFunc) *WatchService {
	s.shuffle = shuffle
	return s
}

// RunPass executes one reconciliation pass. A remote failure while visiting a
// project ends the visiting early, but everything merged so far is still
// saved and summarized; unvisited projects keep their old watermark.
func (s *WatchService) RunPass(ctx context.Context) (model.PassReport, error) {
	runStart := s.now()
	report := model.PassReport{Mode: s.cfg.Mode, StartedAt: runStart}

	prs, err := s.prStore.LoadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("load pull requests: %w", err)
	}

	var projects map[string]model.Project

	switch s.cfg.Mode {
	case model.WatchModeFirehose:
		if err := s.reconcileArchive(ctx, runStart, prs, &report); err != nil {
			return report, err
		}
	default:
		projects, err = s.reconcileProjects(ctx, runStart, prs, &report)
		if err != nil {
			return report, err
		}
	}

	if err := s.prStore.SaveAll(ctx, prs); err != nil {
		return report, fmt.Errorf("save pull requests: %w", err)
	}
	if projects != nil {
		if err := s.projectStore.SaveAll(ctx, projects); err != nil {
			return report, fmt.Errorf("save projects: %w", err)
		}
	}

	report.StoredRecords = len(prs)

	if s.summary != nil {
		summary, err := s.summary.Summarize(ctx, s.cfg.Mode, prs, projects)
		if err != nil {
			return report, fmt.Errorf("summarize: %w", err)
		}
		report.Interesting = len(summary.Interesting)

		if s.reports != nil {
			if err := s.reports.WriteReport(ctx, summary); err != nil {
				return report, fmt.Errorf("write report: %w", err)
			}
		}
	}

	report.Duration = s.now().Sub(runStart)

	slog.Info("reconciliation pass complete",
		"mode", s.cfg.Mode,
		"projects_visited", report.ProjectsVisited,
		"projects_failed", report.ProjectsFailed,
		"seen", report.RecordsSeen,
		"constructed", report.RecordsConstructed,
		"unchanged", report.RecordsUnchanged,
		"classifier_failures", report.ClassifierFailures,
		"duration", report.Duration,
	)

	return report, nil
}

// reconcileProjects visits tracked projects, least recently refreshed first,
// and merges their recently created pull requests into prs.
func (s *WatchService) reconcileProjects(
	ctx context.Context,
	runStart time.Time,
	prs map[model.PRKey]model.PullRequest,
	report *model.PassReport,
) (map[string]model.Project, error) {
	projects, err := s.projectStore.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}

	listed, err := s.projectList.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range listed {
		if _, ok := projects[id]; !ok {
			projects[id] = model.Project{RepoID: id}
		}
	}

	order := PrioritizeProjects(projects, s.shuffle)

	for _, p := range order {
		if err := ctx.Err(); err != nil {
			slog.Warn("pass interrupted", "error", err)
			break
		}

		since := p.LastRefreshed
		if since.IsZero() {
			since = runStart.Add(-s.cfg.Window)
		}

		pulls, err := s.ghClient.SearchPullRequestsCreatedSince(ctx, p.RepoID, since)
		if err != nil {
			slog.Error("failed to query project, ending pass early",
				"repo", p.RepoID,
				"error", err,
			)
			report.ProjectsFailed++
			break
		}

		for _, pull := range pulls {
			report.RecordsSeen++
			existing, ok := prs[model.PRKey{RepoID: pull.RepoID, Number: pull.Number}]
			if ok && existing.UpdatedAt.Equal(pull.UpdatedAt) {
				report.RecordsUnchanged++
				continue
			}
			pr := s.construct(ctx, pull.RepoID, pull.Number, pull.Author, pull.CreatedAt, pull.UpdatedAt, report)
			prs[pr.Key()] = pr
		}

		p.LastRefreshed = runStart
		projects[p.RepoID] = p
		report.ProjectsVisited++
	}

	return projects, nil
}

// reconcileArchive merges newly opened pull requests from the archive bucket
// ArchiveLag before runStart.
func (s *WatchService) reconcileArchive(
	ctx context.Context,
	runStart time.Time,
	prs map[model.PRKey]model.PullRequest,
	report *model.PassReport,
) error {
	bucket := runStart.Add(-s.cfg.ArchiveLag)

	events, err := s.archive.PullEvents(ctx, bucket)
	if err != nil {
		return fmt.Errorf("read event archive for %s: %w", bucket.UTC().Format(time.DateTime), err)
	}

	for _, ev := range events {
		if ev.Action != "opened" {
			continue
		}
		if s.cfg.Language != "" && !strings.EqualFold(ev.Language, s.cfg.Language) {
			continue
		}
		report.RecordsSeen++

		if _, ok := prs[model.PRKey{RepoID: ev.RepoID, Number: ev.Number}]; ok {
			report.RecordsUnchanged++
			continue
		}
		if err := ctx.Err(); err != nil {
			slog.Warn("pass interrupted", "error", err)
			break
		}

		pr := s.construct(ctx, ev.RepoID, ev.Number, ev.Author, ev.CreatedAt, ev.UpdatedAt, report)
		prs[pr.Key()] = pr
	}

	return nil
}

// construct builds a fresh record and classifies it. A classifier failure
// yields the unclassified sentinel and never fails the pass.
func (s *WatchService) construct(
	ctx context.Context,
	repoID string,
	number int,
	author string,
	createdAt, updatedAt time.Time,
	report *model.PassReport,
) model.PullRequest {
	pr := model.PullRequest{
		RepoID:    repoID,
		Number:    number,
		Author:    author,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		NTP:       model.UnclassifiedNTP,
		TP:        model.UnclassifiedTP,
	}

	parts, err := s.classifier.Classify(ctx, repoID, number)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, driven.ErrUnclassified) {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "classification failed", "pr", pr.Key().String(), "error", err)
		report.ClassifierFailures++
	} else {
		pr.NTP = parts.NTP
		pr.TP = parts.TP
	}

	pr.AnalyzedAt = s.now()
	report.RecordsConstructed++

	return pr
}

// PrioritizeProjects returns the projects in visiting order: shuffled, then
// stably sorted so never-refreshed projects come first, followed by the
// oldest watermarks.
func PrioritizeProjects(projects map[string]model.Project, shuffle ShuffleFunc) []model.Project {
	ids := make([]string, 0, len(projects))
	for id := range projects {
		ids = append(ids, id)
	}
	// Sorted so the order depends only on shuffle.
	slices.Sort(ids)

	order := make([]model.Project, len(ids))
	for i, id := range ids {
		order[i] = projects[id]
	}

	if shuffle != nil {
		shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	slices.SortStableFunc(order, func(a, b model.Project) int {
		return a.LastRefreshed.Compare(b.LastRefreshed)
	})

	return order
}
