package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

var runStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type watchFixture struct {
	gh         *mockGitHubClient
	archive    *fakeArchive
	classifier *fakeClassifier
	prs        *memPRStore
	projects   *memProjectStore
	list       staticProjectList
	reports    *captureReportWriter
}

func newWatchFixture() *watchFixture {
	return &watchFixture{
		gh:         &mockGitHubClient{},
		archive:    &fakeArchive{},
		classifier: &fakeClassifier{},
		prs:        newMemPRStore(),
		projects:   newMemProjectStore(),
		reports:    &captureReportWriter{},
	}
}

func (f *watchFixture) service(cfg application.WatchConfig) *application.WatchService {
	summary := application.NewSummaryService(f.gh, &memUserStore{}, nil, application.SummaryConfig{})
	return application.NewWatchService(
		f.gh, f.archive, f.classifier, f.prs, f.projects, f.list, summary, f.reports, cfg,
	).WithClock(fixedClock(runStart)).WithShuffle(reverseShuffle)
}

func remotePull(repo string, number int, updated time.Time) model.RemotePull {
	return model.RemotePull{
		RepoID:    repo,
		Number:    number,
		Author:    "dev",
		CreatedAt: updated.Add(-time.Hour),
		UpdatedAt: updated,
	}
}

func TestPrioritizeProjects_NeverRefreshedFirst(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	projects := map[string]model.Project{
		"c/late":  {RepoID: "c/late", LastRefreshed: t2},
		"b/early": {RepoID: "b/early", LastRefreshed: t1},
		"a/never": {RepoID: "a/never"},
	}

	for _, shuffle := range []application.ShuffleFunc{nil, reverseShuffle} {
		order := application.PrioritizeProjects(projects, shuffle)
		require.Len(t, order, 3)
		assert.Equal(t, "a/never", order[0].RepoID)
		assert.Equal(t, "b/early", order[1].RepoID)
		assert.Equal(t, "c/late", order[2].RepoID)
	}
}

func TestWatchService_TrackedPassConstructsAndClassifies(t *testing.T) {
	f := newWatchFixture()
	f.list = staticProjectList{"octo/repo"}
	var since time.Time
	f.gh.search = func(_ context.Context, repo string, s time.Time) ([]model.RemotePull, error) {
		since = s
		return []model.RemotePull{
			remotePull(repo, 1, runStart.Add(-2*time.Hour)),
			remotePull(repo, 2, runStart.Add(-time.Hour)),
		}, nil
	}
	f.classifier.fn = func(_ string, number int) (driven.Partitions, error) {
		if number == 2 {
			return driven.Partitions{}, fmt.Errorf("%w: status 500", driven.ErrUnclassified)
		}
		return driven.Partitions{NTP: 3, TP: 4}, nil
	}

	report, err := f.service(application.WatchConfig{}).RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, runStart.Add(-application.DefaultWindow), since)
	assert.Equal(t, 1, report.ProjectsVisited)
	assert.Equal(t, 2, report.RecordsConstructed)
	assert.Equal(t, 1, report.ClassifierFailures)
	assert.Equal(t, 2, report.StoredRecords)
	assert.Equal(t, 1, report.Interesting)

	first := f.prs.prs[model.PRKey{RepoID: "octo/repo", Number: 1}]
	assert.Equal(t, 3, first.NTP)
	assert.Equal(t, 4, first.TP)
	assert.Equal(t, runStart, first.AnalyzedAt)

	failed := f.prs.prs[model.PRKey{RepoID: "octo/repo", Number: 2}]
	assert.Equal(t, model.UnclassifiedNTP, failed.NTP)
	assert.Equal(t, model.UnclassifiedTP, failed.TP)
	assert.Equal(t, runStart, failed.AnalyzedAt)
	assert.False(t, failed.Interesting())

	assert.Equal(t, runStart, f.projects.projects["octo/repo"].LastRefreshed)
	require.Len(t, f.reports.summaries, 1)
	assert.Len(t, f.reports.summaries[0].Interesting, 1)
}

func TestWatchService_MergeOnlyReconstructsChangedRecords(t *testing.T) {
	f := newWatchFixture()
	lastRun := runStart.Add(-24 * time.Hour)
	f.list = staticProjectList{"octo/repo"}
	f.projects = newMemProjectStore(model.Project{RepoID: "octo/repo", LastRefreshed: lastRun})
	unchangedAt := runStart.Add(-30 * time.Hour)
	f.prs = newMemPRStore(
		model.PullRequest{RepoID: "octo/repo", Number: 1, Author: "dev", UpdatedAt: unchangedAt, NTP: 4, TP: 4},
		model.PullRequest{RepoID: "octo/repo", Number: 2, Author: "dev", UpdatedAt: unchangedAt, NTP: 4, TP: 4, Email: "x"},
	)
	var since time.Time
	f.gh.search = func(_ context.Context, repo string, s time.Time) ([]model.RemotePull, error) {
		since = s
		return []model.RemotePull{
			remotePull(repo, 1, unchangedAt),
			remotePull(repo, 2, runStart.Add(-time.Minute)),
			remotePull(repo, 3, runStart.Add(-time.Minute)),
		}, nil
	}
	f.classifier.fn = func(_ string, _ int) (driven.Partitions, error) {
		return driven.Partitions{NTP: 0, TP: 1}, nil
	}

	report, err := f.service(application.WatchConfig{}).RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, lastRun, since)
	assert.Equal(t, 3, report.RecordsSeen)
	assert.Equal(t, 1, report.RecordsUnchanged)
	assert.Equal(t, 2, report.RecordsConstructed)
	assert.Equal(t, []model.PRKey{{RepoID: "octo/repo", Number: 2}, {RepoID: "octo/repo", Number: 3}}, f.classifier.calls)

	assert.Equal(t, 4, f.prs.prs[model.PRKey{RepoID: "octo/repo", Number: 1}].NTP, "unchanged record is kept")
	replaced := f.prs.prs[model.PRKey{RepoID: "octo/repo", Number: 2}]
	assert.Equal(t, 0, replaced.NTP, "changed record is fully replaced")
	assert.Empty(t, replaced.Email)
}

func TestWatchService_IdempotentRerun(t *testing.T) {
	f := newWatchFixture()
	f.list = staticProjectList{"octo/repo"}
	f.gh.search = func(_ context.Context, repo string, _ time.Time) ([]model.RemotePull, error) {
		return []model.RemotePull{remotePull(repo, 1, runStart.Add(-time.Hour))}, nil
	}
	svc := f.service(application.WatchConfig{})

	_, err := svc.RunPass(context.Background())
	require.NoError(t, err)
	afterFirst := f.prs.prs

	second, err := svc.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, second.RecordsConstructed)
	assert.Equal(t, 1, second.RecordsUnchanged)
	assert.Equal(t, afterFirst, f.prs.prs)
	assert.Len(t, f.classifier.calls, 1)
}

func TestWatchService_RemoteErrorEndsLoopButSaves(t *testing.T) {
	f := newWatchFixture()
	t1 := runStart.Add(-48 * time.Hour)
	t2 := runStart.Add(-24 * time.Hour)
	f.list = staticProjectList{"a/never"}
	f.projects = newMemProjectStore(
		model.Project{RepoID: "b/early", LastRefreshed: t1},
		model.Project{RepoID: "c/late", LastRefreshed: t2},
	)
	f.gh.search = func(_ context.Context, repo string, _ time.Time) ([]model.RemotePull, error) {
		if repo == "b/early" {
			return nil, errors.New("secondary rate limit")
		}
		return []model.RemotePull{remotePull(repo, 1, runStart.Add(-time.Hour))}, nil
	}

	report, err := f.service(application.WatchConfig{}).RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a/never", "b/early"}, f.gh.searchCalls)
	assert.Equal(t, 1, report.ProjectsVisited)
	assert.Equal(t, 1, report.ProjectsFailed)

	assert.Equal(t, 1, f.projects.saves)
	assert.Equal(t, runStart, f.projects.projects["a/never"].LastRefreshed)
	assert.Equal(t, t1, f.projects.projects["b/early"].LastRefreshed)
	assert.Equal(t, t2, f.projects.projects["c/late"].LastRefreshed)
	assert.Contains(t, f.prs.prs, model.PRKey{RepoID: "a/never", Number: 1})
}

func TestWatchService_ProjectsAreNeverDeleted(t *testing.T) {
	f := newWatchFixture()
	f.list = staticProjectList{"new/one"}
	f.projects = newMemProjectStore(model.Project{RepoID: "old/one", LastRefreshed: runStart.Add(-time.Hour)})

	_, err := f.service(application.WatchConfig{}).RunPass(context.Background())

	require.NoError(t, err)
	assert.Contains(t, f.projects.projects, "old/one")
	assert.Contains(t, f.projects.projects, "new/one")
}

func TestWatchService_FirehosePass(t *testing.T) {
	f := newWatchFixture()
	existing := model.PullRequest{RepoID: "known/repo", Number: 1, NTP: 3, TP: 3}
	f.prs = newMemPRStore(existing)
	f.archive.events = []model.PullEvent{
		{RepoID: "new/repo", Number: 5, Action: "opened", Language: "java", Author: "a"},
		{RepoID: "new/repo", Number: 6, Action: "closed", Language: "Java"},
		{RepoID: "py/repo", Number: 7, Action: "opened", Language: "Python"},
		{RepoID: "known/repo", Number: 1, Action: "opened", Language: "Java"},
	}

	report, err := f.service(application.WatchConfig{
		Mode:     model.WatchModeFirehose,
		Language: "Java",
	}).RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []time.Time{runStart.Add(-application.DefaultArchiveLag)}, f.archive.asked)
	assert.Equal(t, 2, report.RecordsSeen)
	assert.Equal(t, 1, report.RecordsConstructed)
	assert.Equal(t, 1, report.RecordsUnchanged)
	assert.Equal(t, []model.PRKey{{RepoID: "new/repo", Number: 5}}, f.classifier.calls)
	assert.Equal(t, existing, f.prs.prs[existing.Key()])
	assert.Len(t, f.prs.prs, 2)
	assert.Equal(t, 0, f.projects.saves, "firehose mode never touches projects")
	assert.Empty(t, f.gh.searchCalls)
}

func TestWatchService_FirehoseArchiveFailure(t *testing.T) {
	f := newWatchFixture()
	f.archive.err = errors.New("404")

	_, err := f.service(application.WatchConfig{Mode: model.WatchModeFirehose}).RunPass(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, f.prs.saves)
}
