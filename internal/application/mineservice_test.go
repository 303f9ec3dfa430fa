package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prminer/internal/application"
	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// rejectIDs accepts every artifact directory except the listed IDs.
func rejectIDs(ids ...int) application.ContentFilter {
	return application.FilterFunc(func(dir string) (bool, error) {
		for _, id := range ids {
			if filepath.Base(dir) == fmt.Sprint(id) {
				return false, nil
			}
		}
		return true, nil
	})
}

func newTestMineService(gh *mockGitHubClient, store *memIDQueueStore, filter application.ContentFilter, root string) *application.MineService {
	queue := application.NewIDQueue(gh, store, reverseShuffle)
	downloader := application.NewDownloader(gh, application.DownloaderOptions{
		Filter: filter,
		Now:    fixedClock(downloadTime),
	})
	return application.NewMineService(gh, queue, downloader, root)
}

func listDirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestMineService_SampleScenario(t *testing.T) {
	root := t.TempDir()
	collectionDir := filepath.Join(root, "owner", "repo")
	store := newMemIDQueueStore()
	store.queues[collectionDir] = []int{42, 17, 9}
	gh := &mockGitHubClient{}
	svc := newTestMineService(gh, store, rejectIDs(42), root)

	report, err := svc.Mine(context.Background(), application.MineRequest{
		Collections:         []model.Collection{{FullName: "owner/repo"}},
		PerCollectionTarget: 2,
		SkipExisting:        true,
	})

	require.NoError(t, err)
	require.Len(t, report.Collections, 1)
	cr := report.Collections[0]
	assert.Equal(t, model.CollectionDone, cr.Status)
	assert.Equal(t, 3, cr.Population)
	assert.Equal(t, 3, cr.Popped)
	assert.Equal(t, 2, cr.Accepted)
	assert.Equal(t, 1, cr.Rejected)
	assert.Equal(t, 0, cr.Remaining)
	assert.Equal(t, []int{42, 17, 9}, gh.getCalls)
	assert.ElementsMatch(t, []string{"17", "9"}, listDirs(t, collectionDir))
	assert.Equal(t, 0, gh.listCalls, "a persisted queue is never rediscovered")
}

func TestMineService_StopsAtTarget(t *testing.T) {
	root := t.TempDir()
	store := newMemIDQueueStore()
	store.queues[filepath.Join(root, "owner", "repo")] = []int{1, 2, 3, 4, 5}
	gh := &mockGitHubClient{}
	svc := newTestMineService(gh, store, rejectIDs(), root)

	report, err := svc.Mine(context.Background(), application.MineRequest{
		Collections:         []model.Collection{{FullName: "owner/repo"}},
		PerCollectionTarget: 2,
	})

	require.NoError(t, err)
	cr := report.Collections[0]
	assert.Equal(t, 2, cr.Accepted)
	assert.Equal(t, 2, cr.Popped)
	assert.Equal(t, 3, cr.Remaining)
	assert.Equal(t, []int{1, 2}, gh.getCalls)
}

func TestMineService_NoDuplicateSamplingAcrossRuns(t *testing.T) {
	root := t.TempDir()
	collectionDir := filepath.Join(root, "owner", "repo")
	store := newMemIDQueueStore()
	gh := &mockGitHubClient{
		listNumbers: func(_ context.Context, _, _ string, _ func(int)) ([]int, error) {
			return []int{1, 2, 3, 4, 5, 6}, nil
		},
	}
	svc := newTestMineService(gh, store, rejectIDs(), root)
	req := application.MineRequest{
		Collections:         []model.Collection{{FullName: "owner/repo"}},
		PerCollectionTarget: 2,
		SkipExisting:        true,
	}

	for run := 0; run < 4; run++ {
		_, err := svc.Mine(context.Background(), req)
		require.NoError(t, err)
	}

	dirs := listDirs(t, collectionDir)
	assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5", "6"}, dirs)
	assert.Equal(t, 1, gh.listCalls)
}

func TestMineService_SkipsMissingCollection(t *testing.T) {
	root := t.TempDir()
	store := newMemIDQueueStore()
	gh := &mockGitHubClient{
		resolve: func(_ context.Context, repo string) (string, error) {
			if repo == "gone/away" {
				return "", fmt.Errorf("resolve: %w", driven.ErrRepoNotFound)
			}
			return "Owner/Repo", nil
		},
		listNumbers: func(_ context.Context, _, _ string, _ func(int)) ([]int, error) {
			return []int{1}, nil
		},
	}
	svc := newTestMineService(gh, store, rejectIDs(), root)

	report, err := svc.Mine(context.Background(), application.MineRequest{
		Collections:         []model.Collection{{FullName: "gone/away"}, {FullName: "owner/repo"}},
		PerCollectionTarget: 1,
	})

	require.NoError(t, err)
	require.Len(t, report.Collections, 2)
	assert.Equal(t, model.CollectionMissing, report.Collections[0].Status)
	assert.Equal(t, model.CollectionDone, report.Collections[1].Status)
	assert.Equal(t, "Owner/Repo", report.Collections[1].FullName)
	assert.DirExists(t, filepath.Join(root, "Owner", "Repo", "1"))
}

func TestMineService_FailedDownloadAbortsRun(t *testing.T) {
	root := t.TempDir()
	store := newMemIDQueueStore()
	store.queues[filepath.Join(root, "a", "one")] = []int{1, 2}
	store.queues[filepath.Join(root, "b", "two")] = []int{3}
	gh := &mockGitHubClient{
		download: func(_ context.Context, _ string, _ io.Writer) error {
			return errors.New("rate limited")
		},
	}
	svc := newTestMineService(gh, store, rejectIDs(), root)

	report, err := svc.Mine(context.Background(), application.MineRequest{
		Collections:         []model.Collection{{FullName: "a/one"}, {FullName: "b/two"}},
		PerCollectionTarget: 5,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	require.Len(t, report.Collections, 1, "later collections are not started")
	assert.Equal(t, model.CollectionAborted, report.Collections[0].Status)
	assert.Equal(t, 1, report.Collections[0].Popped)
	assert.Equal(t, []int{1}, gh.getCalls)
}

func TestMineService_MetadataFailureAbortsRun(t *testing.T) {
	root := t.TempDir()
	store := newMemIDQueueStore()
	store.queues[filepath.Join(root, "a", "one")] = []int{1}
	gh := &mockGitHubClient{
		getPR: func(_ context.Context, _ string, _ int) (*model.RemotePull, error) {
			return nil, errors.New("boom")
		},
	}

	_, err := newTestMineService(gh, store, rejectIDs(), root).Mine(context.Background(), application.MineRequest{
		Collections:         []model.Collection{{FullName: "a/one"}},
		PerCollectionTarget: 1,
	})

	require.Error(t, err)
}

func TestMineService_IDsOnly(t *testing.T) {
	root := t.TempDir()
	store := newMemIDQueueStore()
	gh := &mockGitHubClient{
		listNumbers: func(_ context.Context, _, _ string, _ func(int)) ([]int, error) {
			return []int{1, 2, 3}, nil
		},
	}

	report, err := newTestMineService(gh, store, rejectIDs(), root).Mine(context.Background(), application.MineRequest{
		Collections:         []model.Collection{{FullName: "a/one"}},
		PerCollectionTarget: 10,
		IDsOnly:             true,
	})

	require.NoError(t, err)
	assert.Equal(t, model.CollectionIDsOnly, report.Collections[0].Status)
	assert.Equal(t, 3, report.Collections[0].Population)
	assert.Empty(t, gh.getCalls)
	assert.Equal(t, []int{3, 2, 1}, store.queues[filepath.Join(root, "a", "one")])
}

func TestMineService_DrainedWhenPopulationTooSmall(t *testing.T) {
	root := t.TempDir()
	store := newMemIDQueueStore()
	store.queues[filepath.Join(root, "a", "one")] = []int{1, 2}

	report, err := newTestMineService(&mockGitHubClient{}, store, rejectIDs(2), root).Mine(context.Background(), application.MineRequest{
		Collections:         []model.Collection{{FullName: "a/one"}},
		PerCollectionTarget: 5,
	})

	require.NoError(t, err)
	cr := report.Collections[0]
	assert.Equal(t, model.CollectionDrained, cr.Status)
	assert.Equal(t, 1, cr.Accepted)
	assert.Equal(t, 1, cr.Rejected)
	assert.Equal(t, 1, report.TotalAccepted())
}
