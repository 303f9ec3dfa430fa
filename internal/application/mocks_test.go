package application_test

import (
	"context"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockGitHubClient struct {
	resolve     func(ctx context.Context, repo string) (string, error)
	listNumbers func(ctx context.Context, repo, state string, progress func(int)) ([]int, error)
	getPR       func(ctx context.Context, repo string, number int) (*model.RemotePull, error)
	listFiles   func(ctx context.Context, repo string, number int) ([]model.ChangedFile, error)
	download    func(ctx context.Context, rawURL string, w io.Writer) error
	search      func(ctx context.Context, repo string, since time.Time) ([]model.RemotePull, error)
	userEmail   func(ctx context.Context, login string) (string, error)
	events      func(ctx context.Context, login string) (string, error)

	listCalls     int
	getCalls      []int
	downloadCalls []string
	searchCalls   []string
	emailCalls    []string
	eventCalls    []string
}

var _ driven.GitHubClient = (*mockGitHubClient)(nil)

func (m *mockGitHubClient) ResolveRepository(ctx context.Context, repo string) (string, error) {
	if m.resolve != nil {
		return m.resolve(ctx, repo)
	}
	return repo, nil
}

func (m *mockGitHubClient) ListPullRequestNumbers(ctx context.Context, repo, state string, progress func(int)) ([]int, error) {
	m.listCalls++
	if m.listNumbers != nil {
		return m.listNumbers(ctx, repo, state, progress)
	}
	return []int{}, nil
}

func (m *mockGitHubClient) GetPullRequest(ctx context.Context, repo string, number int) (*model.RemotePull, error) {
	m.getCalls = append(m.getCalls, number)
	if m.getPR != nil {
		return m.getPR(ctx, repo, number)
	}
	return &model.RemotePull{
		RepoID:   repo,
		Number:   number,
		PatchURL: fmt.Sprintf("https://github.com/%s/pull/%d.patch", repo, number),
	}, nil
}

func (m *mockGitHubClient) ListFiles(ctx context.Context, repo string, number int) ([]model.ChangedFile, error) {
	if m.listFiles != nil {
		return m.listFiles(ctx, repo, number)
	}
	return nil, nil
}

func (m *mockGitHubClient) Download(ctx context.Context, rawURL string, w io.Writer) error {
	m.downloadCalls = append(m.downloadCalls, rawURL)
	if m.download != nil {
		return m.download(ctx, rawURL, w)
	}
	_, err := io.WriteString(w, "content of "+rawURL)
	return err
}

func (m *mockGitHubClient) SearchPullRequestsCreatedSince(ctx context.Context, repo string, since time.Time) ([]model.RemotePull, error) {
	m.searchCalls = append(m.searchCalls, repo)
	if m.search != nil {
		return m.search(ctx, repo, since)
	}
	return nil, nil
}

func (m *mockGitHubClient) GetUserEmail(ctx context.Context, login string) (string, error) {
	m.emailCalls = append(m.emailCalls, login)
	if m.userEmail != nil {
		return m.userEmail(ctx, login)
	}
	return "", nil
}

func (m *mockGitHubClient) FetchPublicEvents(ctx context.Context, login string) (string, error) {
	m.eventCalls = append(m.eventCalls, login)
	if m.events != nil {
		return m.events(ctx, login)
	}
	return "[]", nil
}

type memIDQueueStore struct {
	queues map[string][]int
	saves  int
}

func newMemIDQueueStore() *memIDQueueStore {
	return &memIDQueueStore{queues: map[string][]int{}}
}

func (m *memIDQueueStore) Load(dir string) ([]int, bool, error) {
	ids, ok := m.queues[dir]
	if !ok {
		return nil, false, nil
	}
	return append([]int(nil), ids...), true, nil
}

func (m *memIDQueueStore) Save(dir string, ids []int) error {
	m.saves++
	m.queues[dir] = append([]int(nil), ids...)
	return nil
}

type memPRStore struct {
	prs   map[model.PRKey]model.PullRequest
	saves int
}

func newMemPRStore(prs ...model.PullRequest) *memPRStore {
	m := &memPRStore{prs: map[model.PRKey]model.PullRequest{}}
	for _, pr := range prs {
		m.prs[pr.Key()] = pr
	}
	return m
}

func (m *memPRStore) LoadAll(_ context.Context) (map[model.PRKey]model.PullRequest, error) {
	return maps.Clone(m.prs), nil
}

func (m *memPRStore) SaveAll(_ context.Context, prs map[model.PRKey]model.PullRequest) error {
	m.saves++
	m.prs = maps.Clone(prs)
	return nil
}

type memProjectStore struct {
	projects map[string]model.Project
	saves    int
}

func newMemProjectStore(projects ...model.Project) *memProjectStore {
	m := &memProjectStore{projects: map[string]model.Project{}}
	for _, p := range projects {
		m.projects[p.RepoID] = p
	}
	return m
}

func (m *memProjectStore) LoadAll(_ context.Context) (map[string]model.Project, error) {
	return maps.Clone(m.projects), nil
}

func (m *memProjectStore) SaveAll(_ context.Context, projects map[string]model.Project) error {
	m.saves++
	m.projects = maps.Clone(projects)
	return nil
}

type memUserStore struct {
	users map[string]model.User
	saves int
}

func (m *memUserStore) LoadAll(_ context.Context) (map[string]model.User, error) {
	if m.users == nil {
		return map[string]model.User{}, nil
	}
	return maps.Clone(m.users), nil
}

func (m *memUserStore) SaveAll(_ context.Context, users map[string]model.User) error {
	m.saves++
	m.users = maps.Clone(users)
	return nil
}

type staticProjectList []string

func (l staticProjectList) Load(_ context.Context) ([]string, error) {
	return l, nil
}

type fakeClassifier struct {
	fn    func(repo string, number int) (driven.Partitions, error)
	calls []model.PRKey
}

func (c *fakeClassifier) Classify(_ context.Context, repo string, number int) (driven.Partitions, error) {
	c.calls = append(c.calls, model.PRKey{RepoID: repo, Number: number})
	if c.fn != nil {
		return c.fn(repo, number)
	}
	return driven.Partitions{NTP: 1, TP: 1}, nil
}

type fakeArchive struct {
	events []model.PullEvent
	err    error
	asked  []time.Time
}

func (a *fakeArchive) PullEvents(_ context.Context, t time.Time) ([]model.PullEvent, error) {
	a.asked = append(a.asked, t)
	return a.events, a.err
}

type captureReportWriter struct {
	summaries []model.Summary
}

func (w *captureReportWriter) WriteReport(_ context.Context, s model.Summary) error {
	w.summaries = append(w.summaries, s)
	return nil
}

type staticPresence struct {
	logins []string
	err    error
}

func (p *staticPresence) OnlineLogins(_ context.Context) ([]string, error) {
	return p.logins, p.err
}

// reverseShuffle is a deterministic ShuffleFunc.
func reverseShuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
