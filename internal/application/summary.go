package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

var eventEmail = regexp.MustCompile(`"email":"([^"]*)"`)

// SummaryConfig configures a SummaryService.
type SummaryConfig struct {
	// FindEmails enables email resolution for the authors of interesting pull requests.
	FindEmails  bool
	Language    string
	AnalysisURL string
}

// SummaryService splits the merged records into interesting and other pull
// requests, counts them per project and resolves author emails.
type SummaryService struct {
	ghClient driven.GitHubClient
	users    driven.UserStore
	online   *OnlineUsers
	cfg      SummaryConfig
	now      func() time.Time
}

// NewSummaryService creates a SummaryService. users is only needed when
// emails are resolved; online may be nil.
func NewSummaryService(ghClient driven.GitHubClient, users driven.UserStore, online *OnlineUsers, cfg SummaryConfig) *SummaryService {
	return &SummaryService{
		ghClient: ghClient,
		users:    users,
		online:   online,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Summarize builds the summary for prs. projects is nil in firehose mode.
// Records are ordered newest first and projects by interesting count.
func (s *SummaryService) Summarize(
	ctx context.Context,
	mode model.WatchMode,
	prs map[model.PRKey]model.PullRequest,
	projects map[string]model.Project,
) (model.Summary, error) {
	summary := model.Summary{
		Mode:        mode,
		GeneratedAt: s.now(),
		Language:    s.cfg.Language,
		AnalysisURL: s.cfg.AnalysisURL,
		Online:      map[string]bool{},
	}

	counts := make(map[string]model.Project, len(projects))
	for id, p := range projects {
		p.InterestingPulls, p.OtherPulls = 0, 0
		counts[id] = p
	}

	for _, pr := range prs {
		p, tracked := counts[pr.RepoID]
		if pr.Interesting() {
			summary.Interesting = append(summary.Interesting, pr)
			p.InterestingPulls++
		} else {
			summary.Other = append(summary.Other, pr)
			p.OtherPulls++
		}
		if tracked {
			counts[pr.RepoID] = p
		}
	}

	newestFirst := func(a, b model.PullRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if c := cmp.Compare(a.RepoID, b.RepoID); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	}
	slices.SortFunc(summary.Interesting, newestFirst)
	slices.SortFunc(summary.Other, newestFirst)

	for _, p := range counts {
		summary.Projects = append(summary.Projects, p)
	}
	slices.SortFunc(summary.Projects, func(a, b model.Project) int {
		if c := cmp.Compare(b.InterestingPulls, a.InterestingPulls); c != 0 {
			return c
		}
		return cmp.Compare(a.RepoID, b.RepoID)
	})

	if s.cfg.FindEmails && len(summary.Interesting) > 0 {
		if err := s.resolveEmails(ctx, summary.Interesting); err != nil {
			return summary, err
		}
	}

	if s.online != nil {
		summary.Online = s.online.Snapshot()
	}

	return summary, nil
}

// resolveEmails fills Email on every record, consulting the persisted cache
// first. Lookups are cached per login, including empty results.
func (s *SummaryService) resolveEmails(ctx context.Context, prs []model.PullRequest) error {
	users, err := s.users.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	changed := false
	for i := range prs {
		login := prs[i].Author
		if u, ok := users[login]; ok {
			prs[i].Email = u.Email
			continue
		}

		email, err := s.lookupEmail(ctx, login)
		if err != nil {
			slog.Warn("email lookup failed", "login", login, "error", err)
			continue
		}

		users[login] = model.User{Login: login, Email: email}
		prs[i].Email = email
		changed = true
	}

	if !changed {
		return nil
	}
	if err := s.users.SaveAll(ctx, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// lookupEmail returns the profile email of login, falling back to the first
// email found in the user's public events. A failed profile lookup still
// tries the events; an error is returned only when both lookups fail.
func (s *SummaryService) lookupEmail(ctx context.Context, login string) (string, error) {
	email, profileErr := s.ghClient.GetUserEmail(ctx, login)
	if profileErr == nil && email != "" {
		return email, nil
	}
	if profileErr != nil {
		slog.Debug("profile email lookup failed, trying public events", "login", login, "error", profileErr)
	}

	events, err := s.ghClient.FetchPublicEvents(ctx, login)
	if err != nil {
		if profileErr != nil {
			return "", errors.Join(profileErr, err)
		}
		return "", err
	}
	if m := eventEmail.FindStringSubmatch(events); m != nil {
		return m[1], nil
	}
	return "", nil
}
