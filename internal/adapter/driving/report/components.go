package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

const pageStyle = `body{font-family:sans-serif;margin:2em}
table{border-collapse:collapse;margin-bottom:2em}
th,td{border:1px solid #ccc;padding:4px 8px;text-align:left}
th{background:#eee}
tr.unclassified td{background:#f99}
.online{color:#080;font-weight:bold}`

// statusBlurb explains the page. It is rendered as Markdown.
const statusBlurb = `Pull requests with between **%d and %d** non-trivial partitions (NTP) are listed as interesting.
Rows highlighted in red could not be classified and will be retried when the pull request is next updated.`

// writer accumulates the first write error so components read linearly.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) render(ctx context.Context, c templ.Component) {
	if w.err != nil {
		return
	}
	w.err = c.Render(ctx, w.w)
}

// Page renders the complete results page for s.
func Page(s model.Summary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`)
		w.text(pageTitle(s))
		w.raw(`</title><style>`)
		w.raw(pageStyle)
		w.raw(`</style></head><body><h1>`)
		w.text(pageTitle(s))
		w.raw(`</h1>`)
		w.render(ctx, StatusList(s))
		w.raw(`<h2>Interesting pull requests</h2>`)
		w.render(ctx, PullTable(s.Interesting, s, true))
		w.raw(`<h2>Other pull requests</h2>`)
		w.render(ctx, PullTable(s.Other, s, false))
		if s.Mode == model.WatchModeTracked {
			w.raw(`<h2>Repository statistics</h2>`)
			w.render(ctx, ProjectTable(s.Projects))
		}
		w.raw(`</body></html>`)
		return w.err
	})
}

func pageTitle(s model.Summary) string {
	if s.Language != "" {
		return s.Language + " pull request watch"
	}
	return "Pull request watch"
}

// StatusList renders the pass summary and the explanatory blurb.
func StatusList(s model.Summary) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<ul class="status">`)
		item := func(label, value string) {
			w.raw(`<li>`)
			w.text(label)
			w.raw(`: `)
			w.text(value)
			w.raw(`</li>`)
		}
		item("Last updated", s.GeneratedAt.UTC().Format(time.RFC1123))
		item("Mode", string(s.Mode))
		item("Interesting pull requests", strconv.Itoa(len(s.Interesting)))
		item("Other pull requests", strconv.Itoa(len(s.Other)))
		if s.Mode == model.WatchModeTracked {
			item("Tracked repositories", strconv.Itoa(len(s.Projects)))
		}
		w.raw(`</ul>`)
		w.raw(`<div class="blurb">`)
		w.raw(RenderMarkdown(fmt.Sprintf(statusBlurb, model.MinInterestingNTP, model.MaxInterestingNTP)))
		w.raw(`</div>`)
		return w.err
	})
}

// stamp formats t for a table cell; the zero time renders empty.
func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateTime)
}

// PullTable renders prs in the given order. withEmail adds the author email column.
func PullTable(prs []model.PullRequest, s model.Summary, withEmail bool) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<table><thead><tr><th>Created</th><th>Updated</th><th>Analyzed</th><th>Repository</th><th>Pull request</th><th>Author</th>`)
		if withEmail {
			w.raw(`<th>Email</th>`)
		}
		w.raw(`<th>NTP</th><th>TP</th></tr></thead><tbody>`)

		for _, pr := range prs {
			if pr.Classified() {
				w.raw(`<tr>`)
			} else {
				w.raw(`<tr class="unclassified">`)
			}

			w.raw(`<td>`)
			w.text(stamp(pr.CreatedAt))
			w.raw(`</td><td>`)
			w.text(stamp(pr.UpdatedAt))
			w.raw(`</td><td>`)
			w.text(stamp(pr.AnalyzedAt))
			w.raw(`</td><td>`)
			w.text(pr.RepoID)
			w.raw(`</td><td><a href="`)
			w.text(pr.GitHubURL())
			w.raw(`">#`)
			w.text(strconv.Itoa(pr.Number))
			w.raw(`</a></td><td>`)
			w.text(pr.Author)
			if s.Online[strings.ToLower(pr.Author)] {
				w.raw(` <span class="online" title="online in chat">&#9679;</span>`)
			}
			w.raw(`</td>`)
			if withEmail {
				w.raw(`<td>`)
				if pr.Email != "" {
					w.raw(`<a href="mailto:`)
					w.text(pr.Email)
					w.raw(`">`)
					w.text(pr.Email)
					w.raw(`</a>`)
				}
				w.raw(`</td>`)
			}

			ntp, tp := "n/a", "n/a"
			if pr.Classified() {
				ntp, tp = strconv.Itoa(pr.NTP), strconv.Itoa(pr.TP)
			}
			w.raw(`<td>`)
			if s.AnalysisURL != "" {
				w.raw(`<a href="`)
				w.text(pr.AnalysisURL(s.AnalysisURL))
				w.raw(`">`)
				w.text(ntp)
				w.raw(`</a>`)
			} else {
				w.text(ntp)
			}
			w.raw(`</td><td>`)
			w.text(tp)
			w.raw(`</td></tr>`)
		}

		w.raw(`</tbody></table>`)
		return w.err
	})
}

// ProjectTable renders per-repository counters in the given order.
func ProjectTable(projects []model.Project) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<table><thead><tr><th>Repository</th><th>Interesting</th><th>Other</th><th>Last refreshed</th></tr></thead><tbody>`)
		for _, p := range projects {
			w.raw(`<tr><td><a href="https://github.com/`)
			w.text(p.RepoID)
			w.raw(`">`)
			w.text(p.RepoID)
			w.raw(`</a></td><td>`)
			w.text(strconv.Itoa(p.InterestingPulls))
			w.raw(`</td><td>`)
			w.text(strconv.Itoa(p.OtherPulls))
			w.raw(`</td><td>`)
			if p.Refreshed() {
				w.text(p.LastRefreshed.UTC().Format(time.DateTime))
			} else {
				w.text("never")
			}
			w.raw(`</td></tr>`)
		}
		w.raw(`</tbody></table>`)
		return w.err
	})
}
