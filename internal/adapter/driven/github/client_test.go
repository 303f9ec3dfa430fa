package github_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "github.com/ericfisherdev/prminer/internal/adapter/driven/github"
	"github.com/ericfisherdev/prminer/internal/domain/port/driven"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) (*ghAdapter.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(server.Client(), server.URL+"/")
	require.NoError(t, err)

	return client, server
}

// prJSON is a helper struct for building GitHub API pull request responses.
type prJSON struct {
	Number   int      `json:"number"`
	State    string   `json:"state"`
	User     userJSON `json:"user"`
	PatchURL string   `json:"patch_url,omitempty"`
	Created  string   `json:"created_at,omitempty"`
	Updated  string   `json:"updated_at,omitempty"`
}

type userJSON struct {
	Login string `json:"login"`
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestResolveRepository(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/Octo/Repo", r.URL.Path)
		writeJSON(t, w, map[string]any{"full_name": "octo/repo"})
	})

	client, _ := newTestClient(t, handler)
	name, err := client.ResolveRepository(context.Background(), "Octo/Repo")

	require.NoError(t, err)
	assert.Equal(t, "octo/repo", name)
}

func TestResolveRepository_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	client, _ := newTestClient(t, handler)
	_, err := client.ResolveRepository(context.Background(), "octo/missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, driven.ErrRepoNotFound))
}

func TestListPullRequestNumbers_Pagination(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))

		page := r.URL.Query().Get("page")
		if page == "" || page == "1" {
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			writeJSON(t, w, []prJSON{{Number: 42}, {Number: 17}})
			return
		}
		writeJSON(t, w, []prJSON{{Number: 9}})
	})

	client, _ := newTestClient(t, handler)

	var progress []int
	numbers, err := client.ListPullRequestNumbers(context.Background(), "owner/repo", "all", func(total int) {
		progress = append(progress, total)
	})

	require.NoError(t, err)
	assert.Equal(t, []int{42, 17, 9}, numbers)
	assert.Equal(t, []int{2, 3}, progress)
}

func TestListPullRequestNumbers_FailureMidway(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" || page == "1" {
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			writeJSON(t, w, []prJSON{{Number: 1}})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, handler)
	numbers, err := client.ListPullRequestNumbers(context.Background(), "owner/repo", "open", nil)

	require.Error(t, err)
	assert.Nil(t, numbers, "partial population must not be returned")
	assert.Contains(t, err.Error(), "page 2")
}

func TestListPullRequestNumbers_EmptyRepo(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []prJSON{})
	})

	client, _ := newTestClient(t, handler)
	numbers, err := client.ListPullRequestNumbers(context.Background(), "owner/repo", "open", nil)

	require.NoError(t, err)
	assert.NotNil(t, numbers, "should return empty slice, not nil")
	assert.Empty(t, numbers)
}

func TestListPullRequestNumbers_InvalidRepoName(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("server should not be called for invalid repo name")
	})

	client, _ := newTestClient(t, handler)

	tests := []struct {
		name string
		repo string
	}{
		{name: "no slash", repo: "invalid"},
		{name: "empty owner", repo: "/repo"},
		{name: "empty repo", repo: "owner/"},
		{name: "empty string", repo: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.ListPullRequestNumbers(context.Background(), tc.repo, "open", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid repo name")
		})
	}
}

func TestGetPullRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/pulls/42", r.URL.Path)
		writeJSON(t, w, prJSON{
			Number:   42,
			State:    "open",
			User:     userJSON{Login: "alice"},
			PatchURL: "https://github.com/owner/repo/pull/42.patch",
			Created:  "2026-01-01T00:00:00Z",
			Updated:  "2026-01-02T12:00:00Z",
		})
	})

	client, _ := newTestClient(t, handler)
	pr, err := client.GetPullRequest(context.Background(), "owner/repo", 42)

	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "owner/repo", pr.RepoID)
	assert.Equal(t, "alice", pr.Author)
	assert.Equal(t, "open", pr.State)
	assert.Equal(t, "https://github.com/owner/repo/pull/42.patch", pr.PatchURL)
	assert.Equal(t, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC), pr.UpdatedAt.UTC())
}

func TestGetPullRequest_MissingPatchURL(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, prJSON{Number: 42, User: userJSON{Login: "alice"}})
	})

	client, _ := newTestClient(t, handler)
	_, err := client.GetPullRequest(context.Background(), "owner/repo", 42)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no patch URL")
}

func TestListFiles(t *testing.T) {
	files := []map[string]any{
		{
			"filename":  "src/Main.java",
			"status":    "modified",
			"additions": 3,
			"changes":   5,
			"patch":     "@@ -1 +1 @@\n-a\n+b",
			"raw_url":   "https://github.com/owner/repo/raw/abc/src/Main.java",
		},
		{
			"filename":  "old.txt",
			"status":    "removed",
			"additions": 0,
			"changes":   0,
		},
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/pulls/7/files", r.URL.Path)
		writeJSON(t, w, files)
	})

	client, _ := newTestClient(t, handler)
	result, err := client.ListFiles(context.Background(), "owner/repo", 7)

	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, "src/Main.java", result[0].Filename)
	assert.Equal(t, 3, result[0].Additions)
	assert.Equal(t, 5, result[0].Changes)
	assert.Equal(t, "https://github.com/owner/repo/raw/abc/src/Main.java", result[0].RawURL)
	assert.True(t, result[0].HasContent())

	assert.Equal(t, "removed", result[1].Status)
	assert.False(t, result[1].HasContent(), "pure deletions carry no content")
}

func TestDownload_AbsoluteURL(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/raw/Main.java", r.URL.Path)
		_, _ = w.Write([]byte("class Main {}\n"))
	})

	client, server := newTestClient(t, handler)

	var buf bytes.Buffer
	err := client.Download(context.Background(), server.URL+"/raw/Main.java", &buf)

	require.NoError(t, err)
	assert.Equal(t, "class Main {}\n", buf.String())
}

func TestDownload_ErrorStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client, server := newTestClient(t, handler)

	var buf bytes.Buffer
	err := client.Download(context.Background(), server.URL+"/raw/Main.java", &buf)

	require.Error(t, err)
}

func TestSearchPullRequestsCreatedSince(t *testing.T) {
	since := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/issues", r.URL.Path)
		assert.Equal(t, "repo:owner/repo type:pr created:>=2026-03-01T08:30:00Z", r.URL.Query().Get("q"))
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.Equal(t, "desc", r.URL.Query().Get("order"))

		writeJSON(t, w, map[string]any{
			"total_count": 2,
			"items": []map[string]any{
				{"number": 12, "state": "open", "user": map[string]any{"login": "bob"},
					"created_at": "2026-03-02T00:00:00Z", "updated_at": "2026-03-03T00:00:00Z"},
				{"number": 11, "state": "closed", "user": map[string]any{"login": "carol"},
					"created_at": "2026-03-01T09:00:00Z", "updated_at": "2026-03-01T10:00:00Z"},
			},
		})
	})

	client, _ := newTestClient(t, handler)
	pulls, err := client.SearchPullRequestsCreatedSince(context.Background(), "owner/repo", since)

	require.NoError(t, err)
	require.Len(t, pulls, 2)
	assert.Equal(t, 12, pulls[0].Number)
	assert.Equal(t, "bob", pulls[0].Author)
	assert.Equal(t, "owner/repo", pulls[0].RepoID)
	assert.Equal(t, 11, pulls[1].Number)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), pulls[1].UpdatedAt.UTC())
}

func TestGetUserEmail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/alice", r.URL.Path)
		writeJSON(t, w, map[string]any{"login": "alice", "email": "alice@example.com"})
	})

	client, _ := newTestClient(t, handler)
	email, err := client.GetUserEmail(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
}

func TestFetchPublicEvents(t *testing.T) {
	body := `[{"type":"PushEvent","payload":{"commits":[{"author":{"email":"bob@example.com"}}]}}]`

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/bob/events/public", r.URL.Path)
		_, _ = w.Write([]byte(body))
	})

	client, _ := newTestClient(t, handler)
	text, err := client.FetchPublicEvents(context.Background(), "bob")

	require.NoError(t, err)
	assert.True(t, strings.Contains(text, `"email":"bob@example.com"`))
}

func TestDownload_RepeatedDownloadsAreNotCached(t *testing.T) {
	body := strings.Repeat("x", 1<<20)
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Cache-Control", "max-age=300")
		w.Header().Set("ETag", `"abc"`)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClient("", server.URL+"/api/")
	require.NoError(t, err)

	for range 3 {
		var buf bytes.Buffer
		require.NoError(t, client.Download(context.Background(), server.URL+"/raw/Big.java", &buf))
		assert.Equal(t, len(body), buf.Len())
	}

	assert.Equal(t, int32(3), hits.Load(), "every download must reach the server")
}

func TestListPullRequestNumbers_FirstPageFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, handler)
	_, err := client.ListPullRequestNumbers(context.Background(), "owner/repo", "open", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 1")
}
