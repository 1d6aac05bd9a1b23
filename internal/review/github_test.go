package review

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/schema"
)

func newGitHubServer(t *testing.T, limited *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "Bearer spent" {
				limited.Add(1)
				w.Header().Set("X-RateLimit-Limit", "5000")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
				w.WriteHeader(http.StatusForbidden)
				_, _ = fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/api/v3/repos/acme/widget/commits/c1/pulls", auth(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[{"number":7,"user":{"login":"alice"},"merged_by":{"login":"bob"},"labels":[{"name":"lgtm"}]}]`)
	}))
	mux.HandleFunc("/api/v3/repos/acme/widget/pulls/7/reviews", auth(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[{"id":1},{"id":2}]`)
	}))
	mux.HandleFunc("/api/v3/repos/acme/widget/commits/c1", auth(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"sha":"c1","commit":{"message":"fix"},"author":{"login":"alice"},"committer":{"login":"bob"}}`)
	}))
	mux.HandleFunc("/api/v3/repos/acme/widget/commits/missing", auth(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"message":"Not Found"}`)
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGitHubSource(t *testing.T) {
	var limited atomic.Int32
	srv := newGitHubServer(t, &limited)
	ctx := context.Background()

	src := NewGitHubSource(NewTokenPool([]string{"spent", "fresh"}), 1000, srv.URL+"/")

	prs, err := src.PullRequests(ctx, "acme", "widget", "c1")
	require.NoError(t, err)
	require.Len(t, prs, 1)
	assert.Equal(t, PullRequestInfo{Number: 7, Author: "alice", MergedBy: "bob", Reviews: 2, Labels: []string{"lgtm"}}, prs[0])
	assert.Equal(t, int32(1), limited.Load(), "the spent token is tried once and then skipped")

	info, err := src.Commit(ctx, "acme", "widget", "c1")
	require.NoError(t, err)
	assert.Equal(t, CommitInfo{Message: "fix", Author: "alice", Committer: "bob"}, info)

	_, err = src.Commit(ctx, "acme", "widget", "missing")
	assert.ErrorIs(t, err, schema.ErrUnknownObject)
	assert.Equal(t, int32(1), limited.Load())
}

func TestGitHubSource_AllTokensSpent(t *testing.T) {
	var limited atomic.Int32
	srv := newGitHubServer(t, &limited)

	src := NewGitHubSource(NewTokenPool([]string{"spent"}), 1000, srv.URL+"/")
	_, err := src.Commit(context.Background(), "acme", "widget", "c1")
	assert.ErrorIs(t, err, schema.ErrRateLimitExhausted)
}

func TestGitHubSource_ThroughClassifier(t *testing.T) {
	var limited atomic.Int32
	srv := newGitHubServer(t, &limited)

	src := NewGitHubSource(NewTokenPool([]string{"fresh"}), 1000, srv.URL+"/")
	c := NewClassifier(src)
	v, err := c.Classify(context.Background(), schema.ReviewRequest{RepositoryURL: "https://github.com/acme/widget", Commit: "c1"})
	require.NoError(t, err)
	assert.Equal(t, schema.GitHubReview, v.Category)
	assert.Equal(t, 7, v.Metadata.PullRequest)
}
