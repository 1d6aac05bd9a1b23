package review

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/schema"
)

type fakeSource struct {
	info        CommitInfo
	prs         []PullRequestInfo
	commitErr   error
	prErr       error
	commitCalls int
	prCalls     int
	lastOwner   string
	lastRepo    string
}

func (f *fakeSource) Commit(_ context.Context, owner, repo, _ string) (CommitInfo, error) {
	f.commitCalls++
	f.lastOwner, f.lastRepo = owner, repo
	return f.info, f.commitErr
}

func (f *fakeSource) PullRequests(_ context.Context, owner, repo, _ string) ([]PullRequestInfo, error) {
	f.prCalls++
	f.lastOwner, f.lastRepo = owner, repo
	return f.prs, f.prErr
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		info CommitInfo
		prs  []PullRequestInfo
		want schema.ReviewCategory
	}{
		{
			name: "approved review",
			prs:  []PullRequestInfo{{Number: 1, Author: "alice", MergedBy: "alice", Reviews: 2}},
			want: schema.GitHubReview,
		},
		{
			name: "merged by someone else",
			prs:  []PullRequestInfo{{Number: 2, Author: "alice", MergedBy: "bob"}},
			want: schema.DifferentMerger,
		},
		{
			name: "self merge is not review",
			info: CommitInfo{Author: "alice", Committer: "alice"},
			prs:  []PullRequestInfo{{Number: 3, Author: "alice", MergedBy: "alice"}},
			want: schema.Unreviewed,
		},
		{
			name: "web flow merger is not review",
			info: CommitInfo{Author: "alice", Committer: webFlow},
			prs:  []PullRequestInfo{{Number: 4, Author: "alice", MergedBy: webFlow}},
			want: schema.Unreviewed,
		},
		{
			name: "prow label",
			prs:  []PullRequestInfo{{Number: 5, Author: "alice", Labels: []string{"size/S", "LGTM"}}},
			want: schema.ProwReview,
		},
		{
			name: "gerrit trailer",
			info: CommitInfo{
				Message:   "Fix thing\n\nReviewed-on: https://review.example.org/c/42\nReviewed-by: Carol <c@example.org>",
				Author:    "alice",
				Committer: "alice",
			},
			want: schema.SCMReview,
		},
		{
			name: "different committer",
			info: CommitInfo{Author: "alice", Committer: "bob"},
			want: schema.DifferentCommitter,
		},
		{
			name: "unknown committer",
			info: CommitInfo{Author: "alice"},
			want: schema.Unreviewed,
		},
		{
			name: "first reviewed pull request wins",
			prs: []PullRequestInfo{
				{Number: 6, Author: "alice", MergedBy: "alice"},
				{Number: 7, Author: "alice", MergedBy: "dave"},
				{Number: 8, Author: "alice", Reviews: 1},
			},
			want: schema.DifferentMerger,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decide("abc123", tt.info, tt.prs)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, "abc123", got.Commit)
		})
	}
}

func TestDecide_Metadata(t *testing.T) {
	v := decide("c1", CommitInfo{}, []PullRequestInfo{{Number: 7, Author: "alice", MergedBy: "dave"}})
	assert.Equal(t, schema.ReviewMetadata{PullRequest: 7, Author: "alice", Merger: "dave"}, v.Metadata)

	v = decide("c1", CommitInfo{Author: "alice", Committer: "bob"}, nil)
	assert.Equal(t, schema.ReviewMetadata{Author: "alice", Committer: "bob"}, v.Metadata)

	v = decide("c1", CommitInfo{}, []PullRequestInfo{{Number: 9, Reviews: 3}})
	assert.Equal(t, 3, v.Metadata.Reviews)
	assert.Equal(t, 9, v.Metadata.PullRequest)
}

func TestClassifier_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("pull request evidence skips commit lookup", func(t *testing.T) {
		src := &fakeSource{prs: []PullRequestInfo{{Number: 1, Reviews: 1}}}
		c := NewClassifier(src)

		v, err := c.Classify(ctx, schema.ReviewRequest{RepositoryURL: "https://github.com/acme/widget.git", Commit: "c1"})
		require.NoError(t, err)
		assert.Equal(t, schema.GitHubReview, v.Category)
		assert.Equal(t, 0, src.commitCalls)
		assert.Equal(t, "acme", src.lastOwner)
		assert.Equal(t, "widget", src.lastRepo)
	})

	t.Run("falls back to commit", func(t *testing.T) {
		src := &fakeSource{info: CommitInfo{Author: "alice", Committer: "bob"}}
		c := NewClassifier(src)

		v, err := c.Classify(ctx, schema.ReviewRequest{RepositoryURL: "git@github.com:acme/widget.git", Commit: "c2"})
		require.NoError(t, err)
		assert.Equal(t, schema.DifferentCommitter, v.Category)
		assert.Equal(t, 1, src.prCalls)
		assert.Equal(t, 1, src.commitCalls)
	})

	t.Run("non github repository", func(t *testing.T) {
		src := &fakeSource{}
		c := NewClassifier(src)

		_, err := c.Classify(ctx, schema.ReviewRequest{RepositoryURL: "https://gitlab.com/acme/widget", Commit: "c3"})
		assert.ErrorIs(t, err, schema.ErrNotGitHubRepository)
		assert.Equal(t, 0, src.prCalls)
	})

	t.Run("extra host", func(t *testing.T) {
		src := &fakeSource{}
		c := NewClassifier(src, "git.corp.example")

		v, err := c.Classify(ctx, schema.ReviewRequest{RepositoryURL: "https://git.corp.example/team/svc", Commit: "c4"})
		require.NoError(t, err)
		assert.Equal(t, schema.Unreviewed, v.Category)
		assert.Equal(t, "team", src.lastOwner)
	})

	t.Run("source errors propagate", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewClassifier(&fakeSource{prErr: boom})
		_, err := c.Classify(ctx, schema.ReviewRequest{RepositoryURL: "https://github.com/a/b", Commit: "c5"})
		assert.ErrorIs(t, err, boom)

		c = NewClassifier(&fakeSource{commitErr: schema.ErrUnknownObject})
		_, err = c.Classify(ctx, schema.ReviewRequest{RepositoryURL: "https://github.com/a/b", Commit: "c5"})
		assert.ErrorIs(t, err, schema.ErrUnknownObject)
	})
}
