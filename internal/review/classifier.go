// Package review decides whether the commits behind a release went through code review.
package review

import (
	"context"
	"slices"
	"strings"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// webFlow is the login GitHub uses for commits made through its web interface.
const webFlow = "web-flow"

// Labels that Prow style bots put on approved pull requests.
var approvalLabels = []string{"lgtm", "approved"}

// CommitInfo is what the hosting service records about a commit.
// Logins are empty when the author or committer has no account.
type CommitInfo struct {
	Message   string
	Author    string
	Committer string
}

// PullRequestInfo is the review evidence of one pull request containing a commit.
type PullRequestInfo struct {
	Number   int
	Author   string
	MergedBy string
	Reviews  int
	Labels   []string
}

// Source fetches review evidence from a hosting service.
type Source interface {
	Commit(ctx context.Context, owner, repo, sha string) (CommitInfo, error)
	PullRequests(ctx context.Context, owner, repo, sha string) ([]PullRequestInfo, error)
}

// Classifier assigns a review category to commits of hosted repositories.
type Classifier struct {
	source Source
	hosts  []string
}

var _ contract.ReviewClassifier = &Classifier{} // Compile-time check

// NewClassifier returns a classifier over source. Repositories must live on github.com
// or one of the extra hosts.
func NewClassifier(source Source, extraHosts ...string) *Classifier {
	return &Classifier{source: source, hosts: append([]string{"github.com"}, extraHosts...)}
}

// Classify fetches the evidence for one commit and decides its category.
func (c *Classifier) Classify(ctx context.Context, req schema.ReviewRequest) (schema.CommitReviewVerdict, error) {
	owner, repo, err := ParseRepoURL(req.RepositoryURL, c.hosts...)
	if err != nil {
		return schema.CommitReviewVerdict{}, err
	}
	prs, err := c.source.PullRequests(ctx, owner, repo, req.Commit)
	if err != nil {
		return schema.CommitReviewVerdict{}, err
	}
	if v, ok := decidePullRequests(req.Commit, prs); ok {
		return v, nil
	}
	info, err := c.source.Commit(ctx, owner, repo, req.Commit)
	if err != nil {
		return schema.CommitReviewVerdict{}, err
	}
	return decideCommit(req.Commit, info), nil
}

// decide applies every check in order to evidence already fetched. Classify runs the
// same checks but fetches commit details only when no pull request decides.
func decide(commit string, info CommitInfo, prs []PullRequestInfo) schema.CommitReviewVerdict {
	if v, ok := decidePullRequests(commit, prs); ok {
		return v
	}
	return decideCommit(commit, info)
}

// decidePullRequests returns the verdict of the first pull request that shows review.
func decidePullRequests(commit string, prs []PullRequestInfo) (schema.CommitReviewVerdict, bool) {
	for _, pr := range prs {
		meta := schema.ReviewMetadata{PullRequest: pr.Number, Author: pr.Author}
		switch {
		case pr.Reviews > 0:
			meta.Reviews = pr.Reviews
			return verdict(commit, schema.GitHubReview, meta), true
		case pr.MergedBy != "" && pr.Author != pr.MergedBy && pr.MergedBy != webFlow:
			meta.Merger = pr.MergedBy
			return verdict(commit, schema.DifferentMerger, meta), true
		case hasApprovalLabel(pr.Labels):
			meta.Labels = pr.Labels
			return verdict(commit, schema.ProwReview, meta), true
		}
	}
	return schema.CommitReviewVerdict{}, false
}

func decideCommit(commit string, info CommitInfo) schema.CommitReviewVerdict {
	if strings.Contains(info.Message, "https://review") && strings.Contains(info.Message, "\nReviewed-by: ") {
		return verdict(commit, schema.SCMReview, schema.ReviewMetadata{})
	}
	if info.Author != "" && info.Committer != "" && info.Author != info.Committer && info.Committer != webFlow {
		return verdict(commit, schema.DifferentCommitter, schema.ReviewMetadata{
			Author:    info.Author,
			Committer: info.Committer,
		})
	}
	return verdict(commit, schema.Unreviewed, schema.ReviewMetadata{})
}

func hasApprovalLabel(labels []string) bool {
	for _, l := range labels {
		if slices.Contains(approvalLabels, strings.ToLower(l)) {
			return true
		}
	}
	return false
}

func verdict(commit string, category schema.ReviewCategory, meta schema.ReviewMetadata) schema.CommitReviewVerdict {
	return schema.CommitReviewVerdict{Commit: commit, Category: category, Metadata: meta}
}
