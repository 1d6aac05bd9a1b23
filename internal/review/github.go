package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// GitHubSource reads review evidence from the GitHub REST API. Requests are paced by a shared
// limiter and spread over the credentials of the pool.
type GitHubSource struct {
	pool        contract.CredentialPool
	rateLimiter *rate.Limiter
	baseURL     string

	mu      sync.Mutex
	clients map[string]*github.Client
}

var _ Source = &GitHubSource{} // Compile-time check

// NewGitHubSource returns a source allowing requestsPerSecond calls. An empty baseURL
// targets api.github.com; any other value is a GitHub Enterprise endpoint.
func NewGitHubSource(pool contract.CredentialPool, requestsPerSecond float64, baseURL string) *GitHubSource {
	return &GitHubSource{
		pool:        pool,
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL:     baseURL,
		clients:     map[string]*github.Client{},
	}
}

// Commit fetches the message and the author and committer logins of a commit.
func (s *GitHubSource) Commit(ctx context.Context, owner, repo, sha string) (CommitInfo, error) {
	var info CommitInfo
	err := s.do(ctx, func(gh *github.Client) error {
		commit, _, err := gh.Repositories.GetCommit(ctx, owner, repo, sha, nil)
		if err != nil {
			return err
		}
		info = CommitInfo{
			Message:   commit.GetCommit().GetMessage(),
			Author:    commit.GetAuthor().GetLogin(),
			Committer: commit.GetCommitter().GetLogin(),
		}
		return nil
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("fetch commit %s/%s@%s: %w", owner, repo, contract.ShortHash(sha), err)
	}
	return info, nil
}

// PullRequests lists the pull requests containing a commit together with their review counts.
func (s *GitHubSource) PullRequests(ctx context.Context, owner, repo, sha string) ([]PullRequestInfo, error) {
	var prs []*github.PullRequest
	err := s.do(ctx, func(gh *github.Client) error {
		var err error
		prs, _, err = gh.PullRequests.ListPullRequestsWithCommit(ctx, owner, repo, sha, &github.ListOptions{PerPage: 100})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch pull requests of %s/%s@%s: %w", owner, repo, contract.ShortHash(sha), err)
	}

	out := make([]PullRequestInfo, 0, len(prs))
	for _, pr := range prs {
		info := PullRequestInfo{
			Number:   pr.GetNumber(),
			Author:   pr.GetUser().GetLogin(),
			MergedBy: pr.GetMergedBy().GetLogin(),
		}
		for _, l := range pr.Labels {
			info.Labels = append(info.Labels, l.GetName())
		}
		err := s.do(ctx, func(gh *github.Client) error {
			reviews, _, err := gh.PullRequests.ListReviews(ctx, owner, repo, info.Number, &github.ListOptions{PerPage: 100})
			info.Reviews = len(reviews)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch reviews of %s/%s#%d: %w", owner, repo, info.Number, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// do runs call with the next usable credential. Rate limited credentials are marked and the
// call is retried until the pool runs dry.
func (s *GitHubSource) do(ctx context.Context, call func(*github.Client) error) error {
	for {
		cred, err := s.pool.Acquire(ctx)
		if err != nil {
			return err
		}
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		gh, err := s.client(cred)
		if err != nil {
			return err
		}

		err = call(gh)
		var rateErr *github.RateLimitError
		var abuseErr *github.AbuseRateLimitError
		var respErr *github.ErrorResponse
		switch {
		case err == nil:
			return nil
		case errors.As(err, &rateErr):
			contract.Logger().WithField("credential", cred.Name).Warn("github rate limit reached")
			s.pool.MarkExhausted(cred, rateErr.Rate.Reset.Time)
		case errors.As(err, &abuseErr):
			reset := time.Now().Add(time.Minute)
			if abuseErr.RetryAfter != nil {
				reset = time.Now().Add(*abuseErr.RetryAfter)
			}
			s.pool.MarkExhausted(cred, reset)
		case errors.As(err, &respErr) && respErr.Response != nil &&
			(respErr.Response.StatusCode == http.StatusNotFound || respErr.Response.StatusCode == http.StatusUnprocessableEntity):
			return fmt.Errorf("%s: %w", respErr.Message, schema.ErrUnknownObject)
		default:
			return err
		}
	}
}

// client returns the API client bound to cred, creating it on first use.
func (s *GitHubSource) client(cred contract.Credential) (*github.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gh, ok := s.clients[cred.Name]; ok {
		return gh, nil
	}
	gh := github.NewClient(nil)
	if cred.Token != "" {
		gh = gh.WithAuthToken(cred.Token)
	}
	if s.baseURL != "" {
		var err error
		if gh, err = gh.WithEnterpriseURLs(s.baseURL, s.baseURL); err != nil {
			return nil, fmt.Errorf("github base url %q: %w", s.baseURL, err)
		}
	}
	s.clients[cred.Name] = gh
	return gh, nil
}
