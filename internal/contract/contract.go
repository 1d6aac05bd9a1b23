// Package contract provides interfaces and shared utilities for depdive's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/depdive/schema"
)

// BlameLine is one line of blame output: the commit it is attributed to and its content.
type BlameLine struct {
	Commit  string
	Content string
}

// GitClient defines the git operations needed to rebuild repository history.
// This allows the reconciliation logic to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Run executes a git command and returns its standard output.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// --- Reference Resolution ---

	// GetRepoHash returns the current HEAD commit hash of the repository.
	GetRepoHash(ctx context.Context, repoPath string) (string, error)

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// ResolveCommit resolves any reference to a full commit hash.
	ResolveCommit(ctx context.Context, repoPath string, ref string) (string, error)

	// ListTags maps every tag name to the commit it points at (annotated tags are peeled).
	ListTags(ctx context.Context, repoPath string) (map[string]string, error)

	// --- Working Copy ---

	// Clone clones url into dest with full history and tags.
	Clone(ctx context.Context, url string, dest string) error

	// Checkout forces the working copy to ref.
	Checkout(ctx context.Context, repoPath string, ref string) error

	// --- History ---

	// ListCommitsBetween returns the commits of from..to, newest first.
	// An empty to means HEAD.
	ListCommitsBetween(ctx context.Context, repoPath string, from, to string) ([]string, error)

	// GetFileCommits returns the commits touching path, newest first, following renames.
	// since is inclusive; empty bounds are open.
	GetFileCommits(ctx context.Context, repoPath string, path string, since, until string) ([]string, error)

	// GetCommitDiff returns the unified diff a single commit introduced, optionally
	// restricted to paths. A reverse diff runs from the commit back to its parent.
	GetCommitDiff(ctx context.Context, repoPath string, commit string, reverse bool, paths ...string) ([]byte, error)

	// GetRangeDiff returns the direct unified diff between two commits.
	GetRangeDiff(ctx context.Context, repoPath string, from, to string) ([]byte, error)

	// --- File State / Content ---

	// ListFilesAtRef returns a list of all tracked paths in the repository at a specific reference.
	ListFilesAtRef(ctx context.Context, repoPath string, ref string) ([]string, error)

	// ShowFile returns the content of path at ref without touching the working copy.
	ShowFile(ctx context.Context, repoPath string, ref string, path string) ([]byte, error)

	// --- Blame ---

	// Blame attributes every line of path at ref to the commit that last touched it.
	Blame(ctx context.Context, repoPath string, ref string, path string) ([]BlameLine, error)

	// BlameReverse attributes every line of path at start to the last commit in
	// start..end where the line still existed.
	BlameReverse(ctx context.Context, repoPath string, start, end string, path string) ([]BlameLine, error)
}

// VersionDiffer produces the registry diff between two published versions of a package.
type VersionDiffer interface {
	VersionDiff(ctx context.Context, ecosystem schema.Ecosystem, pkg, oldVersion, newVersion string) (*schema.RegistryDiff, error)
}

// RepositoryLocator finds the source repository and package directory for a package.
type RepositoryLocator interface {
	Locate(ctx context.Context, ecosystem schema.Ecosystem, pkg string) (repoURL string, subdir string, err error)
}

// SubdirLocator finds the package directory inside a repository at a given commit.
type SubdirLocator interface {
	LocateSubdir(ctx context.Context, ecosystem schema.Ecosystem, pkg string, repoPath string, commit string) (string, error)
}

// ReviewClassifier decides the review category of one commit.
type ReviewClassifier interface {
	Classify(ctx context.Context, req schema.ReviewRequest) (schema.CommitReviewVerdict, error)
}

// Credential is one API token available to a classifier.
type Credential struct {
	Name  string
	Token string
}

// CredentialPool hands out credentials that are not currently rate limited.
type CredentialPool interface {
	// Acquire returns a usable credential or schema.ErrRateLimitExhausted.
	Acquire(ctx context.Context) (Credential, error)

	// MarkExhausted takes cred out of rotation until reset.
	MarkExhausted(cred Credential, reset time.Time)
}

// StoreManager defines the interface for managing the persistent stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetReviewCache() CacheStore
	GetReportStore() ReportStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// ReportStore persists package updates and the outcome of their analyses.
type ReportStore interface {
	// AddPackageUpdate registers an update to analyze and returns its ID
	AddPackageUpdate(update schema.PackageUpdate) (int64, error)

	// PendingUpdates returns updates that have neither a recorded report nor a failure
	PendingUpdates(limit int) ([]schema.PackageUpdate, error)

	// RecordReport stores the phantom, attribution and review results of an analysis
	RecordReport(updateID int64, report *schema.AnalysisReport) error

	// RecordFailure stores the reason an analysis could not complete
	RecordFailure(updateID int64, reason string) error

	// GetAllPhantomLines returns every stored phantom line
	GetAllPhantomLines() ([]schema.PhantomLineRecord, error)

	// GetAllLineAttributions returns every stored line attribution
	GetAllLineAttributions() ([]schema.LineAttributionRecord, error)

	// GetStatus returns status information about the report store
	GetStatus() (schema.ReportStatus, error)

	// Close closes the underlying connection
	Close() error
}
