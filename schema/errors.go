package schema

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the reconciliation pipeline.
var (
	// ErrReleaseCommitNotFound means a version could not be pinned to a commit.
	ErrReleaseCommitNotFound = errors.New("release commit not found")

	// ErrUncertainSubdir means the package directory inside the repository could not be located.
	ErrUncertainSubdir = errors.New("uncertain package subdirectory")

	// ErrVersionDiffer means the registry diff could not be produced.
	ErrVersionDiffer = errors.New("registry version diff failed")

	// ErrGitInconsistency means git produced output that violates an expected shape.
	ErrGitInconsistency = errors.New("inconsistent git output")

	// ErrRateLimitExhausted means every review credential is rate limited.
	ErrRateLimitExhausted = errors.New("review rate limit exhausted")

	// ErrUnknownObject means the hosting service does not know the commit or repository.
	ErrUnknownObject = errors.New("unknown object")

	// ErrNotGitHubRepository means the repository is not hosted on GitHub.
	ErrNotGitHubRepository = errors.New("repository is not hosted on github")
)

// AnalysisError ties a failure to the package update that produced it.
type AnalysisError struct {
	Ecosystem  Ecosystem
	Package    string
	OldVersion string
	NewVersion string
	Err        error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s %s %s..%s: %v", e.Ecosystem, e.Package, e.OldVersion, e.NewVersion, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// FailureReason maps an error to the short reason persisted for failed updates.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrReleaseCommitNotFound):
		return "Release commit not found"
	case errors.Is(err, ErrUncertainSubdir):
		return "Uncertain package subdirectory"
	case errors.Is(err, ErrVersionDiffer):
		return "Registry diff failed"
	case errors.Is(err, ErrGitInconsistency):
		return "Git inconsistency"
	case errors.Is(err, ErrNotGitHubRepository):
		return "Not a GitHub repository"
	case errors.Is(err, ErrRateLimitExhausted):
		return "Rate limit exhausted"
	default:
		return "Analysis failed"
	}
}
