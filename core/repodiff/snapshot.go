// Package repodiff reconstructs what a repository changed between two release commits.
package repodiff

import (
	"context"
	"fmt"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/gitdiff"
	"github.com/huangsam/depdive/schema"
)

// Boundaries are the two release commits of an analysis.
type Boundaries struct {
	OldCommit string
	NewCommit string
}

// Snapshot is the repository side of one analysis at fixed boundaries. It is never
// mutated after construction; operations that change it return a new Snapshot.
type Snapshot struct {
	RepoPath       string
	OldCommit      string
	NewCommit      string
	CommonAncestor string
	OldSubdir      string
	NewSubdir      string

	// NewFiles is the set of paths tracked at the new commit.
	NewFiles map[string]struct{}

	// Commits lists old..new and ReverseCommits lists new..old.
	Commits        []string
	ReverseCommits []string
	CommitSet      map[string]struct{}

	// History folds every commit in range per file; old names of renamed files alias their newest record.
	History map[string]*schema.FileHistoryRecord

	// SingleDiff is the direct diff from the old to the new commit.
	SingleDiff map[string]*schema.FileChangeRecord
}

// Boundaries returns the commit boundaries of the snapshot.
func (s *Snapshot) Boundaries() Boundaries {
	return Boundaries{OldCommit: s.OldCommit, NewCommit: s.NewCommit}
}

// HasFile reports whether path is tracked at the new commit.
func (s *Snapshot) HasFile(path string) bool {
	_, ok := s.NewFiles[path]
	return ok
}

// clone returns a copy whose maps can be modified without touching s.
func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.CommitSet = maps.Clone(s.CommitSet)
	c.History = maps.Clone(s.History)
	c.SingleDiff = maps.Clone(s.SingleDiff)
	return &c
}

// Engine builds snapshots of one repository for one package.
type Engine struct {
	client    contract.GitClient
	ws        *Workspace
	subdirs   contract.SubdirLocator
	ecosystem schema.Ecosystem
	pkg       string
}

// NewEngine returns an engine over the given workspace.
func NewEngine(
	client contract.GitClient,
	ws *Workspace,
	subdirs contract.SubdirLocator,
	ecosystem schema.Ecosystem,
	pkg string,
) *Engine {
	return &Engine{client: client, ws: ws, subdirs: subdirs, ecosystem: ecosystem, pkg: pkg}
}

// Client exposes the git client used by the engine.
func (e *Engine) Client() contract.GitClient { return e.client }

// Workspace exposes the working copy used by the engine.
func (e *Engine) Workspace() *Workspace { return e.ws }

// LocatesSubdirs reports whether snapshots carry located package directories.
func (e *Engine) LocatesSubdirs() bool { return e.subdirs != nil }

// Rebuild computes a fresh snapshot for the given boundaries.
func (e *Engine) Rebuild(ctx context.Context, b Boundaries) (*Snapshot, error) {
	repoPath := e.ws.Path
	log := contract.Logger().WithFields(logrus.Fields{
		"package": e.pkg,
		"old":     contract.ShortHash(b.OldCommit),
		"new":     contract.ShortHash(b.NewCommit),
	})

	forward, err := e.client.ListCommitsBetween(ctx, repoPath, b.OldCommit, b.NewCommit)
	if err != nil {
		return nil, err
	}
	reverse, err := e.client.ListCommitsBetween(ctx, repoPath, b.NewCommit, b.OldCommit)
	if err != nil {
		return nil, err
	}

	ancestor, err := e.commonAncestor(ctx, forward, b.NewCommit)
	if err != nil {
		return nil, err
	}

	history, err := BuildHistory(ctx, e.client, repoPath, forward, reverse)
	if err != nil {
		return nil, err
	}

	files, err := e.client.ListFilesAtRef(ctx, repoPath, b.NewCommit)
	if err != nil {
		return nil, err
	}
	newFiles := make(map[string]struct{}, len(files))
	for _, f := range files {
		newFiles[f] = struct{}{}
	}

	oldSubdir, newSubdir, err := e.locateSubdirs(ctx, b)
	if err != nil {
		return nil, err
	}

	raw, err := e.client.GetRangeDiff(ctx, repoPath, b.OldCommit, b.NewCommit)
	if err != nil {
		return nil, err
	}
	single, err := gitdiff.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("range diff: %w", err)
	}

	commitSet := make(map[string]struct{}, len(forward)+len(reverse))
	for _, c := range forward {
		commitSet[c] = struct{}{}
	}
	for _, c := range reverse {
		commitSet[c] = struct{}{}
	}

	log.WithField("commits", len(forward)).WithField("reverse_commits", len(reverse)).Debug("built snapshot")
	return &Snapshot{
		RepoPath:       repoPath,
		OldCommit:      b.OldCommit,
		NewCommit:      b.NewCommit,
		CommonAncestor: ancestor,
		OldSubdir:      oldSubdir,
		NewSubdir:      newSubdir,
		NewFiles:       newFiles,
		Commits:        forward,
		ReverseCommits: reverse,
		CommitSet:      commitSet,
		History:        history,
		SingleDiff:     single,
	}, nil
}

// commonAncestor is the parent of the oldest commit in old..new. With nothing in range
// the new commit is already reachable from the old one and is its own ancestor.
func (e *Engine) commonAncestor(ctx context.Context, forward []string, newCommit string) (string, error) {
	if len(forward) == 0 {
		return newCommit, nil
	}
	oldest := forward[len(forward)-1]
	ancestor, err := e.client.ResolveCommit(ctx, e.ws.Path, oldest+"^")
	if err != nil {
		return "", fmt.Errorf("no parent for %s: %w", contract.ShortHash(oldest), schema.ErrGitInconsistency)
	}
	if !contract.IsCommitHash(ancestor) {
		return "", fmt.Errorf("bad common ancestor %q: %w", ancestor, schema.ErrGitInconsistency)
	}
	return ancestor, nil
}

func (e *Engine) locateSubdirs(ctx context.Context, b Boundaries) (string, string, error) {
	if e.subdirs == nil {
		return "", "", nil
	}
	oldSubdir, err := e.subdirs.LocateSubdir(ctx, e.ecosystem, e.pkg, e.ws.Path, b.OldCommit)
	if err != nil {
		return "", "", fmt.Errorf("at %s: %w: %w", contract.ShortHash(b.OldCommit), schema.ErrUncertainSubdir, err)
	}
	newSubdir, err := e.subdirs.LocateSubdir(ctx, e.ecosystem, e.pkg, e.ws.Path, b.NewCommit)
	if err != nil {
		return "", "", fmt.Errorf("at %s: %w: %w", contract.ShortHash(b.NewCommit), schema.ErrUncertainSubdir, err)
	}
	return contract.NormalizeSubdir(oldSubdir), contract.NormalizeSubdir(newSubdir), nil
}
