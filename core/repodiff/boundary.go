package repodiff

import (
	"context"
	"fmt"
	"slices"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/gitdiff"
	"github.com/huangsam/depdive/schema"
)

// ExpandBoundaryIfNeeded handles releases tagged too early: the published artifact already
// contains commits made after the tagged new commit. Commits touching path after the new
// commit are visited oldest first; each one that changes a phantom fingerprint is absorbed
// and its delta subtracted from phantoms. The walk stops at the first commit that explains
// nothing, or when no phantom is left.
//
// When the boundary moves, the whole snapshot is rebuilt and moved is true. The returned
// ledger holds the phantoms left unexplained; the input ledger is not modified.
func (e *Engine) ExpandBoundaryIfNeeded(
	ctx context.Context,
	snap *Snapshot,
	path string,
	phantoms schema.LineLedger,
) (next *Snapshot, remaining schema.LineLedger, moved bool, err error) {
	remaining = phantoms.Clone()
	if remaining.TotalAdditions() <= 0 {
		return snap, remaining, false, nil
	}

	commits, err := e.client.GetFileCommits(ctx, snap.RepoPath, path, snap.NewCommit, "")
	if err != nil {
		return nil, nil, false, err
	}
	slices.Reverse(commits)
	if len(commits) > 0 && commits[0] == snap.NewCommit {
		commits = commits[1:]
	}

	candidate := snap.NewCommit
	for _, commit := range commits {
		explained, err := e.absorbCommit(ctx, snap.RepoPath, commit, path, remaining)
		if err != nil {
			return nil, nil, false, err
		}
		if !explained {
			break
		}
		candidate = commit
		if len(remaining) == 0 {
			break
		}
	}

	if candidate == snap.NewCommit {
		return snap, remaining, false, nil
	}

	newCommit, err := e.boundaryAfter(ctx, snap.RepoPath, snap.NewCommit, candidate)
	if err != nil {
		return nil, nil, false, err
	}
	contract.Logger().WithField("file", path).
		WithField("from", contract.ShortHash(snap.NewCommit)).
		WithField("to", contract.ShortHash(newCommit)).
		Info("expanded new release boundary")

	next, err = e.Rebuild(ctx, Boundaries{OldCommit: snap.OldCommit, NewCommit: newCommit})
	if err != nil {
		return nil, nil, false, err
	}
	return next, remaining, true, nil
}

// absorbCommit subtracts the commit's change of path from phantoms and reports whether
// the commit touched any phantom fingerprint.
func (e *Engine) absorbCommit(ctx context.Context, repoPath, commit, path string, phantoms schema.LineLedger) (bool, error) {
	raw, err := e.client.GetCommitDiff(ctx, repoPath, commit, false, path)
	if err != nil {
		return false, err
	}
	changes, err := gitdiff.Parse(raw)
	if err != nil {
		return false, fmt.Errorf("commit %s: %w", contract.ShortHash(commit), err)
	}
	change, ok := changes[path]
	if !ok {
		return false, nil
	}

	explained := false
	for _, fp := range schema.SortedKeys(change.ChangedLines) {
		d, isPhantom := phantoms[fp]
		if !isPhantom {
			continue
		}
		d = d.Sub(change.ChangedLines[fp])
		if d.Additions <= 0 {
			delete(phantoms, fp)
		} else {
			phantoms[fp] = d
		}
		explained = true
	}
	return explained, nil
}

// boundaryAfter picks the new boundary for an absorbed candidate commit. If the candidate
// sits on a side branch that was merged after the old boundary, the commit that follows
// the old boundary on the way to HEAD is used instead, which is normally the merge.
func (e *Engine) boundaryAfter(ctx context.Context, repoPath, oldNew, candidate string) (string, error) {
	after, err := e.client.ListCommitsBetween(ctx, repoPath, candidate, "")
	if err != nil {
		return "", err
	}
	slices.Reverse(after)
	idx := slices.Index(after, oldNew)
	if idx < 0 {
		return candidate, nil
	}
	if idx == len(after)-1 {
		return "", fmt.Errorf("no commit follows %s: %w", contract.ShortHash(oldNew), schema.ErrGitInconsistency)
	}
	return after[idx+1], nil
}
