package repodiff

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// BlameForward maps each commit to the lines of path it last touched as of commit.
func (e *Engine) BlameForward(ctx context.Context, snap *Snapshot, path, commit string) (map[string][]string, error) {
	blame, err := e.client.Blame(ctx, snap.RepoPath, commit, path)
	if err != nil {
		return nil, err
	}
	out := map[string][]string{}
	for _, bl := range blame {
		out[bl.Commit] = append(out[bl.Commit], bl.Content)
	}
	return out, nil
}

// BlameReverse maps the lines of path at start that are gone by end to the commits that removed them.
// Reverse blame names the last commit in which each line still existed; the removal is the first
// later commit whose recorded history deletes that line. Lines without such a commit are dropped.
func (e *Engine) BlameReverse(
	ctx context.Context,
	snap *Snapshot,
	path, start, end string,
	history *schema.FileHistoryRecord,
) (map[string][]string, error) {
	out := map[string][]string{}
	lines, err := e.ws.ReadLinesAt(ctx, start, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}
	if len(lines) == 0 {
		return out, nil
	}

	blame, err := e.client.BlameReverse(ctx, snap.RepoPath, start, end, path)
	if err != nil {
		return nil, err
	}
	if len(blame) != len(lines) {
		return nil, fmt.Errorf("reverse blame of %s has %d lines, file has %d: %w",
			path, len(blame), len(lines), schema.ErrGitInconsistency)
	}

	byCommit := map[string][]int{}
	for i, bl := range blame {
		byCommit[bl.Commit] = append(byCommit[bl.Commit], i)
	}

	for _, commit := range schema.SortedKeys(byCommit) {
		if !contract.IsCommitHash(commit) {
			return nil, fmt.Errorf("reverse blame commit %q: %w", commit, schema.ErrGitInconsistency)
		}
		if sameCommit(commit, end) {
			continue
		}
		candidates, err := e.client.ListCommitsBetween(ctx, snap.RepoPath, commit, end)
		if err != nil {
			return nil, err
		}
		slices.Reverse(candidates)
		for _, i := range byCommit[commit] {
			if removal := removalCommit(history, schema.Fingerprint(lines[i]), candidates); removal != "" {
				out[removal] = append(out[removal], lines[i])
			}
		}
	}
	return out, nil
}

// removalCommit returns the first candidate that deleted the fingerprint.
func removalCommit(history *schema.FileHistoryRecord, fp string, candidates []string) string {
	if history == nil || fp == "" {
		return ""
	}
	byCommit, ok := history.ChangedLines[fp]
	if !ok {
		return ""
	}
	for _, c := range candidates {
		if d, ok := byCommit[c]; ok && d.Deletions > 0 {
			return c
		}
	}
	return ""
}

func sameCommit(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
