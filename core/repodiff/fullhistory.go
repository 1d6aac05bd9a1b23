package repodiff

import (
	"context"
	"errors"
	"io/fs"

	"github.com/huangsam/depdive/schema"
)

// FullSingleCommitHistory returns a snapshot in which path carries its complete history up to the
// new commit and a single diff that counts every current line as added. It serves files that
// appear in range without a rename explaining them. Commits found on the way join the commit set.
func (e *Engine) FullSingleCommitHistory(ctx context.Context, snap *Snapshot, path string) (*Snapshot, error) {
	commits, err := e.client.GetFileCommits(ctx, snap.RepoPath, path, "", snap.NewCommit)
	if err != nil {
		return nil, err
	}
	history, err := BuildHistory(ctx, e.client, snap.RepoPath, commits, nil)
	if err != nil {
		return nil, err
	}

	lines, err := e.ws.ReadLinesAt(ctx, snap.NewCommit, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	target := path
	single := schema.NewFileChangeRecord(nil, &target)
	for _, l := range lines {
		single.ChangedLines.Record(l, true)
	}

	out := snap.clone()
	rec, ok := history[path]
	if !ok {
		rec = schema.NewFileHistoryRecord(path)
	}
	out.History[path] = rec
	out.SingleDiff[path] = single
	for _, c := range commits {
		if _, seen := out.CommitSet[c]; !seen {
			out.CommitSet[c] = struct{}{}
			out.Commits = append(out.Commits[:len(out.Commits):len(out.Commits)], c)
		}
	}
	return out, nil
}
