// Package attribution maps the lines of a registry diff to the repository commits that wrote them.
package attribution

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/depdive/core/reconcile"
	"github.com/huangsam/depdive/core/repodiff"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// Mapper attributes added lines with forward blame and removed lines with reverse blame.
type Mapper struct {
	engine *repodiff.Engine
}

// NewMapper returns a mapper over engine.
func NewMapper(engine *repodiff.Engine) *Mapper {
	return &Mapper{engine: engine}
}

// Map returns the added and removed lines of every reconciled file, keyed by registry path and
// commit. Only commits that touched the file in range are kept.
func (m *Mapper) Map(ctx context.Context, res *reconcile.Result) (schema.LineAttribution, schema.LineAttribution, error) {
	added, removed := schema.LineAttribution{}, schema.LineAttribution{}
	snap := res.Snapshot

	for _, f := range schema.SortedKeys(res.Files) {
		fd := res.Files[f]
		if fd.TargetPath == nil {
			continue
		}
		repoF := res.RepoPath(f)
		log := contract.Logger().WithFields(logrus.Fields{"file": repoF, "package": res.Package})

		if sub, ok := res.Submodule(repoF); ok {
			attributeSubmodule(snap, f, sub, fd, added, removed)
			continue
		}

		history := snap.History[repoF]
		if history == nil {
			log.Debug("no commits touch file in range")
			continue
		}

		blame, err := m.engine.BlameForward(ctx, snap, repoF, snap.NewCommit)
		if err != nil {
			return added, removed, fmt.Errorf("blame %s: %w", repoF, err)
		}
		keep(added, f, blame, history)

		if fd.SourcePath == nil {
			continue
		}
		reverse, err := m.engine.BlameReverse(ctx, snap, repoF, snap.CommonAncestor, snap.NewCommit, history)
		if err != nil {
			return added, removed, fmt.Errorf("reverse blame %s: %w", repoF, err)
		}
		keep(removed, f, reverse, history)
		log.WithField("added", added.LineCount(f)).WithField("removed", removed.LineCount(f)).Debug("attributed lines")
	}
	return added, removed, nil
}

// keep adds the blamed lines of commits in the file's history, fingerprinted, blanks dropped.
func keep(out schema.LineAttribution, path string, blame map[string][]string, history *schema.FileHistoryRecord) {
	for _, commit := range schema.SortedKeys(blame) {
		if !history.HasCommit(commit) {
			continue
		}
		out.Add(path, commit, fingerprints(blame[commit])...)
	}
}

func fingerprints(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if fp := schema.Fingerprint(l); fp != "" {
			out = append(out, fp)
		}
	}
	return out
}

// attributeSubmodule credits a file inside a submodule to the commits that moved the submodule
// pointer: additions to the latest, removals to the earliest.
func attributeSubmodule(
	snap *repodiff.Snapshot,
	path, submodule string,
	fd *schema.FileDiff,
	added, removed schema.LineAttribution,
) {
	history := snap.History[submodule]
	if history == nil {
		return
	}
	var latest, earliest string
	for _, c := range snap.Commits { // newest first
		if history.HasCommit(c) {
			if latest == "" {
				latest = c
			}
			earliest = c
		}
	}
	if latest == "" {
		return
	}
	added.Add(path, latest, fingerprints(fd.AddedLines)...)
	removed.Add(path, earliest, fingerprints(fd.RemovedLines)...)
}
