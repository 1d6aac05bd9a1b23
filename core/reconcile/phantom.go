package reconcile

import (
	"context"
	"slices"

	"github.com/huangsam/depdive/core/repodiff"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// findPhantomFiles returns the published files whose repository path does not exist at the
// new commit. Files inside submodules are never phantom.
func findPhantomFiles(res *Result, diff *schema.RegistryDiff) []string {
	published := diff.NewFileList
	if len(published) == 0 {
		for path, fd := range diff.Files {
			if fd.TargetPath != nil {
				published = append(published, path)
			}
		}
		slices.Sort(published)
	}

	phantoms := []string{}
	for _, f := range published {
		repoF := res.RepoPath(f)
		if _, ok := res.Submodule(repoF); ok {
			continue
		}
		if !res.Snapshot.HasFile(repoF) {
			phantoms = append(phantoms, f)
		}
	}
	return phantoms
}

// reconcileLines computes the phantom lines of every file left in the registry diff.
func (r *Reconciler) reconcileLines(ctx context.Context, res *Result) error {
	var fullHistory []string
	for _, f := range schema.SortedKeys(res.Files) {
		fd := res.Files[f]
		if fd.TargetPath == nil {
			continue
		}
		repoF := res.RepoPath(f)
		if _, ok := res.Submodule(repoF); ok {
			continue
		}

		// A file new to the artifact may have existed in the repository long before.
		if fd.SourcePath == nil {
			if hist, ok := res.Snapshot.History[repoF]; !ok || !hist.IsRename {
				next, err := r.engine.FullSingleCommitHistory(ctx, res.Snapshot, repoF)
				if err != nil {
					return err
				}
				res.Snapshot = next
				fullHistory = append(fullHistory, repoF)
			}
		}

		reg := fd.Ledger()
		res.Registry[f] = reg
		phantoms := phantomLines(reg, res.Snapshot.SingleDiff[repoF])

		next, _, moved, err := r.engine.ExpandBoundaryIfNeeded(ctx, res.Snapshot, repoF, phantoms)
		if err != nil {
			return err
		}
		if moved {
			contract.Logger().WithField("file", repoF).
				WithField("new", contract.ShortHash(next.NewCommit)).
				Info("release boundary moved")
			if next, err = r.replayFullHistory(ctx, next, fullHistory); err != nil {
				return err
			}
			res.Snapshot = next
			phantoms = phantomLines(reg, res.Snapshot.SingleDiff[repoF])

			// The package directory may differ at the new boundary.
			subdir, err := r.resolveSubdir(next, res.requested)
			if err != nil {
				return err
			}
			res.Subdir = subdir
		}

		if len(phantoms) > 0 {
			res.Phantom.Lines[f] = phantoms
		}
	}
	return nil
}

// replayFullHistory restores the full single-file histories a rebuilt snapshot dropped.
func (r *Reconciler) replayFullHistory(ctx context.Context, snap *repodiff.Snapshot, paths []string) (*repodiff.Snapshot, error) {
	for _, p := range paths {
		next, err := r.engine.FullSingleCommitHistory(ctx, snap, p)
		if err != nil {
			return nil, err
		}
		snap = next
	}
	return snap, nil
}

// phantomLines returns, per fingerprint, how far the registry delta is from the repository's.
// A fingerprint agrees when the net deltas match; the counts on each side may differ.
func phantomLines(reg schema.LineLedger, change *schema.FileChangeRecord) schema.LineLedger {
	repo := schema.LineLedger{}
	if change != nil {
		for raw, d := range change.ChangedLines {
			fp := schema.Fingerprint(raw)
			repo[fp] = repo[fp].Add(d)
		}
	}

	phantoms := schema.LineLedger{}
	for fp, d := range reg {
		got, ok := repo[fp]
		if !ok || got.Delta() != d.Delta() {
			phantoms[fp] = d.Sub(got)
		}
	}
	return phantoms
}
