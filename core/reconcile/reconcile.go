// Package reconcile compares a registry diff with repository history and collects what the
// repository cannot explain.
package reconcile

import (
	"context"
	"fmt"
	"maps"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/depdive/core/registry"
	"github.com/huangsam/depdive/core/repodiff"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// Result is the outcome of one reconciliation.
type Result struct {
	// Snapshot is the final repository snapshot, after any boundary expansion.
	Snapshot *repodiff.Snapshot

	// Subdir is the package directory the registry paths were mapped under.
	Subdir string

	// Files is the registry diff without phantom files and registry deletions.
	Files map[string]*schema.FileDiff

	// Registry holds the fingerprinted registry ledger of every reconciled file.
	Registry map[string]schema.LineLedger

	// Submodules lists the repository paths of submodules at the new commit.
	Submodules []string

	Phantom schema.PhantomSet

	Ecosystem schema.Ecosystem
	Package   string

	requested string
}

// RepoPath maps a registry path to its repository path.
func (r *Result) RepoPath(path string) string {
	return registry.RepoPath(r.Ecosystem, r.Package, r.Subdir, path)
}

// Submodule returns the submodule containing the repository path, if any.
func (r *Result) Submodule(repoPath string) (string, bool) {
	return submoduleOf(r.Submodules, repoPath)
}

// Reconciler turns a registry diff and a repository snapshot into a phantom set.
type Reconciler struct {
	engine         *repodiff.Engine
	moveCorrection bool
}

// NewReconciler returns a reconciler. With moveCorrection set, phantom lines explained by a
// move from another file are discounted.
func NewReconciler(engine *repodiff.Engine, moveCorrection bool) *Reconciler {
	return &Reconciler{engine: engine, moveCorrection: moveCorrection}
}

// Reconcile finds phantom files and phantom lines. The requested directory is where the caller
// believes the package lives; a located directory at the new commit takes precedence.
// The returned snapshot replaces snap when the release boundary had to move.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	snap *repodiff.Snapshot,
	diff *schema.RegistryDiff,
	requested string,
) (*Result, error) {
	subdir, err := r.resolveSubdir(snap, requested)
	if err != nil {
		return nil, err
	}
	submodules, err := listSubmodules(ctx, r.engine.Client(), snap)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Snapshot:   snap,
		Subdir:     subdir,
		Files:      maps.Clone(diff.Files),
		Registry:   map[string]schema.LineLedger{},
		Submodules: submodules,
		Phantom:    schema.NewPhantomSet(),
		Ecosystem:  diff.Ecosystem,
		Package:    diff.Package,
		requested:  requested,
	}
	if res.Files == nil {
		res.Files = map[string]*schema.FileDiff{}
	}
	maps.Copy(res.Phantom.RemovedFilesInRegistry, diff.Removed)

	res.Phantom.Files = findPhantomFiles(res, diff)
	for _, f := range res.Phantom.Files {
		delete(res.Files, f)
	}

	if err := r.reconcileLines(ctx, res); err != nil {
		return nil, err
	}
	if r.moveCorrection {
		correctMoves(res)
	}

	contract.Logger().WithFields(logrus.Fields{
		"package":       res.Package,
		"phantom_files": len(res.Phantom.Files),
		"phantom_lines": res.Phantom.LineCount(),
		"new":           contract.ShortHash(res.Snapshot.NewCommit),
	}).Info("reconciled registry diff")
	return res, nil
}

// resolveSubdir settles disagreements between the requested and the located package directory.
func (r *Reconciler) resolveSubdir(snap *repodiff.Snapshot, requested string) (string, error) {
	requested = contract.NormalizeSubdir(requested)
	if !r.engine.LocatesSubdirs() || snap.NewSubdir == requested {
		return requested, nil
	}
	if snap.NewSubdir == "" && requested != "" {
		return "", fmt.Errorf("package not found under %q at %s: %w",
			requested, contract.ShortHash(snap.NewCommit), schema.ErrUncertainSubdir)
	}
	contract.Logger().WithFields(logrus.Fields{
		"requested": requested,
		"located":   snap.NewSubdir,
	}).Warn("package directory moved, using the located one")
	return snap.NewSubdir, nil
}
