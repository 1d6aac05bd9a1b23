// Package registry produces the registry side of an analysis: what was published between two versions.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// Adapter wraps a VersionDiffer and normalizes its output for reconciliation.
type Adapter struct {
	differ contract.VersionDiffer
}

// NewAdapter returns an adapter over differ.
func NewAdapter(differ contract.VersionDiffer) *Adapter {
	return &Adapter{differ: differ}
}

// Fetch returns the registry diff between two versions. Files deleted in the new version
// move to Removed, and the ecosystem's generated files are dropped or replaced.
func (a *Adapter) Fetch(ctx context.Context, eco schema.Ecosystem, pkg, oldVersion, newVersion string) (*schema.RegistryDiff, error) {
	diff, err := a.differ.VersionDiff(ctx, eco, pkg, oldVersion, newVersion)
	if err != nil {
		if errors.Is(err, schema.ErrVersionDiffer) {
			return nil, err
		}
		return nil, fmt.Errorf("%s %s %s..%s: %w: %w", eco, pkg, oldVersion, newVersion, schema.ErrVersionDiffer, err)
	}
	if diff == nil {
		return nil, fmt.Errorf("%s %s: empty diff: %w", eco, pkg, schema.ErrVersionDiffer)
	}
	if diff.Files == nil {
		diff.Files = map[string]*schema.FileDiff{}
	}
	if diff.Removed == nil {
		diff.Removed = map[string]*schema.FileDiff{}
	}
	diff.Ecosystem, diff.Package, diff.OldVersion, diff.NewVersion = eco, pkg, oldVersion, newVersion

	for path, fd := range diff.Files {
		if fd.TargetPath == nil {
			diff.Removed[path] = fd
			delete(diff.Files, path)
		}
	}
	applyRule(eco, diff)
	return diff, nil
}
