package repodiff

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// tagPrefixes returns the prefixes a release tag of pkg may carry in front of the version.
func tagPrefixes(pkg string) []string {
	names := []string{pkg}
	if strings.HasPrefix(pkg, "@") {
		if _, bare, ok := strings.Cut(pkg, "/"); ok && bare != "" {
			names = append(names, bare)
		}
	}
	prefixes := []string{"v", "", "release-"}
	for _, name := range names {
		prefixes = append(prefixes,
			name+"-",
			name+"-v",
			name+"@",
			name+"/v",
			name+"_v",
		)
	}
	return prefixes
}

// TagCandidates lists the tag names that would mark version of pkg, most common first.
func TagCandidates(pkg, version string) []string {
	prefixes := tagPrefixes(pkg)
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		out = append(out, p+version)
	}
	return out
}

// ResolveReleaseCommit finds the commit tagged for version. Exact candidate names are
// tried first, then any tag whose version suffix is semantically equal.
func ResolveReleaseCommit(tags map[string]string, pkg, version string) (string, error) {
	for _, name := range TagCandidates(pkg, version) {
		if commit, ok := tags[name]; ok {
			return commit, nil
		}
	}

	want := canonicalVersion(version)
	if want != "" {
		prefixes := tagPrefixes(pkg)
		for _, name := range schema.SortedKeys(tags) {
			for _, p := range prefixes {
				rest, ok := strings.CutPrefix(name, p)
				if !ok || rest == "" {
					continue
				}
				if got := canonicalVersion(rest); got != "" && semver.Compare(got, want) == 0 {
					return tags[name], nil
				}
			}
		}
	}
	return "", fmt.Errorf("%s %s: %w", pkg, version, schema.ErrReleaseCommitNotFound)
}

// canonicalVersion returns the canonical semver form of v, or "" when v is not semver.
func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// ResolveBoundaries pins both versions to commits. Caller supplied commits are used only
// when both resolve in the repository; otherwise both come from release tags.
func ResolveBoundaries(
	ctx context.Context,
	client contract.GitClient,
	repoPath, pkg, oldVersion, newVersion, oldCommit, newCommit string,
) (Boundaries, error) {
	if oldCommit != "" && newCommit != "" {
		oldRes, oldErr := client.ResolveCommit(ctx, repoPath, oldCommit)
		newRes, newErr := client.ResolveCommit(ctx, repoPath, newCommit)
		if oldErr == nil && newErr == nil {
			return Boundaries{OldCommit: oldRes, NewCommit: newRes}, nil
		}
		contract.Logger().WithField("package", pkg).Info("supplied commits are not valid, falling back to release tags")
	}

	tags, err := client.ListTags(ctx, repoPath)
	if err != nil {
		return Boundaries{}, err
	}
	oldRes, err := ResolveReleaseCommit(tags, pkg, oldVersion)
	if err != nil {
		return Boundaries{}, err
	}
	newRes, err := ResolveReleaseCommit(tags, pkg, newVersion)
	if err != nil {
		return Boundaries{}, err
	}
	return Boundaries{OldCommit: oldRes, NewCommit: newRes}, nil
}
