package reconcile

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/huangsam/depdive/core/repodiff"
	"github.com/huangsam/depdive/internal/contract"
)

const gitmodules = ".gitmodules"

var submodulePath = regexp.MustCompile(`^\s*path\s*=\s*(.+?)\s*$`)

// listSubmodules reads the submodule paths declared at the new commit.
func listSubmodules(ctx context.Context, client contract.GitClient, snap *repodiff.Snapshot) ([]string, error) {
	if !snap.HasFile(gitmodules) {
		return nil, nil
	}
	content, err := client.ShowFile(ctx, snap.RepoPath, snap.NewCommit, gitmodules)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", gitmodules, err)
	}
	return parseGitmodules(content), nil
}

func parseGitmodules(content []byte) []string {
	var paths []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if m := submodulePath.FindStringSubmatch(scanner.Text()); m != nil {
			paths = append(paths, strings.TrimRight(m[1], "/"))
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

// submoduleOf returns the submodule whose directory contains path.
func submoduleOf(submodules []string, path string) (string, bool) {
	for _, s := range submodules {
		if path == s || strings.HasPrefix(path, s+"/") {
			return s, true
		}
	}
	return "", false
}
