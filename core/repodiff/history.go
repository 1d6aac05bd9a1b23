package repodiff

import (
	"context"
	"fmt"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/gitdiff"
	"github.com/huangsam/depdive/schema"
)

// BuildHistory folds the single-step diff of every commit into per-file histories.
// Reverse commits are diffed from the commit to its parent so their changes carry the opposite sign.
// Renamed files absorb the history of their previous names, and every previous name
// aliases the newest record of its chain.
func BuildHistory(
	ctx context.Context,
	client contract.GitClient,
	repoPath string,
	forward, reverse []string,
) (map[string]*schema.FileHistoryRecord, error) {
	files := map[string]*schema.FileHistoryRecord{}
	fold := func(commit string, rev bool) error {
		raw, err := client.GetCommitDiff(ctx, repoPath, commit, rev)
		if err != nil {
			return err
		}
		changes, err := gitdiff.Parse(raw)
		if err != nil {
			return fmt.Errorf("commit %s: %w", contract.ShortHash(commit), err)
		}
		for path, change := range changes {
			rec, ok := files[path]
			if !ok {
				rec = schema.NewFileHistoryRecord(path)
				files[path] = rec
			}
			rec.Absorb(commit, change, rev)
		}
		return nil
	}

	for _, c := range forward {
		if err := fold(c, false); err != nil {
			return nil, err
		}
	}
	for _, c := range reverse {
		if err := fold(c, true); err != nil {
			return nil, err
		}
	}

	resolveRenames(files)
	return files, nil
}

// resolveRenames merges each rename chain into its newest name and aliases the old names.
func resolveRenames(files map[string]*schema.FileHistoryRecord) {
	paths := schema.SortedKeys(files)

	oldNames := map[string]struct{}{}
	chains := make(map[string][]string, len(paths))
	for _, f := range paths {
		chain := renameChain(files, f)
		chains[f] = chain
		for _, old := range chain[1:] {
			oldNames[old] = struct{}{}
		}
	}

	for _, f := range paths {
		chain := chains[f]
		for i := len(chain) - 1; i > 0; i-- {
			files[chain[i-1]].Merge(files[chain[i]])
		}
	}

	for _, f := range paths {
		if _, isOld := oldNames[f]; isOld {
			continue
		}
		for _, old := range chains[f][1:] {
			files[old] = files[f]
		}
	}
}

// renameChain walks previous names starting at f. The walk stops at a cycle or at a
// name with no recorded history; that last name is still part of the chain.
func renameChain(files map[string]*schema.FileHistoryRecord, f string) []string {
	chain := []string{f}
	visited := map[string]struct{}{f: {}}
	cur := files[f]
	for cur != nil && cur.IsRename && cur.PreviousName != "" {
		prev := cur.PreviousName
		if _, seen := visited[prev]; seen {
			break
		}
		visited[prev] = struct{}{}
		chain = append(chain, prev)
		cur = files[prev]
	}
	return chain
}
