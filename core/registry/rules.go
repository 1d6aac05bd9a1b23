package registry

import (
	"strings"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// ecosystemRule is the closed set of per-ecosystem adjustments applied to a registry diff.
type ecosystemRule struct {
	// repoPath maps a path inside the published artifact to its path inside the package directory.
	repoPath func(pkg, path string) string

	// renames replaces published files with the file they were generated from.
	renames map[string]string

	// generated lists files the registry writes into every artifact.
	generated []string
}

func identityPath(_, path string) string { return path }

// babelPath maps the compiled lib/ tree of @babel packages back to src/.
func babelPath(pkg, path string) string {
	if strings.HasPrefix(pkg, "@babel") {
		if rest, ok := strings.CutPrefix(path, "lib/"); ok {
			return "src/" + rest
		}
	}
	return path
}

var rules = map[schema.Ecosystem]ecosystemRule{
	schema.NPM: {repoPath: babelPath},
	schema.Cargo: {
		repoPath:  identityPath,
		renames:   map[string]string{"Cargo.toml.orig": "Cargo.toml"},
		generated: []string{".cargo_vcs_info.json", "Cargo.lock"},
	},
	schema.PyPI:     {repoPath: identityPath},
	schema.RubyGems: {repoPath: identityPath},
	schema.Composer: {repoPath: identityPath},
}

func ruleFor(eco schema.Ecosystem) ecosystemRule {
	if r, ok := rules[eco]; ok {
		return r
	}
	return ecosystemRule{repoPath: identityPath}
}

// RepoPath maps a registry path to the repository path under subdir.
func RepoPath(eco schema.Ecosystem, pkg, subdir, path string) string {
	return contract.JoinRepoPath(subdir, ruleFor(eco).repoPath(pkg, path))
}

// applyRule rewrites the files of a registry diff and its new-version listing in place.
func applyRule(eco schema.Ecosystem, diff *schema.RegistryDiff) {
	r := ruleFor(eco)
	for from, to := range r.renames {
		if fd, ok := diff.Files[from]; ok {
			delete(diff.Files, from)
			diff.Files[to] = fd
		}
	}
	for _, g := range r.generated {
		delete(diff.Files, g)
	}

	if len(r.renames) == 0 && len(r.generated) == 0 {
		return
	}
	drop := map[string]struct{}{}
	for _, g := range r.generated {
		drop[g] = struct{}{}
	}
	list := make([]string, 0, len(diff.NewFileList))
	seen := map[string]struct{}{}
	for _, f := range diff.NewFileList {
		if to, ok := r.renames[f]; ok {
			f = to
		}
		if _, skip := drop[f]; skip {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		list = append(list, f)
	}
	diff.NewFileList = list
}
