package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/core/repodiff"
	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/gittest"
	"github.com/huangsam/depdive/schema"
)

func strPtr(s string) *string { return &s }

func modified(path string, added []string, removed ...string) *schema.FileDiff {
	return &schema.FileDiff{SourcePath: strPtr(path), TargetPath: strPtr(path), AddedLines: added, RemovedLines: removed}
}

func created(path string, added ...string) *schema.FileDiff {
	return &schema.FileDiff{TargetPath: strPtr(path), AddedLines: added, RemovedLines: []string{}}
}

func openEngine(t *testing.T, repo *gittest.Repo, locator contract.SubdirLocator) *repodiff.Engine {
	t.Helper()
	client := contract.NewLocalGitClient()
	ws, err := repodiff.OpenWorkspace(context.Background(), client, repo.Dir, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return repodiff.NewEngine(client, ws, locator, schema.NPM, "demo")
}

func TestReconcile_PhantomFileAndLines(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("util.js", "u1\nu2\n")
	repo.Commit("util predates the range")
	repo.Write("index.js", "a()\n")
	c1 := repo.Commit("v1.0.0")
	repo.Write("index.js", "a()\nb()\n")
	c2 := repo.Commit("v1.1.0")

	engine := openEngine(t, repo, nil)
	ctx := context.Background()
	snap, err := engine.Rebuild(ctx, repodiff.Boundaries{OldCommit: c1, NewCommit: c2})
	require.NoError(t, err)

	diff := &schema.RegistryDiff{
		Ecosystem: schema.NPM,
		Package:   "demo",
		Files: map[string]*schema.FileDiff{
			"index.js":  modified("index.js", []string{"b()", "steal()"}),
			"README.md": created("README.md", "# hi"),
			"util.js":   created("util.js", "u1", "u2"),
		},
		Removed:     map[string]*schema.FileDiff{"old.js": {SourcePath: strPtr("old.js")}},
		NewFileList: []string{"README.md", "index.js", "util.js"},
	}

	res, err := NewReconciler(engine, true).Reconcile(ctx, snap, diff, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md"}, res.Phantom.Files)
	assert.NotContains(t, res.Files, "README.md")
	assert.Contains(t, diff.Files, "README.md", "the input diff is not modified")
	assert.Contains(t, res.Phantom.RemovedFilesInRegistry, "old.js")
	assert.Equal(t, map[string]schema.LineLedger{
		"index.js": {"steal()": {Additions: 1}},
	}, res.Phantom.Lines)
	assert.Equal(t, schema.LineLedger{"u1": {Additions: 1}, "u2": {Additions: 1}}, res.Registry["util.js"])
	assert.Equal(t, c2, res.Snapshot.NewCommit)
}

func TestReconcile_BoundaryExpansion(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("lib.rs", "fn a() {}\n")
	c1 := repo.Commit("v1.0.0")
	repo.Write("lib.rs", "fn a() {}\nfn b() {}\n")
	c2 := repo.Commit("v1.1.0 tagged early")
	repo.Write("lib.rs", "fn a() {}\nfn b() {}\nfn c() {}\n")
	c3 := repo.Commit("included in the release")
	repo.Write("other.rs", "unrelated\n")
	repo.Commit("after the release")

	engine := openEngine(t, repo, nil)
	ctx := context.Background()
	snap, err := engine.Rebuild(ctx, repodiff.Boundaries{OldCommit: c1, NewCommit: c2})
	require.NoError(t, err)

	diff := &schema.RegistryDiff{
		Ecosystem:   schema.Cargo,
		Package:     "demo",
		Files:       map[string]*schema.FileDiff{"lib.rs": modified("lib.rs", []string{"fn b() {}", "fn c() {}"})},
		NewFileList: []string{"lib.rs"},
	}

	res, err := NewReconciler(engine, false).Reconcile(ctx, snap, diff, "")
	require.NoError(t, err)
	assert.Equal(t, c3, res.Snapshot.NewCommit)
	assert.Empty(t, res.Phantom.Lines)
	assert.True(t, res.Phantom.Empty())
}

func TestReconcile_BoundaryMoveRelocatesSubdir(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("packages/demo/lib.js", "a()\n")
	c1 := repo.Commit("v1.0.0")
	repo.Write("packages/demo/lib.js", "a()\nb()\n")
	c2 := repo.Commit("v1.1.0 tagged early")
	repo.Write("packages/demo/lib.js", "a()\nb()\nc()\n")
	c3 := repo.Commit("included in the release")

	locator := commitLocator{c1: "packages/demo", c2: "packages/demo", c3: "packages/demo-next"}
	engine := openEngine(t, repo, locator)
	ctx := context.Background()
	snap, err := engine.Rebuild(ctx, repodiff.Boundaries{OldCommit: c1, NewCommit: c2})
	require.NoError(t, err)

	diff := &schema.RegistryDiff{
		Ecosystem:   schema.NPM,
		Package:     "demo",
		Files:       map[string]*schema.FileDiff{"lib.js": modified("lib.js", []string{"b()", "c()"})},
		NewFileList: []string{"lib.js"},
	}

	res, err := NewReconciler(engine, false).Reconcile(ctx, snap, diff, "")
	require.NoError(t, err)
	assert.Equal(t, c3, res.Snapshot.NewCommit)
	assert.Equal(t, "packages/demo-next", res.Subdir, "directory follows the moved boundary")
	assert.Empty(t, res.Phantom.Lines)
}

func TestReconcile_Subdir(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("packages/demo/index.js", "a()\n")
	c1 := repo.Commit("v1")
	repo.Write("packages/demo/index.js", "a()\nb()\n")
	c2 := repo.Commit("v2")

	diff := &schema.RegistryDiff{
		Ecosystem:   schema.NPM,
		Package:     "demo",
		Files:       map[string]*schema.FileDiff{"index.js": modified("index.js", []string{"b()"})},
		NewFileList: []string{"index.js"},
	}
	ctx := context.Background()

	t.Run("located directory wins", func(t *testing.T) {
		engine := openEngine(t, repo, fixedLocator("packages/demo"))
		snap, err := engine.Rebuild(ctx, repodiff.Boundaries{OldCommit: c1, NewCommit: c2})
		require.NoError(t, err)

		res, err := NewReconciler(engine, true).Reconcile(ctx, snap, diff, "pkgs/old")
		require.NoError(t, err)
		assert.Equal(t, "packages/demo", res.Subdir)
		assert.Equal(t, "packages/demo/index.js", res.RepoPath("index.js"))
		assert.True(t, res.Phantom.Empty())
	})

	t.Run("without a locator the request stands", func(t *testing.T) {
		engine := openEngine(t, repo, nil)
		snap, err := engine.Rebuild(ctx, repodiff.Boundaries{OldCommit: c1, NewCommit: c2})
		require.NoError(t, err)

		res, err := NewReconciler(engine, true).Reconcile(ctx, snap, diff, "./packages/demo/")
		require.NoError(t, err)
		assert.Equal(t, "packages/demo", res.Subdir)
	})
}

func TestResolveSubdir(t *testing.T) {
	engine := repodiff.NewEngine(nil, nil, fixedLocator(""), schema.NPM, "demo")
	r := NewReconciler(engine, false)

	got, err := r.resolveSubdir(&repodiff.Snapshot{NewSubdir: ""}, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = r.resolveSubdir(&repodiff.Snapshot{NewSubdir: ""}, "lib")
	assert.ErrorIs(t, err, schema.ErrUncertainSubdir)

	got, err = r.resolveSubdir(&repodiff.Snapshot{NewSubdir: "new"}, "old")
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestPhantomLines(t *testing.T) {
	reg := schema.LineLedger{
		"same":    {Additions: 1},
		"netsame": {Additions: 2, Deletions: 1},
		"differs": {Additions: 2},
		"absent":  {Deletions: 1},
	}
	change := schema.NewFileChangeRecord(nil, strPtr("f"))
	change.ChangedLines = schema.LineLedger{
		"same":    {Additions: 1},
		"netsame": {Additions: 1},
		"differs": {Additions: 1},
	}

	assert.Equal(t, schema.LineLedger{
		"differs": {Additions: 1},
		"absent":  {Deletions: 1},
	}, phantomLines(reg, change))

	assert.Equal(t, reg, phantomLines(reg, nil), "with no repository change everything is phantom")
}

func TestCorrectMoves(t *testing.T) {
	single := map[string]*schema.FileChangeRecord{
		"a.js": {ChangedLines: schema.LineLedger{}},
		"b.js": {ChangedLines: schema.LineLedger{"moved()": {Additions: 1}, "twice()": {Additions: 1}}},
	}
	res := &Result{
		Snapshot:  &repodiff.Snapshot{SingleDiff: single},
		Ecosystem: schema.NPM,
		Package:   "demo",
		Phantom:   schema.NewPhantomSet(),
	}
	res.Phantom.Lines = map[string]schema.LineLedger{
		"a.js": {"moved()": {Additions: 1}, "other()": {Additions: 1}},
		"b.js": {"moved()": {Additions: 1}},
		"c.js": {"twice()": {Additions: 1}},
		"d.js": {"twice()": {Additions: 1}},
	}

	correctMoves(res)

	assert.Equal(t, map[string]schema.LineLedger{
		"a.js": {"other()": {Additions: 1}},
		"b.js": {"moved()": {Additions: 1}},
		"d.js": {"twice()": {Additions: 1}},
	}, res.Phantom.Lines, "a file cannot explain itself and each repository entry is used once")
}

func TestParseGitmodules(t *testing.T) {
	content := []byte(`[submodule "vendor/lib"]
	path = vendor/lib
	url = https://github.com/x/lib
[submodule "deps/z"]
	path = deps/z/
	url = ../z.git
`)
	subs := parseGitmodules(content)
	assert.Equal(t, []string{"deps/z", "vendor/lib"}, subs)

	s, ok := submoduleOf(subs, "vendor/lib/src/a.c")
	assert.True(t, ok)
	assert.Equal(t, "vendor/lib", s)
	_, ok = submoduleOf(subs, "vendor/library.c")
	assert.False(t, ok)
}

type fixedLocator string

func (l fixedLocator) LocateSubdir(context.Context, schema.Ecosystem, string, string, string) (string, error) {
	return string(l), nil
}

type commitLocator map[string]string

func (l commitLocator) LocateSubdir(_ context.Context, _ schema.Ecosystem, _, _, commit string) (string, error) {
	return l[commit], nil
}
