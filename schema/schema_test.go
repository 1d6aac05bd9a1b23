package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestFileChangeRecordPath(t *testing.T) {
	assert.Equal(t, "b.js", NewFileChangeRecord(strPtr("a.js"), strPtr("b.js")).Path())
	assert.Equal(t, "gone.js", NewFileChangeRecord(strPtr("gone.js"), nil).Path())
	assert.Equal(t, "new.js", NewFileChangeRecord(nil, strPtr("new.js")).Path())
}

func TestFileHistoryRecordAbsorbAndMerge(t *testing.T) {
	change := NewFileChangeRecord(strPtr("old.js"), strPtr("new.js"))
	change.IsRename = true
	change.ChangedLines.Record("a", true)
	change.ChangedLines.Record("b", false)

	h := NewFileHistoryRecord("new.js")
	h.Absorb("c1", change, false)

	assert.True(t, h.IsRename)
	assert.Equal(t, "old.js", h.PreviousName)
	assert.True(t, h.HasCommit("c1"))
	assert.Equal(t, LineDelta{Additions: 1}, h.ChangedLines["a"]["c1"])

	older := NewFileHistoryRecord("old.js")
	older.Absorb("c0", &FileChangeRecord{ChangedLines: LineLedger{"a": {Deletions: 1}, "z": {Additions: 1}}}, true)
	older.ChangedLines["a"]["c1"] = LineDelta{Additions: 99}

	h.Merge(older)
	h.Merge(older)

	assert.True(t, h.HasCommit("c0"))
	assert.Contains(t, h.ReverseCommits, "c0")
	assert.Equal(t, LineDelta{Additions: 1}, h.ChangedLines["a"]["c1"], "existing entries win")
	assert.Equal(t, LineDelta{Additions: 1}, h.ChangedLines["z"]["c0"])
	assert.Equal(t, LineDelta{Additions: 1, Deletions: 1}, h.Aggregate()["a"])
}

func TestPhantomSetCounts(t *testing.T) {
	p := NewPhantomSet()
	assert.True(t, p.Empty())

	p.Lines["a.js"] = LineLedger{"x": {Additions: 1}, "y": {Deletions: 1}}
	p.Lines["b.js"] = LineLedger{"z": {Additions: 2}}
	assert.Equal(t, 3, p.LineCount())
	assert.False(t, p.Empty())
}

func TestLineAttribution(t *testing.T) {
	a := LineAttribution{}
	a.Add("lib.rs", "abc123", "fn foo() {}")
	a.Add("lib.rs", "abc123", "fn bar() {}")
	a.Add("lib.rs", "def456")
	a.Add("main.rs", "def456", "fn main() {}")

	assert.Equal(t, []string{"abc123", "def456"}, a.Commits())
	assert.Equal(t, 2, a.LineCount("lib.rs"))
	assert.NotContains(t, a["lib.rs"], "def456")
}

func TestAnalysisErrorUnwrap(t *testing.T) {
	err := &AnalysisError{Ecosystem: Cargo, Package: "tokio", OldVersion: "1.0.0", NewVersion: "1.0.1", Err: fmt.Errorf("resolve: %w", ErrReleaseCommitNotFound)}

	require.ErrorIs(t, err, ErrReleaseCommitNotFound)
	assert.Contains(t, err.Error(), "cargo tokio 1.0.0..1.0.1")
	assert.Equal(t, "Release commit not found", FailureReason(err))
	assert.Equal(t, "Analysis failed", FailureReason(errors.New("boom")))
}

func TestReviewCategoryReviewed(t *testing.T) {
	for _, c := range []ReviewCategory{GitHubReview, DifferentMerger, DifferentCommitter, SCMReview, ProwReview} {
		assert.True(t, c.Reviewed(), c)
	}
	assert.False(t, Unreviewed.Reviewed())
}
