package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

func sampleReport() *schema.AnalysisReport {
	report := schema.NewAnalysisReport(schema.AnalysisRequest{
		Ecosystem:  schema.NPM,
		Package:    "left-pad",
		OldVersion: "1.0.0",
		NewVersion: "1.1.0",
	})
	report.RepositoryURL = "https://github.com/left-pad/left-pad"
	report.OldCommit = "1111111111111111111111111111111111111111"
	report.NewCommit = "2222222222222222222222222222222222222222"
	report.CommonAncestor = report.OldCommit
	report.Phantom.Files = []string{"dist/evil.js"}
	report.Phantom.Lines["index.js"] = schema.LineLedger{"steal(process.env)": {Additions: 1}}
	report.AddedLOC.Add("index.js", "aaaaaaaaaaaaaaaa", "pad()", "trim()")
	report.RemovedLOC.Add("index.js", "bbbbbbbbbbbbbbbb", "old()")
	report.CommitReview["aaaaaaaaaaaaaaaa"] = schema.CommitReviewVerdict{
		Commit:   "aaaaaaaaaaaaaaaa",
		Category: schema.GitHubReview,
		Metadata: schema.ReviewMetadata{PullRequest: 42, Author: "alice", Merger: "bob"},
	}
	report.CommitReview["bbbbbbbbbbbbbbbb"] = schema.CommitReviewVerdict{Commit: "bbbbbbbbbbbbbbbb", Category: schema.Unreviewed}
	report.Stats = schema.Stats{
		ReviewedLines:         2,
		NonReviewedLines:      1,
		ReviewedCommits:       1,
		NonReviewedCommits:    1,
		PhantomFileCount:      1,
		FilesWithPhantomLines: 1,
		PhantomLineCount:      1,
	}
	report.RepoStats = schema.RepositoryStats{Commits: 3, Files: 2, Lines: 5, Additions: 4, Deletions: 1}
	return report
}

func TestWriteReport_Table(t *testing.T) {
	cfg := &contract.Config{Output: schema.TextOut, Width: 160, Detail: true, UseColors: false}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), cfg, 100*time.Millisecond))

	output := buf.String()
	assert.Contains(t, output, "npm/left-pad 1.0.0..1.1.0")
	assert.Contains(t, output, "1111111111..2222222222")
	assert.Contains(t, output, "3 commits, 2 files, +4 -1 lines")
	assert.Contains(t, output, "Phantom files")
	assert.Contains(t, output, "dist/evil.js")
	assert.Contains(t, output, "steal(process.env)")
	assert.Contains(t, output, "aaaaaaaaaa")
	assert.Contains(t, output, "github_review")
	assert.Contains(t, output, contract.ReviewedValue)
	assert.Contains(t, output, contract.UnreviewedValue)
	assert.Contains(t, output, "#42")
	assert.Contains(t, output, "Attribution")
	assert.Contains(t, output, "Reviewed lines: 2, non-reviewed lines: 1")
	assert.Contains(t, output, "Analysis completed in 100ms")
}

func TestWriteReport_TableSkipsEmptySections(t *testing.T) {
	report := schema.NewAnalysisReport(schema.AnalysisRequest{Ecosystem: schema.Cargo, Package: "serde"})
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report, &contract.Config{Width: 120}, time.Second))

	output := buf.String()
	assert.NotContains(t, output, "Phantom files\n")
	assert.NotContains(t, output, "Commits\n")
	assert.Contains(t, output, "directory: .")
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), &contract.Config{Output: schema.JSONOut}, time.Second))

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "left-pad", result["package"])
	added := result["added_loc_to_commit"].(map[string]any)
	assert.Contains(t, added, "index.js")
	review := result["commit_review"].(map[string]any)
	assert.Len(t, review, 2)
	repoStats := result["repository_stats"].(map[string]any)
	assert.Equal(t, float64(3), repoStats["commits"])
	assert.Equal(t, float64(5), repoStats["lines"])
}

func TestWriteReport_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), &contract.Config{Output: schema.CSVOut}, time.Second))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+1+1+3) // header, phantom file, phantom line, three attributed lines
	assert.Equal(t, reportCSVHeader, records[0])
	assert.Equal(t, []string{kindPhantomFile, "dist/evil.js", "", "", "", "", "", "", contract.PhantomValue}, records[1])
	assert.Equal(t, kindPhantomLine, records[2][0])
	assert.Equal(t, "1", records[2][5])
	assert.Equal(t, []string{kindAttribution, "index.js", "aaaaaaaaaaaaaaaa", schema.ChangeAdded, "pad()", "", "", "github_review", contract.ReviewedValue}, records[3])
	assert.Equal(t, contract.UnreviewedValue, records[5][8])
}

func TestWritePhantom(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePhantom(&buf, sampleReport(), &contract.Config{Width: 120}, time.Second))
		output := buf.String()
		assert.Contains(t, output, "dist/evil.js")
		assert.Contains(t, output, "Phantom files: 1, phantom lines: 1 in 1 files")
		assert.Contains(t, output, "Diff:       3 commits")
		assert.NotContains(t, output, "github_review")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePhantom(&buf, sampleReport(), &contract.Config{Output: schema.JSONOut}, time.Second))
		var result map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
		assert.NotContains(t, result, "commit_review")
		phantom := result["phantom"].(map[string]any)
		assert.Equal(t, []any{"dist/evil.js"}, phantom["phantom_files"])
		repoStats := result["repository_stats"].(map[string]any)
		assert.Equal(t, float64(1), repoStats["deletions"])
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePhantom(&buf, sampleReport(), &contract.Config{Output: schema.CSVOut}, time.Second))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, 3)
	})
}

func TestCommitLineCounts(t *testing.T) {
	attr := schema.LineAttribution{}
	attr.Add("a.js", "c1", "x", "y")
	attr.Add("b.js", "c1", "z")
	attr.Add("b.js", "c2", "w")
	assert.Equal(t, map[string]int{"c1": 3, "c2": 1}, commitLineCounts(attr))
}

func TestMergeKeys(t *testing.T) {
	a := map[string]int{"x": 1, "z": 2}
	b := map[string]string{"y": "", "z": ""}
	assert.Equal(t, []string{"x", "y", "z"}, mergeKeys(a, b))
}
