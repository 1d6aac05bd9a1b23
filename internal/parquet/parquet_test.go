package parquet

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/schema"
)

func TestPhantomLineStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(PhantomLine))
	for _, col := range []string{"update_id", "file_path", "line", "additions", "deletions", "recorded_at"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestLineAttributionStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(LineAttribution))
	for _, col := range []string{"update_id", "file_path", "commit_sha", "change", "line", "category", "recorded_at"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestConvertLineAttributionRecords(t *testing.T) {
	got := ConvertLineAttributionRecords([]schema.LineAttributionRecord{
		{UpdateID: 1, FilePath: "a.js", CommitSHA: "c1", Change: schema.ChangeAdded, Line: "x", Category: "github_review"},
		{UpdateID: 1, FilePath: "a.js", CommitSHA: "c2", Change: schema.ChangeRemoved, Line: "y"},
	})
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Category)
	assert.Equal(t, "github_review", *got[0].Category)
	assert.Nil(t, got[1].Category)
}

func TestWriteRecords_RoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	lines := []schema.PhantomLineRecord{
		{UpdateID: 7, FilePath: "index.js", Line: "steal()", Additions: 1, RecordedAt: now},
		{UpdateID: 7, FilePath: "index.js", Line: "old()", Deletions: 2, RecordedAt: now},
	}
	attrs := []schema.LineAttributionRecord{
		{UpdateID: 7, FilePath: "index.js", CommitSHA: "abc123", Change: schema.ChangeAdded, Line: "fn foo() {}", RecordedAt: now},
	}

	prefix := filepath.Join(t.TempDir(), "export")
	linesFile, attrsFile, err := WriteRecords(prefix, lines, attrs)
	require.NoError(t, err)
	assert.Equal(t, prefix+".phantom_lines.parquet", linesFile)

	readLines, err := parquet.ReadFile[PhantomLine](linesFile)
	require.NoError(t, err)
	require.Len(t, readLines, 2)
	assert.Equal(t, "steal()", readLines[0].Line)
	assert.Equal(t, int32(2), readLines[1].Deletions)
	assert.True(t, now.Equal(readLines[0].RecordedAt))

	readAttrs, err := parquet.ReadFile[LineAttribution](attrsFile)
	require.NoError(t, err)
	require.Len(t, readAttrs, 1)
	assert.Equal(t, "abc123", readAttrs[0].CommitSHA)
	assert.Nil(t, readAttrs[0].Category)
}

func TestWriteRecords_BadPath(t *testing.T) {
	_, _, err := WriteRecords(filepath.Join(t.TempDir(), "missing", "dir", "x"), nil, nil)
	assert.Error(t, err)
}
