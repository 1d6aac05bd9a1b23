package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/schema"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		input    schema.ReviewCategory
		expected string
	}{
		{schema.GitHubReview, ReviewedValue},
		{schema.DifferentMerger, ReviewedValue},
		{schema.DifferentCommitter, ReviewedValue},
		{schema.SCMReview, ReviewedValue},
		{schema.ProwReview, ReviewedValue},
		{schema.Unreviewed, UnreviewedValue},
		{"", UnreviewedValue},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainLabel(tt.input))
		})
	}
}

func TestGetColorLabel(t *testing.T) {
	assert.Contains(t, GetColorLabel(schema.GitHubReview), ReviewedValue)
	assert.Contains(t, GetColorLabel(schema.Unreviewed), UnreviewedValue)
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() { _ = ConfigureLogging("warn", schema.TextLog) })

	require.NoError(t, ConfigureLogging("debug", schema.JSONLog))
	assert.Equal(t, logrus.DebugLevel, Logger().GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, Logger().Formatter)

	require.NoError(t, ConfigureLogging("info", schema.TextLog))
	assert.IsType(t, &logrus.TextFormatter{}, Logger().Formatter)

	assert.Error(t, ConfigureLogging("chatty", schema.TextLog))
}

func TestNormalizeSubdir(t *testing.T) {
	tests := map[string]string{
		"":              "",
		".":             "",
		"./":            "",
		"packages/core": "packages/core",
		"./packages/a/": "packages/a",
		"././nested//":  "nested",
		"  crates/x  ":  "crates/x",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSubdir(in), "input %q", in)
	}
}

func TestJoinRepoPath(t *testing.T) {
	assert.Equal(t, "index.js", JoinRepoPath("", "index.js"))
	assert.Equal(t, "index.js", JoinRepoPath("./", "index.js"))
	assert.Equal(t, "packages/a/lib/x.js", JoinRepoPath("packages/a/", "lib/x.js"))
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "0123456789", ShortHash(strings.Repeat("0123456789", 4)))
	assert.Equal(t, "abc", ShortHash("abc"))
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		maxWidth int
		expected string
	}{
		{"short path", "src/a.go", 20, "src/a.go"},
		{"exact width", "abcdef", 6, "abcdef"},
		{"truncated", "very/long/path/to/file.go", 10, "...file.go"},
		{"width too small", "abcdef", 3, "abcdef"},
		{"unicode", "ñññññññññ", 5, "...ññ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncatePath(tt.path, tt.maxWidth))
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("sometimes")
	assert.Error(t, err)
}

func TestSelectOutputFile(t *testing.T) {
	f, err := SelectOutputFile("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f)

	path := filepath.Join(t.TempDir(), "out.txt")
	f, err = SelectOutputFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.FileExists(t, path)

	_, err = SelectOutputFile(filepath.Join(t.TempDir(), "missing", "out.txt"))
	assert.Error(t, err)
}

func TestDBFilePaths(t *testing.T) {
	assert.True(t, strings.HasSuffix(GetCacheDBFilePath(), ".depdive_cache.db"))
	assert.True(t, strings.HasSuffix(GetReportDBFilePath(), ".depdive_reports.db"))
	assert.NotEqual(t, GetCacheDBFilePath(), GetReportDBFilePath())
}
