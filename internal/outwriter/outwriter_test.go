package outwriter

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

func TestGetMaxTablePathWidth(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		fixed    int
		expected int
	}{
		{"narrow terminal clamps to minimum", 40, 15, 15},
		{"wide terminal clamps to maximum", 300, 15, 70},
		{"room in between", 100, 15, 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getMaxTablePathWidth(&contract.Config{Width: tt.width}, tt.fixed))
		})
	}
}

func TestLogAnalysisHeader(t *testing.T) {
	req := schema.AnalysisRequest{Ecosystem: schema.NPM, Package: "left-pad", OldVersion: "1.0.0", NewVersion: "1.1.0"}

	var buf bytes.Buffer
	LogAnalysisHeader(&buf, req, false)
	assert.Equal(t, "Package: npm/left-pad (Repo: (from registry))\nVersions: 1.0.0 -> 1.1.0\n", buf.String())

	buf.Reset()
	req.RepositoryURL = "https://github.com/left-pad/left-pad"
	LogAnalysisHeader(&buf, req, true)
	assert.Contains(t, buf.String(), "🔎 Package: npm/left-pad (Repo: https://github.com/left-pad/left-pad)")
	assert.Contains(t, buf.String(), "📦 Versions: 1.0.0 → 1.1.0")
}

func TestWriteWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	err := writeWithFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}, "Wrote test")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	boom := errors.New("boom")
	assert.ErrorIs(t, writeWithFile(path, func(io.Writer) error { return boom }, "x"), boom)
	assert.Error(t, writeWithFile(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil }, "x"))
}

func TestOutWriter_Parquet(t *testing.T) {
	ow := NewOutWriter()
	ow.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	err := ow.WriteReport(sampleReport(), &contract.Config{Output: schema.ParquetOut}, time.Second)
	assert.ErrorContains(t, err, "--output-file")

	prefix := filepath.Join(t.TempDir(), "report")
	require.NoError(t, ow.WriteReport(sampleReport(), &contract.Config{Output: schema.ParquetOut, OutputFile: prefix}, time.Second))
	assert.FileExists(t, prefix+".phantom_lines.parquet")
	assert.FileExists(t, prefix+".attributions.parquet")

	assert.Error(t, ow.WriteBatch(nil, &contract.Config{Output: schema.ParquetOut, OutputFile: prefix}, time.Second))
}

func TestOutWriter_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: path}
	require.NoError(t, NewOutWriter().WriteReport(sampleReport(), cfg, time.Second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"package": "left-pad"`)
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "short", truncateLine("short", 10))
	assert.Equal(t, "abcdefg...", truncateLine("abcdefghijklmnop", 10))
}
