// Package parquet provides data structures and functions for exporting depdive
// reconciliation data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/huangsam/depdive/schema"
)

// PhantomLine is one fingerprint the repository history cannot explain.
// This struct maps to the depdive_phantom_line database table.
type PhantomLine struct {
	// UpdateID references the analyzed package update (0 for ad hoc runs)
	UpdateID int64 `parquet:"update_id,snappy"`

	// FilePath is the registry path of the file holding the line
	FilePath string `parquet:"file_path,snappy"`

	// Line is the fingerprinted line content
	Line string `parquet:"line,snappy"`

	// Additions and Deletions are the registry minus repository counts
	Additions int32 `parquet:"additions,snappy"`
	Deletions int32 `parquet:"deletions,snappy"`

	// RecordedAt is when the analysis result was stored (TIMESTAMP with nanosecond precision)
	RecordedAt time.Time `parquet:"recorded_at,snappy"`
}

// LineAttribution ties one published line to the commit that produced or removed it.
// This struct maps to the depdive_line_attribution database table.
type LineAttribution struct {
	UpdateID  int64  `parquet:"update_id,snappy"`
	FilePath  string `parquet:"file_path,snappy"`
	CommitSHA string `parquet:"commit_sha,snappy"`

	// Change is "added" or "removed"
	Change string `parquet:"change,snappy,dict"`
	Line   string `parquet:"line,snappy"`

	// Category is the review category of the commit (nullable when review was skipped)
	Category *string `parquet:"category,optional,snappy,dict"`

	RecordedAt time.Time `parquet:"recorded_at,snappy"`
}

// WritePhantomLinesParquet writes a slice of PhantomLine structs to a Parquet file.
func WritePhantomLinesParquet(data []PhantomLine, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteLineAttributionsParquet writes a slice of LineAttribution structs to a Parquet file.
func WriteLineAttributionsParquet(data []LineAttribution, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using struct schema inference from the row type's tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertPhantomLineRecords converts schema.PhantomLineRecord to PhantomLine for Parquet export.
func ConvertPhantomLineRecords(records []schema.PhantomLineRecord) []PhantomLine {
	result := make([]PhantomLine, len(records))
	for i, r := range records {
		result[i] = PhantomLine{
			UpdateID:   r.UpdateID,
			FilePath:   r.FilePath,
			Line:       r.Line,
			Additions:  r.Additions,
			Deletions:  r.Deletions,
			RecordedAt: r.RecordedAt,
		}
	}
	return result
}

// ConvertLineAttributionRecords converts schema.LineAttributionRecord to LineAttribution for Parquet export.
func ConvertLineAttributionRecords(records []schema.LineAttributionRecord) []LineAttribution {
	result := make([]LineAttribution, len(records))
	for i, r := range records {
		result[i] = LineAttribution{
			UpdateID:   r.UpdateID,
			FilePath:   r.FilePath,
			CommitSHA:  r.CommitSHA,
			Change:     r.Change,
			Line:       r.Line,
			RecordedAt: r.RecordedAt,
		}
		if r.Category != "" {
			category := r.Category
			result[i].Category = &category
		}
	}
	return result
}

// ExportFiles returns the two output paths used for an export prefix.
func ExportFiles(prefix string) (phantomLines, attributions string) {
	return prefix + ".phantom_lines.parquet", prefix + ".attributions.parquet"
}

// WriteRecords writes phantom lines and attributions next to each other under prefix.
func WriteRecords(prefix string, lines []schema.PhantomLineRecord, attrs []schema.LineAttributionRecord) (string, string, error) {
	linesFile, attrsFile := ExportFiles(prefix)
	if err := WritePhantomLinesParquet(ConvertPhantomLineRecords(lines), linesFile); err != nil {
		return "", "", fmt.Errorf("failed to write phantom lines: %w", err)
	}
	if err := WriteLineAttributionsParquet(ConvertLineAttributionRecords(attrs), attrsFile); err != nil {
		return "", "", fmt.Errorf("failed to write line attributions: %w", err)
	}
	return linesFile, attrsFile, nil
}
