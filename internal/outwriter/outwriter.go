// Package outwriter has output and writer logic.
package outwriter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/parquet"
	"github.com/huangsam/depdive/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct {
	now func() time.Time
}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{now: time.Now}
}

// WriteReport prints a full analysis report using the configured output format.
func (ow *OutWriter) WriteReport(report *schema.AnalysisReport, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return ow.writeReportParquet(report, cfg)
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteReport(w, report, cfg, duration)
	}, "Wrote report")
}

// WritePhantom prints the phantom files and lines of a report using the configured output format.
func (ow *OutWriter) WritePhantom(report *schema.AnalysisReport, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return ow.writeReportParquet(report, cfg)
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WritePhantom(w, report, cfg, duration)
	}, "Wrote phantom report")
}

// WriteBatch prints the outcome of a batch run using the configured output format.
func (ow *OutWriter) WriteBatch(outcomes []schema.BatchOutcome, cfg *contract.Config, duration time.Duration) error {
	if cfg.Output == schema.ParquetOut {
		return errors.New("parquet output is not available for batch runs. Use 'depdive report export' instead")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteBatch(w, outcomes, cfg, duration)
	}, "Wrote batch summary")
}

// writeReportParquet writes the phantom lines and attributions of one report as Parquet files.
func (ow *OutWriter) writeReportParquet(report *schema.AnalysisReport, cfg *contract.Config) error {
	if cfg.OutputFile == "" {
		return errors.New("--output-file is required for parquet output")
	}
	at := ow.now()
	linesFile, attrsFile, err := parquet.WriteRecords(cfg.OutputFile,
		report.PhantomLineRecords(0, at), report.LineAttributionRecords(0, at))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s and %s\n", linesFile, attrsFile)
	return nil
}

// LogAnalysisHeader prints a concise, 2-line header for an analysis.
func LogAnalysisHeader(w io.Writer, req schema.AnalysisRequest, useEmojis bool) {
	repo := req.RepositoryURL
	if repo == "" {
		repo = "(from registry)"
	}
	if useEmojis {
		_, _ = fmt.Fprintf(w, "🔎 Package: %s/%s (Repo: %s)\n", req.Ecosystem, req.Package, repo)
		_, _ = fmt.Fprintf(w, "📦 Versions: %s → %s\n", req.OldVersion, req.NewVersion)
		return
	}
	_, _ = fmt.Fprintf(w, "Package: %s/%s (Repo: %s)\n", req.Ecosystem, req.Package, repo)
	_, _ = fmt.Fprintf(w, "Versions: %s -> %s\n", req.OldVersion, req.NewVersion)
}

// getMaxTablePathWidth calculates the maximum width for file paths in table output
// based on terminal width and the columns printed next to the path.
func getMaxTablePathWidth(cfg *contract.Config, fixedColumns int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve generous space for table borders, separators, and padding
	available := termWidth - fixedColumns - 20
	if available < 15 {
		// Minimum reasonable path width
		return 15
	}
	if available > 70 {
		// Maximum path width to prevent overly long paths
		return 70
	}
	return available
}
