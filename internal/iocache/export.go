package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/parquet"
)

// ExecuteReportExport exports stored phantom lines and attributions to Parquet files
// named after outputFile.
func ExecuteReportExport(w io.Writer, outputFile string) error {
	return exportReports(w, Manager.GetReportStore(), outputFile)
}

func exportReports(w io.Writer, store contract.ReportStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("report store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get report status: %w", err)
	}
	if status.TotalUpdates == 0 {
		return errors.New("no report data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total package updates: %d\n", status.TotalUpdates)

	lines, err := store.GetAllPhantomLines()
	if err != nil {
		return fmt.Errorf("failed to retrieve phantom lines: %w", err)
	}
	attrs, err := store.GetAllLineAttributions()
	if err != nil {
		return fmt.Errorf("failed to retrieve line attributions: %w", err)
	}

	linesFile, attrsFile, err := parquet.WriteRecords(outputFile, lines, attrs)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Exported %d phantom lines to: %s\n", len(lines), linesFile)
	_, _ = fmt.Fprintf(w, "Exported %d line attributions to: %s\n", len(attrs), attrsFile)
	return nil
}
