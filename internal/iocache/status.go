package iocache

import (
	"fmt"
	"io"

	"github.com/huangsam/depdive/schema"
)

// PrintCacheStatus prints review cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s\n", status.LastEntryTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s\n", status.OldestEntryTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintReportStatus prints report store status information.
func PrintReportStatus(w io.Writer, status schema.ReportStatus) {
	_, _ = fmt.Fprintf(w, "Report Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Package Updates: %d\n", status.TotalUpdates)
	_, _ = fmt.Fprintf(w, "Pending: %d\n", status.PendingUpdates)
	_, _ = fmt.Fprintf(w, "With Phantom Files: %d\n", status.WithPhantomFiles)
	_, _ = fmt.Fprintf(w, "With Phantom Lines: %d\n", status.WithPhantomLines)
	_, _ = fmt.Fprintf(w, "Failures: %d\n", status.Failures)
	if !status.LastRecordTime.IsZero() {
		_, _ = fmt.Fprintf(w, "Last Record: %s\n", status.LastRecordTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	for _, table := range schema.SortedKeys(status.TableSizes) {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
