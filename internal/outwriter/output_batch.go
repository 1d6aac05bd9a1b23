package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// Batch outcome statuses.
const (
	statusDone    = "done"
	statusFailed  = "failed"
	statusPending = "pending"
)

func outcomeStatus(o schema.BatchOutcome) string {
	switch {
	case o.Skipped:
		return statusPending
	case o.Failed():
		return statusFailed
	default:
		return statusDone
	}
}

// WriteBatch writes the outcome of a batch run, dispatching based on the output format configured.
func WriteBatch(w io.Writer, outcomes []schema.BatchOutcome, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		type jsonOutcome struct {
			Update schema.PackageUpdate   `json:"update"`
			Status string                 `json:"status"`
			Error  string                 `json:"error,omitempty"`
			Stats  *schema.Stats          `json:"stats,omitempty"`
			Report *schema.AnalysisReport `json:"report,omitempty"`
		}
		output := make([]jsonOutcome, len(outcomes))
		for i, o := range outcomes {
			output[i] = jsonOutcome{Update: o.Update, Status: outcomeStatus(o)}
			if o.Err != nil {
				output[i].Error = o.Err.Error()
			}
			if o.Report != nil && !o.Failed() {
				stats := o.Report.Stats
				output[i].Stats = &stats
				if cfg.Detail {
					output[i].Report = o.Report
				}
			}
		}
		if err := writeJSON(w, output); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		header := []string{"id", "ecosystem", "package", "old_version", "new_version", "status", "phantom_files", "phantom_lines", "reviewed_commits", "non_reviewed_commits", "error"}
		if err := writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
			for _, o := range outcomes {
				var s schema.Stats
				if o.Report != nil {
					s = o.Report.Stats
				}
				errText := ""
				if o.Err != nil {
					errText = o.Err.Error()
				}
				rec := []string{
					strconv.FormatInt(o.Update.ID, 10), string(o.Update.Ecosystem), o.Update.Package,
					o.Update.OldVersion, o.Update.NewVersion, outcomeStatus(o),
					strconv.Itoa(s.PhantomFileCount), strconv.Itoa(s.PhantomLineCount),
					strconv.Itoa(s.ReviewedCommits), strconv.Itoa(s.NonReviewedCommits), errText,
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeBatchTable(w, outcomes, cfg, duration)
	}
	return nil
}

// writeBatchTable generates and writes the human-readable batch summary.
func writeBatchTable(w io.Writer, outcomes []schema.BatchOutcome, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	headers := []string{"ID", "Package", "Versions", "Status", "Phantom Files", "Phantom Lines", "Reviewed", "Unreviewed"}
	if cfg.Detail {
		headers = append(headers, "Reason")
	}
	table.Header(headers)
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	pkgWidth := getMaxTablePathWidth(cfg, 70)
	counts := map[string]int{}
	var data [][]string
	for _, o := range outcomes {
		status := outcomeStatus(o)
		counts[status]++

		var s schema.Stats
		if o.Report != nil {
			s = o.Report.Stats
		}
		row := []string{
			strconv.FormatInt(o.Update.ID, 10),
			contract.TruncatePath(string(o.Update.Ecosystem)+"/"+o.Update.Package, pkgWidth),
			o.Update.OldVersion + ".." + o.Update.NewVersion,
			status,
			strconv.Itoa(s.PhantomFileCount),
			strconv.Itoa(s.PhantomLineCount),
			strconv.Itoa(s.ReviewedCommits),
			strconv.Itoa(s.NonReviewedCommits),
		}
		if cfg.Detail {
			reason := ""
			if o.Err != nil {
				reason = schema.FailureReason(o.Err)
			}
			row = append(row, reason)
		}
		data = append(data, row)
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Processed %d updates (%d done, %d failed, %d left pending) in %v with %d workers\n",
		len(outcomes), counts[statusDone], counts[statusFailed], counts[statusPending], duration, cfg.Workers)
	return err
}
