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

// Record kinds used by the CSV output.
const (
	kindPhantomFile = "phantom_file"
	kindPhantomLine = "phantom_line"
	kindAttribution = "attribution"
)

// reportCSVHeader is shared by the full and phantom-only CSV outputs.
var reportCSVHeader = []string{"kind", "file", "commit", "change", "line", "additions", "deletions", "category", "label"}

// WriteReport writes a full analysis report, dispatching based on the output format configured.
func WriteReport(w io.Writer, report *schema.AnalysisReport, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeJSON(w, report); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVWithHeader(w, reportCSVHeader, func(cw *csv.Writer) error {
			if err := writePhantomCSVRows(cw, report); err != nil {
				return err
			}
			return writeAttributionCSVRows(cw, report)
		}); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeReportTable(w, report, cfg, duration)
	}
	return nil
}

// WritePhantom writes only the phantom part of a report.
func WritePhantom(w io.Writer, report *schema.AnalysisReport, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		type phantomOutput struct {
			Ecosystem     schema.Ecosystem       `json:"ecosystem"`
			Package       string                 `json:"package"`
			OldVersion    string                 `json:"old_version"`
			NewVersion    string                 `json:"new_version"`
			RepositoryURL string                 `json:"repository_url"`
			Directory     string                 `json:"directory"`
			OldCommit     string                 `json:"old_commit"`
			NewCommit     string                 `json:"new_commit"`
			Phantom       schema.PhantomSet      `json:"phantom"`
			Stats         schema.Stats           `json:"stats"`
			RepoStats     schema.RepositoryStats `json:"repository_stats"`
		}
		if err := writeJSON(w, phantomOutput{
			Ecosystem:     report.Ecosystem,
			Package:       report.Package,
			OldVersion:    report.OldVersion,
			NewVersion:    report.NewVersion,
			RepositoryURL: report.RepositoryURL,
			Directory:     report.Directory,
			OldCommit:     report.OldCommit,
			NewCommit:     report.NewCommit,
			Phantom:       report.Phantom,
			Stats:         report.Stats,
			RepoStats:     report.RepoStats,
		}); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeCSVWithHeader(w, reportCSVHeader, func(cw *csv.Writer) error {
			return writePhantomCSVRows(cw, report)
		}); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		if err := writeSummary(w, report); err != nil {
			return err
		}
		if err := writePhantomTables(w, report, cfg); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "Phantom files: %d, phantom lines: %d in %d files. Completed in %v\n",
			report.Stats.PhantomFileCount, report.Stats.PhantomLineCount, report.Stats.FilesWithPhantomLines, duration)
		return err
	}
	return nil
}

// writeReportTable generates and writes the human-readable report.
func writeReportTable(w io.Writer, report *schema.AnalysisReport, cfg *contract.Config, duration time.Duration) error {
	if err := writeSummary(w, report); err != nil {
		return err
	}
	if err := writePhantomTables(w, report, cfg); err != nil {
		return err
	}
	if err := writeCommitTable(w, report, cfg); err != nil {
		return err
	}
	if cfg.Detail {
		if err := writeAttributionTable(w, report, cfg); err != nil {
			return err
		}
	}

	s := report.Stats
	if _, err := fmt.Fprintf(w, "Reviewed lines: %d, non-reviewed lines: %d (commits: %d reviewed, %d non-reviewed)\n",
		s.ReviewedLines, s.NonReviewedLines, s.ReviewedCommits, s.NonReviewedCommits); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Phantom files: %d, phantom lines: %d in %d files\n",
		s.PhantomFileCount, s.PhantomLineCount, s.FilesWithPhantomLines); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Analysis completed in %v. Cache backend: %s\n", duration, cfg.CacheBackend)
	return err
}

// writeSummary prints where the analyzed range starts and ends and how large its diff is.
func writeSummary(w io.Writer, report *schema.AnalysisReport) error {
	dir := report.Directory
	if dir == "" {
		dir = "."
	}
	lines := []string{
		fmt.Sprintf("Package:    %s/%s %s..%s", report.Ecosystem, report.Package, report.OldVersion, report.NewVersion),
		fmt.Sprintf("Repository: %s (directory: %s)", report.RepositoryURL, dir),
		fmt.Sprintf("Commits:    %s..%s (ancestor: %s)", contract.ShortHash(report.OldCommit),
			contract.ShortHash(report.NewCommit), contract.ShortHash(report.CommonAncestor)),
		fmt.Sprintf("Diff:       %d commits, %d files, +%d -%d lines", report.RepoStats.Commits,
			report.RepoStats.Files, report.RepoStats.Additions, report.RepoStats.Deletions),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// writePhantomTables prints phantom files and phantom lines, skipping empty sections.
func writePhantomTables(w io.Writer, report *schema.AnalysisReport, cfg *contract.Config) error {
	pathWidth := getMaxTablePathWidth(cfg, 15)

	if len(report.Phantom.Files) > 0 {
		if err := sectionTitle(w, cfg, "👻", "Phantom files"); err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header([]string{"#", "Path", "Label"})
		var data [][]string
		for i, path := range report.Phantom.Files {
			data = append(data, []string{strconv.Itoa(i + 1), contract.TruncatePath(path, pathWidth), phantomLabel(cfg)})
		}
		if err := renderTable(table, data); err != nil {
			return err
		}
	}

	if report.Phantom.LineCount() > 0 {
		if err := sectionTitle(w, cfg, "🧩", "Phantom lines"); err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Path", "Line", "Added", "Removed"})
		table.Configure(func(c *tablewriter.Config) {
			c.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight}
		})
		var data [][]string
		for _, path := range schema.SortedKeys(report.Phantom.Lines) {
			ledger := report.Phantom.Lines[path]
			for _, line := range schema.SortedKeys(ledger) {
				d := ledger[line]
				data = append(data, []string{
					contract.TruncatePath(path, pathWidth),
					truncateLine(line, pathWidth),
					strconv.Itoa(d.Additions),
					strconv.Itoa(d.Deletions),
				})
			}
		}
		if err := renderTable(table, data); err != nil {
			return err
		}
	}
	return nil
}

// writeCommitTable prints one row per attributed commit with its review verdict.
func writeCommitTable(w io.Writer, report *schema.AnalysisReport, cfg *contract.Config) error {
	added := commitLineCounts(report.AddedLOC)
	removed := commitLineCounts(report.RemovedLOC)
	commits := mergeKeys(added, removed)
	if len(commits) == 0 {
		return nil
	}

	if err := sectionTitle(w, cfg, "🔍", "Commits"); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	headers := []string{"Commit", "Added", "Removed", "Category", "Label"}
	if cfg.Detail {
		headers = append(headers, "PR", "Author", "Merger")
	}
	table.Header(headers)
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, commit := range commits {
		category, label := "-", "-"
		verdict, classified := report.CommitReview[commit]
		if classified {
			category = string(verdict.Category)
			label = reviewLabel(verdict.Category, cfg)
		}
		row := []string{
			contract.ShortHash(commit),
			strconv.Itoa(added[commit]),
			strconv.Itoa(removed[commit]),
			category,
			label,
		}
		if cfg.Detail {
			pr := ""
			if verdict.Metadata.PullRequest > 0 {
				pr = "#" + strconv.Itoa(verdict.Metadata.PullRequest)
			}
			row = append(row, pr, verdict.Metadata.Author, verdict.Metadata.Merger)
		}
		data = append(data, row)
	}
	return renderTable(table, data)
}

// writeAttributionTable prints how many lines of each file each commit explains.
func writeAttributionTable(w io.Writer, report *schema.AnalysisReport, cfg *contract.Config) error {
	paths := mergeKeys(report.AddedLOC, report.RemovedLOC)
	if len(paths) == 0 {
		return nil
	}
	if err := sectionTitle(w, cfg, "🧾", "Attribution"); err != nil {
		return err
	}
	pathWidth := getMaxTablePathWidth(cfg, 40)
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Path", "Commit", "Added", "Removed"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight}
	})

	var data [][]string
	for _, path := range paths {
		for _, commit := range mergeKeys(report.AddedLOC[path], report.RemovedLOC[path]) {
			data = append(data, []string{
				contract.TruncatePath(path, pathWidth),
				contract.ShortHash(commit),
				strconv.Itoa(len(report.AddedLOC[path][commit])),
				strconv.Itoa(len(report.RemovedLOC[path][commit])),
			})
		}
	}
	return renderTable(table, data)
}

func renderTable(table *tablewriter.Table, data [][]string) error {
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writePhantomCSVRows writes phantom files and phantom lines as CSV records.
func writePhantomCSVRows(cw *csv.Writer, report *schema.AnalysisReport) error {
	for _, path := range report.Phantom.Files {
		if err := cw.Write([]string{kindPhantomFile, path, "", "", "", "", "", "", contract.PhantomValue}); err != nil {
			return err
		}
	}
	for _, r := range report.PhantomLineRecords(0, time.Time{}) {
		rec := []string{
			kindPhantomLine, r.FilePath, "", "", r.Line,
			strconv.Itoa(int(r.Additions)), strconv.Itoa(int(r.Deletions)), "", contract.PhantomValue,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// writeAttributionCSVRows writes one record per attributed line.
func writeAttributionCSVRows(cw *csv.Writer, report *schema.AnalysisReport) error {
	for _, r := range report.LineAttributionRecords(0, time.Time{}) {
		label := ""
		if r.Category != "" {
			label = contract.GetPlainLabel(schema.ReviewCategory(r.Category))
		}
		rec := []string{kindAttribution, r.FilePath, r.CommitSHA, r.Change, r.Line, "", "", r.Category, label}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// commitLineCounts sums the attributed lines of every commit across files.
func commitLineCounts(attr schema.LineAttribution) map[string]int {
	counts := map[string]int{}
	for _, byCommit := range attr {
		for commit, lines := range byCommit {
			counts[commit] += len(lines)
		}
	}
	return counts
}

// mergeKeys returns the sorted union of the keys of a and b.
func mergeKeys[A, B any](a map[string]A, b map[string]B) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	return schema.SortedKeys(seen)
}

// truncateLine shortens a line of code for table display.
func truncateLine(line string, maxWidth int) string {
	runes := []rune(line)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return line
}
