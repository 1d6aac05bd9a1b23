package schema

import (
	"sort"
	"time"
)

// PackageUpdate is one row of the depdive_package_update table.
type PackageUpdate struct {
	ID            int64     `json:"id"`
	Ecosystem     Ecosystem `json:"ecosystem"`
	Package       string    `json:"package"`
	RepositoryURL string    `json:"repository_url"`
	Directory     string    `json:"directory"`
	OldVersion    string    `json:"old_version"`
	NewVersion    string    `json:"new_version"`
}

// Request converts the row into an analysis request.
func (u PackageUpdate) Request() AnalysisRequest {
	return AnalysisRequest{
		Ecosystem:     u.Ecosystem,
		Package:       u.Package,
		OldVersion:    u.OldVersion,
		NewVersion:    u.NewVersion,
		RepositoryURL: u.RepositoryURL,
		Directory:     u.Directory,
	}
}

// PhantomLineRecord is one row of the depdive_phantom_line table.
type PhantomLineRecord struct {
	UpdateID   int64
	FilePath   string
	Line       string
	Additions  int32
	Deletions  int32
	RecordedAt time.Time
}

// LineAttributionRecord is one row of the depdive_line_attribution table.
type LineAttributionRecord struct {
	UpdateID   int64
	FilePath   string
	CommitSHA  string
	Change     string // "added" or "removed"
	Line       string
	Category   string
	RecordedAt time.Time
}

// Line attribution change kinds.
const (
	ChangeAdded   = "added"
	ChangeRemoved = "removed"
)

// BatchOutcome is the result of analyzing one pending update in batch mode.
type BatchOutcome struct {
	Update  PackageUpdate
	Report  *AnalysisReport
	Err     error
	Skipped bool // left pending for a later batch
}

// Failed reports whether the analysis ended in an error.
func (o BatchOutcome) Failed() bool {
	return o.Err != nil
}

// PhantomLineRecords flattens the phantom lines of a report into store rows, sorted by path and line.
func (r *AnalysisReport) PhantomLineRecords(updateID int64, at time.Time) []PhantomLineRecord {
	var out []PhantomLineRecord
	for _, path := range SortedKeys(r.Phantom.Lines) {
		ledger := r.Phantom.Lines[path]
		for _, line := range SortedKeys(ledger) {
			d := ledger[line]
			out = append(out, PhantomLineRecord{
				UpdateID:   updateID,
				FilePath:   path,
				Line:       line,
				Additions:  int32(d.Additions),
				Deletions:  int32(d.Deletions),
				RecordedAt: at,
			})
		}
	}
	return out
}

// LineAttributionRecords flattens the added and removed attribution of a report into store rows.
// Each row carries the review category of its commit, or "" when the commit was not classified.
func (r *AnalysisReport) LineAttributionRecords(updateID int64, at time.Time) []LineAttributionRecord {
	var out []LineAttributionRecord
	add := func(attr LineAttribution, change string) {
		for _, path := range SortedKeys(attr) {
			byCommit := attr[path]
			for _, commit := range SortedKeys(byCommit) {
				category := ""
				if v, ok := r.CommitReview[commit]; ok {
					category = string(v.Category)
				}
				for _, line := range byCommit[commit] {
					out = append(out, LineAttributionRecord{
						UpdateID:   updateID,
						FilePath:   path,
						CommitSHA:  commit,
						Change:     change,
						Line:       line,
						Category:   category,
						RecordedAt: at,
					})
				}
			}
		}
	}
	add(r.AddedLOC, ChangeAdded)
	add(r.RemovedLOC, ChangeRemoved)
	return out
}

// SortedVerdicts returns the verdicts of a report ordered by commit.
func (r *AnalysisReport) SortedVerdicts() []CommitReviewVerdict {
	out := make([]CommitReviewVerdict, 0, len(r.CommitReview))
	for _, v := range r.CommitReview {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Commit < out[j].Commit })
	return out
}
