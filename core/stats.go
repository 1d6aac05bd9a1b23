package core

import "github.com/huangsam/depdive/schema"

// ComputeStats aggregates the counts of a report. Lines are counted toward the verdict of the
// commit they are attributed to; lines of commits without a verdict are not counted.
func ComputeStats(report *schema.AnalysisReport) schema.Stats {
	var s schema.Stats
	countLines := func(attr schema.LineAttribution) {
		for _, byCommit := range attr {
			for commit, lines := range byCommit {
				v, ok := report.CommitReview[commit]
				if !ok {
					continue
				}
				if v.Category.Reviewed() {
					s.ReviewedLines += len(lines)
				} else {
					s.NonReviewedLines += len(lines)
				}
			}
		}
	}
	countLines(report.AddedLOC)
	countLines(report.RemovedLOC)

	for _, v := range report.CommitReview {
		if v.Category.Reviewed() {
			s.ReviewedCommits++
		} else {
			s.NonReviewedCommits++
		}
	}

	s.PhantomFileCount = len(report.Phantom.Files)
	for _, ledger := range report.Phantom.Lines {
		if len(ledger) > 0 {
			s.FilesWithPhantomLines++
		}
		s.PhantomLineCount += len(ledger)
	}
	return s
}
