package schema

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(` +`)

// Fingerprint is the canonical comparison key for a line of code.
// Runs of spaces collapse to one space and the result is trimmed.
// It is idempotent and never fails.
func Fingerprint(line string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
}

// LineDelta counts how often a fingerprint was added and removed.
type LineDelta struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// Add returns the component-wise sum.
func (d LineDelta) Add(o LineDelta) LineDelta {
	return LineDelta{Additions: d.Additions + o.Additions, Deletions: d.Deletions + o.Deletions}
}

// Sub returns the component-wise difference.
func (d LineDelta) Sub(o LineDelta) LineDelta {
	return LineDelta{Additions: d.Additions - o.Additions, Deletions: d.Deletions - o.Deletions}
}

// Delta is the net change, additions minus deletions.
func (d LineDelta) Delta() int { return d.Additions - d.Deletions }

// IsEmpty reports whether both counters are zero.
func (d LineDelta) IsEmpty() bool { return d.Additions == 0 && d.Deletions == 0 }

// LineLedger maps a fingerprint to its aggregated delta.
type LineLedger map[string]LineDelta

// Record adds one addition or deletion for the given raw line.
// Lines that are blank after trimming carry no signal and are skipped.
func (l LineLedger) Record(raw string, added bool) {
	fp := Fingerprint(raw)
	if fp == "" {
		return
	}
	d := l[fp]
	if added {
		d.Additions++
	} else {
		d.Deletions++
	}
	l[fp] = d
}

// TotalAdditions sums the additions of every entry.
func (l LineLedger) TotalAdditions() int {
	total := 0
	for _, d := range l {
		total += d.Additions
	}
	return total
}

// Clone returns an independent copy.
func (l LineLedger) Clone() LineLedger {
	out := make(LineLedger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// CountLines builds a ledger from raw added and removed lines.
func CountLines(added, removed []string) LineLedger {
	ledger := LineLedger{}
	for _, line := range added {
		ledger.Record(line, true)
	}
	for _, line := range removed {
		ledger.Record(line, false)
	}
	return ledger
}
