package reconcile

import (
	"github.com/huangsam/depdive/schema"
)

// correctMoves discounts phantom lines that another file of the direct old..new diff gained
// or lost by exactly the same amount. Such lines moved across files in the repository and
// were published under a different file. Each repository entry explains one phantom at most.
func correctMoves(res *Result) {
	type key struct{ file, fp string }
	used := map[key]struct{}{}

	for _, f := range schema.SortedKeys(res.Phantom.Lines) {
		ledger := res.Phantom.Lines[f]
		own := res.RepoPath(f)
		for _, fp := range schema.SortedKeys(ledger) {
			want := ledger[fp].Delta()
			if want == 0 {
				continue
			}
			for _, other := range schema.SortedKeys(res.Snapshot.SingleDiff) {
				if other == own {
					continue
				}
				k := key{other, fp}
				if _, taken := used[k]; taken {
					continue
				}
				d, ok := res.Snapshot.SingleDiff[other].ChangedLines[fp]
				if ok && d.Delta() == want {
					used[k] = struct{}{}
					delete(ledger, fp)
					break
				}
			}
		}
		if len(ledger) == 0 {
			delete(res.Phantom.Lines, f)
		}
	}
}
