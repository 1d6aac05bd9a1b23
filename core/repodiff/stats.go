package repodiff

import "github.com/huangsam/depdive/schema"

// Stats counts commits in range and the lines of the single diff.
func (s *Snapshot) Stats() schema.RepositoryStats {
	st := schema.RepositoryStats{Commits: len(s.Commits), Files: len(s.SingleDiff)}
	for _, rec := range s.SingleDiff {
		for _, d := range rec.ChangedLines {
			st.Additions += d.Additions
			st.Deletions += d.Deletions
		}
	}
	st.Lines = st.Additions + st.Deletions
	return st
}
