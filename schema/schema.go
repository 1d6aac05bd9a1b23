// Package schema has the data model, errors and constants shared by all parts of depdive.
package schema

import "sort"

// FileDiff is one file of a registry diff between two published versions.
// A nil SourcePath marks a file new in the later version and a nil TargetPath marks a deletion.
type FileDiff struct {
	SourcePath   *string  `json:"source_path,omitempty"`
	TargetPath   *string  `json:"target_path,omitempty"`
	IsRename     bool     `json:"is_rename"`
	AddedLines   []string `json:"added_lines"`
	RemovedLines []string `json:"removed_lines"`
}

// Ledger fingerprints and counts the added and removed lines.
func (d *FileDiff) Ledger() LineLedger {
	return CountLines(d.AddedLines, d.RemovedLines)
}

// RegistryDiff is the registry side of an analysis: what was published between two versions.
type RegistryDiff struct {
	Ecosystem   Ecosystem            `json:"ecosystem"`
	Package     string               `json:"package"`
	OldVersion  string               `json:"old_version"`
	NewVersion  string               `json:"new_version"`
	Files       map[string]*FileDiff `json:"files"`
	Removed     map[string]*FileDiff `json:"removed"`
	NewFileList []string             `json:"new_file_list"`
}

// Paths returns the keys of Files in sorted order.
func (r *RegistryDiff) Paths() []string {
	return SortedKeys(r.Files)
}

// FileChangeRecord is the effect of one commit, or of one direct diff, on one file.
type FileChangeRecord struct {
	SourcePath   *string    `json:"source_path,omitempty"`
	TargetPath   *string    `json:"target_path,omitempty"`
	IsRename     bool       `json:"is_rename"`
	ChangedLines LineLedger `json:"changed_lines"`
}

// NewFileChangeRecord returns an empty record for the given endpoints.
func NewFileChangeRecord(source, target *string) *FileChangeRecord {
	return &FileChangeRecord{SourcePath: source, TargetPath: target, ChangedLines: LineLedger{}}
}

// Path is the patched path: the target, or the source for a deletion.
func (r *FileChangeRecord) Path() string {
	if r.TargetPath != nil {
		return *r.TargetPath
	}
	if r.SourcePath != nil {
		return *r.SourcePath
	}
	return ""
}

// FileHistoryRecord folds every commit touching a file across a commit range.
type FileHistoryRecord struct {
	Path           string                          `json:"path"`
	IsRename       bool                            `json:"is_rename"`
	PreviousName   string                          `json:"previous_name,omitempty"`
	Commits        map[string]struct{}             `json:"commits"`
	ReverseCommits map[string]struct{}             `json:"reverse_commits"`
	ChangedLines   map[string]map[string]LineDelta `json:"changed_lines"`
}

// NewFileHistoryRecord returns an empty history for path.
func NewFileHistoryRecord(path string) *FileHistoryRecord {
	return &FileHistoryRecord{
		Path:           path,
		Commits:        map[string]struct{}{},
		ReverseCommits: map[string]struct{}{},
		ChangedLines:   map[string]map[string]LineDelta{},
	}
}

// Absorb folds one commit's change into the history.
func (h *FileHistoryRecord) Absorb(commit string, change *FileChangeRecord, reverse bool) {
	h.Commits[commit] = struct{}{}
	if reverse {
		h.ReverseCommits[commit] = struct{}{}
	}
	if change.IsRename && change.SourcePath != nil {
		h.IsRename = true
		h.PreviousName = *change.SourcePath
	}
	for fp, d := range change.ChangedLines {
		byCommit, ok := h.ChangedLines[fp]
		if !ok {
			byCommit = map[string]LineDelta{}
			h.ChangedLines[fp] = byCommit
		}
		byCommit[commit] = byCommit[commit].Add(d)
	}
}

// Merge copies commits and line deltas from other that h does not already hold.
// Entries already present in h win, so merging the same history twice is a no-op.
func (h *FileHistoryRecord) Merge(other *FileHistoryRecord) {
	if other == nil || other == h {
		return
	}
	for c := range other.Commits {
		h.Commits[c] = struct{}{}
	}
	for c := range other.ReverseCommits {
		h.ReverseCommits[c] = struct{}{}
	}
	for fp, byCommit := range other.ChangedLines {
		mine, ok := h.ChangedLines[fp]
		if !ok {
			mine = map[string]LineDelta{}
			h.ChangedLines[fp] = mine
		}
		for c, d := range byCommit {
			if _, seen := mine[c]; !seen {
				mine[c] = d
			}
		}
	}
}

// HasCommit reports whether commit touched the file in range.
func (h *FileHistoryRecord) HasCommit(commit string) bool {
	_, ok := h.Commits[commit]
	return ok
}

// Aggregate sums the per-commit deltas of every fingerprint.
func (h *FileHistoryRecord) Aggregate() LineLedger {
	out := LineLedger{}
	for fp, byCommit := range h.ChangedLines {
		var total LineDelta
		for _, d := range byCommit {
			total = total.Add(d)
		}
		out[fp] = total
	}
	return out
}

// PhantomSet is the registry content the repository cannot explain.
type PhantomSet struct {
	Files                  []string              `json:"phantom_files"`
	RemovedFilesInRegistry map[string]*FileDiff  `json:"removed_files_in_registry"`
	Lines                  map[string]LineLedger `json:"phantom_lines"`
}

// NewPhantomSet returns an empty phantom set.
func NewPhantomSet() PhantomSet {
	return PhantomSet{
		Files:                  []string{},
		RemovedFilesInRegistry: map[string]*FileDiff{},
		Lines:                  map[string]LineLedger{},
	}
}

// LineCount is the number of phantom fingerprints across all files.
func (p PhantomSet) LineCount() int {
	n := 0
	for _, ledger := range p.Lines {
		n += len(ledger)
	}
	return n
}

// Empty reports whether neither phantom files nor phantom lines were found.
func (p PhantomSet) Empty() bool {
	return len(p.Files) == 0 && p.LineCount() == 0
}

// ReviewRequest identifies the commit to classify.
type ReviewRequest struct {
	RepositoryURL string `json:"repository_url"`
	Commit        string `json:"commit"`
}

// ReviewMetadata records the evidence behind a verdict. Only the fields relevant
// to the verdict's category are set.
type ReviewMetadata struct {
	PullRequest int      `json:"pull_request,omitempty"`
	Reviews     int      `json:"reviews,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	Author      string   `json:"author,omitempty"`
	Merger      string   `json:"merger,omitempty"`
	Committer   string   `json:"committer,omitempty"`
}

// CommitReviewVerdict is the review category of one commit.
type CommitReviewVerdict struct {
	Commit   string         `json:"commit"`
	Category ReviewCategory `json:"category"`
	Metadata ReviewMetadata `json:"metadata"`
}

// LineAttribution maps a registry path to the commits that produced its lines.
type LineAttribution map[string]map[string][]string

// Add appends lines attributed to commit for path.
func (a LineAttribution) Add(path, commit string, lines ...string) {
	if len(lines) == 0 {
		return
	}
	byCommit, ok := a[path]
	if !ok {
		byCommit = map[string][]string{}
		a[path] = byCommit
	}
	byCommit[commit] = append(byCommit[commit], lines...)
}

// Commits returns every commit in the attribution, sorted.
func (a LineAttribution) Commits() []string {
	seen := map[string]struct{}{}
	for _, byCommit := range a {
		for c := range byCommit {
			seen[c] = struct{}{}
		}
	}
	return SortedKeys(seen)
}

// LineCount is the number of attributed lines for path.
func (a LineAttribution) LineCount(path string) int {
	n := 0
	for _, lines := range a[path] {
		n += len(lines)
	}
	return n
}

// Stats are the aggregate counts of one analysis.
type Stats struct {
	ReviewedLines         int `json:"reviewed_lines"`
	NonReviewedLines      int `json:"non_reviewed_lines"`
	ReviewedCommits       int `json:"reviewed_commits"`
	NonReviewedCommits    int `json:"non_reviewed_commits"`
	PhantomFileCount      int `json:"phantom_file_count"`
	FilesWithPhantomLines int `json:"files_with_phantom_lines"`
	PhantomLineCount      int `json:"phantom_line_count"`
}

// RepositoryStats summarize the direct repository diff between the two boundaries.
type RepositoryStats struct {
	Commits   int `json:"commits"`
	Files     int `json:"files"`
	Lines     int `json:"lines"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// AnalysisRequest names the package update to analyze.
type AnalysisRequest struct {
	Ecosystem     Ecosystem `json:"ecosystem"`
	Package       string    `json:"package"`
	OldVersion    string    `json:"old_version"`
	NewVersion    string    `json:"new_version"`
	RepositoryURL string    `json:"repository_url,omitempty"`
	Directory     string    `json:"directory,omitempty"`
	OldCommit     string    `json:"old_commit,omitempty"`
	NewCommit     string    `json:"new_commit,omitempty"`
}

// AnalysisReport is the full result of one analysis.
type AnalysisReport struct {
	Ecosystem      Ecosystem                      `json:"ecosystem"`
	Package        string                         `json:"package"`
	OldVersion     string                         `json:"old_version"`
	NewVersion     string                         `json:"new_version"`
	RepositoryURL  string                         `json:"repository_url"`
	Directory      string                         `json:"directory"`
	OldCommit      string                         `json:"old_commit"`
	NewCommit      string                         `json:"new_commit"`
	CommonAncestor string                         `json:"common_ancestor"`
	AddedLOC       LineAttribution                `json:"added_loc_to_commit"`
	RemovedLOC     LineAttribution                `json:"removed_loc_to_commit"`
	CommitReview   map[string]CommitReviewVerdict `json:"commit_review"`
	Phantom        PhantomSet                     `json:"phantom"`
	Stats          Stats                          `json:"stats"`
	RepoStats      RepositoryStats                `json:"repository_stats"`
}

// NewAnalysisReport returns an empty report for req.
func NewAnalysisReport(req AnalysisRequest) *AnalysisReport {
	return &AnalysisReport{
		Ecosystem:     req.Ecosystem,
		Package:       req.Package,
		OldVersion:    req.OldVersion,
		NewVersion:    req.NewVersion,
		RepositoryURL: req.RepositoryURL,
		Directory:     req.Directory,
		AddedLOC:      LineAttribution{},
		RemovedLOC:    LineAttribution{},
		CommitReview:  map[string]CommitReviewVerdict{},
		Phantom:       NewPhantomSet(),
	}
}

// SortedKeys returns the keys of a string-keyed map in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
