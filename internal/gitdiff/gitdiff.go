// Package gitdiff turns unified git diffs into per-file line ledgers.
package gitdiff

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/huangsam/depdive/schema"
)

const devNull = "/dev/null"

// Parse reads a multi-file git diff and returns one change record per patched path.
// Records are keyed by target path, or by source path for deletions.
func Parse(raw []byte) (map[string]*schema.FileChangeRecord, error) {
	out := map[string]*schema.FileChangeRecord{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}

	files, err := diff.NewMultiFileDiffReader(bytes.NewReader(raw)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	for _, fd := range files {
		source, target := endpoints(fd)
		if source == nil && target == nil {
			continue
		}
		rec := schema.NewFileChangeRecord(source, target)
		rec.IsRename = isRename(fd)
		for _, h := range fd.Hunks {
			absorbHunk(rec.ChangedLines, h.Body)
		}
		out[rec.Path()] = rec
	}
	return out, nil
}

// endpoints returns the source and target paths of a file diff with the a/ and b/ prefixes removed.
func endpoints(fd *diff.FileDiff) (*string, *string) {
	orig, updated := fd.OrigName, fd.NewName
	if orig == "" || updated == "" {
		// Mode-only changes carry their names in the "diff --git" line only.
		if a, b, ok := namesFromHeader(fd.Extended); ok {
			if orig == "" {
				orig = a
			}
			if updated == "" {
				updated = b
			}
		}
	}
	return stripPrefix(orig, "a/"), stripPrefix(updated, "b/")
}

func namesFromHeader(extended []string) (string, string, bool) {
	if len(extended) == 0 || !strings.HasPrefix(extended[0], "diff --git ") {
		return "", "", false
	}
	rest := strings.TrimPrefix(extended[0], "diff --git ")
	if strings.HasPrefix(rest, `"`) {
		if a, tail, ok := cutQuoted(rest); ok {
			b, _, ok := cutQuoted(strings.TrimSpace(tail))
			if !ok {
				b = strings.TrimSpace(tail)
			}
			return a, b, true
		}
	}
	idx := strings.Index(rest, " b/")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

func cutQuoted(s string) (string, string, bool) {
	q, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", "", false
	}
	unq, err := strconv.Unquote(q)
	if err != nil {
		return "", "", false
	}
	return unq, s[len(q):], true
}

func stripPrefix(name, prefix string) *string {
	if name == "" || name == devNull {
		return nil
	}
	if unq, err := strconv.Unquote(name); err == nil {
		name = unq
	}
	name = strings.TrimPrefix(name, prefix)
	return &name
}

func isRename(fd *diff.FileDiff) bool {
	for _, line := range fd.Extended {
		if strings.HasPrefix(line, "rename from ") {
			return true
		}
	}
	return false
}

// absorbHunk records the added and removed lines of one hunk body.
func absorbHunk(ledger schema.LineLedger, body []byte) {
	for line := range strings.SplitSeq(string(body), "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			ledger.Record(line[1:], true)
		case '-':
			ledger.Record(line[1:], false)
		}
	}
}
