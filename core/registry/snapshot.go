package registry

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// SnapshotDiffer diffs package versions that were already extracted on disk under
// <Root>/<ecosystem>/<package>/<version>/.
type SnapshotDiffer struct {
	Root string
}

var _ contract.VersionDiffer = &SnapshotDiffer{} // Compile-time check

// NewSnapshotDiffer returns a differ rooted at root.
func NewSnapshotDiffer(root string) *SnapshotDiffer {
	return &SnapshotDiffer{Root: root}
}

// VersionPath is where the extracted files of one version live.
func (d *SnapshotDiffer) VersionPath(eco schema.Ecosystem, pkg, version string) string {
	return filepath.Join(d.Root, string(eco), filepath.FromSlash(pkg), version)
}

// VersionDiff compares every file of the two versions line by line.
func (d *SnapshotDiffer) VersionDiff(
	ctx context.Context,
	eco schema.Ecosystem,
	pkg, oldVersion, newVersion string,
) (*schema.RegistryDiff, error) {
	oldDir := d.VersionPath(eco, pkg, oldVersion)
	newDir := d.VersionPath(eco, pkg, newVersion)
	oldFiles, err := listFiles(oldDir)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", pkg, oldVersion, schema.ErrVersionDiffer, err)
	}
	newFiles, err := listFiles(newDir)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", pkg, newVersion, schema.ErrVersionDiffer, err)
	}

	out := &schema.RegistryDiff{
		Ecosystem:   eco,
		Package:     pkg,
		OldVersion:  oldVersion,
		NewVersion:  newVersion,
		Files:       map[string]*schema.FileDiff{},
		Removed:     map[string]*schema.FileDiff{},
		NewFileList: schema.SortedKeys(newFiles),
	}

	all := map[string]struct{}{}
	for f := range oldFiles {
		all[f] = struct{}{}
	}
	for f := range newFiles {
		all[f] = struct{}{}
	}

	dmp := diffmatchpatch.New()
	for _, path := range schema.SortedKeys(all) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, inOld := oldFiles[path]
		_, inNew := newFiles[path]

		var before, after []byte
		if inOld {
			if before, err = os.ReadFile(filepath.Join(oldDir, filepath.FromSlash(path))); err != nil {
				return nil, fmt.Errorf("%s: %w: %w", path, schema.ErrVersionDiffer, err)
			}
		}
		if inNew {
			if after, err = os.ReadFile(filepath.Join(newDir, filepath.FromSlash(path))); err != nil {
				return nil, fmt.Errorf("%s: %w: %w", path, schema.ErrVersionDiffer, err)
			}
		}
		if inOld && inNew && bytes.Equal(before, after) {
			continue
		}

		fd := &schema.FileDiff{AddedLines: []string{}, RemovedLines: []string{}}
		if inOld {
			fd.SourcePath = &path
		}
		if inNew {
			fd.TargetPath = &path
		}
		if !isBinary(before) && !isBinary(after) {
			fd.AddedLines, fd.RemovedLines = diffLines(dmp, string(before), string(after))
		}
		out.Files[path] = fd
	}
	return out, nil
}

// diffLines returns the lines only in after and the lines only in before.
func diffLines(dmp *diffmatchpatch.DiffMatchPatch, before, after string) ([]string, []string) {
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	added, removed := []string{}, []string{}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added = append(added, splitText(d.Text)...)
		case diffmatchpatch.DiffDelete:
			removed = append(removed, splitText(d.Text)...)
		}
	}
	return added, removed
}

func splitText(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

// listFiles returns the slash-separated paths of every regular file under dir.
func listFiles(dir string) (map[string]struct{}, error) {
	files := map[string]struct{}{}
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0
}
