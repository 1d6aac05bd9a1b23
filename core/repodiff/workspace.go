package repodiff

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/huangsam/depdive/internal/contract"
)

// Workspace is a working copy of a repository owned by one analysis.
// It always lives in a temporary directory that Close removes.
type Workspace struct {
	client contract.GitClient
	Path   string
	mu     sync.Mutex
}

// OpenWorkspace clones repoURL into a fresh directory under baseDir. A local repository
// is cloned as well, so its working tree and uncommitted edits are never touched and two
// analyses of the same checkout never share a working copy.
func OpenWorkspace(ctx context.Context, client contract.GitClient, repoURL, baseDir string) (*Workspace, error) {
	source := repoURL
	if info, err := os.Stat(repoURL); err == nil && info.IsDir() {
		root, err := client.GetRepoRoot(ctx, repoURL)
		if err != nil {
			return nil, fmt.Errorf("%s is not a git repository: %w", repoURL, err)
		}
		source = root
	}

	dir, err := os.MkdirTemp(baseDir, "depdive-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	dest := filepath.Join(dir, "repo")
	if err := client.Clone(ctx, source, dest); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	contract.Logger().WithField("repository", repoURL).Debug("cloned repository")
	return &Workspace{client: client, Path: dest}, nil
}

// Close releases the working copy.
func (w *Workspace) Close() error {
	return os.RemoveAll(filepath.Dir(w.Path))
}

// ReadLinesAt returns the lines of path as of ref. The working copy is checked out at ref
// for the read and restored afterwards, even when the read fails. A missing file yields
// an error matching fs.ErrNotExist.
func (w *Workspace) ReadLinesAt(ctx context.Context, ref, path string) (lines []string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	head, err := w.currentRef(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.client.Checkout(ctx, w.Path, ref); err != nil {
		return nil, err
	}
	defer func() {
		if restoreErr := w.client.Checkout(ctx, w.Path, head); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()

	content, err := os.ReadFile(filepath.Join(w.Path, filepath.FromSlash(path)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s at %s: %w", path, contract.ShortHash(ref), fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read %s at %s: %w", path, contract.ShortHash(ref), err)
	}
	return SplitLines(string(content)), nil
}

// currentRef names what HEAD points at: the branch when attached, the commit otherwise.
func (w *Workspace) currentRef(ctx context.Context) (string, error) {
	if out, err := w.client.Run(ctx, w.Path, "symbolic-ref", "--quiet", "--short", "HEAD"); err == nil {
		if branch := strings.TrimSpace(string(out)); branch != "" {
			return branch, nil
		}
	}
	return w.client.GetRepoHash(ctx, w.Path)
}

// SplitLines splits file content into lines without their terminators.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
