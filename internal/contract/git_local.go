package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/huangsam/depdive/schema"
)

// diffFlags keep blank-line and trailing-whitespace noise out of every diff.
var diffFlags = []string{"--ignore-blank-lines", "--ignore-space-at-eol"}

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct{}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient() *LocalGitClient {
	return &LocalGitClient{}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git %s failed in %q: %s", args[0], repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetRepoHash implements the GitClient interface.
func (c *LocalGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetRepoRoot implements the GitClient interface.
func (c *LocalGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	out, err := c.Run(ctx, contextPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ResolveCommit implements the GitClient interface.
func (c *LocalGitClient) ResolveCommit(ctx context.Context, repoPath string, ref string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("cannot resolve %q: %w", ref, err)
	}
	hash := strings.TrimSpace(string(out))
	if !IsCommitHash(hash) {
		return "", fmt.Errorf("rev-parse %q returned %q: %w", ref, hash, schema.ErrGitInconsistency)
	}
	return hash, nil
}

// ListTags implements the GitClient interface.
func (c *LocalGitClient) ListTags(ctx context.Context, repoPath string) (map[string]string, error) {
	out, err := c.Run(ctx, repoPath, "for-each-ref", "--format=%(refname:short)%09%(objectname)%09%(*objectname)", "refs/tags")
	if err != nil {
		return nil, err
	}
	tags := make(map[string]string)
	for _, line := range splitLines(out) {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		commit := parts[1]
		if len(parts) == 3 && parts[2] != "" {
			commit = parts[2] // annotated tag, use the peeled commit
		}
		tags[parts[0]] = commit
	}
	return tags, nil
}

// Clone implements the GitClient interface.
func (c *LocalGitClient) Clone(ctx context.Context, url string, dest string) error {
	_, err := c.Run(ctx, filepath.Dir(dest), "clone", "--quiet", url, dest)
	return err
}

// Checkout implements the GitClient interface.
func (c *LocalGitClient) Checkout(ctx context.Context, repoPath string, ref string) error {
	_, err := c.Run(ctx, repoPath, "checkout", "--quiet", "--force", ref)
	return err
}

// ListCommitsBetween implements the GitClient interface.
func (c *LocalGitClient) ListCommitsBetween(ctx context.Context, repoPath string, from, to string) ([]string, error) {
	if to == "" {
		to = "HEAD"
	}
	out, err := c.Run(ctx, repoPath, "rev-list", from+".."+to)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// GetFileCommits implements the GitClient interface.
func (c *LocalGitClient) GetFileCommits(ctx context.Context, repoPath string, path string, since, until string) ([]string, error) {
	args := []string{"log", "--pretty=format:%H", "--follow"}
	switch {
	case since != "" && until != "":
		args = append(args, since+"^.."+until)
	case since != "":
		args = append(args, since+"^..")
	case until != "":
		args = append(args, until)
	}
	args = append(args, "--", path)
	out, err := c.Run(ctx, repoPath, args...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// GetCommitDiff implements the GitClient interface.
func (c *LocalGitClient) GetCommitDiff(ctx context.Context, repoPath string, commit string, reverse bool, paths ...string) ([]byte, error) {
	from, to := commit+"~", commit
	if reverse {
		from, to = to, from
	}
	args := []string{"-c", "core.quotepath=off", "diff", "--no-color", "--no-ext-diff"}
	args = append(args, diffFlags...)
	args = append(args, from, to)
	out, err := c.Run(ctx, repoPath, withPaths(args, paths)...)
	if err == nil {
		return out, nil
	}

	// Root commits have no parent, so show the commit against the empty tree instead.
	showArgs := []string{"-c", "core.quotepath=off", "show", "--no-color", "--no-ext-diff", "--format="}
	if reverse {
		showArgs = append(showArgs, "-R")
	}
	showArgs = append(showArgs, diffFlags...)
	showArgs = append(showArgs, commit)
	return c.Run(ctx, repoPath, withPaths(showArgs, paths)...)
}

// GetRangeDiff implements the GitClient interface.
func (c *LocalGitClient) GetRangeDiff(ctx context.Context, repoPath string, from, to string) ([]byte, error) {
	args := []string{"-c", "core.quotepath=off", "diff", "--no-color", "--no-ext-diff"}
	args = append(args, diffFlags...)
	args = append(args, from, to)
	return c.Run(ctx, repoPath, args...)
}

// ListFilesAtRef implements the GitClient interface.
func (c *LocalGitClient) ListFilesAtRef(ctx context.Context, repoPath string, ref string) ([]string, error) {
	args := []string{
		"-c", "core.quotepath=off",
		"ls-tree", "-r", "--name-only",
		ref,
	}
	out, err := c.Run(ctx, repoPath, args...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ShowFile implements the GitClient interface.
func (c *LocalGitClient) ShowFile(ctx context.Context, repoPath string, ref string, path string) ([]byte, error) {
	return c.Run(ctx, repoPath, "show", ref+":"+path)
}

// Blame implements the GitClient interface.
func (c *LocalGitClient) Blame(ctx context.Context, repoPath string, ref string, path string) ([]BlameLine, error) {
	out, err := c.Run(ctx, repoPath, "blame", "-l", "--line-porcelain", ref, "--", path)
	if err != nil {
		return nil, err
	}
	return ParseBlamePorcelain(out)
}

// BlameReverse implements the GitClient interface.
func (c *LocalGitClient) BlameReverse(ctx context.Context, repoPath string, start, end string, path string) ([]BlameLine, error) {
	out, err := c.Run(ctx, repoPath, "blame", "--reverse", "-l", "--line-porcelain", start+".."+end, "--", path)
	if err != nil {
		return nil, err
	}
	return ParseBlamePorcelain(out)
}

// ParseBlamePorcelain turns `git blame --line-porcelain` output into one entry per line.
func ParseBlamePorcelain(out []byte) ([]BlameLine, error) {
	lines := []BlameLine{}
	current := ""
	for _, raw := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(raw, "\t") {
			if current == "" {
				return nil, fmt.Errorf("blame content without header: %w", schema.ErrGitInconsistency)
			}
			lines = append(lines, BlameLine{Commit: current, Content: raw[1:]})
			current = ""
			continue
		}
		if current != "" {
			continue
		}
		fields := strings.Fields(raw)
		if len(fields) >= 3 && IsCommitHash(fields[0]) {
			current = fields[0]
		}
	}
	return lines, nil
}

// IsCommitHash reports whether s looks like a full SHA-1 or SHA-256 object name.
func IsCommitHash(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func withPaths(args []string, paths []string) []string {
	if len(paths) == 0 {
		return args
	}
	return append(append(args, "--"), paths...)
}

func splitLines(out []byte) []string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return []string{}
	}
	return lines
}
