package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// --- MockGitClient Implementation ---

// MockGitClient is a testify mock for the GitClient interface.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath}
	for _, arg := range args {
		mockArgs = append(mockArgs, arg)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRepoHash implements the GitClient interface.
func (m *MockGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetRepoRoot implements the GitClient interface.
func (m *MockGitClient) GetRepoRoot(ctx context.Context, contextPath string) (string, error) {
	ret := m.Called(ctx, contextPath)
	return ret.String(0), ret.Error(1)
}

// ResolveCommit implements the GitClient interface.
func (m *MockGitClient) ResolveCommit(ctx context.Context, repoPath string, ref string) (string, error) {
	ret := m.Called(ctx, repoPath, ref)
	return ret.String(0), ret.Error(1)
}

// ListTags implements the GitClient interface.
func (m *MockGitClient) ListTags(ctx context.Context, repoPath string) (map[string]string, error) {
	ret := m.Called(ctx, repoPath)
	tags, _ := ret.Get(0).(map[string]string)
	return tags, ret.Error(1)
}

// Clone implements the GitClient interface.
func (m *MockGitClient) Clone(ctx context.Context, url string, dest string) error {
	return m.Called(ctx, url, dest).Error(0)
}

// Checkout implements the GitClient interface.
func (m *MockGitClient) Checkout(ctx context.Context, repoPath string, ref string) error {
	return m.Called(ctx, repoPath, ref).Error(0)
}

// ListCommitsBetween implements the GitClient interface.
func (m *MockGitClient) ListCommitsBetween(ctx context.Context, repoPath string, from, to string) ([]string, error) {
	ret := m.Called(ctx, repoPath, from, to)
	commits, _ := ret.Get(0).([]string)
	return commits, ret.Error(1)
}

// GetFileCommits implements the GitClient interface.
func (m *MockGitClient) GetFileCommits(ctx context.Context, repoPath string, path string, since, until string) ([]string, error) {
	ret := m.Called(ctx, repoPath, path, since, until)
	commits, _ := ret.Get(0).([]string)
	return commits, ret.Error(1)
}

// GetCommitDiff implements the GitClient interface.
func (m *MockGitClient) GetCommitDiff(ctx context.Context, repoPath string, commit string, reverse bool, paths ...string) ([]byte, error) {
	mockArgs := []any{ctx, repoPath, commit, reverse}
	for _, p := range paths {
		mockArgs = append(mockArgs, p)
	}
	ret := m.Called(mockArgs...)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// GetRangeDiff implements the GitClient interface.
func (m *MockGitClient) GetRangeDiff(ctx context.Context, repoPath string, from, to string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, from, to)
	output, _ := ret.Get(0).([]byte)
	return output, ret.Error(1)
}

// ListFilesAtRef implements the GitClient interface.
func (m *MockGitClient) ListFilesAtRef(ctx context.Context, repoPath string, ref string) ([]string, error) {
	ret := m.Called(ctx, repoPath, ref)
	files, _ := ret.Get(0).([]string)
	return files, ret.Error(1)
}

// ShowFile implements the GitClient interface.
func (m *MockGitClient) ShowFile(ctx context.Context, repoPath string, ref string, path string) ([]byte, error) {
	ret := m.Called(ctx, repoPath, ref, path)
	content, _ := ret.Get(0).([]byte)
	return content, ret.Error(1)
}

// Blame implements the GitClient interface.
func (m *MockGitClient) Blame(ctx context.Context, repoPath string, ref string, path string) ([]BlameLine, error) {
	ret := m.Called(ctx, repoPath, ref, path)
	lines, _ := ret.Get(0).([]BlameLine)
	return lines, ret.Error(1)
}

// BlameReverse implements the GitClient interface.
func (m *MockGitClient) BlameReverse(ctx context.Context, repoPath string, start, end string, path string) ([]BlameLine, error) {
	ret := m.Called(ctx, repoPath, start, end, path)
	lines, _ := ret.Get(0).([]BlameLine)
	return lines, ret.Error(1)
}
