//go:build basic || database

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/internal/gittest"
)

var (
	// sharedDepdivePath holds the path to a shared depdive binary built once for all tests.
	sharedDepdivePath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getDepdiveBinary returns the path to the depdive binary, building it once if needed.
func getDepdiveBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "depdive-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		depdivePath := filepath.Join(tempDir, "depdive")
		buildCmd := exec.Command("go", "build", "-o", depdivePath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build depdive: %v\n%s", err, out))
		}

		sharedDepdivePath = depdivePath
	})

	return sharedDepdivePath
}

// runDepdive runs the binary from dir with extra environment variables and returns stdout.
func runDepdive(t *testing.T, dir string, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getDepdiveBinary(), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
		return stdout.String(), err
	}
	return stdout.String(), nil
}

// fixture is a tagged repository together with the extracted registry versions of
// the npm package "demo". Version 1.1.0 on the registry carries one file and one line
// that the repository never had.
type fixture struct {
	RepoDir      string
	RegistryRoot string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	manifest := `{"name": "demo", "version": "1.0.0"}` + "\n"

	repo := gittest.New(t)
	repo.Write("package.json", manifest)
	repo.Write("index.js", "a()\n")
	repo.Commit("release 1.0.0")
	repo.Tag("v1.0.0")
	repo.Write("index.js", "a()\nb()\n")
	repo.Commit("release 1.1.0")
	repo.Tag("v1.1.0")

	root := t.TempDir()
	writeVersion(t, root, "1.0.0", map[string]string{
		"package.json": manifest,
		"index.js":     "a()\n",
	})
	writeVersion(t, root, "1.1.0", map[string]string{
		"package.json": manifest,
		"index.js":     "a()\nb()\nsteal()\n",
		"extra.js":     "evil()\n",
	})
	return fixture{RepoDir: repo.Dir, RegistryRoot: root}
}

func writeVersion(t *testing.T, root, version string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, "npm", "demo", version, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}
