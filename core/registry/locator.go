package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

// Registry metadata endpoints. Each takes the package name.
var defaultEndpoints = map[schema.Ecosystem]string{
	schema.NPM:      "https://registry.npmjs.org/%s",
	schema.Cargo:    "https://crates.io/api/v1/crates/%s",
	schema.PyPI:     "https://pypi.org/pypi/%s/json",
	schema.RubyGems: "https://rubygems.org/api/v1/gems/%s.json",
	schema.Composer: "https://repo.packagist.org/p2/%s.json",
}

// RegistryLocator finds a package's source repository from public registry metadata.
type RegistryLocator struct {
	client    *http.Client
	endpoints map[schema.Ecosystem]string
}

var _ contract.RepositoryLocator = &RegistryLocator{} // Compile-time check

// NewRegistryLocator returns a locator that queries the public registries.
// A nil client gets a default with a timeout.
func NewRegistryLocator(client *http.Client) *RegistryLocator {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	endpoints := make(map[schema.Ecosystem]string, len(defaultEndpoints))
	for k, v := range defaultEndpoints {
		endpoints[k] = v
	}
	return &RegistryLocator{client: client, endpoints: endpoints}
}

// WithEndpoint overrides the metadata URL template of one ecosystem.
func (l *RegistryLocator) WithEndpoint(eco schema.Ecosystem, tmpl string) *RegistryLocator {
	l.endpoints[eco] = tmpl
	return l
}

// Locate returns the repository URL and, when the registry records one, the package directory.
func (l *RegistryLocator) Locate(ctx context.Context, eco schema.Ecosystem, pkg string) (string, string, error) {
	tmpl, ok := l.endpoints[eco]
	if !ok {
		return "", "", fmt.Errorf("no registry endpoint for ecosystem %s", eco)
	}
	name := pkg
	if eco == schema.NPM {
		name = strings.Replace(pkg, "/", "%2F", 1)
	}
	body, err := l.fetch(ctx, fmt.Sprintf(tmpl, name))
	if err != nil {
		return "", "", fmt.Errorf("%s %s: %w", eco, pkg, err)
	}

	raw, subdir := repositoryField(eco, pkg, body)
	if raw == "" {
		return "", "", fmt.Errorf("%s %s: registry metadata names no repository", eco, pkg)
	}
	repoURL, urlSubdir, err := NormalizeRepoURL(raw)
	if err != nil {
		return "", "", fmt.Errorf("%s %s: %w", eco, pkg, err)
	}
	if subdir == "" {
		subdir = urlSubdir
	}
	return repoURL, contract.NormalizeSubdir(subdir), nil
}

func (l *RegistryLocator) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "depdive")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", target, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// repositoryField extracts the raw repository URL and directory from registry metadata.
func repositoryField(eco schema.Ecosystem, pkg string, body []byte) (string, string) {
	var paths []string
	subdir := ""
	switch eco {
	case schema.NPM:
		repo := gjson.GetBytes(body, "repository")
		if repo.IsObject() {
			subdir = repo.Get("directory").String()
			return repo.Get("url").String(), subdir
		}
		return repo.String(), ""
	case schema.Cargo:
		paths = []string{"crate.repository", "crate.homepage"}
	case schema.PyPI:
		paths = []string{
			"info.project_urls.Source",
			"info.project_urls.Source Code",
			"info.project_urls.Repository",
			"info.project_urls.Code",
			"info.project_urls.Homepage",
			"info.home_page",
		}
	case schema.RubyGems:
		paths = []string{"source_code_uri", "homepage_uri"}
	case schema.Composer:
		paths = []string{"packages." + gjson.Escape(pkg) + ".0.source.url"}
	}
	for _, p := range paths {
		if v := gjson.GetBytes(body, p).String(); looksLikeRepo(v) {
			return v, subdir
		}
	}
	return "", subdir
}

var knownHosts = []string{"github.com", "gitlab.com", "bitbucket.org"}

func looksLikeRepo(raw string) bool {
	if raw == "" {
		return false
	}
	for _, h := range knownHosts {
		if strings.Contains(raw, h) {
			return true
		}
	}
	return strings.HasSuffix(raw, ".git")
}

var scpLike = regexp.MustCompile(`^(?:[\w.-]+@)?([\w.-]+):([^/].*)$`)

// NormalizeRepoURL turns the many spellings of a repository URL found in registry metadata
// into an https clone URL. For GitHub style /tree/<ref>/<dir> links the directory is returned too.
func NormalizeRepoURL(raw string) (string, string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	if rest, ok := strings.CutPrefix(s, "github:"); ok {
		s = "https://github.com/" + rest
	}
	if !strings.Contains(s, "://") {
		if m := scpLike.FindStringSubmatch(s); m != nil && strings.Contains(m[1], ".") {
			s = "https://" + m[1] + "/" + m[2]
		} else if strings.Count(s, "/") == 1 {
			s = "https://github.com/" + s
		}
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", "", fmt.Errorf("invalid repository url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "git", "ssh", "http", "git+ssh":
		u.Scheme = "https"
	}
	u.User = nil
	u.Fragment = ""
	u.RawQuery = ""
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid repository url %q", raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	subdir := ""
	if len(parts) > 2 {
		if len(parts) > 4 && (parts[2] == "tree" || parts[2] == "blob") {
			subdir = path.Join(parts[4:]...)
		}
		parts = parts[:2]
	}
	if len(parts) < 2 {
		return "", "", fmt.Errorf("repository url %q has no owner and name", raw)
	}
	parts[1] = strings.TrimSuffix(parts[1], ".git")
	u.Path = "/" + strings.Join(parts, "/")
	return u.String(), subdir, nil
}

// ManifestSubdirLocator finds the package directory by reading manifests in the tree at a commit.
type ManifestSubdirLocator struct {
	client contract.GitClient
}

var _ contract.SubdirLocator = &ManifestSubdirLocator{} // Compile-time check

// NewManifestSubdirLocator returns a locator backed by client.
func NewManifestSubdirLocator(client contract.GitClient) *ManifestSubdirLocator {
	return &ManifestSubdirLocator{client: client}
}

// LocateSubdir returns the directory of the single manifest declaring pkg. No match, or
// more than one, is an ErrUncertainSubdir.
func (l *ManifestSubdirLocator) LocateSubdir(
	ctx context.Context,
	eco schema.Ecosystem,
	pkg, repoPath, commit string,
) (string, error) {
	files, err := l.client.ListFilesAtRef(ctx, repoPath, commit)
	if err != nil {
		return "", err
	}

	matches := map[string]struct{}{}
	for _, f := range files {
		reader := manifestReader(eco, path.Base(f))
		if reader == nil {
			continue
		}
		content, err := l.client.ShowFile(ctx, repoPath, commit, f)
		if err != nil {
			return "", err
		}
		if name := reader(content); name != "" && sameName(eco, name, pkg) {
			dir := path.Dir(f)
			if dir == "." {
				dir = ""
			}
			matches[dir] = struct{}{}
		}
	}

	switch len(matches) {
	case 1:
		for dir := range matches {
			return dir, nil
		}
	case 0:
		return "", fmt.Errorf("no manifest for %s %s at %s: %w", eco, pkg, contract.ShortHash(commit), schema.ErrUncertainSubdir)
	}
	return "", fmt.Errorf("%d manifests for %s %s at %s: %w", len(matches), eco, pkg, contract.ShortHash(commit), schema.ErrUncertainSubdir)
}

type nameReader func(content []byte) string

var (
	pySetupName  = regexp.MustCompile(`name\s*=\s*["']([^"']+)["']`)
	setupCfgName = regexp.MustCompile(`(?m)^\s*name\s*=\s*(\S+)\s*$`)
	gemspecName  = regexp.MustCompile(`\.name\s*=\s*["']([^"']+)["']`)
	pyNameSep    = regexp.MustCompile(`[-_.]+`)
)

func manifestReader(eco schema.Ecosystem, base string) nameReader {
	switch eco {
	case schema.NPM:
		if base == "package.json" {
			return jsonName
		}
	case schema.Composer:
		if base == "composer.json" {
			return jsonName
		}
	case schema.Cargo:
		if base == "Cargo.toml" {
			return cargoName
		}
	case schema.PyPI:
		switch base {
		case "pyproject.toml":
			return pyprojectName
		case "setup.py":
			return regexName(pySetupName)
		case "setup.cfg":
			return regexName(setupCfgName)
		}
	case schema.RubyGems:
		if strings.HasSuffix(base, ".gemspec") {
			return regexName(gemspecName)
		}
	}
	return nil
}

func jsonName(content []byte) string {
	return gjson.GetBytes(content, "name").String()
}

func cargoName(content []byte) string {
	var manifest struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(content, &manifest); err != nil {
		return ""
	}
	return manifest.Package.Name
}

func pyprojectName(content []byte) string {
	var manifest struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(content, &manifest); err != nil {
		return ""
	}
	if manifest.Project.Name != "" {
		return manifest.Project.Name
	}
	return manifest.Tool.Poetry.Name
}

func regexName(re *regexp.Regexp) nameReader {
	return func(content []byte) string {
		if m := re.FindSubmatch(content); m != nil {
			return string(m[1])
		}
		return ""
	}
}

// sameName compares package names the way the ecosystem does.
func sameName(eco schema.Ecosystem, a, b string) bool {
	switch eco {
	case schema.PyPI:
		return normalizePyPI(a) == normalizePyPI(b)
	case schema.Cargo:
		return strings.ReplaceAll(a, "-", "_") == strings.ReplaceAll(b, "-", "_")
	case schema.Composer:
		return strings.EqualFold(a, b)
	default:
		return a == b
	}
}

func normalizePyPI(name string) string {
	return strings.ToLower(pyNameSep.ReplaceAllString(name, "-"))
}
