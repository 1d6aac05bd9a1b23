package review

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/huangsam/depdive/schema"
)

var sshRepo = regexp.MustCompile(`^(?:[\w.-]+@)?([\w.-]+):([^/]+)/(.+?)(?:\.git)?/?$`)

// ParseRepoURL extracts owner and name from a repository URL on one of hosts.
// Any other host is an ErrNotGitHubRepository.
func ParseRepoURL(raw string, hosts ...string) (string, string, error) {
	if len(hosts) == 0 {
		hosts = []string{"github.com"}
	}
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "git+")

	var host, owner, name string
	if m := sshRepo.FindStringSubmatch(raw); m != nil && !strings.Contains(raw, "://") {
		host, owner, name = m[1], m[2], m[3]
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("parse repository url %q: %w", raw, err)
		}
		host = u.Hostname()
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 {
			owner, name = parts[0], parts[1]
		}
	}

	if !knownHost(host, hosts) {
		return "", "", fmt.Errorf("%s: %w", raw, schema.ErrNotGitHubRepository)
	}
	name = strings.TrimSuffix(name, ".git")
	if owner == "" || name == "" {
		return "", "", fmt.Errorf("repository url %q has no owner and name", raw)
	}
	return owner, name, nil
}

func knownHost(host string, hosts []string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, h := range hosts {
		if host == strings.ToLower(h) {
			return true
		}
	}
	return false
}
