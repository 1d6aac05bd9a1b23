package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/internal/gittest"
	"github.com/huangsam/depdive/schema"
)

func TestNormalizeRepoURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		subdir  string
		wantErr bool
	}{
		{"git+https://github.com/lodash/lodash.git", "https://github.com/lodash/lodash", "", false},
		{"git://github.com/a/b.git", "https://github.com/a/b", "", false},
		{"git@github.com:a/b.git", "https://github.com/a/b", "", false},
		{"git+ssh://git@github.com/a/b.git", "https://github.com/a/b", "", false},
		{"github:a/b", "https://github.com/a/b", "", false},
		{"a/b", "https://github.com/a/b", "", false},
		{"https://github.com/a/b#readme", "https://github.com/a/b", "", false},
		{"https://github.com/a/b/tree/main/packages/x", "https://github.com/a/b", "packages/x", false},
		{"https://gitlab.com/g/p/-/issues", "https://gitlab.com/g/p", "", false},
		{"https://example.com", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, subdir, err := NormalizeRepoURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.subdir, subdir)
		})
	}
}

func TestRegistryLocator_Locate(t *testing.T) {
	bodies := map[string]string{
		"/npm/@babel/core":          `{"repository":{"type":"git","url":"git+https://github.com/babel/babel.git","directory":"packages/babel-core"}}`,
		"/npm/left-pad":             `{"repository":"github:stevemao/left-pad"}`,
		"/cargo/serde":              `{"crate":{"repository":"https://github.com/serde-rs/serde","homepage":"https://serde.rs"}}`,
		"/pypi/requests":            `{"info":{"home_page":"https://requests.readthedocs.io","project_urls":{"Source Code":"https://github.com/psf/requests"}}}`,
		"/rubygems/rails":           `{"source_code_uri":"https://github.com/rails/rails/tree/v7.1.0","homepage_uri":"https://rubyonrails.org"}`,
		"/composer/monolog/monolog": `{"packages":{"monolog/monolog":[{"source":{"url":"https://github.com/Seldaek/monolog.git"}}]}}`,
		"/npm/no-repo":              `{"name":"no-repo"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	locator := NewRegistryLocator(srv.Client()).
		WithEndpoint(schema.NPM, srv.URL+"/npm/%s").
		WithEndpoint(schema.Cargo, srv.URL+"/cargo/%s").
		WithEndpoint(schema.PyPI, srv.URL+"/pypi/%s").
		WithEndpoint(schema.RubyGems, srv.URL+"/rubygems/%s").
		WithEndpoint(schema.Composer, srv.URL+"/composer/%s")

	tests := []struct {
		eco    schema.Ecosystem
		pkg    string
		url    string
		subdir string
	}{
		{schema.NPM, "@babel/core", "https://github.com/babel/babel", "packages/babel-core"},
		{schema.NPM, "left-pad", "https://github.com/stevemao/left-pad", ""},
		{schema.Cargo, "serde", "https://github.com/serde-rs/serde", ""},
		{schema.PyPI, "requests", "https://github.com/psf/requests", ""},
		{schema.RubyGems, "rails", "https://github.com/rails/rails", ""},
		{schema.Composer, "monolog/monolog", "https://github.com/Seldaek/monolog", ""},
	}
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(string(tt.eco)+"/"+tt.pkg, func(t *testing.T) {
			url, subdir, err := locator.Locate(ctx, tt.eco, tt.pkg)
			require.NoError(t, err)
			assert.Equal(t, tt.url, url)
			assert.Equal(t, tt.subdir, subdir)
		})
	}

	t.Run("no repository", func(t *testing.T) {
		_, _, err := locator.Locate(ctx, schema.NPM, "no-repo")
		assert.ErrorContains(t, err, "names no repository")
	})
	t.Run("not found", func(t *testing.T) {
		_, _, err := locator.Locate(ctx, schema.Cargo, "missing")
		assert.ErrorContains(t, err, "404")
	})
	t.Run("unknown ecosystem", func(t *testing.T) {
		_, _, err := locator.Locate(ctx, schema.Ecosystem("go"), "x")
		assert.Error(t, err)
	})
}

func TestManifestSubdirLocator(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("package.json", `{"name": "monorepo", "private": true}`)
	repo.Write("packages/a/package.json", `{"name": "a"}`)
	repo.Write("packages/b/package.json", `{"name": "b"}`)
	repo.Write("fixtures/b/package.json", `{"name": "dup"}`)
	repo.Write("fixtures/c/package.json", `{"name": "dup"}`)
	repo.Write("Cargo.toml", "[workspace]\nmembers = [\"crates/*\"]\n")
	repo.Write("crates/json/Cargo.toml", "[package]\nname = \"serde-json\"\nversion = \"1.0.0\"\n")
	repo.Write("py/pyproject.toml", "[project]\nname = \"My.Package\"\n")
	repo.Write("legacy/setup.py", "from setuptools import setup\nsetup(name='legacy_pkg', version='1')\n")
	repo.Write("gem/rack.gemspec", "Gem::Specification.new do |s|\n  s.name = \"rack\"\nend\n")
	repo.Write("php/composer.json", `{"name": "Vendor/Pkg"}`)
	commit := repo.Commit("layout")

	locator := NewManifestSubdirLocator(contract.NewLocalGitClient())
	ctx := context.Background()

	tests := []struct {
		eco  schema.Ecosystem
		pkg  string
		want string
	}{
		{schema.NPM, "monorepo", ""},
		{schema.NPM, "b", "packages/b"},
		{schema.Cargo, "serde_json", "crates/json"},
		{schema.PyPI, "my-package", "py"},
		{schema.PyPI, "legacy-pkg", "legacy"},
		{schema.RubyGems, "rack", "gem"},
		{schema.Composer, "vendor/pkg", "php"},
	}
	for _, tt := range tests {
		t.Run(string(tt.eco)+"/"+tt.pkg, func(t *testing.T) {
			got, err := locator.LocateSubdir(ctx, tt.eco, tt.pkg, repo.Dir, commit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no match", func(t *testing.T) {
		_, err := locator.LocateSubdir(ctx, schema.NPM, "missing", repo.Dir, commit)
		assert.ErrorIs(t, err, schema.ErrUncertainSubdir)
	})
	t.Run("several matches", func(t *testing.T) {
		_, err := locator.LocateSubdir(ctx, schema.NPM, "dup", repo.Dir, commit)
		assert.ErrorIs(t, err, schema.ErrUncertainSubdir)
	})
}

func TestSameName(t *testing.T) {
	assert.True(t, sameName(schema.PyPI, "Foo_Bar.baz", "foo-bar-baz"))
	assert.True(t, sameName(schema.Cargo, "serde-json", "serde_json"))
	assert.True(t, sameName(schema.Composer, "Vendor/Pkg", "vendor/pkg"))
	assert.False(t, sameName(schema.NPM, "Left-Pad", "left-pad"))
}
