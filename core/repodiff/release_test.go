package repodiff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangsam/depdive/internal/contract"
	"github.com/huangsam/depdive/schema"
)

func TestTagCandidates(t *testing.T) {
	got := TagCandidates("@scope/pkg", "1.2.3")
	assert.Contains(t, got, "v1.2.3")
	assert.Contains(t, got, "1.2.3")
	assert.Contains(t, got, "release-1.2.3")
	assert.Contains(t, got, "@scope/pkg@1.2.3")
	assert.Contains(t, got, "pkg@1.2.3")
	assert.Contains(t, got, "pkg-v1.2.3")
	assert.Contains(t, got, "pkg/v1.2.3")
	assert.Contains(t, got, "pkg_v1.2.3")
	assert.Equal(t, "v1.2.3", got[0])
}

func TestResolveReleaseCommit(t *testing.T) {
	tags := map[string]string{
		"v1.0.0":        "c100",
		"serde-1.1.0":   "c110",
		"other-v2.0.0":  "cother",
		"pkg@2.0.0":     "c200",
		"release-3.0":   "c300",
		"v4.0.0-beta.1": "c4beta",
		"not-a-version": "cx",
	}

	tests := []struct {
		name    string
		pkg     string
		version string
		want    string
		wantErr bool
	}{
		{"v prefix", "serde", "1.0.0", "c100", false},
		{"package dash", "serde", "1.1.0", "c110", false},
		{"scoped npm without scope", "@org/pkg", "2.0.0", "c200", false},
		{"semver equality", "x", "3.0.0", "c300", false},
		{"prerelease is distinct", "x", "4.0.0", "", true},
		{"other package tag ignored", "serde", "2.0.0", "", true},
		{"unknown", "serde", "9.9.9", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveReleaseCommit(tags, tt.pkg, tt.version)
			if tt.wantErr {
				assert.ErrorIs(t, err, schema.ErrReleaseCommitNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveBoundaries(t *testing.T) {
	ctx := context.Background()

	t.Run("valid supplied commits", func(t *testing.T) {
		m := new(contract.MockGitClient)
		m.On("ResolveCommit", ctx, "/repo", "aaa").Return("a-full", nil)
		m.On("ResolveCommit", ctx, "/repo", "bbb").Return("b-full", nil)

		b, err := ResolveBoundaries(ctx, m, "/repo", "pkg", "1.0.0", "1.1.0", "aaa", "bbb")
		require.NoError(t, err)
		assert.Equal(t, Boundaries{OldCommit: "a-full", NewCommit: "b-full"}, b)
		m.AssertNotCalled(t, "ListTags", ctx, "/repo")
	})

	t.Run("invalid commit falls back to tags", func(t *testing.T) {
		m := new(contract.MockGitClient)
		m.On("ResolveCommit", ctx, "/repo", "aaa").Return("a-full", nil)
		m.On("ResolveCommit", ctx, "/repo", "bad").Return("", errors.New("unknown revision"))
		m.On("ListTags", ctx, "/repo").Return(map[string]string{"v1.0.0": "t1", "v1.1.0": "t2"}, nil)

		b, err := ResolveBoundaries(ctx, m, "/repo", "pkg", "1.0.0", "1.1.0", "aaa", "bad")
		require.NoError(t, err)
		assert.Equal(t, Boundaries{OldCommit: "t1", NewCommit: "t2"}, b)
	})

	t.Run("missing tag", func(t *testing.T) {
		m := new(contract.MockGitClient)
		m.On("ListTags", ctx, "/repo").Return(map[string]string{"v1.0.0": "t1"}, nil)

		_, err := ResolveBoundaries(ctx, m, "/repo", "pkg", "1.0.0", "1.1.0", "", "")
		assert.ErrorIs(t, err, schema.ErrReleaseCommitNotFound)
	})
}
