package remote

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhauser/pktwire/pkg/orchestrate"
)

func TestStoreSaveAndOpenRoundTrips(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "remotes.yaml")
	s := NewStore(fp)

	c, err := s.Open()
	require.NoError(t, err)
	assert.Empty(t, c.Names())

	c.Set("origin", &Remote{
		URL:   "https://example.com/repo.git",
		Fetch: []orchestrate.Refspec{orchestrate.MustParseRefspec("+refs/heads/*:refs/remotes/origin/*")},
	})
	require.NoError(t, s.Save(c))

	c2, err := s.Open()
	require.NoError(t, err)
	r, err := c2.Get("origin")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/repo.git", r.URL)
	require.Len(t, r.Fetch, 1)
	assert.Equal(t, "refs/heads/*", r.Fetch[0].Src)
	assert.Equal(t, "refs/remotes/origin/*", r.Fetch[0].Dst)
	assert.True(t, r.Fetch[0].Force)
}

func TestConfigGetMissingRemoteIsError(t *testing.T) {
	c := &Config{}
	_, err := c.Get("origin")
	assert.Error(t, err)
}

func TestConfigRemove(t *testing.T) {
	c := &Config{}
	c.Set("origin", &Remote{URL: "https://example.com/repo.git"})
	c.Remove("origin")
	_, err := c.Get("origin")
	assert.Error(t, err)
}
