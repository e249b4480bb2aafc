package credentials

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfigHome(t *testing.T) func() {
	t.Helper()
	dir := t.TempDir()
	orig := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.Setenv("XDG_CONFIG_HOME", dir))
	return func() {
		require.NoError(t, os.Setenv("XDG_CONFIG_HOME", orig))
	}
}

func TestStoreSetGetDelete(t *testing.T) {
	defer mockConfigHome(t)()
	s, err := NewStore()
	require.NoError(t, err)
	assert.NotEmpty(t, s.Path())

	m := map[string]Entry{}
	for i := 0; i < 5; i++ {
		origin := fmt.Sprintf("https://host%d.example.com", i)
		e := Entry{Username: fmt.Sprintf("user%d", i), Password: fmt.Sprintf("pass%d", i)}
		m[origin] = e
		s.Set(origin, e)
	}
	assert.Equal(t, 5, s.Len())
	require.NoError(t, s.Flush())

	s, err = NewStore()
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
	for origin, want := range m {
		got, ok := s.Get(origin)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	for origin := range m {
		s.Delete(origin)
	}
	assert.Equal(t, 0, s.Len())
	require.NoError(t, s.Flush())

	s, err = NewStore()
	require.NoError(t, err)
	_, ok := s.Get("https://host0.example.com")
	assert.False(t, ok)
}

func TestStoreMissingOrigin(t *testing.T) {
	defer mockConfigHome(t)()
	s, err := NewStore()
	require.NoError(t, err)
	_, ok := s.Get("https://unknown.example.com")
	assert.False(t, ok)
}
