package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/stdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhauser/pktwire/pkg/credentials"
)

func TestDoSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(stdr.New(nil))
	require.NoError(t, err)
	resp, err := c.Do(http.MethodGet, srv.URL+"/info/refs", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDoNonRetryableError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(stdr.New(nil))
	require.NoError(t, err)
	_, err = c.Do(http.MethodGet, srv.URL+"/info/refs", nil, nil)
	require.Error(t, err)
	herr, ok := err.(*HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, herr.Code)
}

func TestDoRetriesOnceWithStoredCredential(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		user, pass, ok := r.BasicAuth()
		if ok && user == "alice" && pass == "secret" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := newCredentialStoreForTest(t)
	require.NoError(t, err)
	s.Set(srv.URL, credentials.Entry{Username: "alice", Password: "secret"})

	c, err := NewClient(stdr.New(nil), WithCredentialStore(s))
	require.NoError(t, err)
	resp, err := c.Do(http.MethodGet, srv.URL+"/info/refs", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestDoUnauthorizedWithoutStoredCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewClient(stdr.New(nil))
	require.NoError(t, err)
	_, err = c.Do(http.MethodGet, srv.URL+"/info/refs", nil, nil)
	require.Error(t, err)
	herr, ok := err.(*HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, herr.Code)
}

func TestDoRetriesWithBodyReplaysFullBody(t *testing.T) {
	attempts := 0
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		user, pass, ok := r.BasicAuth()
		if ok && user == "alice" && pass == "secret" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := newCredentialStoreForTest(t)
	require.NoError(t, err)
	s.Set(srv.URL, credentials.Entry{Username: "alice", Password: "secret"})

	c, err := NewClient(stdr.New(nil), WithCredentialStore(s))
	require.NoError(t, err)
	resp, err := c.Do(http.MethodPost, srv.URL+"/git-upload-pack", strings.NewReader("want deadbeef\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 2, attempts)
	assert.Equal(t, []string{"want deadbeef\n", "want deadbeef\n"}, bodies)
}

func newCredentialStoreForTest(t *testing.T) (*credentials.Store, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return credentials.NewStore()
}
