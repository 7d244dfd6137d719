package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloxcase/veloxcase-tui/internal/storage"
)

func newTestServer(t *testing.T, expired bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/login":
			_, _ = w.Write([]byte(`{"access_token":"tok-1"}`))
		case r.URL.Path == "/register":
			_, _ = w.Write([]byte(`{"access_token":"tok-0"}`))
		case expired || r.Header.Get("Authorization") != "Bearer tok-1":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"Token has expired"}`))
		case r.URL.Path == "/stats":
			_, _ = w.Write([]byte(`{"total_cases":12,"total_images":3,"today_syncs":4}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// run executes the root command against store and returns stdout.
func run(t *testing.T, store storage.Store, endpoint, stdin string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VELOXCASE_CONFIG", filepath.Join(dir, "missing.yaml"))

	cmd := newRootCmd(options{store: store, prefersDark: func() bool { return true }})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--api-url", endpoint,
		"--log-file", filepath.Join(dir, "test.log"),
		"--state-file", filepath.Join(dir, "state.db"),
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLogin_StoresToken(t *testing.T) {
	srv := newTestServer(t, false)
	store := storage.NewMemory()

	out, err := run(t, store, srv.URL, "secret\n", "login", "-u", "ana", "--password-stdin")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as ana")

	token, err := store.Get(storage.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestLogin_RequiresUsername(t *testing.T) {
	srv := newTestServer(t, false)
	_, err := run(t, storage.NewMemory(), srv.URL, "secret\n", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--username")
}

func TestLogin_RegisterShortPassword(t *testing.T) {
	srv := newTestServer(t, false)
	store := storage.NewMemory()

	_, err := run(t, store, srv.URL, "short\n", "login", "-u", "ana", "--register")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "8")

	_, err = store.Get(storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, false)
	store := storage.NewMemory()

	out, err := run(t, store, srv.URL, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	require.NoError(t, store.Set(storage.KeyToken, "tok-1"))
	out, err = run(t, store, srv.URL, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = store.Get(storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTheme_SetAndShow(t *testing.T) {
	srv := newTestServer(t, false)
	store := storage.NewMemory()

	out, err := run(t, store, srv.URL, "", "theme")
	require.NoError(t, err)
	assert.Contains(t, out, "dark", "terminal default")

	_, err = run(t, store, srv.URL, "", "theme", "light")
	require.NoError(t, err)
	stored, err := store.Get(storage.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "light", stored)

	out, err = run(t, store, srv.URL, "", "theme", "toggle")
	require.NoError(t, err)
	assert.Contains(t, out, "dark")

	_, err = run(t, store, srv.URL, "", "theme", "sepia")
	assert.Error(t, err)
}

func TestStatus_ShowsCounters(t *testing.T) {
	srv := newTestServer(t, false)
	store := storage.NewMemory()
	require.NoError(t, store.Set(storage.KeyToken, "tok-1"))

	out, err := run(t, store, srv.URL, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL)
	assert.Contains(t, out, "authenticated")
	assert.Contains(t, out, "12")
}

func TestStatus_ExpiredTokenSignsOut(t *testing.T) {
	srv := newTestServer(t, true)
	store := storage.NewMemory()
	require.NoError(t, store.Set(storage.KeyToken, "tok-1"))

	out, err := run(t, store, srv.URL, "", "status")
	require.Error(t, err)
	assert.Contains(t, out, "Session expired")

	_, err = store.Get(storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t, false)
	out, err := run(t, storage.NewMemory(), srv.URL, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "veloxcase-tui dev"))
}
