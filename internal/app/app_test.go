package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloxcase/veloxcase-tui/internal/clock"
	"github.com/veloxcase/veloxcase-tui/internal/config"
	"github.com/veloxcase/veloxcase-tui/internal/session"
	"github.com/veloxcase/veloxcase-tui/internal/shell"
	"github.com/veloxcase/veloxcase-tui/internal/storage"
)

// fakeServer is a minimal stand-in for the integration API.
type fakeServer struct {
	mu           sync.Mutex
	expireTokens bool
	requests     []string
}

func (s *fakeServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	expire := s.expireTokens
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/login" {
		_, _ = w.Write([]byte(`{"access_token":"tok-1"}`))
		return
	}
	if expire || r.Header.Get("Authorization") != "Bearer tok-1" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"Token has expired"}`))
		return
	}
	switch r.URL.Path {
	case "/folders/1":
		_, _ = w.Write([]byte(`{"folders":[{"id":2,"name":"Zeta"},{"id":1,"name":"Alpha"}]}`))
	case "/stats":
		_, _ = w.Write([]byte(`{"total_cases":5,"total_images":2,"today_syncs":1}`))
	case "/history":
		_, _ = w.Write([]byte(`[{"id":1,"date":"2026-01-01","task":"QA-1","case":"c","status":"success"}]`))
	case "/settings":
		if r.Method == http.MethodPost {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		_, _ = w.Write([]byte(`{"JIRA_URL":"https://x"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *fakeServer) count(req string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r == req {
			n++
		}
	}
	return n
}

type fixture struct {
	server *fakeServer
	store  *storage.Memory
	clock  *clock.Fake
	cfg    config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := &fakeServer{}
	srv := httptest.NewServer(http.HandlerFunc(fs.handler))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIEndpoint = srv.URL
	return &fixture{
		server: fs,
		store:  storage.NewMemory(),
		clock:  clock.NewFake(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)),
		cfg:    cfg,
	}
}

func (f *fixture) newApp() *App {
	return New(f.cfg, Deps{
		Store:       f.store,
		Clock:       f.clock,
		PrefersDark: func() bool { return true },
	})
}

func TestStart_AnonymousShowsLogin(t *testing.T) {
	f := newFixture(t)
	a := f.newApp()

	assert.Equal(t, session.StateAnonymous, a.Start())
	assert.Equal(t, shell.ViewLogin, a.Router.Current())
	assert.ErrorIs(t, a.Navigate(shell.ViewDashboard), shell.ErrForbidden)
	require.NoError(t, a.LoadView(context.Background()))
	assert.Empty(t, f.server.requests, "no data fetch without a token")
}

func TestLogin_LoadsDashboard(t *testing.T) {
	f := newFixture(t)
	a := f.newApp()
	a.Start()

	require.NoError(t, a.Session.Login(context.Background(), "ana", "pw"))
	assert.Equal(t, shell.ViewDashboard, a.Router.Current())
	assert.True(t, a.Dashboard.Active())

	require.NoError(t, a.LoadView(context.Background()))
	state := a.Dashboard.State()
	require.Len(t, state.Folders, 2)
	assert.Equal(t, "Alpha", state.Folders[0].Name)
	assert.Equal(t, 5, state.Stats.TotalCases)
}

func TestStoredTokenSurvivesReload(t *testing.T) {
	f := newFixture(t)
	first := f.newApp()
	first.Start()
	require.NoError(t, first.Session.Login(context.Background(), "ana", "pw"))

	second := f.newApp()
	assert.Equal(t, session.StateAuthenticated, second.Start())
	assert.Equal(t, shell.ViewDashboard, second.Router.Current())
	require.NoError(t, second.LoadView(context.Background()))
	assert.Len(t, second.Dashboard.State().Folders, 2)
}

func TestUnauthorizedFetchLogsOut(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(storage.KeyToken, "tok-1"))
	a := f.newApp()
	a.Start()
	require.NoError(t, a.Navigate(shell.ViewHistory))

	f.server.mu.Lock()
	f.server.expireTokens = true
	f.server.mu.Unlock()

	assert.Error(t, a.LoadView(context.Background()))

	assert.Equal(t, session.StateAnonymous, a.Session.State())
	assert.Equal(t, shell.ViewLogin, a.Router.Current())
	_, err := f.store.Get(storage.KeyToken)
	assert.ErrorIs(t, err, storage.ErrNotFound, "stored token cleared")
	assert.Empty(t, a.API.Token())
	assert.Empty(t, a.History.Entries())
}

func TestNavigate_ActivatesOnlyVisibleController(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(storage.KeyToken, "tok-1"))
	a := f.newApp()
	a.Start()

	require.NoError(t, a.Navigate(shell.ViewSettings))
	assert.False(t, a.Dashboard.Active())
	require.NoError(t, a.LoadView(context.Background()))
	assert.Equal(t, "https://x", a.Settings.Get("JIRA_URL"))
	assert.Equal(t, 0, f.server.count("GET /history"))

	require.NoError(t, a.Navigate(shell.ViewHistory))
	assert.Empty(t, a.Settings.Values(), "credentials dropped when the view is left")
	require.NoError(t, a.LoadView(context.Background()))
	assert.Len(t, a.History.Entries(), 1)
}

func TestSettingsSaveReturnsToDashboard(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(storage.KeyToken, "tok-1"))
	a := f.newApp()
	a.Start()
	require.NoError(t, a.Navigate(shell.ViewSettings))
	require.NoError(t, a.LoadView(context.Background()))

	require.NoError(t, a.Settings.Save(context.Background()))
	assert.Equal(t, shell.ViewSettings, a.Router.Current())

	f.clock.Advance(time.Second)
	assert.Equal(t, shell.ViewDashboard, a.Router.Current())
}

func TestLogoutResetsControllers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(storage.KeyToken, "tok-1"))
	a := f.newApp()
	a.Start()
	require.NoError(t, a.LoadView(context.Background()))
	a.Dashboard.SetIssueInput("QA-1")

	a.Session.Logout()

	assert.Equal(t, shell.ViewLogin, a.Router.Current())
	assert.Empty(t, a.Dashboard.State().Folders)
	assert.Empty(t, a.Dashboard.State().IssueInput)
	assert.False(t, a.Dashboard.Active())
}

func TestThemePersistsAcrossReload(t *testing.T) {
	f := newFixture(t)
	first := f.newApp()
	assert.Equal(t, shell.ThemeDark, first.Theme.Current())
	_, err := first.Theme.Toggle()
	require.NoError(t, err)

	second := f.newApp()
	assert.Equal(t, shell.ThemeLight, second.Theme.Current())
}
