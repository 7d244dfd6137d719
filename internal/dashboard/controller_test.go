package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/apperr"
	"github.com/veloxcase/veloxcase-tui/internal/clock"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

type fakeAPI struct {
	mu sync.Mutex

	folders      []api.Folder
	foldersErr   error
	createdID    int64
	createErr    error
	stats        api.Stats
	statsErr     error
	preview      api.IssuePreview
	previewErr   error
	onPreview    func(key string)
	syncResults  [][]api.SyncResult
	syncErr      error
	history      []api.HistoryEntry
	historyErr   error
	syncRequests []api.SyncRequest
	previewKeys  []string
	createCalls  int
	listCalls    int
	statsCalls   int
	parentIDs    []*int64
}

func (f *fakeAPI) ListFolders(_ context.Context, repoID int64) ([]api.Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]api.Folder(nil), f.folders...), f.foldersErr
}

func (f *fakeAPI) CreateFolder(_ context.Context, repoID int64, name string, parentID *int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.parentIDs = append(f.parentIDs, parentID)
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.folders = append(f.folders, api.Folder{ID: f.createdID, Name: name, ParentID: parentID})
	return f.createdID, nil
}

func (f *fakeAPI) Stats(context.Context) (api.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return f.stats, f.statsErr
}

func (f *fakeAPI) Preview(_ context.Context, key string) (api.IssuePreview, error) {
	f.mu.Lock()
	f.previewKeys = append(f.previewKeys, key)
	hook := f.onPreview
	p, err := f.preview, f.previewErr
	f.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return p, err
}

func (f *fakeAPI) Sync(_ context.Context, req api.SyncRequest) ([]api.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncRequests = append(f.syncRequests, req)
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	if len(f.syncResults) == 0 {
		return nil, nil
	}
	next := f.syncResults[0]
	f.syncResults = f.syncResults[1:]
	return next, nil
}

func (f *fakeAPI) History(context.Context) ([]api.HistoryEntry, error) {
	return f.history, f.historyErr
}

type fixture struct {
	api          *fakeAPI
	clock        *clock.Fake
	toasts       *toast.Center
	ctrl         *Controller
	authed       bool
	unauthorized int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		api:    &fakeAPI{createdID: 99},
		clock:  clock.NewFake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)),
		authed: true,
	}
	f.toasts = toast.NewCenterWithClock(f.clock)
	f.ctrl = NewController(f.api, f.toasts, Options{
		RepoID:         1,
		PreviewDelay:   800 * time.Millisecond,
		Clock:          f.clock,
		Authenticated:  func() bool { return f.authed },
		OnUnauthorized: func() { f.unauthorized++ },
	})
	f.ctrl.SetActive(true)
	return f
}

func (f *fixture) lastToast(t *testing.T) toast.Toast {
	t.Helper()
	history := f.toasts.History()
	require.NotEmpty(t, history)
	return history[len(history)-1]
}

func unauthorizedErr() error {
	return &api.Error{Op: "x", StatusCode: http.StatusUnauthorized}
}

func TestSynchronize_RequiresInputAndFolder(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		folder     int64
		wantFields []string
		wantErrs   FieldErrors
	}{
		{name: "both missing", wantFields: []string{FieldIssueInput, FieldFolder}, wantErrs: FieldErrors{IssueInput: true, Folder: true}},
		{name: "blank input", input: "   ", folder: 4, wantFields: []string{FieldIssueInput}, wantErrs: FieldErrors{IssueInput: true}},
		{name: "no folder", input: "QA-1", wantFields: []string{FieldFolder}, wantErrs: FieldErrors{Folder: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ctrl.SetIssueInput(tt.input)
			f.ctrl.SetSelectedFolder(tt.folder)

			_, err := f.ctrl.Synchronize(context.Background())

			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tt.wantFields, apperr.FieldsOf(err))
			assert.Equal(t, tt.wantErrs, f.ctrl.State().Errors)
			assert.Empty(t, f.api.syncRequests, "no network call")
			assert.Equal(t, toast.LevelError, f.lastToast(t).Level)
		})
	}
}

func TestSynchronize_PartialSuccess(t *testing.T) {
	f := newFixture(t)
	f.api.syncResults = [][]api.SyncResult{{
		{Task: "QA-1", Status: api.StatusSuccess, CaseName: "a"},
		{Task: "QA-2", Status: api.StatusSuccess, CaseName: "b"},
		{Task: "QA-3", Status: api.StatusError, Msg: "missing"},
	}}
	f.api.stats = api.Stats{TotalCases: 12}
	f.ctrl.SetIssueInput("QA-1,QA-2,QA-3")
	f.ctrl.SetSelectedFolder(4)

	out, err := f.ctrl.Synchronize(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Outcome{Succeeded: 2, Failed: 1}, out)
	state := f.ctrl.State()
	assert.Empty(t, state.IssueInput, "input cleared")
	assert.Len(t, state.Results, 3)
	assert.Equal(t, 1, f.api.statsCalls, "stats refreshed")
	assert.Equal(t, 12, state.Stats.TotalCases)
	assert.Equal(t, api.SyncRequest{IssueInput: "QA-1,QA-2,QA-3", FolderID: 4, ProjectID: 1}, f.api.syncRequests[0])

	last := f.lastToast(t)
	assert.Equal(t, toast.LevelSuccess, last.Level)
	assert.Equal(t, 5*time.Second, last.Duration)
	assert.Contains(t, last.Message, "(1 failed)")
	assert.Len(t, f.toasts.History(), 1, "loading toast replaced in place")
}

func TestSynchronize_AllFailedKeepsInput(t *testing.T) {
	f := newFixture(t)
	f.api.syncResults = [][]api.SyncResult{{{Task: "QA-1", Status: api.StatusError, Msg: "nope"}}}
	f.ctrl.SetIssueInput("QA-1")
	f.ctrl.SetSelectedFolder(4)

	out, err := f.ctrl.Synchronize(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperr.KindServer, apperr.KindOf(err))
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "QA-1", f.ctrl.State().IssueInput)
	assert.Equal(t, 0, f.api.statsCalls)
	assert.Equal(t, toast.LevelError, f.lastToast(t).Level)
}

func TestSynchronize_DuplicatePausesUntilForceUpdate(t *testing.T) {
	f := newFixture(t)
	f.api.syncResults = [][]api.SyncResult{
		{
			{Task: "QA-1", Status: api.StatusSuccess, CaseName: "a"},
			{Task: "QA-2", Status: api.StatusDuplicate, Msg: "exists"},
		},
		{{Task: "QA-2", Status: api.StatusSuccess, CaseName: "updated"}},
	}
	f.ctrl.SetIssueInput("QA-1,QA-2")
	f.ctrl.SetSelectedFolder(4)

	out, err := f.ctrl.Synchronize(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.NotNil(t, out.Duplicate)
	state := f.ctrl.State()
	require.True(t, state.Paused())
	assert.Equal(t, "QA-2", state.Duplicate.Task)
	assert.Equal(t, "QA-1,QA-2", state.IssueInput, "input kept while paused")
	assert.Equal(t, 0, f.api.statsCalls)
	assert.Empty(t, f.toasts.Active(), "loading toast dismissed")

	require.NoError(t, f.ctrl.ForceUpdate(context.Background()))

	state = f.ctrl.State()
	assert.False(t, state.Paused())
	require.Len(t, f.api.syncRequests, 2)
	assert.Equal(t, api.SyncRequest{IssueInput: "QA-2", FolderID: 4, ProjectID: 1, ForceUpdate: true}, f.api.syncRequests[1])
	require.Len(t, state.Results, 2)
	assert.Equal(t, api.SyncResult{Task: "QA-2", Status: api.StatusSuccess, CaseName: "updated"}, state.Results[0])
	assert.Equal(t, "QA-1", state.Results[1].Task)
	assert.Equal(t, 1, f.api.statsCalls)
	assert.Equal(t, "Case updated: updated", f.lastToast(t).Message)
}

func TestDismissDuplicate(t *testing.T) {
	f := newFixture(t)
	f.api.syncResults = [][]api.SyncResult{{{Task: "QA-9", Status: api.StatusDuplicate}}}
	f.ctrl.SetIssueInput("QA-9")
	f.ctrl.SetSelectedFolder(4)
	_, _ = f.ctrl.Synchronize(context.Background())
	require.True(t, f.ctrl.State().Paused())

	f.ctrl.DismissDuplicate()

	assert.False(t, f.ctrl.State().Paused())
	assert.Equal(t, "QA-9", f.ctrl.State().IssueInput)
	require.NoError(t, f.ctrl.ForceUpdate(context.Background()))
	assert.Len(t, f.api.syncRequests, 1, "nothing to force after dismissal")
}

func TestForceUpdate_Failure(t *testing.T) {
	f := newFixture(t)
	f.api.syncResults = [][]api.SyncResult{
		{{Task: "QA-9", Status: api.StatusDuplicate}},
		{{Task: "QA-9", Status: api.StatusError, Msg: "locked"}},
	}
	f.ctrl.SetIssueInput("QA-9")
	f.ctrl.SetSelectedFolder(4)
	_, _ = f.ctrl.Synchronize(context.Background())

	err := f.ctrl.ForceUpdate(context.Background())

	require.Error(t, err)
	state := f.ctrl.State()
	assert.False(t, state.Paused())
	require.Len(t, state.Results, 1)
	assert.Equal(t, api.StatusError, state.Results[0].Status)
	assert.Equal(t, 0, f.api.statsCalls)
}

func TestSynchronize_NetworkError(t *testing.T) {
	f := newFixture(t)
	f.api.syncErr = errors.New("connection refused")
	f.ctrl.SetIssueInput("QA-1")
	f.ctrl.SetSelectedFolder(4)

	_, err := f.ctrl.Synchronize(context.Background())

	require.Error(t, err)
	assert.Equal(t, msgUnreachable, f.lastToast(t).Message)
	assert.Equal(t, "QA-1", f.ctrl.State().IssueInput)
	assert.False(t, f.ctrl.State().Syncing)
	assert.Equal(t, 0, f.unauthorized)
}

func TestSynchronize_UnauthorizedLogsOut(t *testing.T) {
	f := newFixture(t)
	f.api.syncErr = unauthorizedErr()
	f.ctrl.SetIssueInput("QA-1")
	f.ctrl.SetSelectedFolder(4)

	_, err := f.ctrl.Synchronize(context.Background())

	assert.True(t, apperr.IsUnauthorized(err))
	assert.Equal(t, 1, f.unauthorized)
}

func TestPreview_DebounceContract(t *testing.T) {
	f := newFixture(t)
	f.api.preview = api.IssuePreview{Key: "PROJ-123", Summary: "Checkout"}

	f.ctrl.SetIssueInput("PROJ-1")
	f.clock.Advance(500 * time.Millisecond)
	f.ctrl.SetIssueInput("PROJ-12")
	f.clock.Advance(500 * time.Millisecond)
	f.ctrl.SetIssueInput("PROJ-123")
	f.clock.Advance(799 * time.Millisecond)
	assert.Empty(t, f.api.previewKeys, "nothing before 800ms of inactivity")

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"PROJ-123"}, f.api.previewKeys)
	state := f.ctrl.State()
	require.NotNil(t, state.Preview)
	assert.Equal(t, "Checkout", state.Preview.Summary)
	assert.False(t, state.PreviewLoading)

	f.clock.Advance(5 * time.Second)
	assert.Len(t, f.api.previewKeys, 1, "fires at most once")
}

func TestPreview_NeverForBatchOrShortInput(t *testing.T) {
	tests := []string{"QA-12", "QA-1,QA-2", "PROJ-1,", "", "ÇĞÜ-1"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			f := newFixture(t)
			f.ctrl.SetIssueInput(input)
			f.clock.Advance(time.Second)
			assert.Empty(t, f.api.previewKeys)
			assert.Nil(t, f.ctrl.State().Preview)
		})
	}
}

func TestPreview_StaleResponseDropped(t *testing.T) {
	f := newFixture(t)
	f.api.preview = api.IssuePreview{Key: "PROJ-100"}
	f.api.onPreview = func(string) {
		// The user keeps typing while the request is in flight.
		f.ctrl.SetIssueInput("PROJ-1001")
	}

	f.ctrl.SetIssueInput("PROJ-100")
	f.clock.Advance(800 * time.Millisecond)

	state := f.ctrl.State()
	assert.Nil(t, state.Preview, "response for the old input is discarded")
	assert.Equal(t, "PROJ-1001", state.IssueInput)
}

func TestPreview_ClearedOnInputChange(t *testing.T) {
	f := newFixture(t)
	f.api.preview = api.IssuePreview{Key: "PROJ-123"}
	f.ctrl.SetIssueInput("PROJ-123")
	f.clock.Advance(800 * time.Millisecond)
	require.NotNil(t, f.ctrl.State().Preview)

	f.ctrl.SetIssueInput("PROJ-12")
	assert.Nil(t, f.ctrl.State().Preview)
}

func TestPreview_CancelledWhenViewLeft(t *testing.T) {
	f := newFixture(t)
	f.ctrl.SetIssueInput("PROJ-123")
	f.ctrl.SetActive(false)
	f.clock.Advance(time.Second)
	assert.Empty(t, f.api.previewKeys)
}

func TestFetchFolders_Guarded(t *testing.T) {
	f := newFixture(t)
	f.api.folders = []api.Folder{{ID: 1, Name: "b"}}

	f.ctrl.SetActive(false)
	require.NoError(t, f.ctrl.FetchFolders(context.Background()))
	f.ctrl.SetActive(true)
	f.authed = false
	require.NoError(t, f.ctrl.FetchFolders(context.Background()))
	f.authed = true
	f.ctrl.SetRepoID(0)
	require.NoError(t, f.ctrl.FetchFolders(context.Background()))

	assert.Equal(t, 0, f.api.listCalls)
}

func TestFetchFolders_SortedLocaleAware(t *testing.T) {
	f := newFixture(t)
	f.api.folders = []api.Folder{
		{ID: 1, Name: "Zeta"},
		{ID: 2, Name: "çalışma"},
		{ID: 3, Name: "Cart"},
		{ID: 4, Name: "alpha"},
		{ID: 5, Name: "Ödeme"},
	}

	require.NoError(t, f.ctrl.FetchFolders(context.Background()))

	var names []string
	for _, folder := range f.ctrl.State().Folders {
		names = append(names, folder.Name)
	}
	assert.Equal(t, []string{"alpha", "Cart", "çalışma", "Ödeme", "Zeta"}, names)
}

func TestFetchFolders_UnauthorizedLogsOut(t *testing.T) {
	f := newFixture(t)
	f.api.foldersErr = unauthorizedErr()

	err := f.ctrl.FetchFolders(context.Background())

	assert.True(t, apperr.IsUnauthorized(err))
	assert.Equal(t, 1, f.unauthorized)
	assert.False(t, f.ctrl.State().FoldersLoading)
}

func TestFetchStats_FailureNotToasted(t *testing.T) {
	f := newFixture(t)
	f.api.statsErr = errors.New("boom")

	assert.Error(t, f.ctrl.FetchStats(context.Background()))
	assert.Empty(t, f.toasts.History())
	assert.NoError(t, f.ctrl.Load(context.Background()), "Load ignores stats failures")
}

func TestCreateFolder_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "blank", in: "   "},
		{name: "case-insensitive duplicate", in: " SMOKE "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.api.folders = []api.Folder{{ID: 1, Name: "Smoke"}}
			require.NoError(t, f.ctrl.FetchFolders(context.Background()))

			err := f.ctrl.CreateFolder(context.Background(), tt.in)

			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.True(t, f.ctrl.State().Errors.NewFolderName)
			assert.Equal(t, 0, f.api.createCalls, "rejected before any request")
		})
	}
}

func TestCreateFolder_PinsAndSelectsNewFolder(t *testing.T) {
	f := newFixture(t)
	f.api.folders = []api.Folder{{ID: 3, Name: "Zeta"}, {ID: 1, Name: "Alpha"}}
	require.NoError(t, f.ctrl.FetchFolders(context.Background()))
	f.ctrl.SetSelectedFolder(3)

	require.NoError(t, f.ctrl.CreateFolder(context.Background(), "  Regression "))

	state := f.ctrl.State()
	require.Len(t, state.Folders, 3)
	assert.Equal(t, "Regression", state.Folders[0].Name)
	assert.Equal(t, "Alpha", state.Folders[1].Name)
	assert.Equal(t, "Zeta", state.Folders[2].Name)
	assert.Equal(t, int64(99), state.SelectedFolder)
	assert.Empty(t, state.NewFolderName)
	require.Len(t, f.api.parentIDs, 1)
	require.NotNil(t, f.api.parentIDs[0])
	assert.Equal(t, int64(3), *f.api.parentIDs[0], "parent is the selected folder")
	assert.Equal(t, 2, f.api.listCalls, "list re-fetched after create")
}

func TestCreateFolder_TopLevelAndServerMessage(t *testing.T) {
	f := newFixture(t)
	f.api.createErr = &api.Error{StatusCode: http.StatusBadRequest, Msg: "Folder limit reached"}

	err := f.ctrl.CreateFolder(context.Background(), "New")

	require.Error(t, err)
	assert.Nil(t, f.api.parentIDs[0], "no selection creates a top-level folder")
	assert.Equal(t, "Folder limit reached", f.lastToast(t).Message)
	assert.True(t, f.ctrl.State().Errors.NewFolderName)
}

func TestReset_DropsState(t *testing.T) {
	f := newFixture(t)
	f.ctrl.SetRepoID(5)
	f.ctrl.SetIssueInput("PROJ-123")
	f.ctrl.SetSelectedFolder(2)

	f.ctrl.Reset()
	f.clock.Advance(time.Second)

	state := f.ctrl.State()
	assert.Equal(t, State{RepoID: 1}, state)
	assert.Empty(t, f.api.previewKeys, "pending preview cancelled")
}

func TestSetRepoID_DropsSelection(t *testing.T) {
	f := newFixture(t)
	f.api.folders = []api.Folder{{ID: 1, Name: "A"}}
	require.NoError(t, f.ctrl.FetchFolders(context.Background()))
	f.ctrl.SetSelectedFolder(1)

	f.ctrl.SetRepoID(2)

	state := f.ctrl.State()
	assert.Equal(t, int64(2), state.RepoID)
	assert.Empty(t, state.Folders)
	assert.Zero(t, state.SelectedFolder)
}

func TestHistory_LoadOnlyWhenActive(t *testing.T) {
	fake := &fakeAPI{history: []api.HistoryEntry{{ID: 1, Task: "QA-1", Status: "success"}}}
	toasts := toast.NewCenterWithClock(clock.NewFake(time.Unix(0, 0)))
	h := NewHistory(fake, toasts, nil, nil)

	require.NoError(t, h.Load(context.Background()))
	assert.Empty(t, h.Entries())

	h.SetActive(true)
	require.NoError(t, h.Load(context.Background()))
	assert.Len(t, h.Entries(), 1)
	assert.False(t, h.Loading())

	h.Reset()
	assert.Empty(t, h.Entries())
}

func TestHistory_Errors(t *testing.T) {
	fake := &fakeAPI{historyErr: unauthorizedErr()}
	toasts := toast.NewCenterWithClock(clock.NewFake(time.Unix(0, 0)))
	logouts := 0
	h := NewHistory(fake, toasts, func() bool { return true }, func() { logouts++ })
	h.SetActive(true)

	assert.Error(t, h.Load(context.Background()))
	assert.Equal(t, 1, logouts)
	assert.Empty(t, toasts.History())

	fake.historyErr = errors.New("boom")
	assert.Error(t, h.Load(context.Background()))
	assert.Len(t, toasts.History(), 1)
}
