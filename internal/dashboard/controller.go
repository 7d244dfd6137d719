// Package dashboard drives the sync screen and the history screen.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/apperr"
	"github.com/veloxcase/veloxcase-tui/internal/clock"
	"github.com/veloxcase/veloxcase-tui/internal/debounce"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

// Field names flagged by validation errors.
const (
	FieldIssueInput    = "issue_input"
	FieldFolder        = "folder"
	FieldNewFolderName = "new_folder_name"
)

// DefaultPreviewDelay is the input quiet period before a preview request.
const DefaultPreviewDelay = 800 * time.Millisecond

// minPreviewLength is the shortest input that can be an issue key worth
// previewing.
const minPreviewLength = 6

const (
	msgSyncRequired   = "Enter an issue key and pick a target folder."
	msgSyncStarted    = "Sync started, processing issues..."
	msgSyncFailed     = "Synchronization failed."
	msgUnreachable    = "Could not reach the server."
	msgDuplicate      = "A test case already exists for this issue."
	msgUpdating       = "Updating the existing case..."
	msgUpdateFailed   = "The update failed."
	msgUpdateError    = "An error occurred while updating."
	msgFolderRequired = "Enter a folder name."
	msgFolderExists   = "A folder with this name already exists!"
	msgFolderFailed   = "Could not create the folder."
)

// API is the part of the API client the sync screen needs.
type API interface {
	ListFolders(ctx context.Context, repoID int64) ([]api.Folder, error)
	CreateFolder(ctx context.Context, repoID int64, name string, parentID *int64) (int64, error)
	Stats(ctx context.Context) (api.Stats, error)
	Preview(ctx context.Context, issueKey string) (api.IssuePreview, error)
	Sync(ctx context.Context, req api.SyncRequest) ([]api.SyncResult, error)
}

var _ API = (*api.Client)(nil)

// Options configures a Controller.
type Options struct {
	// RepoID is the repository selected after every Reset.
	RepoID       int64
	PreviewDelay time.Duration
	Clock        clock.Clock
	// Authenticated gates every request.
	Authenticated func() bool
	// OnUnauthorized runs after any 401. It must not call back into the
	// controller synchronously while holding other locks.
	OnUnauthorized func()
	// BaseContext is used for preview requests fired by the debouncer.
	BaseContext context.Context
}

// FieldErrors flags dashboard fields that failed validation.
type FieldErrors struct {
	IssueInput    bool
	Folder        bool
	NewFolderName bool
}

// State is a snapshot of the sync screen.
type State struct {
	RepoID  int64
	Folders []api.Folder
	// SelectedFolder is 0 when nothing is selected.
	SelectedFolder int64
	IssueInput     string
	Preview        *api.IssuePreview
	PreviewLoading bool
	FoldersLoading bool
	Syncing        bool
	Results        []api.SyncResult
	// Duplicate is set while a sync is paused waiting for ForceUpdate or
	// DismissDuplicate.
	Duplicate     *api.SyncResult
	NewFolderName string
	Stats         api.Stats
	Errors        FieldErrors
}

// Paused reports whether a duplicate is waiting for a decision.
func (s State) Paused() bool { return s.Duplicate != nil }

// Outcome summarizes one synchronization.
type Outcome struct {
	Succeeded int
	Failed    int
	Duplicate *api.SyncResult
}

// Controller holds the sync screen state. Methods that talk to the API block
// and are meant to be called off the UI goroutine.
type Controller struct {
	api            API
	notify         toast.Notifier
	authenticated  func() bool
	onUnauthorized func()
	baseCtx        context.Context
	defaultRepo    int64
	preview        *debounce.Debouncer

	mu       sync.Mutex
	active   bool
	state    State
	inputGen uint64
	// epoch changes on Reset so responses from a previous session are dropped.
	epoch    uint64
	onChange []func()
}

// NewController returns a Controller in its initial state.
func NewController(client API, notify toast.Notifier, opts Options) *Controller {
	if opts.PreviewDelay <= 0 {
		opts.PreviewDelay = DefaultPreviewDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Authenticated == nil {
		opts.Authenticated = func() bool { return true }
	}
	if opts.OnUnauthorized == nil {
		opts.OnUnauthorized = func() {}
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	c := &Controller{
		api:            client,
		notify:         notify,
		authenticated:  opts.Authenticated,
		onUnauthorized: opts.OnUnauthorized,
		baseCtx:        opts.BaseContext,
		defaultRepo:    opts.RepoID,
		preview:        debounce.NewWithClock(opts.PreviewDelay, opts.Clock),
	}
	c.state.RepoID = opts.RepoID
	return c
}

// OnChange registers f to run after asynchronous state changes such as a
// preview arriving.
func (c *Controller) OnChange(f func()) {
	c.mu.Lock()
	c.onChange = append(c.onChange, f)
	c.mu.Unlock()
}

func (c *Controller) changed() {
	c.mu.Lock()
	hooks := append([]func(){}, c.onChange...)
	c.mu.Unlock()
	for _, f := range hooks {
		f()
	}
}

// State returns a snapshot safe to read without locking.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Folders = append([]api.Folder(nil), c.state.Folders...)
	s.Results = append([]api.SyncResult(nil), c.state.Results...)
	if c.state.Preview != nil {
		p := *c.state.Preview
		s.Preview = &p
	}
	if c.state.Duplicate != nil {
		d := *c.state.Duplicate
		s.Duplicate = &d
	}
	return s
}

// SetActive marks whether the dashboard view is showing. Leaving the view
// cancels a pending preview.
func (c *Controller) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
	if !active {
		c.preview.Cancel()
	}
}

// Active reports whether the dashboard view is showing.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Reset returns the controller to its initial state and drops in-flight
// responses. Called on every session transition.
func (c *Controller) Reset() {
	c.preview.Cancel()
	c.mu.Lock()
	c.epoch++
	c.inputGen++
	c.state = State{RepoID: c.defaultRepo}
	c.mu.Unlock()
}

// SetRepoID selects a repository. Folders and selection of the previous
// repository are dropped.
func (c *Controller) SetRepoID(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == c.state.RepoID {
		return
	}
	c.state.RepoID = id
	c.state.Folders = nil
	c.state.SelectedFolder = 0
}

// SetSelectedFolder selects the sync target and clears its error flag.
func (c *Controller) SetSelectedFolder(id int64) {
	c.mu.Lock()
	c.state.SelectedFolder = id
	c.state.Errors.Folder = false
	c.mu.Unlock()
}

// SetNewFolderName updates the folder creation input.
func (c *Controller) SetNewFolderName(name string) {
	c.mu.Lock()
	c.state.NewFolderName = name
	c.state.Errors.NewFolderName = false
	c.mu.Unlock()
}

// SetIssueInput updates the issue-key input and reschedules the preview.
func (c *Controller) SetIssueInput(input string) {
	c.mu.Lock()
	c.state.IssueInput = input
	c.state.Errors.IssueInput = false
	c.state.Preview = nil
	c.state.PreviewLoading = false
	c.inputGen++
	gen := c.inputGen
	c.mu.Unlock()

	c.preview.Trigger(func() { c.runPreview(gen, input) })
}

// previewable reports whether input looks like a single issue key.
func previewable(input string) bool {
	return utf8.RuneCountInString(input) >= minPreviewLength && !strings.Contains(input, ",")
}

func (c *Controller) runPreview(gen uint64, input string) {
	if !previewable(input) || !c.authenticated() {
		return
	}

	c.mu.Lock()
	if gen != c.inputGen {
		c.mu.Unlock()
		return
	}
	c.state.PreviewLoading = true
	c.mu.Unlock()
	c.changed()

	preview, err := c.api.Preview(c.baseCtx, input)

	c.mu.Lock()
	if gen != c.inputGen {
		// The input changed while the request was in flight.
		c.mu.Unlock()
		logger.Debug("dashboard: stale preview dropped key=%s", input)
		return
	}
	c.state.PreviewLoading = false
	if err != nil {
		c.state.Preview = nil
	} else {
		c.state.Preview = &preview
	}
	c.mu.Unlock()

	if err != nil {
		logger.Debug("dashboard: preview failed key=%s err=%v", input, err)
		c.handleUnauthorized(err)
	}
	c.changed()
}

// guard reports whether data for the dashboard may be fetched.
func (c *Controller) guard() (repoID int64, epoch uint64, ok bool) {
	authed := c.authenticated()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.RepoID, c.epoch, c.active && authed
}

func (c *Controller) stale(epoch uint64) bool {
	return epoch != c.epoch
}

func (c *Controller) handleUnauthorized(err error) bool {
	if !apperr.IsUnauthorized(err) {
		return false
	}
	c.onUnauthorized()
	return true
}

// FetchFolders loads and sorts the folders of the selected repository. It is
// a no-op unless a repository id is set, the session is authenticated and the
// dashboard is active.
func (c *Controller) FetchFolders(ctx context.Context) error {
	repoID, epoch, ok := c.guard()
	if !ok || repoID <= 0 {
		return nil
	}

	c.mu.Lock()
	c.state.FoldersLoading = true
	c.mu.Unlock()

	folders, err := c.api.ListFolders(ctx, repoID)
	if err == nil {
		SortFolders(folders)
	}

	c.mu.Lock()
	if c.stale(epoch) {
		c.mu.Unlock()
		return nil
	}
	c.state.FoldersLoading = false
	if repoID != c.state.RepoID {
		c.mu.Unlock()
		return nil
	}
	if err == nil {
		c.state.Folders = folders
	}
	c.mu.Unlock()

	if err != nil {
		logger.ErrorWithErr(err, "dashboard: fetch folders repo_id=%d", repoID)
		c.handleUnauthorized(err)
		return apperr.Wrap("fetch folders", "Could not load folders.", err)
	}
	logger.Debug("dashboard: folders loaded repo_id=%d count=%d", repoID, len(folders))
	return nil
}

// FetchStats refreshes the summary counters. Failures are logged only.
func (c *Controller) FetchStats(ctx context.Context) error {
	_, epoch, ok := c.guard()
	if !ok {
		return nil
	}

	stats, err := c.api.Stats(ctx)
	if err != nil {
		logger.ErrorWithErr(err, "dashboard: fetch stats")
		c.handleUnauthorized(err)
		return apperr.Wrap("fetch stats", "Could not load statistics.", err)
	}

	c.mu.Lock()
	if !c.stale(epoch) {
		c.state.Stats = stats
	}
	c.mu.Unlock()
	return nil
}

// Load runs the fetches the dashboard view needs when it becomes visible.
func (c *Controller) Load(ctx context.Context) error {
	err := c.FetchFolders(ctx)
	// Stats failures are logged by FetchStats and not reported.
	_ = c.FetchStats(ctx)
	return err
}

// Synchronize submits the issue input to the selected folder. Without input
// or folder it flags the fields and sends nothing. A duplicate result pauses
// the flow and returns a conflict error; see ForceUpdate and
// DismissDuplicate.
func (c *Controller) Synchronize(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state.Syncing {
		c.mu.Unlock()
		return Outcome{}, nil
	}
	input := c.state.IssueInput
	folder := c.state.SelectedFolder
	missingInput := strings.TrimSpace(input) == ""
	missingFolder := folder == 0
	c.state.Errors.IssueInput = missingInput
	c.state.Errors.Folder = missingFolder
	if missingInput || missingFolder {
		c.mu.Unlock()
		c.notify.Error(msgSyncRequired, toast.WithIcon("🛑"))
		var fields []string
		if missingInput {
			fields = append(fields, FieldIssueInput)
		}
		if missingFolder {
			fields = append(fields, FieldFolder)
		}
		return Outcome{}, apperr.Validation("sync", msgSyncRequired, fields...)
	}
	req := api.SyncRequest{IssueInput: input, FolderID: folder, ProjectID: c.state.RepoID}
	epoch := c.epoch
	c.state.Syncing = true
	c.state.Results = nil
	c.state.Duplicate = nil
	c.mu.Unlock()

	toastID := c.notify.Loading(msgSyncStarted)
	logger.Info("dashboard: sync started folder_id=%d project_id=%d", req.FolderID, req.ProjectID)
	results, err := c.api.Sync(ctx, req)

	c.mu.Lock()
	c.state.Syncing = false
	if c.stale(epoch) {
		c.mu.Unlock()
		c.notify.Dismiss(toastID)
		return Outcome{}, nil
	}
	if err != nil {
		c.mu.Unlock()
		logger.ErrorWithErr(err, "dashboard: sync")
		if c.handleUnauthorized(err) {
			c.notify.Dismiss(toastID)
		} else {
			c.notify.Update(toastID, toast.LevelError, msgUnreachable)
		}
		return Outcome{}, apperr.Wrap("sync", msgUnreachable, err)
	}

	out := partition(results)
	c.state.Results = results
	if out.Duplicate != nil {
		c.state.Duplicate = out.Duplicate
		c.mu.Unlock()
		c.notify.Dismiss(toastID)
		logger.Info("dashboard: sync paused on duplicate task=%s", out.Duplicate.Task)
		return out, apperr.Conflict("sync", msgDuplicate)
	}
	if out.Succeeded > 0 {
		c.state.IssueInput = ""
		c.state.Preview = nil
		c.state.PreviewLoading = false
		c.inputGen++
	}
	c.mu.Unlock()

	logger.Info("dashboard: sync finished succeeded=%d failed=%d", out.Succeeded, out.Failed)
	if out.Succeeded == 0 {
		c.notify.Update(toastID, toast.LevelError, msgSyncFailed)
		return out, &apperr.Error{Kind: apperr.KindServer, Op: "sync", Msg: msgSyncFailed}
	}

	c.preview.Cancel()
	msg := fmt.Sprintf("Done! %d issue(s) synchronized.", out.Succeeded)
	if out.Failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", out.Failed)
	}
	c.notify.Update(toastID, toast.LevelSuccess, msg, toast.WithDuration(5*time.Second))
	_ = c.FetchStats(ctx)
	return out, nil
}

// partition counts results. The first duplicate, if any, pauses the flow.
func partition(results []api.SyncResult) Outcome {
	var out Outcome
	for i := range results {
		switch results[i].Status {
		case api.StatusSuccess:
			out.Succeeded++
		case api.StatusDuplicate:
			if out.Duplicate == nil {
				d := results[i]
				out.Duplicate = &d
			}
		}
	}
	out.Failed = len(results) - out.Succeeded
	return out
}

// ForceUpdate re-submits the paused duplicate with the overwrite flag and
// puts its new outcome at the head of the results.
func (c *Controller) ForceUpdate(ctx context.Context) error {
	c.mu.Lock()
	dup := c.state.Duplicate
	if dup == nil || c.state.Syncing {
		c.mu.Unlock()
		return nil
	}
	req := api.SyncRequest{
		IssueInput:  dup.Task,
		FolderID:    c.state.SelectedFolder,
		ProjectID:   c.state.RepoID,
		ForceUpdate: true,
	}
	epoch := c.epoch
	c.state.Duplicate = nil
	c.state.Syncing = true
	c.mu.Unlock()

	toastID := c.notify.Loading(msgUpdating)
	logger.Info("dashboard: force update task=%s", dup.Task)
	results, err := c.api.Sync(ctx, req)

	c.mu.Lock()
	c.state.Syncing = false
	if c.stale(epoch) {
		c.mu.Unlock()
		c.notify.Dismiss(toastID)
		return nil
	}
	if err != nil || len(results) == 0 {
		c.mu.Unlock()
		if err == nil {
			c.notify.Update(toastID, toast.LevelError, msgUpdateFailed)
			return &apperr.Error{Kind: apperr.KindServer, Op: "force update", Msg: msgUpdateFailed}
		}
		logger.ErrorWithErr(err, "dashboard: force update task=%s", dup.Task)
		if c.handleUnauthorized(err) {
			c.notify.Dismiss(toastID)
		} else {
			c.notify.Update(toastID, toast.LevelError, msgUpdateError)
		}
		return apperr.Wrap("force update", msgUpdateError, err)
	}

	updated := results[0]
	merged := []api.SyncResult{updated}
	for _, r := range c.state.Results {
		if r.Task != dup.Task {
			merged = append(merged, r)
		}
	}
	c.state.Results = merged
	c.mu.Unlock()

	if updated.Status != api.StatusSuccess {
		c.notify.Update(toastID, toast.LevelError, msgUpdateFailed)
		return &apperr.Error{Kind: apperr.KindServer, Op: "force update", Msg: msgUpdateFailed}
	}
	c.notify.Update(toastID, toast.LevelSuccess, "Case updated: "+updated.CaseName)
	_ = c.FetchStats(ctx)
	return nil
}

// DismissDuplicate abandons a paused sync. The issue input is kept.
func (c *Controller) DismissDuplicate() {
	c.mu.Lock()
	c.state.Duplicate = nil
	c.mu.Unlock()
}

// CreateFolder creates a folder under the selected folder (or at the top
// level) and selects it. Names are trimmed; a case-insensitive match with a
// loaded folder is rejected without a request.
func (c *Controller) CreateFolder(ctx context.Context, name string) error {
	final := strings.TrimSpace(name)

	c.mu.Lock()
	c.state.NewFolderName = name
	var problem string
	switch {
	case final == "":
		problem = msgFolderRequired
	case hasFolderNamed(c.state.Folders, final):
		problem = msgFolderExists
	}
	if problem != "" {
		c.state.Errors.NewFolderName = true
		c.mu.Unlock()
		if problem == msgFolderExists {
			c.notify.Error(problem, toast.WithIcon("⚠️"))
		} else {
			c.notify.Error(problem)
		}
		return apperr.Validation("create folder", problem, FieldNewFolderName)
	}
	repoID := c.state.RepoID
	var parent *int64
	if c.state.SelectedFolder != 0 {
		p := c.state.SelectedFolder
		parent = &p
	}
	epoch := c.epoch
	c.mu.Unlock()

	id, err := c.api.CreateFolder(ctx, repoID, final, parent)
	var folders []api.Folder
	if err == nil {
		folders, err = c.api.ListFolders(ctx, repoID)
	}
	if err != nil {
		logger.ErrorWithErr(err, "dashboard: create folder name=%q", final)
		if c.handleUnauthorized(err) {
			return apperr.Wrap("create folder", msgFolderFailed, err)
		}
		msg := api.Message(err)
		if msg == "" {
			msg = msgFolderFailed
		}
		c.mu.Lock()
		c.state.Errors.NewFolderName = true
		c.mu.Unlock()
		c.notify.Error(msg)
		return apperr.Wrap("create folder", msg, err)
	}

	c.mu.Lock()
	if c.stale(epoch) {
		c.mu.Unlock()
		return nil
	}
	c.state.Folders = pinFirst(folders, id, final)
	if id != 0 {
		c.state.SelectedFolder = id
		c.state.Errors.Folder = false
	}
	c.state.NewFolderName = ""
	c.state.Errors.NewFolderName = false
	c.mu.Unlock()

	logger.Info("dashboard: folder created id=%d name=%q", id, final)
	c.notify.Success("Folder created: "+final, toast.WithIcon("📁"))
	return nil
}
