// Package app wires the controllers into one application state object
// shared by the terminal UI and the command line.
package app

import (
	"context"
	"net/http"

	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/clock"
	"github.com/veloxcase/veloxcase-tui/internal/config"
	"github.com/veloxcase/veloxcase-tui/internal/dashboard"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/session"
	"github.com/veloxcase/veloxcase-tui/internal/settings"
	"github.com/veloxcase/veloxcase-tui/internal/shell"
	"github.com/veloxcase/veloxcase-tui/internal/storage"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

// Deps are the collaborators New does not build from the configuration.
type Deps struct {
	Store storage.Store
	// HTTPClient overrides the API transport (tests).
	HTTPClient *http.Client
	// Clock drives debouncing, toast expiry and the post-save redirect.
	Clock clock.Clock
	// PrefersDark overrides terminal background detection.
	PrefersDark func() bool
	// Context bounds background requests such as previews.
	Context context.Context
}

// App owns every piece of client state. Each field has a single writer: the
// controller that owns it.
type App struct {
	Config    config.Config
	Store     storage.Store
	API       *api.Client
	Toasts    *toast.Center
	Session   *session.Manager
	Router    *shell.Router
	Theme     *shell.ThemeManager
	Dashboard *dashboard.Controller
	History   *dashboard.History
	Settings  *settings.Manager
}

// New builds the application state. Call Start before showing any view.
func New(cfg config.Config, deps Deps) *App {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Context == nil {
		deps.Context = context.Background()
	}

	a := &App{
		Config: cfg,
		Store:  deps.Store,
		API: api.NewClient(api.ClientConfig{
			Endpoint:   cfg.APIEndpoint,
			Timeout:    cfg.Timeout,
			HTTPClient: deps.HTTPClient,
		}),
		Toasts: toast.NewCenterWithClock(deps.Clock),
		Router: shell.NewRouter(),
		Theme:  shell.NewThemeManager(deps.Store, deps.PrefersDark),
	}
	a.Session = session.NewManager(a.API, a.Store, a.Toasts, cfg.SupportContact)

	a.Dashboard = dashboard.NewController(a.API, a.Toasts, dashboard.Options{
		RepoID:         cfg.RepoID,
		PreviewDelay:   cfg.PreviewDelay,
		Clock:          deps.Clock,
		Authenticated:  a.Session.Authenticated,
		OnUnauthorized: a.Session.HandleUnauthorized,
		BaseContext:    deps.Context,
	})
	a.History = dashboard.NewHistory(a.API, a.Toasts, a.Session.Authenticated, a.Session.HandleUnauthorized)
	a.Settings = settings.NewManager(a.API, a.Toasts, settings.Options{
		Clock:          deps.Clock,
		Authenticated:  a.Session.Authenticated,
		OnUnauthorized: a.Session.HandleUnauthorized,
		OnSaved: func() {
			if err := a.Navigate(shell.ViewDashboard); err != nil {
				logger.Debug("app: post-save redirect skipped: %v", err)
			}
		},
	})

	a.Router.OnChange(func(_, to shell.View) { a.activate(to) })
	a.Session.OnChange(a.sessionChanged)
	return a
}

// Start reads the stored session and shows the first view.
func (a *App) Start() session.State {
	state := a.Session.Init()
	logger.Info("app: started state=%s view=%s", state, a.Router.Current())
	return state
}

// sessionChanged resets everything that depended on the previous session
// before the router shows the next view.
func (a *App) sessionChanged(state session.State) {
	if state == session.StateLoading {
		return
	}
	a.Dashboard.Reset()
	a.History.Reset()
	a.Settings.Clear()
	a.Router.SetAuthenticated(state == session.StateAuthenticated)
	// The router does not notify when the view is unchanged, e.g. Init
	// landing on login.
	a.activate(a.Router.Current())
}

// activate makes the controller of v the only active one.
func (a *App) activate(v shell.View) {
	a.Dashboard.SetActive(v == shell.ViewDashboard)
	a.History.SetActive(v == shell.ViewHistory)
	a.Settings.SetActive(v == shell.ViewSettings)
}

// Navigate shows v if the session allows it.
func (a *App) Navigate(v shell.View) error {
	return a.Router.Navigate(v)
}

// LoadView fetches the data of the visible view.
func (a *App) LoadView(ctx context.Context) error {
	switch a.Router.Current() {
	case shell.ViewDashboard:
		return a.Dashboard.Load(ctx)
	case shell.ViewHistory:
		return a.History.Load(ctx)
	case shell.ViewSettings:
		return a.Settings.Load(ctx)
	default:
		return nil
	}
}

// Close releases the durable store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
