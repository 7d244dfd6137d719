package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	appstate "github.com/veloxcase/veloxcase-tui/internal/app"
	"github.com/veloxcase/veloxcase-tui/internal/dashboard"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/session"
	"github.com/veloxcase/veloxcase-tui/internal/shell"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

// view is one routed page.
type view interface {
	Primitive() tview.Primitive
	Focus() tview.Primitive
	ApplyTheme(Theme)
	render()
}

// App is the terminal front end. It renders the state owned by the core
// application and forwards user input to its controllers.
type App struct {
	app       *tview.Application
	core      *appstate.App
	ctx       context.Context
	theme     Theme
	themeTags ThemeTags

	// UI components
	pages      *tview.Pages
	views      *tview.Pages
	mainLayout *tview.Flex
	header     *tview.TextView
	statusBar  *tview.TextView

	login     *LoginView
	dashboard *DashboardView
	history   *HistoryView
	settings  *SettingsView

	duplicateModal *DuplicateModal
	activityModal  *TextModal
	contactModal   *TextModal

	paletteModal   *tview.Flex
	paletteContent *tview.Flex
	paletteInput   *tview.InputField
	paletteList    *tview.List
	paletteCtrl    *PaletteController
	paletteOpen    bool
	commands       []Command

	// Overridable in tests
	queueUpdateDraw func(func())
	runAsync        func(func())

	// UI update mutex (for test safety when queueUpdateDraw executes immediately)
	uiUpdateMu sync.Mutex
}

const pagePalette = "palette"

// NewApp creates the terminal UI over core. ctx bounds every request
// started from the UI.
func NewApp(ctx context.Context, core *appstate.App) *App {
	if ctx == nil {
		ctx = context.Background()
	}
	a := &App{
		app:      tview.NewApplication(),
		core:     core,
		ctx:      ctx,
		pages:    tview.NewPages(),
		commands: DefaultCommands(),
	}
	a.theme = ResolveTheme(core.Theme.Current())
	a.themeTags = NewThemeTags(a.theme)
	a.applyThemeStyles()

	a.buildLayout()
	a.bindGlobalKeys()
	a.subscribe()
	return a
}

// Run starts the application and blocks until it exits.
func (a *App) Run() error {
	a.app.SetRoot(a.pages, true).EnableMouse(true)
	a.start()
	return a.app.Run()
}

// start reads the stored session and shows the first view.
func (a *App) start() {
	state := a.core.Start()
	logger.Debug("tui.app: started session=%s", state)
	a.QueueUpdateDraw(func() {
		a.showView(a.core.Router.Current())
	})
}

// subscribe connects controller notifications to redraws. Notifications may
// arrive on any goroutine, so every handler goes through QueueUpdateDraw.
func (a *App) subscribe() {
	a.core.Router.OnChange(func(from, to shell.View) {
		logger.Debug("tui.app: view %s -> %s", from, to)
		a.QueueUpdateDraw(func() {
			a.showView(to)
		})
		if to != shell.ViewLogin {
			a.loadView()
		}
	})
	a.core.Session.OnChange(func(session.State) {
		a.QueueUpdateDraw(func() {
			a.login.render()
			a.updateHeader()
			a.updateStatusBar()
		})
	})
	a.core.Theme.OnChange(func(t shell.Theme) {
		a.QueueUpdateDraw(func() {
			a.applyTheme(t)
		})
	})
	a.core.Dashboard.OnChange(func() {
		a.QueueUpdateDraw(a.dashboard.render)
	})
	a.core.Toasts.SetOnChange(func() {
		a.QueueUpdateDraw(a.updateStatusBar)
	})
}

func (a *App) applyThemeStyles() {
	tview.Styles.PrimitiveBackgroundColor = a.theme.Background
	tview.Styles.ContrastBackgroundColor = a.theme.FieldBg
	tview.Styles.MoreContrastBackgroundColor = a.theme.HeaderBg
	tview.Styles.BorderColor = a.theme.Border
	tview.Styles.TitleColor = a.theme.Foreground
	tview.Styles.GraphicsColor = a.theme.Border
	tview.Styles.PrimaryTextColor = a.theme.Foreground
	tview.Styles.SecondaryTextColor = a.theme.SecondaryText
	tview.Styles.TertiaryTextColor = a.theme.SecondaryText
	tview.Styles.InverseTextColor = a.theme.Background
	tview.Styles.ContrastSecondaryTextColor = a.theme.SecondaryText
}

// applyTheme recolors every component for t.
func (a *App) applyTheme(t shell.Theme) {
	a.theme = ResolveTheme(t)
	a.themeTags = NewThemeTags(a.theme)
	a.applyThemeStyles()

	for _, v := range a.allViews() {
		v.ApplyTheme(a.theme)
	}
	a.duplicateModal.ApplyTheme(a.theme)
	a.activityModal.ApplyTheme(a.theme)
	a.contactModal.ApplyTheme(a.theme)
	a.applyPaletteTheme()

	a.header.SetBackgroundColor(a.theme.HeaderBg)
	a.statusBar.SetBackgroundColor(a.theme.HeaderBg)
	a.mainLayout.SetBackgroundColor(a.theme.Background)
	a.updateHeader()
	a.updateStatusBar()
	logger.Debug("tui.app: theme applied theme=%s", t)
}

func (a *App) buildLayout() {
	a.header = tview.NewTextView().SetDynamicColors(true)
	a.header.SetBackgroundColor(a.theme.HeaderBg)
	a.statusBar = tview.NewTextView().SetDynamicColors(true)
	a.statusBar.SetBackgroundColor(a.theme.HeaderBg)

	a.duplicateModal = NewDuplicateModal(a)
	a.activityModal = NewTextModal(a, pageActivity, "Notifications", 90, 24)
	a.contactModal = NewTextModal(a, pageContact, "Password reset", 72, 16)

	a.login = NewLoginView(a)
	a.dashboard = NewDashboardView(a)
	a.history = NewHistoryView(a)
	a.settings = NewSettingsView(a)

	a.views = tview.NewPages()
	current := a.core.Router.Current()
	for _, v := range []shell.View{shell.ViewLogin, shell.ViewDashboard, shell.ViewHistory, shell.ViewSettings} {
		a.views.AddPage(v.String(), a.viewFor(v).Primitive(), true, v == current)
	}

	a.mainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.header, 1, 0, false).
		AddItem(a.views, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)
	a.mainLayout.SetBackgroundColor(a.theme.Background)

	a.paletteModal = a.buildPaletteModal()

	a.pages.AddPage("main", a.mainLayout, true, true)
	a.pages.AddPage(pagePalette, a.paletteModal, true, false)

	a.updateHeader()
	a.updateStatusBar()
}

func (a *App) viewFor(v shell.View) view {
	switch v {
	case shell.ViewDashboard:
		return a.dashboard
	case shell.ViewHistory:
		return a.history
	case shell.ViewSettings:
		return a.settings
	default:
		return a.login
	}
}

func (a *App) allViews() []view {
	return []view{a.login, a.dashboard, a.history, a.settings}
}

// showView switches the visible page. Must run on the UI goroutine.
func (a *App) showView(v shell.View) {
	a.views.SwitchToPage(v.String())
	if v != shell.ViewDashboard {
		a.duplicateModal.Hide()
	}
	if v == shell.ViewLogin {
		a.activityModal.Hide()
	}
	a.viewFor(v).render()
	a.updateHeader()
	a.updateStatusBar()
	if !a.overlayOpen() {
		a.focusCurrentView()
	}
}

func (a *App) focusCurrentView() {
	a.app.SetFocus(a.viewFor(a.core.Router.Current()).Focus())
}

func (a *App) overlayOpen() bool {
	return a.paletteOpen || a.duplicateModal.Visible() || a.activityModal.Visible() || a.contactModal.Visible()
}

// loadView fetches the data of the visible view in the background and
// redraws it when done.
func (a *App) loadView() {
	v := a.core.Router.Current()
	a.goAsync(func(ctx context.Context) {
		if err := a.core.LoadView(ctx); err != nil {
			logger.Debug("tui.app: load view=%s error=%v", v, err)
		}
		a.QueueUpdateDraw(func() {
			a.viewFor(v).render()
		})
	})
}

// goAsync runs f off the UI goroutine.
func (a *App) goAsync(f func(ctx context.Context)) {
	run := func() { f(a.ctx) }
	if a.runAsync != nil {
		a.runAsync(run)
		return
	}
	go run()
}

// forceUpdate overwrites the paused duplicate.
func (a *App) forceUpdate() {
	a.goAsync(func(ctx context.Context) {
		_ = a.core.Dashboard.ForceUpdate(ctx)
		a.QueueUpdateDraw(a.dashboard.render)
	})
	a.dashboard.render()
}

// syncDuplicateModal shows the modal while a sync is paused on a duplicate.
func (a *App) syncDuplicateModal(state dashboard.State) {
	if a.duplicateModal == nil {
		return
	}
	switch {
	case state.Paused() && !a.duplicateModal.Visible() && a.core.Router.Current() == shell.ViewDashboard:
		a.duplicateModal.Show(*state.Duplicate)
	case !state.Paused() && a.duplicateModal.Visible():
		a.duplicateModal.Hide()
	}
}

func (a *App) showActivity() {
	a.activityModal.Show(FormatActivity(ActivityLines(a.core.Toasts.History()), a.themeTags))
}

func (a *App) showContact() {
	a.contactModal.Show(renderMarkdown(contactMarkdown(a.core.Session.Contact()), a.theme.Name, 64))
}

// bindGlobalKeys sets up global keyboard shortcuts.
func (a *App) bindGlobalKeys() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			a.app.Stop()
			return nil
		}

		if a.duplicateModal.Visible() {
			return a.duplicateModal.HandleKey(event)
		}
		if a.contactModal.Visible() {
			return a.contactModal.HandleKey(event)
		}
		if a.activityModal.Visible() {
			return a.activityModal.HandleKey(event)
		}
		if a.paletteOpen {
			return a.handlePaletteKey(event)
		}

		if event.Key() == tcell.KeyCtrlP {
			a.openPalette()
			return nil
		}
		// Ctrl+H is Backspace on some terminals; leave it to text fields.
		if event.Key() == tcell.KeyCtrlH {
			if _, ok := a.app.GetFocus().(*tview.InputField); ok {
				return event
			}
		}
		if cmd, ok := CommandForKey(a.commands, event.Key()); ok {
			if cmd.RequiresAuth && !a.core.Session.Authenticated() {
				return event
			}
			cmd.Run(a)
			return nil
		}
		return event
	})
}

func (a *App) buildPaletteModal() *tview.Flex {
	a.paletteCtrl = NewPaletteController(a.commands, a.core.Session.Authenticated)

	a.paletteInput = tview.NewInputField().
		SetLabel("> ")
	a.paletteList = tview.NewList().
		ShowSecondaryText(false).
		SetHighlightFullLine(true)

	content := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.paletteInput, 1, 0, true).
		AddItem(a.paletteList, 0, 1, false)
	content.SetBorder(true).SetTitle(" Commands ")

	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(content, 14, 0, true).
			AddItem(nil, 0, 1, false), 60, 0, true).
		AddItem(nil, 0, 1, false)
	a.paletteContent = content
	a.applyPaletteTheme()
	return modal
}

func (a *App) applyPaletteTheme() {
	if a.paletteContent == nil {
		return
	}
	a.paletteContent.SetBackgroundColor(a.theme.HeaderBg).
		SetBorderColor(a.theme.Accent).
		SetTitleColor(a.theme.Foreground)
	a.paletteInput.SetFieldBackgroundColor(a.theme.HeaderBg).
		SetFieldTextColor(a.theme.Foreground).
		SetLabelColor(a.theme.Accent).
		SetBackgroundColor(a.theme.HeaderBg)
	a.paletteList.SetMainTextColor(a.theme.Foreground).
		SetSelectedBackgroundColor(a.theme.SelectionBg).
		SetSelectedTextColor(a.theme.SelectionText).
		SetBackgroundColor(a.theme.HeaderBg)
}

func (a *App) updatePaletteList() {
	a.paletteList.Clear()
	for _, cmd := range a.paletteCtrl.Filtered() {
		title := cmd.Title
		if sc := cmd.Shortcut(); sc != "" {
			title = fmt.Sprintf("%s %s(%s)[-]", title, a.themeTags.SecondaryText, sc)
		}
		a.paletteList.AddItem(title, "", 0, nil)
	}
	if a.paletteList.GetItemCount() > 0 {
		a.paletteList.SetCurrentItem(a.paletteCtrl.Cursor())
	}
}

func (a *App) openPalette() {
	a.paletteCtrl.Reset()
	a.paletteInput.SetText("")
	a.updatePaletteList()
	a.paletteOpen = true
	a.pages.ShowPage(pagePalette)
	a.pages.SendToFront(pagePalette)
	a.app.SetFocus(a.paletteInput)
}

func (a *App) closePalette() {
	a.paletteOpen = false
	a.pages.HidePage(pagePalette)
	a.focusCurrentView()
}

func (a *App) handlePaletteKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		a.closePalette()
		return nil
	case tcell.KeyEnter:
		if cmd, ok := a.paletteCtrl.Selected(); ok {
			a.closePalette()
			cmd.Run(a)
		}
		return nil
	case tcell.KeyUp:
		a.paletteCtrl.MoveCursorUp()
		a.updatePaletteList()
		return nil
	case tcell.KeyDown:
		a.paletteCtrl.MoveCursorDown()
		a.updatePaletteList()
		return nil
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		query := []rune(a.paletteCtrl.Query())
		if len(query) > 0 {
			a.paletteCtrl.SetQuery(string(query[:len(query)-1]))
			a.paletteInput.SetText(a.paletteCtrl.Query())
			a.updatePaletteList()
		}
		return nil
	case tcell.KeyRune:
		query := a.paletteCtrl.Query() + string(event.Rune())
		a.paletteCtrl.SetQuery(query)
		a.paletteInput.SetText(query)
		a.updatePaletteList()
		return nil
	}
	return event
}

func (a *App) updateHeader() {
	tags := a.themeTags
	current := a.core.Router.Current()

	var tabs []string
	if a.core.Session.Authenticated() {
		for _, v := range []shell.View{shell.ViewDashboard, shell.ViewHistory, shell.ViewSettings} {
			label := strings.ToUpper(v.String()[:1]) + v.String()[1:]
			if v == current {
				tabs = append(tabs, fmt.Sprintf("%s[::b]%s[::-][-]", tags.Accent, label))
			} else {
				tabs = append(tabs, fmt.Sprintf("%s%s[-]", tags.SecondaryText, label))
			}
		}
	} else {
		tabs = append(tabs, fmt.Sprintf("%sSign in[-]", tags.Accent))
	}

	themeLabel := "☾ dark"
	if a.theme.Name == shell.ThemeLight {
		themeLabel = "☀ light"
	}
	sep := fmt.Sprintf("%s | [-]", tags.Border)
	a.header.SetText(fmt.Sprintf(" %s[::b]VeloxCase[::-][-]%s%s%s%s%s[-]",
		tags.Foreground, sep, strings.Join(tabs, "  "), sep, tags.SecondaryText, themeLabel))
}

func (a *App) updateStatusBar() {
	tags := a.themeTags
	if t, ok := a.core.Toasts.Latest(); ok {
		text := tview.Escape(t.Message)
		if t.Icon != "" {
			text = t.Icon + " " + text
		} else if t.Level == toast.LevelLoading {
			text = "⏳ " + text
		}
		a.statusBar.SetText(fmt.Sprintf(" %s%s[-]", levelTag(t.Level, tags), text))
		return
	}

	var help string
	if a.core.Session.Authenticated() {
		help = "Ctrl+P: commands | Ctrl+D/H/S: views | Ctrl+R: refresh | Ctrl+T: theme | Ctrl+N: notifications | Ctrl+L: logout | Ctrl+Q: quit"
	} else {
		help = "Tab: next field | Enter: submit | Ctrl+P: commands | Ctrl+T: theme | Ctrl+Q: quit"
	}
	a.statusBar.SetText(fmt.Sprintf(" %s%s[-]", tags.SecondaryText, help))
}

// QueueUpdateDraw queues a UI update function to be run in the main thread.
func (a *App) QueueUpdateDraw(f func()) {
	if a.queueUpdateDraw != nil {
		// Serialize UI updates when test overrides queueUpdateDraw to execute immediately
		a.uiUpdateMu.Lock()
		defer a.uiUpdateMu.Unlock()
		a.queueUpdateDraw(f)
		return
	}
	a.app.QueueUpdateDraw(f)
}
