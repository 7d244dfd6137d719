package tui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/shell"
)

// FormatShortcut returns a human-readable string for a control-key shortcut.
func FormatShortcut(key tcell.Key) string {
	if key < tcell.KeyCtrlA || key > tcell.KeyCtrlZ {
		return ""
	}
	return "Ctrl+" + string(rune('A'+int(key-tcell.KeyCtrlA)))
}

// Command represents a command that can be executed from the palette.
type Command struct {
	ID       string
	Title    string
	Keywords []string
	// ShortcutKey is the global control key bound to the command, if any.
	ShortcutKey tcell.Key
	// RequiresAuth hides the command while signed out.
	RequiresAuth bool
	Run          func(a *App)
}

// Shortcut returns the display text of the command's shortcut.
func (c Command) Shortcut() string {
	return FormatShortcut(c.ShortcutKey)
}

// Matches reports whether the query appears in the title or a keyword.
func (c Command) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Title), query) {
		return true
	}
	for _, kw := range c.Keywords {
		if strings.HasPrefix(strings.ToLower(kw), query) {
			return true
		}
	}
	return false
}

// FilterCommands returns the commands available for the session state that
// match query, in their original order.
func FilterCommands(commands []Command, query string, authenticated bool) []Command {
	var out []Command
	for _, cmd := range commands {
		if cmd.RequiresAuth && !authenticated {
			continue
		}
		if cmd.Matches(query) {
			out = append(out, cmd)
		}
	}
	return out
}

// CommandForKey returns the command bound to key.
func CommandForKey(commands []Command, key tcell.Key) (Command, bool) {
	for _, cmd := range commands {
		if cmd.ShortcutKey != 0 && cmd.ShortcutKey == key {
			return cmd, true
		}
	}
	return Command{}, false
}

func navigateCommand(v shell.View) func(a *App) {
	return func(a *App) {
		if err := a.core.Navigate(v); err != nil {
			logger.Debug("tui.commands: navigation refused view=%s error=%v", v, err)
		}
	}
}

// DefaultCommands returns the default set of commands for the palette.
func DefaultCommands() []Command {
	return []Command{
		{
			ID:           "dashboard",
			Title:        "Go to dashboard",
			Keywords:     []string{"dashboard", "sync", "home"},
			ShortcutKey:  tcell.KeyCtrlD,
			RequiresAuth: true,
			Run:          navigateCommand(shell.ViewDashboard),
		},
		{
			ID:           "history",
			Title:        "Go to history",
			Keywords:     []string{"history", "log", "past"},
			ShortcutKey:  tcell.KeyCtrlH,
			RequiresAuth: true,
			Run:          navigateCommand(shell.ViewHistory),
		},
		{
			ID:           "settings",
			Title:        "Go to settings",
			Keywords:     []string{"settings", "credentials", "password"},
			ShortcutKey:  tcell.KeyCtrlS,
			RequiresAuth: true,
			Run:          navigateCommand(shell.ViewSettings),
		},
		{
			ID:           "refresh",
			Title:        "Refresh view",
			Keywords:     []string{"refresh", "reload"},
			ShortcutKey:  tcell.KeyCtrlR,
			RequiresAuth: true,
			Run: func(a *App) {
				a.loadView()
			},
		},
		{
			ID:          "theme",
			Title:       "Toggle light/dark theme",
			Keywords:    []string{"theme", "dark", "light"},
			ShortcutKey: tcell.KeyCtrlT,
			Run: func(a *App) {
				if _, err := a.core.Theme.Toggle(); err != nil {
					a.core.Toasts.Error("Could not save the theme preference.")
				}
			},
		},
		{
			ID:          "notifications",
			Title:       "Show notifications",
			Keywords:    []string{"notifications", "toasts", "messages"},
			ShortcutKey: tcell.KeyCtrlN,
			Run: func(a *App) {
				a.showActivity()
			},
		},
		{
			ID:       "contact",
			Title:    "Forgot password",
			Keywords: []string{"forgot", "password", "contact", "help"},
			Run: func(a *App) {
				a.core.Session.ForgotPassword()
				a.showContact()
			},
		},
		{
			ID:           "logout",
			Title:        "Log out",
			Keywords:     []string{"logout", "sign out", "exit"},
			ShortcutKey:  tcell.KeyCtrlL,
			RequiresAuth: true,
			Run: func(a *App) {
				a.core.Session.Logout()
			},
		},
		{
			ID:          "quit",
			Title:       "Quit",
			Keywords:    []string{"quit", "close"},
			ShortcutKey: tcell.KeyCtrlQ,
			Run: func(a *App) {
				a.app.Stop()
			},
		},
	}
}

// PaletteController holds the command palette query and cursor.
type PaletteController struct {
	commands      []Command
	authenticated func() bool
	query         string
	cursor        int
}

// NewPaletteController returns a controller over commands.
func NewPaletteController(commands []Command, authenticated func() bool) *PaletteController {
	return &PaletteController{commands: commands, authenticated: authenticated}
}

// Reset clears the query and moves the cursor to the top.
func (p *PaletteController) Reset() {
	p.query = ""
	p.cursor = 0
}

// Query returns the current filter text.
func (p *PaletteController) Query() string { return p.query }

// SetQuery updates the filter and clamps the cursor.
func (p *PaletteController) SetQuery(q string) {
	p.query = q
	p.cursor = 0
}

// Filtered returns the commands matching the query.
func (p *PaletteController) Filtered() []Command {
	return FilterCommands(p.commands, p.query, p.authenticated())
}

// Cursor returns the index of the highlighted command.
func (p *PaletteController) Cursor() int { return p.cursor }

func (p *PaletteController) MoveCursorUp() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *PaletteController) MoveCursorDown() {
	if p.cursor < len(p.Filtered())-1 {
		p.cursor++
	}
}

// Selected returns the highlighted command.
func (p *PaletteController) Selected() (Command, bool) {
	filtered := p.Filtered()
	if p.cursor < 0 || p.cursor >= len(filtered) {
		return Command{}, false
	}
	return filtered[p.cursor], true
}
