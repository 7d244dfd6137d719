package shell

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/storage"
)

// Theme is the color scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme converts a stored or typed theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// TerminalPrefersDark reports whether the terminal has a dark background.
func TerminalPrefersDark() bool {
	return termenv.HasDarkBackground()
}

// ThemeManager resolves and persists the theme. A stored preference wins
// over the terminal default.
type ThemeManager struct {
	store       storage.Store
	prefersDark func() bool

	mu        sync.Mutex
	current   Theme
	listeners []func(Theme)
}

// NewThemeManager loads the stored theme, falling back to prefersDark. A nil
// prefersDark uses TerminalPrefersDark.
func NewThemeManager(store storage.Store, prefersDark func() bool) *ThemeManager {
	if prefersDark == nil {
		prefersDark = TerminalPrefersDark
	}
	m := &ThemeManager{store: store, prefersDark: prefersDark}
	m.current = m.resolve()
	return m
}

func (m *ThemeManager) resolve() Theme {
	stored, err := m.store.Get(storage.KeyTheme)
	switch {
	case err == nil:
		if t, perr := ParseTheme(stored); perr == nil {
			return t
		}
		logger.Warning("theme: ignoring stored value %q", stored)
	case !errors.Is(err, storage.ErrNotFound):
		logger.ErrorWithErr(err, "theme: read preference")
	}

	if m.prefersDark() {
		return ThemeDark
	}
	return ThemeLight
}

// OnChange registers f to run after the theme changes.
func (m *ThemeManager) OnChange(f func(Theme)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, f)
	m.mu.Unlock()
}

// Current returns the active theme.
func (m *ThemeManager) Current() Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set activates and persists t.
func (m *ThemeManager) Set(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if err := m.store.Set(storage.KeyTheme, string(t)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}

	m.mu.Lock()
	changed := m.current != t
	m.current = t
	listeners := append([]func(Theme){}, m.listeners...)
	m.mu.Unlock()

	if changed {
		logger.Debug("theme: now %s", t)
		for _, f := range listeners {
			f(t)
		}
	}
	return nil
}

// Toggle switches between light and dark and persists the result.
func (m *ThemeManager) Toggle() (Theme, error) {
	next := m.Current().Opposite()
	if err := m.Set(next); err != nil {
		return m.Current(), err
	}
	return next, nil
}
