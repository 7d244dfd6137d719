package shell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veloxcase/veloxcase-tui/internal/storage"
)

func TestRouter_AuthGating(t *testing.T) {
	r := NewRouter()
	assert.Equal(t, ViewLogin, r.Current())

	assert.ErrorIs(t, r.Navigate(ViewDashboard), ErrForbidden)
	assert.ErrorIs(t, r.Navigate(ViewSettings), ErrForbidden)

	r.SetAuthenticated(true)
	assert.Equal(t, ViewDashboard, r.Current())
	assert.ErrorIs(t, r.Navigate(ViewLogin), ErrForbidden)

	for _, v := range []View{ViewHistory, ViewSettings, ViewDashboard, ViewSettings} {
		require.NoError(t, r.Navigate(v))
		assert.Equal(t, v, r.Current())
	}

	r.SetAuthenticated(false)
	assert.Equal(t, ViewLogin, r.Current())
}

func TestRouter_Listeners(t *testing.T) {
	r := NewRouter()
	var seen []string
	r.OnChange(func(from, to View) { seen = append(seen, from.String()+">"+to.String()) })

	r.SetAuthenticated(true)
	require.NoError(t, r.Navigate(ViewHistory))
	require.NoError(t, r.Navigate(ViewHistory))
	r.SetAuthenticated(false)

	assert.Equal(t, []string{"login>dashboard", "dashboard>history", "history>login"}, seen)
}

func TestParseView(t *testing.T) {
	v, err := ParseView("Settings")
	require.NoError(t, err)
	assert.Equal(t, ViewSettings, v)

	_, err = ParseView("admin")
	assert.Error(t, err)
	assert.Equal(t, "view(9)", View(9).String())
}

func TestTheme_DefaultsToTerminal(t *testing.T) {
	dark := NewThemeManager(storage.NewMemory(), func() bool { return true })
	assert.Equal(t, ThemeDark, dark.Current())

	light := NewThemeManager(storage.NewMemory(), func() bool { return false })
	assert.Equal(t, ThemeLight, light.Current())
}

func TestTheme_PersistsAcrossReload(t *testing.T) {
	store := storage.NewMemory()
	first := NewThemeManager(store, func() bool { return true })
	require.Equal(t, ThemeDark, first.Current())

	next, err := first.Toggle()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, next)

	reloaded := NewThemeManager(store, func() bool { return true })
	assert.Equal(t, ThemeLight, reloaded.Current(), "stored preference overrides the terminal default")
}

func TestTheme_InvalidStoredValueIgnored(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Set(storage.KeyTheme, "sepia"))

	m := NewThemeManager(store, func() bool { return false })
	assert.Equal(t, ThemeLight, m.Current())
}

func TestTheme_SetNotifies(t *testing.T) {
	m := NewThemeManager(storage.NewMemory(), func() bool { return false })
	var got []Theme
	m.OnChange(func(th Theme) { got = append(got, th) })

	require.NoError(t, m.Set(ThemeDark))
	require.NoError(t, m.Set(ThemeDark))
	assert.Error(t, m.Set(Theme("blue")))

	assert.Equal(t, []Theme{ThemeDark}, got)
}

type failingStore struct{ storage.Store }

func (failingStore) Get(string) (string, error) { return "", storage.ErrNotFound }
func (failingStore) Set(string, string) error  { return errors.New("disk full") }

func TestTheme_PersistFailure(t *testing.T) {
	m := NewThemeManager(failingStore{}, func() bool { return false })

	theme, err := m.Toggle()

	assert.Error(t, err)
	assert.Equal(t, ThemeLight, theme, "unchanged when it cannot be stored")
}

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme(" DARK ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)
	assert.Equal(t, ThemeLight, ThemeDark.Opposite())
}
