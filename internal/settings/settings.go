// Package settings edits the integration credentials and the account
// password.
package settings

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/apperr"
	"github.com/veloxcase/veloxcase-tui/internal/clock"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

// SaveRedirectDelay is how long after a successful save the dashboard opens.
const SaveRedirectDelay = time.Second

// MinPasswordLength is the shortest accepted new password.
const MinPasswordLength = 8

// Password form fields flagged by validation errors.
const (
	FieldOld     = "old"
	FieldNew     = "new"
	FieldConfirm = "confirm"
)

const (
	msgLoadFailed       = "Could not load the settings."
	msgSaved            = "Configuration saved."
	msgSaveFailed       = "Could not save the settings. Check that every field is correct."
	msgPasswordRequired = "Fill in all password fields."
	msgPasswordMismatch = "The new passwords do not match."
	msgPasswordShort    = "The new password must be at least 8 characters long."
	msgPasswordChanged  = "Your password has been changed. Use it the next time you sign in."
	msgOldIncorrect     = "Your current password is wrong."
	msgPasswordFailed   = "Could not change the password."

	serverOldIncorrect = "old password is incorrect"
)

// API is the part of the API client the settings screen needs.
type API interface {
	GetSettings(ctx context.Context) (api.Settings, error)
	SaveSettings(ctx context.Context, settings api.Settings) error
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

var _ API = (*api.Client)(nil)

// Options configures a Manager.
type Options struct {
	Clock          clock.Clock
	Authenticated  func() bool
	OnUnauthorized func()
	// OnSaved runs SaveRedirectDelay after a successful save.
	OnSaved func()
}

// PasswordForm holds the password change inputs.
type PasswordForm struct {
	Old     string
	New     string
	Confirm string
}

// PasswordErrors flags password fields that failed validation.
type PasswordErrors struct {
	Old     bool
	New     bool
	Confirm bool
}

// Manager holds the settings screen. Credential values are kept only while
// the view is active.
type Manager struct {
	api            API
	notify         toast.Notifier
	clock          clock.Clock
	authenticated  func() bool
	onUnauthorized func()
	onSaved        func()

	mu       sync.Mutex
	active   bool
	loading  bool
	values   api.Settings
	password PasswordForm
	pwErrors PasswordErrors
	epoch    uint64
}

// NewManager returns an empty Manager.
func NewManager(client API, notify toast.Notifier, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Authenticated == nil {
		opts.Authenticated = func() bool { return true }
	}
	if opts.OnUnauthorized == nil {
		opts.OnUnauthorized = func() {}
	}
	if opts.OnSaved == nil {
		opts.OnSaved = func() {}
	}
	return &Manager{
		api:            client,
		notify:         notify,
		clock:          opts.Clock,
		authenticated:  opts.Authenticated,
		onUnauthorized: opts.OnUnauthorized,
		onSaved:        opts.OnSaved,
	}
}

// IsSensitive reports whether a credential should be masked.
func IsSensitive(key string) bool {
	upper := strings.ToUpper(key)
	return strings.Contains(upper, "TOKEN") || strings.Contains(upper, "KEY")
}

// Label is the display name of a credential key.
func Label(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// SetActive marks whether the settings view is showing. Leaving it drops
// the loaded values and the password form.
func (m *Manager) SetActive(active bool) {
	m.mu.Lock()
	m.active = active
	m.mu.Unlock()
	if !active {
		m.Clear()
	}
}

// Clear drops every held value and any in-flight response.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.epoch++
	m.values = nil
	m.loading = false
	m.password = PasswordForm{}
	m.pwErrors = PasswordErrors{}
	m.mu.Unlock()
}

// Loading reports whether a request is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Keys returns the credential keys in sorted order.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a copy of the credential map.
func (m *Manager) Values() api.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(api.Settings, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Get returns one credential value.
func (m *Manager) Get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// Set edits one credential value.
func (m *Manager) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = api.Settings{}
	}
	m.values[key] = value
}

func (m *Manager) begin() (uint64, bool) {
	authed := m.authenticated()
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active || !authed || m.loading {
		return 0, false
	}
	m.loading = true
	return m.epoch, true
}

// end clears the loading flag and reports whether the response is current.
func (m *Manager) end(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return false
	}
	m.loading = false
	return true
}

func (m *Manager) failed(op, msg string, err error) error {
	logger.ErrorWithErr(err, "settings: %s", op)
	if apperr.IsUnauthorized(err) {
		m.onUnauthorized()
	} else {
		m.notify.Error(msg)
	}
	return apperr.Wrap(op, msg, err)
}

// Load fetches the credentials. It is a no-op unless the view is active.
func (m *Manager) Load(ctx context.Context) error {
	epoch, ok := m.begin()
	if !ok {
		return nil
	}

	values, err := m.api.GetSettings(ctx)
	if !m.end(epoch) {
		return nil
	}
	if err != nil {
		return m.failed("load settings", msgLoadFailed, err)
	}

	m.mu.Lock()
	m.values = values
	m.mu.Unlock()
	logger.Debug("settings: loaded keys=%d", len(values))
	return nil
}

// Save stores the credentials and opens the dashboard shortly after.
func (m *Manager) Save(ctx context.Context) error {
	epoch, ok := m.begin()
	if !ok {
		return nil
	}

	err := m.api.SaveSettings(ctx, m.Values())
	if !m.end(epoch) {
		return nil
	}
	if err != nil {
		return m.failed("save settings", msgSaveFailed, err)
	}

	logger.Info("settings: saved")
	m.notify.Success(msgSaved, toast.WithIcon("💾"))
	m.clock.AfterFunc(SaveRedirectDelay, m.onSaved)
	return nil
}

// Password returns the password form.
func (m *Manager) Password() (PasswordForm, PasswordErrors) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.password, m.pwErrors
}

// SetPasswordForm replaces the password inputs and clears their flags.
func (m *Manager) SetPasswordForm(form PasswordForm) {
	m.mu.Lock()
	m.password = form
	m.pwErrors = PasswordErrors{}
	m.mu.Unlock()
}

func (m *Manager) rejectPassword(msg string, flags PasswordErrors) error {
	m.mu.Lock()
	m.pwErrors = flags
	m.mu.Unlock()
	m.notify.Error(msg)

	var fields []string
	if flags.Old {
		fields = append(fields, FieldOld)
	}
	if flags.New {
		fields = append(fields, FieldNew)
	}
	if flags.Confirm {
		fields = append(fields, FieldConfirm)
	}
	return apperr.Validation("change password", msg, fields...)
}

// ChangePassword validates the inputs and changes the account password. On
// success all three inputs are cleared.
func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	m.SetPasswordForm(PasswordForm{Old: oldPassword, New: newPassword, Confirm: confirm})

	missing := PasswordErrors{Old: oldPassword == "", New: newPassword == "", Confirm: confirm == ""}
	switch {
	case missing.Old || missing.New || missing.Confirm:
		return m.rejectPassword(msgPasswordRequired, missing)
	case newPassword != confirm:
		return m.rejectPassword(msgPasswordMismatch, PasswordErrors{New: true, Confirm: true})
	case utf8.RuneCountInString(newPassword) < MinPasswordLength:
		return m.rejectPassword(msgPasswordShort, PasswordErrors{New: true, Confirm: true})
	}

	epoch, ok := m.begin()
	if !ok {
		return nil
	}
	err := m.api.ChangePassword(ctx, oldPassword, newPassword)
	if !m.end(epoch) {
		return nil
	}
	if err != nil {
		logger.ErrorWithErr(err, "settings: change password")
		serverMsg := api.Message(err)
		// Checked before the 401 case: a wrong old password is not an
		// expired session.
		if strings.Contains(serverMsg, serverOldIncorrect) {
			m.mu.Lock()
			m.pwErrors.Old = true
			m.mu.Unlock()
			m.notify.Error(msgOldIncorrect)
			e := apperr.Wrap("change password", msgOldIncorrect, err)
			e.Fields = []string{FieldOld}
			return e
		}
		if apperr.IsUnauthorized(err) {
			m.onUnauthorized()
			return apperr.Wrap("change password", msgPasswordFailed, err)
		}
		msg := serverMsg
		if msg == "" {
			msg = msgPasswordFailed
		}
		m.notify.Error(msg)
		return apperr.Wrap("change password", msg, err)
	}

	m.mu.Lock()
	m.password = PasswordForm{}
	m.pwErrors = PasswordErrors{}
	m.mu.Unlock()
	logger.Info("settings: password changed")
	m.notify.Success(msgPasswordChanged, toast.WithIcon("🔒"))
	return nil
}
