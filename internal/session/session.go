// Package session owns the bearer token and the sign-in form.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/apperr"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/storage"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

// State is the authentication state.
type State int

const (
	// StateLoading means storage has not been read yet. No data view may
	// render in this state.
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "loading"
	}
}

// Form field names used in validation errors.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// MinPasswordLength applies to registration and password changes.
const MinPasswordLength = 8

// User-facing messages.
const (
	msgRequired       = "Fill in the required fields (username and password)."
	msgShortPassword  = "The password must be at least 8 characters long."
	msgUserExists     = "Registration failed: this username is already taken."
	msgBadCredentials = "Sign-in failed: wrong username or password."
	msgAuthFailed     = "Authentication failed. Check your details and try again."
	msgRegistered     = "Your account has been created. You can sign in now."
	msgSignedOut      = "You have been signed out."
	msgExpired        = "Your session has expired. Please sign in again."
)

// Server messages mapped to specific user messages.
const (
	serverUserExists     = "User already exists"
	serverBadCredentials = "Invalid username or password"
)

// AuthAPI is the part of the API client the session needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, password string) (string, error)
	SetToken(token string)
}

var _ AuthAPI = (*api.Client)(nil)

// FieldErrors flags form fields that failed validation.
type FieldErrors struct {
	Username bool
	Password bool
}

// Form is a snapshot of the sign-in form.
type Form struct {
	Username     string
	Password     string
	Registering  bool
	ShowPassword bool
	Loading      bool
	Errors       FieldErrors
}

// Manager is the session state machine. It is safe for concurrent use.
type Manager struct {
	api     AuthAPI
	store   storage.Store
	notify  toast.Notifier
	contact string

	mu        sync.Mutex
	state     State
	token     string
	form      Form
	listeners []func(State)
}

// NewManager returns a Manager in StateLoading. contact is the address shown
// by ForgotPassword.
func NewManager(authAPI AuthAPI, store storage.Store, notify toast.Notifier, contact string) *Manager {
	return &Manager{
		api:     authAPI,
		store:   store,
		notify:  notify,
		contact: contact,
	}
}

// OnChange registers f to run after every state transition. Listeners run on
// the goroutine that caused the transition, outside the manager's lock.
func (m *Manager) OnChange(f func(State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, f)
	m.mu.Unlock()
}

// Init reads the stored token and leaves StateLoading. Storage failures are
// logged and treated as no token.
func (m *Manager) Init() State {
	token, err := m.store.Get(storage.KeyToken)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.ErrorWithErr(err, "session: read stored token")
	}

	next := StateAnonymous
	if err == nil && token != "" {
		next = StateAuthenticated
	} else {
		token = ""
	}

	m.api.SetToken(token)
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	logger.Info("session: initialized state=%s", next)
	m.transition(next)
	return next
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token returns the in-memory bearer token.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Authenticated reports whether a token is held.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// Form returns a snapshot of the sign-in form.
func (m *Manager) Form() Form {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.form
}

// SetUsername updates the username and clears its error flag.
func (m *Manager) SetUsername(v string) {
	m.mu.Lock()
	m.form.Username = v
	m.form.Errors.Username = false
	m.mu.Unlock()
}

// SetPassword updates the password and clears its error flag.
func (m *Manager) SetPassword(v string) {
	m.mu.Lock()
	m.form.Password = v
	m.form.Errors.Password = false
	m.mu.Unlock()
}

// SetRegistering switches the form between sign-in and registration.
func (m *Manager) SetRegistering(v bool) {
	m.mu.Lock()
	m.form.Registering = v
	m.mu.Unlock()
}

// ToggleShowPassword flips password visibility.
func (m *Manager) ToggleShowPassword() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.form.ShowPassword = !m.form.ShowPassword
	return m.form.ShowPassword
}

// Strength scores the password currently in the form.
func (m *Manager) Strength() int {
	return StrengthScore(m.Form().Password)
}

// Login signs in with the given credentials.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	m.fill(username, password, false)
	return m.Submit(ctx)
}

// Register creates an account with the given credentials.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	m.fill(username, password, true)
	return m.Submit(ctx)
}

func (m *Manager) fill(username, password string, registering bool) {
	m.mu.Lock()
	m.form.Username = username
	m.form.Password = password
	m.form.Registering = registering
	m.mu.Unlock()
}

// Submit validates the form and signs in or registers depending on the mode.
// A submit while another is in flight is ignored.
func (m *Manager) Submit(ctx context.Context) error {
	m.mu.Lock()
	if m.form.Loading {
		m.mu.Unlock()
		return nil
	}
	form := m.form
	form.Errors = FieldErrors{
		Username: strings.TrimSpace(form.Username) == "",
		Password: strings.TrimSpace(form.Password) == "",
	}
	m.form.Errors = form.Errors
	if form.Errors.Username || form.Errors.Password {
		m.mu.Unlock()
		m.notify.Error(msgRequired)
		var fields []string
		if form.Errors.Username {
			fields = append(fields, FieldUsername)
		}
		if form.Errors.Password {
			fields = append(fields, FieldPassword)
		}
		return apperr.Validation("auth", msgRequired, fields...)
	}
	if form.Registering && utf8.RuneCountInString(form.Password) < MinPasswordLength {
		m.form.Errors.Password = true
		m.mu.Unlock()
		m.notify.Error(msgShortPassword, toast.WithIcon("🔑"))
		return apperr.Validation("register", msgShortPassword, FieldPassword)
	}
	m.form.Loading = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.form.Loading = false
		m.mu.Unlock()
	}()

	if form.Registering {
		return m.register(ctx, form)
	}
	return m.login(ctx, form)
}

func (m *Manager) register(ctx context.Context, form Form) error {
	if _, err := m.api.Register(ctx, form.Username, form.Password); err != nil {
		return m.authFailed("register", err)
	}

	logger.Info("session: registered username=%s", form.Username)
	m.mu.Lock()
	m.form.Registering = false
	m.form.Password = ""
	m.mu.Unlock()
	m.notify.Success(msgRegistered, toast.WithIcon("✅"), toast.WithDuration(5*time.Second))
	return nil
}

func (m *Manager) login(ctx context.Context, form Form) error {
	token, err := m.api.Login(ctx, form.Username, form.Password)
	if err != nil {
		return m.authFailed("login", err)
	}

	if err := m.store.Set(storage.KeyToken, token); err != nil {
		logger.ErrorWithErr(err, "session: persist token")
	}
	m.api.SetToken(token)

	m.mu.Lock()
	m.token = token
	m.form = Form{}
	m.mu.Unlock()

	logger.Info("session: signed in username=%s", form.Username)
	m.notify.Success(fmt.Sprintf("Signed in. Welcome, %s.", form.Username), toast.WithIcon("👋"))
	m.transition(StateAuthenticated)
	return nil
}

func (m *Manager) authFailed(op string, err error) error {
	msg := msgAuthFailed
	switch api.Message(err) {
	case serverUserExists:
		msg = msgUserExists
	case serverBadCredentials:
		msg = msgBadCredentials
	}
	logger.Warning("session: %s failed: %v", op, err)
	m.notify.Error(msg, toast.WithIcon("⚠️"))
	return apperr.Wrap(op, msg, err)
}

// Logout clears the stored and in-memory token and returns to StateAnonymous.
func (m *Manager) Logout() {
	m.clear()
	m.notify.Info(msgSignedOut, toast.WithIcon("🔒"))
	m.transition(StateAnonymous)
}

// HandleUnauthorized ends an authenticated session after a 401. It is a no-op
// once the session is already anonymous, so concurrent 401s toast once.
func (m *Manager) HandleUnauthorized() {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	// Claim the transition so a concurrent 401 sees a non-authenticated state.
	m.state = StateLoading
	m.mu.Unlock()

	logger.Warning("session: unauthorized response, signing out")
	m.clear()
	m.notify.Error(msgExpired, toast.WithIcon("🔒"))
	m.transition(StateAnonymous)
}

func (m *Manager) clear() {
	if err := m.store.Delete(storage.KeyToken); err != nil {
		logger.ErrorWithErr(err, "session: delete stored token")
	}
	m.api.SetToken("")

	m.mu.Lock()
	m.token = ""
	m.form = Form{}
	m.mu.Unlock()
}

// ForgotPassword shows how to reach support. No request is sent.
func (m *Manager) ForgotPassword() string {
	msg := fmt.Sprintf("Developer contact: for a password reset write to %s", m.contact)
	m.notify.Info(msg, toast.WithIcon("📧"), toast.WithDuration(6*time.Second))
	return msg
}

// Contact returns the support address.
func (m *Manager) Contact() string {
	return m.contact
}

func (m *Manager) transition(next State) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	listeners := append([]func(State){}, m.listeners...)
	m.mu.Unlock()

	if prev == next {
		return
	}
	logger.Debug("session: %s -> %s", prev, next)
	for _, f := range listeners {
		f(next)
	}
}

// StrengthScore rates a password from 0 to 100 in steps of 25: one step each
// for length over 7, an upper-case letter, a digit and a symbol.
func StrengthScore(password string) int {
	if password == "" {
		return 0
	}
	var upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
		default:
			symbol = true
		}
	}

	score := 0
	if utf8.RuneCountInString(password) > 7 {
		score += 25
	}
	for _, ok := range []bool{upper, digit, symbol} {
		if ok {
			score += 25
		}
	}
	return score
}
