// Package shell holds the screen router and the theme preference.
package shell

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/veloxcase/veloxcase-tui/internal/logger"
)

// View is a top-level screen.
type View int

const (
	ViewLogin View = iota
	ViewDashboard
	ViewHistory
	ViewSettings
)

var viewNames = map[View]string{
	ViewLogin:     "login",
	ViewDashboard: "dashboard",
	ViewHistory:   "history",
	ViewSettings:  "settings",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return fmt.Sprintf("view(%d)", int(v))
}

// ParseView converts a view name.
func ParseView(s string) (View, error) {
	for v, name := range viewNames {
		if strings.EqualFold(s, name) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

// RequiresAuth reports whether v is only reachable with a token.
func (v View) RequiresAuth() bool {
	return v != ViewLogin
}

// ErrForbidden is returned when a view is not reachable in the current
// authentication state.
var ErrForbidden = errors.New("view not reachable in the current session state")

// Router tracks the visible view. Login is reachable only while anonymous;
// every other view only while authenticated.
type Router struct {
	mu            sync.Mutex
	authenticated bool
	current       View
	listeners     []func(from, to View)
}

// NewRouter returns a Router showing the login view.
func NewRouter() *Router {
	return &Router{current: ViewLogin}
}

// OnChange registers f to run after every view change, outside the lock.
func (r *Router) OnChange(f func(from, to View)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, f)
	r.mu.Unlock()
}

// Current returns the visible view.
func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate shows v if it is reachable.
func (r *Router) Navigate(v View) error {
	r.mu.Lock()
	if v.RequiresAuth() != r.authenticated {
		r.mu.Unlock()
		logger.Debug("router: navigation to %s refused authenticated=%t", v, r.authenticated)
		return fmt.Errorf("%s: %w", v, ErrForbidden)
	}
	r.mu.Unlock()
	r.show(v)
	return nil
}

// SetAuthenticated applies a session transition: signing in shows the
// dashboard, signing out shows the login view.
func (r *Router) SetAuthenticated(authenticated bool) {
	r.mu.Lock()
	r.authenticated = authenticated
	r.mu.Unlock()

	if authenticated {
		r.show(ViewDashboard)
	} else {
		r.show(ViewLogin)
	}
}

func (r *Router) show(v View) {
	r.mu.Lock()
	from := r.current
	r.current = v
	listeners := append([]func(from, to View){}, r.listeners...)
	r.mu.Unlock()

	if from == v {
		return
	}
	logger.Debug("router: %s -> %s", from, v)
	for _, f := range listeners {
		f(from, v)
	}
}
