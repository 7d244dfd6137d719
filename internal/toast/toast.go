// Package toast holds the transient notifications shown to the user.
package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/veloxcase/veloxcase-tui/internal/clock"
)

// Level classifies a toast.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
	LevelLoading
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	case LevelLoading:
		return "loading"
	default:
		return "info"
	}
}

// DefaultDuration is how long a toast stays visible unless overridden.
const DefaultDuration = 4 * time.Second

// Toast is a single notification. Loading toasts stay until updated or
// dismissed.
type Toast struct {
	ID        string
	Level     Level
	Icon      string
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
	Dismissed bool
}

// Option customizes a toast.
type Option func(*Toast)

// WithDuration overrides the display duration.
func WithDuration(d time.Duration) Option {
	return func(t *Toast) { t.Duration = d }
}

// WithIcon sets a leading glyph.
func WithIcon(icon string) Option {
	return func(t *Toast) { t.Icon = icon }
}

// Notifier is what controllers use to talk to the user.
type Notifier interface {
	Info(msg string, opts ...Option) string
	Success(msg string, opts ...Option) string
	Error(msg string, opts ...Option) string
	Loading(msg string, opts ...Option) string
	// Update replaces the toast with the given id in place.
	Update(id string, level Level, msg string, opts ...Option)
	Dismiss(id string)
}

const maxHistory = 100

// Center is the Notifier used by the application. It keeps a bounded
// history and reports which toasts are currently visible.
type Center struct {
	mu       sync.Mutex
	clock    clock.Clock
	toasts   []Toast
	onChange func()
}

var _ Notifier = (*Center)(nil)

// NewCenter returns a Center on the real clock.
func NewCenter() *Center {
	return NewCenterWithClock(clock.Real())
}

// NewCenterWithClock returns a Center on c.
func NewCenterWithClock(c clock.Clock) *Center {
	return &Center{clock: c}
}

// SetOnChange registers a hook invoked after every change, including expiry.
// The hook runs on the caller's goroutine or a timer goroutine.
func (c *Center) SetOnChange(f func()) {
	c.mu.Lock()
	c.onChange = f
	c.mu.Unlock()
}

func (c *Center) Info(msg string, opts ...Option) string {
	return c.push(LevelInfo, msg, opts)
}

func (c *Center) Success(msg string, opts ...Option) string {
	return c.push(LevelSuccess, msg, opts)
}

func (c *Center) Error(msg string, opts ...Option) string {
	return c.push(LevelError, msg, opts)
}

func (c *Center) Loading(msg string, opts ...Option) string {
	return c.push(LevelLoading, msg, opts)
}

func (c *Center) push(level Level, msg string, opts []Option) string {
	t := Toast{
		ID:       uuid.NewString(),
		Level:    level,
		Message:  msg,
		Duration: DefaultDuration,
	}
	for _, opt := range opts {
		opt(&t)
	}

	c.mu.Lock()
	t.CreatedAt = c.clock.Now()
	c.toasts = append(c.toasts, t)
	if len(c.toasts) > maxHistory {
		c.toasts = append([]Toast(nil), c.toasts[len(c.toasts)-maxHistory:]...)
	}
	c.mu.Unlock()

	c.scheduleExpiry(t)
	c.changed()
	return t.ID
}

func (c *Center) Update(id string, level Level, msg string, opts ...Option) {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx < 0 {
		c.mu.Unlock()
		return
	}
	t := c.toasts[idx]
	t.Level = level
	t.Message = msg
	t.Icon = ""
	t.Duration = DefaultDuration
	for _, opt := range opts {
		opt(&t)
	}
	t.CreatedAt = c.clock.Now()
	c.toasts[idx] = t
	c.mu.Unlock()

	c.scheduleExpiry(t)
	c.changed()
}

func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	idx := c.indexLocked(id)
	if idx >= 0 {
		c.toasts[idx].Dismissed = true
	}
	c.mu.Unlock()

	if idx >= 0 {
		c.changed()
	}
}

// Active returns the toasts visible now, oldest first.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var out []Toast
	for _, t := range c.toasts {
		if t.visibleAt(now) {
			out = append(out, t)
		}
	}
	return out
}

// Latest returns the most recent visible toast.
func (c *Center) Latest() (Toast, bool) {
	active := c.Active()
	if len(active) == 0 {
		return Toast{}, false
	}
	return active[len(active)-1], true
}

// History returns every toast still retained, oldest first.
func (c *Center) History() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Toast(nil), c.toasts...)
}

func (t Toast) visibleAt(now time.Time) bool {
	if t.Dismissed {
		return false
	}
	if t.Level == LevelLoading {
		return true
	}
	return now.Before(t.CreatedAt.Add(t.Duration))
}

func (c *Center) indexLocked(id string) int {
	for i := range c.toasts {
		if c.toasts[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Center) scheduleExpiry(t Toast) {
	if t.Level == LevelLoading || t.Duration <= 0 {
		return
	}
	c.clock.AfterFunc(t.Duration, c.changed)
}

func (c *Center) changed() {
	c.mu.Lock()
	f := c.onChange
	c.mu.Unlock()
	if f != nil {
		f()
	}
}
