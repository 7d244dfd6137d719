// Package debounce runs a function once its trigger has been quiet for a
// fixed delay.
package debounce

import (
	"sync"
	"time"

	"github.com/veloxcase/veloxcase-tui/internal/clock"
)

// Debouncer schedules at most one pending call. Each Trigger cancels the
// previously scheduled call before scheduling the new one, so f runs only
// after delay of inactivity.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	clock   clock.Clock
	pending clock.Timer
	gen     uint64
}

// New returns a Debouncer using the real clock.
func New(delay time.Duration) *Debouncer {
	return NewWithClock(delay, clock.Real())
}

// NewWithClock returns a Debouncer scheduling on c.
func NewWithClock(delay time.Duration, c clock.Clock) *Debouncer {
	return &Debouncer{delay: delay, clock: c}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger cancels any pending call and schedules f.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.pending = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A Stop that lost the race with the timer still invalidates it.
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
}

func (d *Debouncer) stopLocked() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
