package dashboard

import (
	"context"
	"sync"

	"github.com/veloxcase/veloxcase-tui/internal/api"
	"github.com/veloxcase/veloxcase-tui/internal/apperr"
	"github.com/veloxcase/veloxcase-tui/internal/logger"
	"github.com/veloxcase/veloxcase-tui/internal/toast"
)

const msgHistoryFailed = "Could not load the sync history."

// HistoryAPI is the part of the API client the history screen needs.
type HistoryAPI interface {
	History(ctx context.Context) ([]api.HistoryEntry, error)
}

// History holds the entries of the history screen.
type History struct {
	api            HistoryAPI
	notify         toast.Notifier
	authenticated  func() bool
	onUnauthorized func()

	mu      sync.Mutex
	active  bool
	loading bool
	entries []api.HistoryEntry
	epoch   uint64
}

// NewHistory returns an empty History. authenticated and onUnauthorized
// behave as in Options.
func NewHistory(client HistoryAPI, notify toast.Notifier, authenticated func() bool, onUnauthorized func()) *History {
	if authenticated == nil {
		authenticated = func() bool { return true }
	}
	if onUnauthorized == nil {
		onUnauthorized = func() {}
	}
	return &History{
		api:            client,
		notify:         notify,
		authenticated:  authenticated,
		onUnauthorized: onUnauthorized,
	}
}

// SetActive marks whether the history view is showing.
func (h *History) SetActive(active bool) {
	h.mu.Lock()
	h.active = active
	h.mu.Unlock()
}

// Entries returns the loaded entries, newest first as sent by the server.
func (h *History) Entries() []api.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]api.HistoryEntry(nil), h.entries...)
}

// Loading reports whether a fetch is in flight.
func (h *History) Loading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

// Reset drops the entries and any in-flight response.
func (h *History) Reset() {
	h.mu.Lock()
	h.epoch++
	h.entries = nil
	h.loading = false
	h.mu.Unlock()
}

// Load fetches the history. It is a no-op unless the view is active and the
// session is authenticated.
func (h *History) Load(ctx context.Context) error {
	authed := h.authenticated()
	h.mu.Lock()
	if !h.active || !authed {
		h.mu.Unlock()
		return nil
	}
	epoch := h.epoch
	h.loading = true
	h.mu.Unlock()

	entries, err := h.api.History(ctx)

	h.mu.Lock()
	if epoch != h.epoch {
		h.mu.Unlock()
		return nil
	}
	h.loading = false
	if err == nil {
		h.entries = entries
	}
	h.mu.Unlock()

	if err != nil {
		logger.ErrorWithErr(err, "history: load")
		if apperr.IsUnauthorized(err) {
			h.onUnauthorized()
		} else {
			h.notify.Error(msgHistoryFailed)
		}
		return apperr.Wrap("load history", msgHistoryFailed, err)
	}
	logger.Debug("history: loaded count=%d", len(entries))
	return nil
}
