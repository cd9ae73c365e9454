package route

import "sync"

// Navigator moves the host application to a target.
type Navigator interface {
	Current() Target
	Navigate(t Target)
}

// History is an in-memory Navigator that remembers where it has been.
type History struct {
	mu      sync.Mutex
	entries []Target
}

func NewHistory(start Target) *History {
	return &History{entries: []Target{start}}
}

func (h *History) Current() Target {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Navigate appends t. Navigating to the current location is a no-op.
func (h *History) Navigate(t Target) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries[len(h.entries)-1].String() == t.String() {
		return
	}
	h.entries = append(h.entries, t)
}

// Back drops the current entry and returns the previous one.
func (h *History) Back() (Target, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) < 2 {
		return h.entries[0], false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the visited targets, oldest first.
func (h *History) Entries() []Target {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Target(nil), h.entries...)
}
