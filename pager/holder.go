package pager

import (
	"sync"
)

// Holder owns the page on display. Every synchronisation run takes a
// generation from Begin; Commit only accepts a result that is newer than
// the one already shown, so a slow run can never overwrite a later one.
type Holder struct {
	mu        sync.Mutex
	next      uint64
	committed uint64
	current   *State

	subMu  sync.Mutex
	subs   map[int]func(*State)
	nextID int

	// notifyMu orders deliveries; notified is the newest generation delivered
	notifyMu sync.Mutex
	notified uint64
}

// NewHolder creates an empty holder.
func NewHolder() *Holder {
	return &Holder{
		subs: make(map[int]func(*State)),
	}
}

// Begin allocates the generation of a new run.
func (h *Holder) Begin() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	return h.next
}

// Commit replaces the current state wholesale. It returns false and leaves
// the holder untouched when gen is older than the state already shown.
func (h *Holder) Commit(gen uint64, state *State) bool {
	if state == nil {
		return false
	}

	h.mu.Lock()
	if gen <= h.committed {
		h.mu.Unlock()
		return false
	}
	state.Generation = gen
	h.committed = gen
	h.current = state
	h.mu.Unlock()

	h.notify(state)
	return true
}

// Current returns the state on display, or nil before the first commit.
func (h *Holder) Current() *State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Subscribe registers fn to be called after every accepted commit.
// Deliveries never run concurrently and arrive in generation order; a state
// overtaken by a newer one before its delivery started is skipped.
// The returned func removes the subscription.
func (h *Holder) Subscribe(fn func(*State)) func() {
	h.subMu.Lock()
	defer h.subMu.Unlock()

	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	return func() {
		h.subMu.Lock()
		defer h.subMu.Unlock()
		delete(h.subs, id)
	}
}

func (h *Holder) notify(state *State) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()
	if state.Generation <= h.notified {
		return
	}
	h.notified = state.Generation

	h.subMu.Lock()
	fns := make([]func(*State), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
