package presence

import (
	"sort"
	"sync"
)

// Handle identifies one live connection. Two handles are the same connection
// iff their IDs are equal.
type Handle interface {
	ID() string
}

// Observer is told about every online/offline transition. It runs outside the
// registry lock and may call the read methods, but must not Register or Unregister.
type Observer func(userID string, online bool)

// Registry maps a user to at most one live handle. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]Handle
	byHandle map[string]string

	notifyMu  sync.Mutex
	observers []Observer
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string]Handle),
		byHandle: make(map[string]string),
	}
}

func (r *Registry) Subscribe(o Observer) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.observers = append(r.observers, o)
}

// Register binds userID to h, replacing any previous handle (last write wins).
// The previous handle is returned and left open; closing it is the caller's job.
func (r *Registry) Register(userID string, h Handle) (previous Handle) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	var moved string
	r.mu.Lock()
	if prev, ok := r.byUser[userID]; ok {
		previous = prev
		delete(r.byHandle, prev.ID())
	}
	// a handle belongs to one user; rebinding it drops the old user's entry
	if owner, ok := r.byHandle[h.ID()]; ok && owner != userID {
		delete(r.byUser, owner)
		moved = owner
	}
	r.byUser[userID] = h
	r.byHandle[h.ID()] = userID
	r.mu.Unlock()

	if moved != "" {
		r.notify(moved, false)
	}
	r.notify(userID, true)
	return previous
}

// Unregister removes the entry bound to h. Unknown or superseded handles are a
// silent no-op: nothing is removed and no observer is called.
func (r *Registry) Unregister(h Handle) (userID string, removed bool) {
	if h == nil {
		return "", false
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	userID, removed = r.byHandle[h.ID()]
	if removed {
		delete(r.byHandle, h.ID())
		delete(r.byUser, userID)
	}
	r.mu.Unlock()

	if removed {
		r.notify(userID, false)
	}
	return userID, removed
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

func (r *Registry) HandleFor(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// Online returns the registered user IDs, sorted.
func (r *Registry) Online() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUser))
	for uid := range r.byUser {
		out = append(out, uid)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Handles snapshots every registered handle.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.byUser))
	for _, h := range r.byUser {
		out = append(out, h)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// notify must be called with notifyMu held.
func (r *Registry) notify(userID string, online bool) {
	for _, o := range r.observers {
		o(userID, online)
	}
}
