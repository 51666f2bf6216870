package ws

import "sync"

// Registry tracks the live connection for every currently reachable device.
// It holds at most one session per device UID and is safe for concurrent use
// by the per-connection goroutines and dispatcher callers.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register installs the session for a device and returns the previously
// registered session, if any, so the caller can close it and avoid an
// orphaned socket.
func (r *Registry) Register(deviceUID string, s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[deviceUID]
	r.sessions[deviceUID] = s
	return prev
}

// Unregister removes the mapping only if it still points at s. A stale
// disconnect handler racing a newer connection must not evict the
// replacement session.
func (r *Registry) Unregister(deviceUID string, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[deviceUID] != s {
		return false
	}
	delete(r.sessions, deviceUID)
	return true
}

// Lookup returns the active session for a device, if one exists
func (r *Registry) Lookup(deviceUID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[deviceUID]
	return s, ok
}

// Count returns the number of currently connected devices
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}
