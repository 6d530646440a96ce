package auth

import (
	"sync"
	"time"

	"github.com/userdesk/backend/internal/model"
)

// Registry tracks live sessions by token. A token is only accepted while its
// session is registered and unexpired, so logout revokes it immediately.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	now      func() time.Time
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]model.Session),
		now:      time.Now,
	}
}

// Add registers a session.
func (r *Registry) Add(s model.Session) {
	r.mu.Lock()
	r.sessions[s.Token] = s
	r.mu.Unlock()
}

// Lookup returns the live session for token.
func (r *Registry) Lookup(token string) (model.Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()
	if !ok || !r.now().Before(s.ExpiresAt) {
		return model.Session{}, false
	}
	return s, true
}

// Revoke removes the session for token. Unknown tokens are ignored.
func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}

// Purge drops expired sessions and reports how many were removed.
func (r *Registry) Purge() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, s := range r.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
