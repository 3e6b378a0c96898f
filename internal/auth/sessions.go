package auth

import (
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SessionRegistry tracks live sessions in memory. Logging out removes the
// session so its token stops working before it expires. Nothing survives a
// restart.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]domain.Session)}
}

func (r *SessionRegistry) Add(session domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
}

// Active returns the session when it exists and has not expired at now.
func (r *SessionRegistry) Active(id string, now time.Time) (domain.Session, bool) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Session{}, false
	}
	if !now.Before(session.ExpiresAt) {
		r.Remove(id)
		return domain.Session{}, false
	}
	return session, true
}

// Remove drops the session and reports whether it existed.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len counts tracked sessions, expired ones included until they are touched.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// HasUser reports whether userID still holds an unexpired session at now.
func (r *SessionRegistry) HasUser(userID string, now time.Time) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.UserID == userID && now.Before(session.ExpiresAt) {
			return true
		}
	}
	return false
}
