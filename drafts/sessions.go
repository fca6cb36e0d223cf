package drafts

import "sync"

// sessionRegistry holds the single active editing session per user. Gin
// serves requests concurrently, so access is mutex-guarded even though the
// editing model itself is single-writer.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*EditorSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*EditorSession)}
}

// Put installs the session, replacing any previous one for the user.
func (r *sessionRegistry) Put(userID string, session *EditorSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = session
}

// Get returns the user's active session, or nil.
func (r *sessionRegistry) Get(userID string) *EditorSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[userID]
}

// Remove tears down the user's session. Removing a missing session is fine.
func (r *sessionRegistry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}
