// Package session tracks live editing sessions. Each open template is
// owned by exactly one session: one builder, one fold state, one marked
// range set. The registry itself is safe for concurrent hosts, but a
// single session must only ever be driven by one caller at a time.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/FHSS-Web-Team/citation-lab/internal/builder"
	"github.com/FHSS-Web-Team/citation-lab/internal/fold"
)

// Session is one open template's editing state.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastAccess time.Time

	Builder *builder.Builder
	Fold    *fold.State
	Marks   []fold.Range
}

// Manager handles session lifecycle.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ttl      time.Duration
}

// NewManager creates a new session manager. A zero TTL defaults to 24
// hours.
func NewManager(ttl time.Duration) *Manager {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// CreateSession opens a session over the given initial buffer text.
func (m *Manager) CreateSession(text string) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:         sessionID,
		CreatedAt:  time.Now(),
		LastAccess: time.Now(),
		Builder:    builder.New(),
		Fold:       fold.NewState(text),
	}

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by ID, refreshing its access time.
// Expired sessions are removed and reported as missing.
func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, false
	}

	if time.Since(session.LastAccess) > m.ttl {
		delete(m.sessions, sessionID)
		return nil, false
	}

	session.LastAccess = time.Now()
	return session, true
}

// DeleteSession removes a session.
func (m *Manager) DeleteSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpiredSessions removes expired sessions and returns how many
// were dropped.
func (m *Manager) CleanupExpiredSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	cutoff := time.Now().Add(-m.ttl)

	for sessionID, session := range m.sessions {
		if session.LastAccess.Before(cutoff) {
			delete(m.sessions, sessionID)
			count++
		}
	}

	return count
}

// generateSessionID creates a cryptographically secure session ID.
func generateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
