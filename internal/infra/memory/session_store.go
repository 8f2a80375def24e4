package memory

import (
	"sync"

	"livequiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionStore,
// indexing live sessions by ID and by join code.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.LiveSession
	byCode   map[string]string // join code -> session ID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.LiveSession),
		byCode:   make(map[string]string),
	}
}

func (s *SessionStore) Put(session *app.LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	s.byCode[session.JoinCode()] = session.ID()
}

func (s *SessionStore) Get(id string) (*app.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) GetByCode(code string) (*app.LiveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) CodeInUse(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.byCode, session.JoinCode())
	delete(s.sessions, id)
}
