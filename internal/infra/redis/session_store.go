package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"livequiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - It keeps a local in-memory map of live sessions to reuse the
//     in-process broadcast logic; Redis carries the liveness marker and
//     the join-code index so other instances can refuse colliding codes.
//   - For true distribution you'd pair this with a pub/sub projector
//     that fans out session events across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.LiveSession
	byCode   map[string]string
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.LiveSession),
		byCode:   make(map[string]string),
	}
}

func (s *SessionStore) Put(session *app.LiveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, code := session.ID(), session.JoinCode()
	s.sessions[id] = session
	s.byCode[code] = id
	// best-effort liveness marker and cross-instance code claim
	ctx := context.Background()
	_ = s.client.Set(ctx, s.liveKey(id), "1", s.ttl).Err()
	_ = s.client.Set(ctx, s.codeKey(code), id, s.ttl).Err()
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

// CodeInUse consults the local index first, then Redis, so codes
// claimed by other instances still count as collisions.
func (s *SessionStore) CodeInUse(code string) bool {
	s.mu.RLock()
	_, local := s.byCode[code]
	s.mu.RUnlock()
	if local {
		return true
	}
	n, err := s.client.Exists(context.Background(), s.codeKey(code)).Result()
	return err == nil && n > 0
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return
	}
	code := session.JoinCode()
	delete(s.byCode, code)
	delete(s.sessions, id)
	ctx := context.Background()
	_ = s.client.Del(ctx, s.liveKey(id), s.codeKey(code)).Err()
}

func (s *SessionStore) liveKey(id string) string {
	return "session:live:" + id
}

func (s *SessionStore) codeKey(code string) string {
	return "session:code:" + code
}
