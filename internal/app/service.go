package app

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/joincode"
	"livequiz-service/internal/report"
)

// SessionStore abstracts how live sessions are tracked (in-memory,
// Redis, etc). Lookups run by ID or by join code.
type SessionStore interface {
	Put(session *LiveSession)
	Get(id string) (*LiveSession, bool)
	GetByCode(code string) (*LiveSession, bool)
	CodeInUse(code string) bool
	Delete(id string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultArchiver persists session snapshots and final results for the
// report exporter and the retention job. Implementations may be nil at
// the service level, in which case nothing is persisted.
type ResultArchiver interface {
	SaveSnapshot(ctx context.Context, state domain.SessionState) error
	SaveResult(ctx context.Context, result domain.SessionResult) error
	LoadResult(ctx context.Context, sessionID string) (domain.SessionResult, error)
}

// persistAttempts bounds retries against the archive store. Failures
// past the budget are logged and swallowed: losing an archive write
// must never take down a running session.
const persistAttempts = 3

// SessionService contains the session use cases shared by the
// presenter and participant surfaces.
type SessionService struct {
	sessions SessionStore
	quizzes  QuizRepository
	archive  ResultArchiver

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewSessionService(store SessionStore, quizzes QuizRepository, archive ResultArchiver) *SessionService {
	return &SessionService{
		sessions: store,
		quizzes:  quizzes,
		archive:  archive,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create launches a new waiting session for a quiz: snapshot the quiz
// content, allocate a unique join code, and register the session. A
// join-code allocation failure aborts the whole operation; no partial
// session is left behind.
func (s *SessionService) Create(ctx context.Context, quizID, hostID string) (*LiveSession, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	s.rndMu.Lock()
	code, err := joincode.Generate(s.rnd, s.sessions)
	s.rndMu.Unlock()
	if err != nil {
		return nil, err
	}

	session := NewLiveSession(uuid.NewString(), code, hostID, quiz)
	s.sessions.Put(session)
	s.persist(ctx, "archive session snapshot", func(ctx context.Context) error {
		return s.archiveSnapshot(ctx, session.Snapshot())
	})
	return session, nil
}

// Get resolves a session by ID.
func (s *SessionService) Get(_ context.Context, sessionID string) (*LiveSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// GetByCode resolves a session by its join code.
func (s *SessionService) GetByCode(_ context.Context, code string) (*LiveSession, error) {
	session, ok := s.sessions.GetByCode(code)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Join adds a participant to the session behind a join code.
func (s *SessionService) Join(ctx context.Context, code, name string) (*LiveSession, domain.Participant, error) {
	session, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, domain.Participant{}, err
	}
	participant, err := session.Join(name)
	if err != nil {
		return nil, domain.Participant{}, err
	}
	return session, participant, nil
}

// Start activates a waiting session.
func (s *SessionService) Start(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := session.Start(); err != nil {
		return err
	}
	s.persist(ctx, "archive session snapshot", func(ctx context.Context) error {
		return s.archiveSnapshot(ctx, session.Snapshot())
	})
	return nil
}

// Stop completes the session with the given ID. See StopSession.
func (s *SessionService) Stop(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.StopSession(ctx, session)
}

// StopSession completes a session, archives the final result, and
// evicts the session from the live store so its join code frees up.
// Duplicate stops are absorbed by the session's idempotent state
// machine; only the stop that actually transitions archives and
// evicts anything. Callers holding a session handle use this form so
// a duplicate stop after eviction stays a no-op.
func (s *SessionService) StopSession(ctx context.Context, session *LiveSession) error {
	if session.Stop() {
		s.archiveResult(ctx, session)
		s.sessions.Delete(session.ID())
	}
	return nil
}

// Tick advances the timer authority one step. When the countdown hits
// zero the session completes, its result is archived exactly once, and
// the session leaves the live store.
func (s *SessionService) Tick(ctx context.Context, sessionID string) (int, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	remaining, completed := session.Tick()
	if completed {
		s.archiveResult(ctx, session)
		s.sessions.Delete(session.ID())
	}
	return remaining, nil
}

// SubmitAnswer records one answer for a participant.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID, participantID, questionID, selected string, timeTakenSec int) (domain.Answer, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}
	return session.SubmitAnswer(participantID, questionID, selected, timeTakenSec)
}

// Kick removes a participant from a session.
func (s *SessionService) Kick(ctx context.Context, sessionID, participantID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	return session.Kick(participantID)
}

// Result builds the report read-model for a session. Live sessions
// are computed from the in-memory log; completed sessions have left
// the live store and are served from the archive instead.
func (s *SessionService) Result(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	if session, ok := s.sessions.Get(sessionID); ok {
		return report.BuildResult(session.Snapshot(), session.Roster(), session.Answers()), nil
	}
	if s.archive == nil {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	return s.archive.LoadResult(ctx, sessionID)
}

func (s *SessionService) archiveSnapshot(ctx context.Context, state domain.SessionState) error {
	if s.archive == nil {
		return nil
	}
	return s.archive.SaveSnapshot(ctx, state)
}

func (s *SessionService) archiveResult(ctx context.Context, session *LiveSession) {
	s.persist(ctx, "archive session result", func(ctx context.Context) error {
		if s.archive == nil {
			return nil
		}
		result := report.BuildResult(session.Snapshot(), session.Roster(), session.Answers())
		if err := s.archive.SaveSnapshot(ctx, result.Session); err != nil {
			return err
		}
		return s.archive.SaveResult(ctx, result)
	})
}

// persist retries a transient store write a bounded number of times,
// then logs and moves on. Session state in memory stays authoritative.
func (s *SessionService) persist(ctx context.Context, op string, fn func(context.Context) error) {
	var err error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return
		}
	}
	log.Printf("%s: giving up after %d attempts: %v", op, persistAttempts, err)
}
