package app

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/prize"
	"livequiz-service/internal/scoring"
)

// LiveSession is the in-process runtime for one session. It owns the
// lifecycle state machine, the append-only answer log, the roster, and
// the subscriber channels events are fanned out on. All coordination
// between the presenter and participants goes through this object;
// clients themselves never share memory.
type LiveSession struct {
	mu   sync.RWMutex
	now  func() time.Time
	rnd  *rand.Rand
	deck *prize.Deck

	state        domain.SessionState
	participants map[string]*domain.Participant
	joinOrder    []string
	answers      []domain.Answer

	subscribers map[chan domain.SessionEvent]struct{}
	watchers    map[string]map[chan domain.ParticipantEvent]struct{}
}

// NewLiveSession builds a waiting session around a quiz snapshot. The
// snapshot is copied by value; later edits to the source quiz cannot
// affect this session's scoring.
func NewLiveSession(id, joinCode, hostID string, quiz domain.Quiz) *LiveSession {
	return NewLiveSessionWithClock(id, joinCode, hostID, quiz, time.Now)
}

// NewLiveSessionWithClock allows deterministic timestamps in tests.
func NewLiveSessionWithClock(id, joinCode, hostID string, quiz domain.Quiz, now func() time.Time) *LiveSession {
	return &LiveSession{
		now: now,
		rnd: rand.New(rand.NewSource(now().UnixNano())),
		state: domain.SessionState{
			ID:           id,
			JoinCode:     joinCode,
			HostID:       hostID,
			Status:       domain.StatusWaiting,
			Quiz:         quiz,
			CreatedAt:    now(),
			RemainingSec: quiz.TimeLimitSec,
		},
		participants: make(map[string]*domain.Participant),
		subscribers:  make(map[chan domain.SessionEvent]struct{}),
		watchers:     make(map[string]map[chan domain.ParticipantEvent]struct{}),
	}
}

// ID returns the session identifier.
func (s *LiveSession) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ID
}

// JoinCode returns the session's join code.
func (s *LiveSession) JoinCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.JoinCode
}

// Snapshot returns the current broadcastable state.
func (s *LiveSession) Snapshot() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Join registers a participant, or returns the existing one on a
// best-effort name match so a rejoining client does not fork a second
// roster entry. A completed session is terminal and read-only; joins
// against it are rejected. Joins while active are allowed so a late
// participant can still play the remaining time.
func (s *LiveSession) Join(name string) (domain.Participant, error) {
	if name == "" {
		return domain.Participant{}, domain.ErrEmptyDisplayName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == domain.StatusCompleted {
		return domain.Participant{}, domain.ErrSessionCompleted
	}

	for _, p := range s.participants {
		if p.Name == name {
			return *p, nil
		}
	}

	participant := &domain.Participant{
		ID:       uuid.NewString(),
		Name:     name,
		JoinedAt: s.now(),
	}
	s.participants[participant.ID] = participant
	s.joinOrder = append(s.joinOrder, participant.ID)
	s.broadcastLocked(domain.ReasonRoster)
	return *participant, nil
}

// Kick removes a participant. The removal is delivered on the kicked
// participant's own watch channels before the generic roster event, so
// the removed client sees an explicit "you are gone" signal rather
// than inferring it from the roster.
func (s *LiveSession) Kick(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == domain.StatusCompleted {
		return domain.ErrSessionCompleted
	}
	if _, ok := s.participants[participantID]; !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.participants, participantID)
	for i, id := range s.joinOrder {
		if id == participantID {
			s.joinOrder = append(s.joinOrder[:i], s.joinOrder[i+1:]...)
			break
		}
	}

	for ch := range s.watchers[participantID] {
		select {
		case ch <- domain.ParticipantEvent{Type: domain.ParticipantRemoved, ParticipantID: participantID}:
		default:
		}
		close(ch)
	}
	delete(s.watchers, participantID)

	s.broadcastLocked(domain.ReasonRoster)
	return nil
}

// Start moves the session from waiting to active, recording the start
// instant and resetting the countdown to the quiz limit. Starting a
// session that already left waiting is rejected without state change.
func (s *LiveSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != domain.StatusWaiting {
		return domain.ErrSessionNotWaiting
	}
	now := s.now()
	s.state.Status = domain.StatusActive
	s.state.StartedAt = now
	s.state.RemainingSec = s.state.Quiz.TimeLimitSec
	s.state.TimerUpdatedAt = now
	s.broadcastLocked(domain.ReasonStarted)
	return nil
}

// Stop moves an active session to completed. It is idempotent: a
// duplicate stop (presenter action racing a local timeout) leaves the
// session completed without error, and stop on a waiting session is a
// no-op so the status sequence stays monotonic.
func (s *LiveSession) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *LiveSession) stopLocked() bool {
	if s.state.Status != domain.StatusActive {
		return false
	}
	s.state.Status = domain.StatusCompleted
	s.state.EndedAt = s.now()
	s.broadcastLocked(domain.ReasonCompleted)
	return true
}

// Tick is the timer authority's once-per-second step. It recomputes
// the remaining time from the recorded start instant, writes it with
// an update instant for passive clients to mirror, and fires Stop
// exactly once when the countdown reaches zero. The returned value is
// clamped to [0, limit].
func (s *LiveSession) Tick() (remaining int, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != domain.StatusActive {
		return s.state.RemainingSec, false
	}

	now := s.now()
	elapsed := int(now.Sub(s.state.StartedAt) / time.Second)
	remaining = s.state.Quiz.TimeLimitSec - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if remaining > s.state.Quiz.TimeLimitSec {
		remaining = s.state.Quiz.TimeLimitSec
	}
	s.state.RemainingSec = remaining
	s.state.TimerUpdatedAt = now

	if remaining == 0 {
		return 0, s.stopLocked()
	}
	s.broadcastLocked(domain.ReasonTimer)
	return remaining, false
}

// SubmitAnswer appends one submission to the log. Correctness is
// derived here, at write time, against the session's own snapshot.
// Retried submissions for the same question are accepted as-is; the
// deduplicator sorts them out at read time.
func (s *LiveSession) SubmitAnswer(participantID, questionID, selected string, timeTakenSec int) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != domain.StatusActive {
		return domain.Answer{}, domain.ErrSessionNotAccepting
	}
	if _, ok := s.participants[participantID]; !ok {
		return domain.Answer{}, domain.ErrParticipantNotFound
	}

	var question *domain.Question
	for i := range s.state.Quiz.Questions {
		if s.state.Quiz.Questions[i].ID == questionID {
			question = &s.state.Quiz.Questions[i]
			break
		}
	}
	if question == nil {
		return domain.Answer{}, domain.ErrQuestionNotFound
	}

	correct := selected == question.Correct
	points := 0
	if correct {
		points = question.Points
		if points == 0 {
			points = 1
		}
	}
	answer := domain.Answer{
		ParticipantID: participantID,
		QuestionID:    questionID,
		Selected:      selected,
		Correct:       correct,
		Points:        points,
		TimeTakenSec:  timeTakenSec,
		AnsweredAt:    s.now(),
	}
	s.answers = append(s.answers, answer)
	s.refreshCachedLocked(participantID)
	s.broadcastLocked(domain.ReasonLeaderboard)
	return answer, nil
}

// refreshCachedLocked updates the denormalized score fields on one
// participant so roster reads stay cheap.
func (s *LiveSession) refreshCachedLocked(participantID string) {
	p, ok := s.participants[participantID]
	if !ok {
		return
	}
	summary := scoring.Summarize(p.ID, p.Name, scoring.Deduplicate(s.answers))
	p.Score = summary.Score
	p.AvgTimeSec = summary.AvgTimeSec
	p.Completed = summary.AnsweredCount >= len(s.state.Quiz.Questions)
}

// Leaderboard recomputes the ranking from the raw log.
func (s *LiveSession) Leaderboard() domain.Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboardLocked()
}

func (s *LiveSession) leaderboardLocked() domain.Leaderboard {
	return domain.Leaderboard{
		SessionID: s.state.ID,
		Entries:   scoring.Rank(scoring.SummarizeAll(s.rosterLocked(), s.answers)),
		UpdatedAt: s.now(),
	}
}

// Roster lists participants in join order.
func (s *LiveSession) Roster() []domain.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rosterLocked()
}

func (s *LiveSession) rosterLocked() []domain.Participant {
	roster := make([]domain.Participant, 0, len(s.joinOrder))
	for _, id := range s.joinOrder {
		if p, ok := s.participants[id]; ok {
			roster = append(roster, *p)
		}
	}
	return roster
}

// Answers returns a copy of the raw answer log.
func (s *LiveSession) Answers() []domain.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

// IsEmpty reports whether the session has no participants.
func (s *LiveSession) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants) == 0
}

// Subscribe returns a channel of session events, primed with a
// snapshot of the current state. The caller must invoke cancel to
// avoid leaks.
func (s *LiveSession) Subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.eventLocked(domain.ReasonSnapshot)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// WatchParticipant returns a channel that fires when that specific
// participant's record is removed. The channel closes after delivery.
func (s *LiveSession) WatchParticipant(participantID string) (<-chan domain.ParticipantEvent, func()) {
	ch := make(chan domain.ParticipantEvent, 1)

	s.mu.Lock()
	if s.watchers[participantID] == nil {
		s.watchers[participantID] = make(map[chan domain.ParticipantEvent]struct{})
	}
	s.watchers[participantID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.watchers[participantID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// CurrentEvent builds a snapshot event without broadcasting it. The
// poll fallback uses this to re-send state on one connection only.
func (s *LiveSession) CurrentEvent() domain.SessionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventLocked(domain.ReasonSnapshot)
}

// Refresh re-emits the current state to all subscribers. Both the
// push path and the coarse poll fallback funnel through the same
// event shape, so refreshing is always safe to repeat.
func (s *LiveSession) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(domain.ReasonSnapshot)
}

func (s *LiveSession) broadcastLocked(reason domain.EventReason) {
	event := s.eventLocked(reason)
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest queued event so a slow client never
			// blocks the broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (s *LiveSession) eventLocked(reason domain.EventReason) domain.SessionEvent {
	return domain.SessionEvent{
		Reason:      reason,
		Session:     s.state,
		Roster:      s.rosterLocked(),
		Leaderboard: s.leaderboardLocked(),
	}
}

// GenerateCards deals the scratch-card deck once over the current
// roster. Repeat calls return without re-shuffling.
func (s *LiveSession) GenerateCards(prizes []domain.Prize) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deck != nil {
		return
	}
	s.deck = prize.BuildDeck(prizes, s.rosterLocked(), s.rnd)
}

// Card returns a participant's dealt card without scratching it.
func (s *LiveSession) Card(participantID string) (domain.ScratchCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deck == nil {
		return domain.ScratchCard{}, domain.ErrNoCardForParticipant
	}
	return s.deck.Card(participantID)
}

// Scratch reveals a participant's card, once.
func (s *LiveSession) Scratch(participantID string) (domain.ScratchCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deck == nil {
		return domain.ScratchCard{}, domain.ErrNoCardForParticipant
	}
	return s.deck.Scratch(participantID, s.now())
}
