package domain

import "time"

// SessionStatus is the lifecycle phase of a live session.
// Transitions are monotonic: waiting -> active -> completed.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// Option is one selectable answer text for a question.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Question is an immutable content unit inside a quiz snapshot.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
	Correct string   `json:"correct"` // matches one Option.Value
	Points  int      `json:"points"`  // defaults to 1 if zero
	Order   int      `json:"order"`
}

// Quiz is the denormalized content snapshot a session carries.
// Sessions copy it at creation so later edits to the source quiz
// cannot change an in-flight session's scoring.
type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	TimeLimitSec int        `json:"timeLimitSec"`
	Questions    []Question `json:"questions"`
}

// SessionState is a broadcast- and storage-friendly view of a session.
type SessionState struct {
	ID             string        `json:"id"`
	JoinCode       string        `json:"joinCode"`
	HostID         string        `json:"hostId"`
	Status         SessionStatus `json:"status"`
	Quiz           Quiz          `json:"quiz"`
	CreatedAt      time.Time     `json:"createdAt"`
	StartedAt      time.Time     `json:"startedAt,omitempty"`
	EndedAt        time.Time     `json:"endedAt,omitempty"`
	RemainingSec   int           `json:"remainingSec"`
	TimerUpdatedAt time.Time     `json:"timerUpdatedAt,omitempty"`
}

// Participant is one joined user plus their cached leaderboard fields.
type Participant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	JoinedAt   time.Time `json:"joinedAt"`
	Completed  bool      `json:"completed"`
	Score      int       `json:"score"`
	AvgTimeSec int       `json:"avgTimeSec"`
}

// Answer is a single submission of one option for one question.
// Repeated submissions for the same (participant, question) pair are
// expected; only the latest by AnsweredAt is authoritative.
type Answer struct {
	ParticipantID string    `json:"participantId"`
	QuestionID    string    `json:"questionId"`
	Selected      string    `json:"selected"`
	Correct       bool      `json:"correct"` // derived at write time
	Points        int       `json:"points"`  // question weight when correct (default 1), zero otherwise
	TimeTakenSec  int       `json:"timeTakenSec"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// Summary is the per-participant scoring result after deduplication.
type Summary struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Score         int    `json:"score"`  // percentage of answered questions correct
	Points        int    `json:"points"` // weighted points from correct answers
	CorrectCount  int    `json:"correctCount"`
	AnsweredCount int    `json:"answeredCount"`
	AvgTimeSec    int    `json:"avgTimeSec"`
	MaxStreak     int    `json:"maxStreak"`
}

// Leaderboard is the ordered ranking broadcast to clients.
type Leaderboard struct {
	SessionID string    `json:"sessionId"`
	Entries   []Summary `json:"entries"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Prize is one prize category with a unit count.
type Prize struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	Quantity    int     `json:"quantity"`
}

// ScratchCard assigns at most one prize to exactly one participant.
// PrizeID is empty for a blank card. The scratch transition is one-way.
type ScratchCard struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participantId"`
	PrizeID       string    `json:"prizeId,omitempty"`
	PrizeName     string    `json:"prizeName,omitempty"`
	Scratched     bool      `json:"scratched"`
	ScratchedAt   time.Time `json:"scratchedAt,omitempty"`
}

// WrongAnswer is one incorrectly answered question, in the shape the
// report exporter consumes.
type WrongAnswer struct {
	QuestionID string `json:"questionId"`
	Prompt     string `json:"prompt"`
	Correct    string `json:"correct"`
	Given      string `json:"given"`
}

// SessionResult is the archived outcome of a completed session.
type SessionResult struct {
	Session      SessionState             `json:"session"`
	Summaries    []Summary                `json:"summaries"`
	WrongAnswers map[string][]WrongAnswer `json:"wrongAnswers"` // keyed by participant ID
}
