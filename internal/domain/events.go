package domain

// EventReason says why a SessionEvent was emitted. Push updates and the
// coarse poll fallback both feed the same event shape, so consumers can
// treat every event as "apply this snapshot" regardless of reason.
type EventReason string

const (
	ReasonSnapshot    EventReason = "snapshot" // initial state or poll refresh
	ReasonStarted     EventReason = "started"
	ReasonCompleted   EventReason = "completed"
	ReasonTimer       EventReason = "timer"
	ReasonRoster      EventReason = "roster"
	ReasonLeaderboard EventReason = "leaderboard"
)

// SessionEvent carries the full current state of a session. Clients
// mirror what it says verbatim; in particular RemainingSec is the
// presenter's broadcast value, never recomputed locally.
type SessionEvent struct {
	Reason      EventReason   `json:"reason"`
	Session     SessionState  `json:"session"`
	Roster      []Participant `json:"roster"`
	Leaderboard Leaderboard   `json:"leaderboard"`
}

// ParticipantEventType marks notifications scoped to a single
// participant's own record.
type ParticipantEventType string

const (
	// ParticipantRemoved is delivered to a kicked participant's own
	// watch channel, distinct from the generic roster event, so the
	// removed client can terminate its session gracefully.
	ParticipantRemoved ParticipantEventType = "removed"
)

// ParticipantEvent is a notification about one participant's record.
type ParticipantEvent struct {
	Type          ParticipantEventType `json:"type"`
	ParticipantID string               `json:"participantId"`
}
