package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches the given ID or join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionNotAccepting is returned when an answer arrives outside the active phase.
	ErrSessionNotAccepting = errors.New("session is not accepting answers")
	// ErrSessionNotWaiting is returned when start is attempted on a session already past waiting.
	ErrSessionNotWaiting = errors.New("session already started")
	// ErrSessionCompleted is returned when a roster mutation is attempted on a terminal session.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrEmptyDisplayName rejects joins without a name.
	ErrEmptyDisplayName = errors.New("display name must not be empty")
	// ErrJoinCodeExhausted means no unique join code could be allocated within the retry budget.
	ErrJoinCodeExhausted = errors.New("could not allocate a unique join code")
	// ErrCardAlreadyScratched guards the one-way scratch transition.
	ErrCardAlreadyScratched = errors.New("scratch card already scratched")
	// ErrNoCardForParticipant is returned when a participant has no card in the deck.
	ErrNoCardForParticipant = errors.New("no scratch card for participant")
)
