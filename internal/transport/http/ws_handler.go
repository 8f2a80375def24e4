package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// WSHandler wires websocket connections into the session use cases.
// The presenter endpoint owns the session's control surface (start,
// stop, kick) and drives the once-per-second timer; participants get a
// passive event stream plus the answer submission path.
type WSHandler struct {
	service      *app.SessionService
	pollInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewWSHandler(service *app.SessionService, pollInterval time.Duration) *WSHandler {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	return &WSHandler{
		service:      service,
		pollInterval: pollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID   string `json:"questionId"`
	Option       string `json:"option"`
	TimeTakenSec int    `json:"timeTakenSec"`
}

type kickPayload struct {
	ParticipantID string `json:"participantId"`
}

type joinedPayload struct {
	Participant domain.Participant  `json:"participant"`
	Event       domain.SessionEvent `json:"event"`
}

type answerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServePresenter upgrades the presenter/projector connection. It
// creates the session, streams events, and accepts control messages.
// While the session is active this connection is the timer authority:
// a local ticker recomputes remaining time once per second and the
// result is broadcast for every passive client to mirror.
func (h *WSHandler) ServePresenter(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	hostID := r.URL.Query().Get("hostId")
	if quizID == "" || hostID == "" {
		http.Error(w, "missing quizId or hostId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.Create(r.Context(), quizID, hostID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := h.startWriter(conn, send)
	updatesDone := h.startEventPump(session, updates, send, closeSignals)

	send <- outboundMessage[any]{Type: "created", Payload: session.CurrentEvent()}

	timerStarted := false
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			if err := h.service.Start(r.Context(), sessionID); err != nil {
				send <- errorMessage(err)
				continue
			}
			if !timerStarted {
				timerStarted = true
				go h.runTimer(session, closeSignals)
			}
		case "stop":
			if err := h.service.StopSession(r.Context(), session); err != nil {
				send <- errorMessage(err)
			}
		case "kick":
			var payload kickPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid kick payload"}}
				continue
			}
			if err := h.service.Kick(r.Context(), sessionID, payload.ParticipantID); err != nil {
				send <- errorMessage(err)
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// ServeParticipant upgrades a participant connection: join by code,
// mirror the event stream, submit answers. A kick shows up as an
// explicit "kicked" message before the connection closes.
func (h *WSHandler) ServeParticipant(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	name := r.URL.Query().Get("name")
	if code == "" || name == "" {
		http.Error(w, "missing code or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, participant, err := h.service.Join(r.Context(), code, name)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()

	updates, cancel := session.Subscribe()
	defer cancel()
	removed, cancelWatch := session.WatchParticipant(participant.ID)
	defer cancelWatch()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := h.startWriter(conn, send)
	updatesDone := h.startEventPump(session, updates, send, closeSignals)

	// A removal of this participant's own record is the out-of-band
	// cancellation signal: tell the client, then drop the connection.
	go func() {
		select {
		case event, ok := <-removed:
			if ok && event.Type == domain.ParticipantRemoved {
				select {
				case send <- outboundMessage[any]{Type: "kicked", Payload: event}:
				case <-closeSignals:
				}
				_ = conn.Close()
			}
		case <-closeSignals:
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{
		Participant: participant,
		Event:       session.CurrentEvent(),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			answer, err := h.service.SubmitAnswer(r.Context(), sessionID, participant.ID, payload.QuestionID, payload.Option, payload.TimeTakenSec)
			if err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID: answer.QuestionID,
				Correct:    answer.Correct,
			}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// startWriter serializes all writes to the connection on one goroutine.
func (h *WSHandler) startWriter(conn *websocket.Conn, send <-chan outboundMessage[any]) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()
	return done
}

// startEventPump forwards session events to the writer, interleaved
// with the coarse poll fallback: if no push update arrives within the
// poll interval, the current snapshot is re-sent. Both paths emit the
// same idempotent event shape.
func (h *WSHandler) startEventPump(session *app.LiveSession, updates <-chan domain.SessionEvent, send chan<- outboundMessage[any], closeSignals <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		poll := time.NewTicker(h.pollInterval)
		defer poll.Stop()
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-poll.C:
				select {
				case send <- outboundMessage[any]{Type: "event", Payload: session.CurrentEvent()}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()
	return done
}

// runTimer drives the timer authority at a fixed one-second cadence
// for as long as the session stays active and the presenter connection
// lives. Stopping here on disconnect is what leaves a headless session
// stuck active; the reap job's stale-grace pass picks those up.
func (h *WSHandler) runTimer(session *app.LiveSession, closeSignals <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := h.service.Tick(context.Background(), session.ID()); err != nil {
				return
			}
			if session.Snapshot().Status == domain.StatusCompleted {
				return
			}
		case <-closeSignals:
			return
		}
	}
}

func errorMessage(err error) outboundMessage[any] {
	var msg string
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		msg = "session not found"
	case errors.Is(err, domain.ErrSessionNotAccepting):
		msg = "session is not accepting answers"
	case errors.Is(err, domain.ErrSessionCompleted):
		msg = "session already completed"
	default:
		msg = err.Error()
	}
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
