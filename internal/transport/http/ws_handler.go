package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"race-quiz-service/internal/app"
	"race-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler keeps a live connection per participant and quiz. Clients stream
// draft answers while the quiz is open; each one is persisted immediately so
// the wall-clock deadline, not the socket lifetime, decides what counts. When
// the deadline passes the handler pushes a closed event and shuts the
// connection down.
type WSHandler struct {
	auth        *app.AuthService
	quizzes     *app.QuizService
	submissions *app.SubmissionService
	upgrader    websocket.Upgrader
	now         func() time.Time
}

func NewWSHandler(auth *app.AuthService, quizzes *app.QuizService, submissions *app.SubmissionService) *WSHandler {
	return &WSHandler{
		auth:        auth,
		quizzes:     quizzes,
		submissions: submissions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Question string `json:"question"`
	Option   string `json:"option"`
}

type phasePayload struct {
	Phase    domain.Phase `json:"phase"`
	Deadline time.Time    `json:"deadline"`
}

type submittedPayload struct {
	Answers map[string]string `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// submission use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	actor, err := h.auth.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}
	if actor.Anonymous() {
		http.Error(w, "missing or stale token", http.StatusUnauthorized)
		return
	}

	quiz, err := h.quizzes.Get(r.Context(), actor, quizID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	now := h.now()
	send <- outboundMessage[any]{Type: "phase", Payload: phasePayload{
		Phase:    quiz.PhaseAt(now),
		Deadline: quiz.Deadline,
	}}

	if quiz.PhaseAt(now) == domain.PhaseClosed {
		send <- outboundMessage[any]{Type: "closed", Payload: phasePayload{Phase: domain.PhaseClosed, Deadline: quiz.Deadline}}
		close(send)
		<-writerDone
		return
	}

	inboundCh := make(chan inboundMessage)
	go func() {
		defer close(inboundCh)
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				return
			}
			inboundCh <- inbound
		}
	}()

	deadline := time.NewTimer(quiz.Deadline.Sub(now))
	defer deadline.Stop()

	// Draft answers accumulate across messages; each change is stored as a
	// full upsert so the last write before the deadline stands on its own.
	draft := map[string]string{}

loop:
	for {
		select {
		case inbound, ok := <-inboundCh:
			if !ok {
				break loop
			}
			h.handleInbound(r, actor, quizID, inbound, draft, send)
		case <-deadline.C:
			send <- outboundMessage[any]{Type: "closed", Payload: phasePayload{Phase: domain.PhaseClosed, Deadline: quiz.Deadline}}
			break loop
		}
	}

	close(send)
	<-writerDone
	conn.Close()
	for range inboundCh {
	}
}

func (h *WSHandler) handleInbound(r *http.Request, actor app.Actor, quizID string, inbound inboundMessage, draft map[string]string, send chan<- outboundMessage[any]) {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
			return
		}
		draft[payload.Question] = payload.Option
		submission, err := h.submissions.Submit(r.Context(), actor, quizID, draft)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			return
		}
		send <- outboundMessage[any]{Type: "submitted", Payload: submittedPayload{Answers: submission.Answers}}
	default:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
	}
}
