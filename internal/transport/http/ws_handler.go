package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/engine/timing"
)

type WSHandler struct {
	attempts *app.AttemptService
	feed     *app.LeaderboardFeed
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, feed *app.LeaderboardFeed, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		attempts: attempts,
		feed:     feed,
		log:      log,
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
	QuestionID       string   `json:"questionId"`
	Selected         []string `json:"selected"`
	TimeSpentSeconds int      `json:"timeSpentSeconds"`
}

type savedPayload struct {
	QuestionID string           `json:"questionId"`
	Countdown  timing.Countdown `json:"countdown"`
}

type timePayload struct {
	Countdown timing.Countdown `json:"countdown"`
	Display   string           `json:"display"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// attemptConn is the per-connection state of one student taking one quiz.
type attemptConn struct {
	quizID    string
	studentID string
	attemptID string
	send      chan<- outboundMessage[any]
}

func (c *attemptConn) emit(typ string, payload any) {
	c.send <- outboundMessage[any]{Type: typ, Payload: payload}
}

func (c *attemptConn) fail(err error) {
	_, payload := classify(err)
	c.emit("error", payload)
}

// ServeWS upgrades HTTP requests to websockets and drives one student's attempt over them.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	studentID := r.URL.Query().Get("studentId")
	if quizID == "" || studentID == "" {
		http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(quizID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	c := &attemptConn{quizID: quizID, studentID: studentID, send: send}
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(r.Context(), c, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, c *attemptConn, inbound inboundMessage) {
	if inbound.Type != "start" && c.attemptID == "" {
		c.emit("error", errorPayload{Code: "no_attempt", Message: "send start before " + inbound.Type})
		return
	}

	switch inbound.Type {
	case "start":
		view, err := h.attempts.StartAttempt(ctx, c.quizID, c.studentID)
		if err != nil {
			c.fail(err)
			return
		}
		c.attemptID = view.Attempt.ID
		c.emit("attempt", view)

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
			c.emit("error", errorPayload{Code: "invalid", Message: "invalid answer payload"})
			return
		}
		countdown, err := h.attempts.SaveResponse(ctx, c.attemptID, c.studentID, payload.QuestionID, payload.Selected, payload.TimeSpentSeconds)
		if errors.Is(err, domain.ErrAttemptExpired) {
			c.fail(err)
			h.sendResult(ctx, c)
			return
		}
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("saved", savedPayload{QuestionID: payload.QuestionID, Countdown: countdown})

	case "submit":
		result, err := h.attempts.Submit(ctx, c.attemptID, c.studentID)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("result", result)

	case "abandon":
		if _, err := h.attempts.Abandon(ctx, c.attemptID, c.studentID); err != nil {
			c.fail(err)
			return
		}
		h.sendResult(ctx, c)

	case "time":
		countdown, err := h.attempts.Remaining(ctx, c.attemptID, c.studentID)
		if err != nil {
			c.fail(err)
			return
		}
		c.emit("time", timePayload{Countdown: countdown, Display: timing.FormatRemaining(countdown)})

	default:
		c.emit("error", errorPayload{Code: "unsupported", Message: "unsupported message type"})
	}
}

func (h *WSHandler) sendResult(ctx context.Context, c *attemptConn) {
	result, err := h.attempts.Result(ctx, c.attemptID, c.studentID)
	if err != nil {
		c.fail(err)
		return
	}
	c.emit("result", result)
}
