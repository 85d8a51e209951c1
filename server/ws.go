package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/santorini/engine"
)

const wsWriteTimeout = 5 * time.Second

// wsMessage is every frame the analysis socket sends. Type is "iteration"
// after each completed depth, then "result", or "error".
type wsMessage struct {
	Type      string            `json:"type"`
	Iteration *engine.Iteration `json:"iteration,omitempty"`
	Result    *MoveResponse     `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleAnalyze serves one client. Each MoveRequest the client sends is
// searched in turn with its iterations streamed back as they complete.
// Only this goroutine writes to the connection.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req MoveRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		var writeErr error
		send := func(msg wsMessage) {
			if writeErr != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			writeErr = conn.WriteJSON(msg)
		}

		e, ereq, err := s.prepare(req, func(it engine.Iteration) {
			send(wsMessage{Type: "iteration", Iteration: &it})
		})
		if err != nil {
			send(wsMessage{Type: "error", Error: err.Error()})
		} else {
			start := time.Now()
			res := e.GetMove(ctx, ereq)
			send(wsMessage{Type: "result", Result: &MoveResponse{
				Engine:       e.Info().Name,
				SearchResult: res,
				ThinkMs:      time.Since(start).Milliseconds(),
			}})
		}
		if writeErr != nil {
			if !errors.Is(writeErr, websocket.ErrCloseSent) {
				s.log.Warn("websocket write failed", "error", writeErr)
			}
			return
		}
	}
}
