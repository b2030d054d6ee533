package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/marcofaedo/leadflow/internal/chat"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsReadLimit    = 1 << 20
)

// wsTurn is one inbound websocket frame from the widget. Role is optional and
// defaults to user.
type wsTurn struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// handleChatWS runs the widget conversation over a persistent connection.
// Each inbound frame is one visitor message; each outbound frame is the full
// AgentResponse for that turn, or an error envelope on failure. Turns are
// processed sequentially, so writes stay single-threaded.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
		s.metrics.SessionEvents.WithLabelValues("created").Inc()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.sessions.Touch(sessionID)
	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		var turn wsTurn
		if err := conn.ReadJSON(&turn); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		s.sessions.Touch(sessionID)

		msg := chat.Message{Role: chat.Role(turn.Role), Content: turn.Content}
		if err := msg.Validate(); err != nil {
			if s.writeWS(conn, errorResponse{Error: err.Error(), Code: "invalid_request"}) != nil {
				break
			}
			continue
		}

		resp, err := s.agent.Process(r.Context(), sessionID, []chat.Message{msg})
		if err != nil {
			_, code := statusForError(err)
			if s.writeWS(conn, errorResponse{Error: err.Error(), Code: code}) != nil {
				break
			}
			continue
		}
		if s.writeWS(conn, resp) != nil {
			break
		}
	}

	if _, err := s.sessions.End(sessionID); err == nil {
		s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	}
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) writeWS(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
