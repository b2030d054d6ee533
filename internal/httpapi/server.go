package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/marcofaedo/leadflow/internal/agent"
	"github.com/marcofaedo/leadflow/internal/chat"
	"github.com/marcofaedo/leadflow/internal/config"
	"github.com/marcofaedo/leadflow/internal/observability"
	"github.com/marcofaedo/leadflow/internal/session"
)

// Agent processes one conversation turn.
type Agent interface {
	Process(ctx context.Context, sessionID string, newMessages []chat.Message) (chat.AgentResponse, error)
}

// Modes reports which backend each pluggable collaborator resolved to, for
// the readiness endpoint.
type Modes struct {
	History   string
	Retrieval string
	Brain     string
}

type Server struct {
	cfg      config.Config
	agent    Agent
	sessions *session.Tracker
	metrics  *observability.Metrics
	modes    Modes
	upgrader websocket.Upgrader
}

func New(cfg config.Config, ag Agent, sessions *session.Tracker, metrics *observability.Metrics, modes Modes) *Server {
	return &Server{
		cfg:      cfg,
		agent:    ag,
		sessions: sessions,
		metrics:  metrics,
		modes:    modes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(cfg, r)
			},
		},
	}
}

// originAllowed gates browser connections. The widget is embedded on customer
// sites, so an explicit allowlist is the expected production setup; requests
// without an Origin header come from non-browser clients and pass.
func originAllowed(cfg config.Config, r *http.Request) bool {
	if cfg.AllowAnyOrigin {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range cfg.CORSOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/chat", s.handleChat)
	r.Get("/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" && originAllowed(s.cfg, r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"history_store":   s.modes.History,
		"retrieval_mode":  s.modes.Retrieval,
		"brain_adapter":   s.modes.Brain,
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Message.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
		s.metrics.SessionEvents.WithLabelValues("created").Inc()
	}
	s.sessions.Touch(sessionID)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))

	resp, err := s.agent.Process(r.Context(), sessionID, []chat.Message{req.Message})
	if err != nil {
		status, code := statusForError(err)
		respondError(w, status, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, agent.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, agent.ErrDecision):
		return http.StatusBadGateway, "decision_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
