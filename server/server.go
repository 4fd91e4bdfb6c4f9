// Package server exposes the runtime's transport surfaces: the WebSocket
// chat entry point, the guarded HTTP polling fallback, mode listing and the
// health endpoint. Identity is verified before any session state is created.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
	"github.com/studymesh/studymesh/mode"
	"github.com/studymesh/studymesh/session"
)

// Server wires the HTTP surfaces over the session manager.
type Server struct {
	manager  *session.Manager
	composer *mode.Composer
	auth     *Authenticator
	guard    *PollingGuard
	logger   logging.Logger
	router   chi.Router
}

// New assembles the router.
func New(manager *session.Manager, composer *mode.Composer, auth *Authenticator, guard *PollingGuard, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	s := &Server{
		manager:  manager,
		composer: composer,
		auth:     auth,
		guard:    guard,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/api/modes", s.handleListModes)
		r.Get("/api/chat/{conversationID}/messages", s.handlePoll)
		r.Get("/ws/chat/{conversationID}", s.handleChat)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.manager.Len(),
	})
}

func (s *Server) handleListModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.composer.ListModes())
}

// handlePoll is the fallback polling surface: it returns the messages above
// the client's known sequence. It is guarded because polling clients retry
// aggressively when the push channel is down.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.guard.Allow(r.RemoteAddr, conversationID); err != nil {
		var rl *RateLimitError
		if errors.As(err, &rl) {
			w.Header().Set("Retry-After", rl.RetryAfter.Round(time.Second).String())
		}
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	ctrl, err := s.manager.Connect(r.Context(), conversationID, id.UserID, id.OrgID)
	if err != nil {
		s.writeConnectError(w, err)
		return
	}

	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid after parameter", http.StatusBadRequest)
			return
		}
	}

	type polledMessage struct {
		ID       string `json:"id"`
		Role     string `json:"role"`
		Sequence uint64 `json:"sequence"`
		Content  string `json:"content"`
	}
	delta := ctrl.Log().Since(after)
	out := make([]polledMessage, 0, len(delta))
	for _, m := range delta {
		out = append(out, polledMessage{ID: m.ID, Role: m.Role, Sequence: m.Sequence, Content: m.ContentForSync()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}

// handleChat upgrades to WebSocket and runs the turn loop: each inbound JSON
// frame is one turn input, each outbound frame one turn event.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctrl, err := s.manager.Connect(r.Context(), conversationID, id.UserID, id.OrgID)
	if err != nil {
		s.writeConnectError(w, err)
		return
	}

	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("server.ws.accept_failed", "conversation_id", conversationID, "error", err.Error())
		return
	}
	defer ws.Close(websocket.StatusInternalError, "closed")

	s.logger.Info("server.ws.connected", "conversation_id", conversationID, "user_id", id.UserID)
	ctx := r.Context()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				s.logger.Info("server.ws.disconnected", "conversation_id", conversationID)
			} else {
				s.logger.Warn("server.ws.read_failed", "conversation_id", conversationID, "error", err.Error())
			}
			break
		}

		var input session.TurnInput
		if err := json.Unmarshal(data, &input); err != nil {
			s.sendEvent(ctx, ws, session.Event{Type: session.EventTurnError, Text: "malformed turn input"})
			continue
		}

		// Turn errors were already delivered as events; the connection
		// stays open for the next turn.
		_ = ctrl.HandleTurn(ctx, input, func(ev session.Event) {
			s.sendEvent(ctx, ws, ev)
		})
	}

	// Best-effort flush on disconnect; the controller stays registered for
	// reconnects.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Scheduler().Flush(flushCtx); err != nil {
		s.logger.Warn("server.ws.final_flush_failed", "conversation_id", conversationID, "error", err.Error())
	}
	ws.Close(websocket.StatusNormalClosure, "session ended")
}

func (s *Server) sendEvent(ctx context.Context, ws *websocket.Conn, ev session.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		s.logger.Debug("server.ws.write_failed", "error", err.Error())
	}
}

func (s *Server) writeConnectError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrUnauthorized) {
		http.Error(w, "conversation belongs to another user", http.StatusForbidden)
		return
	}
	http.Error(w, "connect failed", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
