// Package gateway exposes the turn pipeline over HTTP: a websocket session
// transport driving TurnService.ProcessMessage, plus the thin external CRUD
// surface for characters and sessions that a runnable service needs (the
// core itself, per §1, treats this framing as a sink).
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/turngate-dev/turngate/internal/config"
	"github.com/turngate-dev/turngate/internal/domain"
	"github.com/turngate-dev/turngate/internal/idgen"
	"github.com/turngate-dev/turngate/internal/observability"
	"github.com/turngate-dev/turngate/internal/storage"
	"github.com/turngate-dev/turngate/internal/turnservice"
)

// TurnService is the subset of *turnservice.Service the gateway drives.
type TurnService interface {
	ProcessMessage(ctx context.Context, sessionID, userText string) (<-chan turnservice.Event, error)
}

type Server struct {
	cfg      config.Config
	store    storage.Store
	turns    TurnService
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, store storage.Store, turns TurnService, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		turns:   turns,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
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
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/characters", s.handleCreateCharacter)
	r.Get("/v1/characters/{id}", s.handleGetCharacter)
	r.Put("/v1/characters/{id}", s.handleUpdateCharacter)
	r.Delete("/v1/characters/{id}", s.handleDeleteCharacter)

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Get("/v1/sessions/{id}", s.handleGetSession)

	r.Get("/v1/turns/ws", s.handleTurnWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, observability.TurnStageSnapshot{})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

type createCharacterRequest struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	Model        string `json:"model"`
	Voice        string `json:"voice"`
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if strings.TrimSpace(req.SystemPrompt) == "" {
		req.SystemPrompt = "You are a helpful assistant."
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = s.cfg.OpenAILLMModel
	}
	if strings.TrimSpace(req.Voice) == "" {
		req.Voice = s.cfg.OpenAITTSVoice
	}

	id, err := s.store.CreateCharacter(r.Context(), domain.Character{
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
		Model:        req.Model,
		Voice:        req.Voice,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "create_character_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return
	}
	character, err := s.store.GetCharacter(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "get_character_failed", err.Error())
		return
	}
	if character == nil {
		respondError(w, http.StatusNotFound, "character_not_found", "no such character")
		return
	}
	respondJSON(w, http.StatusOK, character)
}

func (s *Server) handleUpdateCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return
	}
	existing, err := s.store.GetCharacter(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "get_character_failed", err.Error())
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "character_not_found", "no such character")
		return
	}

	var req createCharacterRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	updated := *existing
	updated.ID = id
	if strings.TrimSpace(req.Name) != "" {
		updated.Name = req.Name
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		updated.SystemPrompt = req.SystemPrompt
	}
	if strings.TrimSpace(req.Model) != "" {
		updated.Model = req.Model
	}
	if strings.TrimSpace(req.Voice) != "" {
		updated.Voice = req.Voice
	}
	if err := s.store.UpdateCharacter(r.Context(), updated); err != nil {
		respondError(w, http.StatusInternalServerError, "update_character_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "id must be an integer")
		return
	}
	if err := s.store.DeleteCharacter(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "delete_character_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createSessionRequest struct {
	CharacterID int64 `json:"character_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sessionID, err := idgen.NewSessionID()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "session_id_generation_failed", err.Error())
		return
	}

	if req.CharacterID != 0 {
		if err := s.store.CreateSessionWithCharacter(r.Context(), sessionID, req.CharacterID); err != nil {
			respondError(w, http.StatusInternalServerError, "create_session_failed", err.Error())
			return
		}
	} else if err := s.store.UpsertSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "create_session_failed", err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("created").Inc()
	}
	respondJSON(w, http.StatusCreated, map[string]any{"session_id": sessionID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, character, err := s.store.GetSessionWithCharacter(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "get_session_failed", err.Error())
		return
	}
	if sess == nil {
		respondError(w, http.StatusNotFound, "session_not_found", "no such session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": sess, "character": character})
}

// handleTurnWS upgrades to a websocket and drains one {"sessionId","text"}
// client message at a time to completion before reading the next, honoring
// the single-active-turn-per-session discipline assumed in §5.
func (s *Server) handleTurnWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || strings.TrimSpace(msg.SessionID) == "" {
			s.writeJSON(conn, "error", errorMessage{Type: "error", Message: "invalid client message"})
			continue
		}
		if s.metrics != nil {
			s.metrics.WSMessages.WithLabelValues("inbound", "utterance").Inc()
		}

		s.runTurn(ctx, conn, msg.SessionID, msg.Text)
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Server) runTurn(ctx context.Context, conn *websocket.Conn, sessionID, text string) {
	events, err := s.turns.ProcessMessage(ctx, sessionID, text)
	if err != nil {
		code := "turn_failed"
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			code = "session_not_found"
		case errors.Is(err, domain.ErrCharacterNotBound):
			code = "character_not_bound"
		}
		log.Warn().Err(err).Str("session_id", sessionID).Str("code", code).Msg("turn_precondition_failed")
		s.writeJSON(conn, "error", errorMessage{Type: "error", Message: err.Error()})
		return
	}

	for ev := range events {
		s.writeJSON(conn, string(ev.Type), wireMessage(ev))
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, msgType string, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(v); err != nil {
		if s.metrics != nil {
			s.metrics.WSWriteErrors.WithLabelValues("write_json").Inc()
		}
		s.metrics.ObserveOutboundMessage(msgType, "error")
		return
	}
	s.metrics.ObserveOutboundMessage(msgType, "ok")
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
