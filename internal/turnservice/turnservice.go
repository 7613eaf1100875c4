// Package turnservice wraps one turn's lifecycle around the Orchestrator:
// session/character resolution, turn-row creation, TTFT/TTAF instrumentation
// and finalization on every exit path, including mid-stream failure.
package turnservice

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/turngate-dev/turngate/internal/domain"
	"github.com/turngate-dev/turngate/internal/observability"
	"github.com/turngate-dev/turngate/internal/orchestrator"
	"github.com/turngate-dev/turngate/internal/storage"
)

// EventType identifies the shape of one Event forwarded to the transport.
type EventType string

const (
	EventToken EventType = "token"
	EventAudio EventType = "audio_chunk"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// Event is the per-turn wire-ready event, one-to-one with §6's four message
// shapes. Exactly one of the type-specific fields is populated per Type.
type Event struct {
	Type          EventType
	Text          string  // token
	Seq           int     // audio_chunk
	Format        string  // audio_chunk
	Data          string  // audio_chunk, base64
	AssistantText *string // done
	Message       string  // error
}

// OrchestratorFactory builds a fresh, character-bound Orchestrator for one
// turn. Each turn gets its own Orchestrator instance; there is no
// per-character singleton (§9).
type OrchestratorFactory func(character domain.Character) *orchestrator.Orchestrator

// Service resolves a session to its bound character, runs one turn through
// a fresh Orchestrator, and persists turn-row lifecycle state.
type Service struct {
	Store       storage.Store
	NewOrch     OrchestratorFactory
	Metrics     *observability.Metrics
	EventBuffer int
}

// New builds a Service whose outbound Event channel holds up to 32 events
// (EventBuffer; a value <= 0 also selects 32).
func New(store storage.Store, newOrch OrchestratorFactory, metrics *observability.Metrics) *Service {
	return &Service{Store: store, NewOrch: newOrch, Metrics: metrics, EventBuffer: 32}
}

// ProcessMessage resolves session→character, creates the turn row, and
// streams the turn's events. It returns a precondition error immediately
// (before any event is emitted, per §7) when the session is unknown or
// unbound; otherwise it returns an event channel that the caller drains to
// completion — the channel's final event is always EventDone or EventError.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, userText string) (<-chan Event, error) {
	session, character, err := s.Store.GetSessionWithCharacter(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if character == nil {
		return nil, domain.ErrCharacterNotBound
	}

	if err := s.Store.UpdateSessionLastSeen(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("session_touch_failed")
	}

	turnID, err := s.Store.CreateTurn(ctx, sessionID, userText)
	if err != nil {
		return nil, err
	}

	orch := s.NewOrch(*character)
	buf := s.EventBuffer
	if buf <= 0 {
		buf = 32
	}
	out := make(chan Event, buf)

	go s.runTurn(ctx, sessionID, userText, turnID, character.ID, orch, out)

	return out, nil
}

func (s *Service) runTurn(ctx context.Context, sessionID, userText string, turnID, characterID int64, orch *orchestrator.Orchestrator, out chan<- Event) {
	defer close(out)

	t0 := time.Now()
	log.Info().Str("session_id", sessionID).Int64("turn_id", turnID).Int64("character_id", characterID).Msg("turn_started")
	s.Metrics.ObserveTurnEvent("started")

	events, errs := orch.Stream(ctx, sessionID, userText)

	var ttftWritten, ttafWritten bool
	var assistantText *string
	var tokenBuf strings.Builder
	gotDone := false

	for ev := range events {
		switch ev.Type {
		case orchestrator.EventToken:
			tokenBuf.WriteString(ev.Text)
			if !ttftWritten {
				ttftWritten = true
				ms := time.Since(t0).Milliseconds()
				if err := s.Store.SetTTFT(ctx, turnID, ms); err != nil {
					log.Warn().Err(err).Int64("turn_id", turnID).Msg("set_ttft_failed")
				}
				s.Metrics.ObserveTurnStage("first_token", time.Since(t0))
			}
			out <- Event{Type: EventToken, Text: ev.Text}
		case orchestrator.EventAudio:
			if !ttafWritten {
				ttafWritten = true
				ms := time.Since(t0).Milliseconds()
				if err := s.Store.SetTTAF(ctx, turnID, ms); err != nil {
					log.Warn().Err(err).Int64("turn_id", turnID).Msg("set_ttaf_failed")
				}
				s.Metrics.ObserveTurnStage("first_audio", time.Since(t0))
			}
			out <- Event{Type: EventAudio, Seq: ev.Seq, Format: ev.Format, Data: ev.Data}
		case orchestrator.EventDone:
			gotDone = true
			assistantText = ev.AssistantText
		}
	}

	err := <-errs

	// The Orchestrator only emits `done` on a clean finish; on a mid-stream
	// failure it leaves assistantText unset here, so reconstruct it from the
	// tokens actually observed (trimmed, nil if empty), matching what the
	// Orchestrator itself would have computed had it reached `done`.
	if !gotDone {
		if trimmed := strings.TrimSpace(tokenBuf.String()); trimmed != "" {
			assistantText = &trimmed
		}
	}

	if ferr := s.Store.FinalizeTurn(ctx, turnID, assistantText); ferr != nil {
		log.Warn().Err(ferr).Int64("turn_id", turnID).Msg("finalize_turn_failed")
	}
	s.Metrics.ObserveTurnStage("turn_total", time.Since(t0))

	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Int64("turn_id", turnID).Msg("turn_error")
		s.Metrics.ObserveTurnEvent("error")
		out <- Event{Type: EventError, Message: err.Error()}
		return
	}

	log.Info().
		Str("session_id", sessionID).
		Int64("turn_id", turnID).
		Dur("duration_ms", time.Since(t0)).
		Msg("turn_completed")
	s.Metrics.ObserveTurnEvent("completed")
	out <- Event{Type: EventDone, AssistantText: assistantText}
}
