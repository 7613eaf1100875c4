// Package orchestrator runs the per-turn pipeline: it fans a user utterance
// out to a token producer and a TTS producer that feed one ordered event
// channel, and persists the finished turn to history.
package orchestrator

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/turngate-dev/turngate/internal/chunker"
	"github.com/turngate-dev/turngate/internal/domain"
	"github.com/turngate-dev/turngate/internal/llmstream"
	"github.com/turngate-dev/turngate/internal/ttsclient"
)

// EventType identifies the shape of one Event.
type EventType string

const (
	EventToken EventType = "token"
	EventAudio EventType = "audio_chunk"
	EventDone  EventType = "done"
)

// Event is one item of the ordered per-turn stream forwarded to the client.
type Event struct {
	Type          EventType
	Text          string  // token
	Seq           int     // audio_chunk
	Format        string  // audio_chunk
	Data          string  // audio_chunk, base64
	AssistantText *string // done
}

// HistoryCache is the subset of historycache.Cache the Orchestrator needs.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID string) []domain.Message
	AppendUser(sessionID, text string)
	AppendAssistant(sessionID, text string)
	FlushTurn(ctx context.Context, sessionID, userText, assistantText string)
}

const eventBuffer = 32

// Orchestrator is built fresh per turn, bound to one character's model,
// system prompt and voice. It owns no state beyond construction arguments;
// a caller may share one Orchestrator across turns only if its underlying
// LLM/TTS clients are themselves safe for concurrent use (they are, since
// the remote variants are request/response per call).
type Orchestrator struct {
	History      HistoryCache
	LLM          llmstream.Streamer
	TTS          ttsclient.Client
	SystemPrompt string
	Model        string
}

// Stream runs the turn pipeline and returns an ordered event channel plus a
// one-shot error channel. The event channel is closed when the pipeline
// finishes; the caller should then receive from the error channel (which is
// also closed) to learn whether the turn ended in `done` or failed
// mid-stream. A non-nil error means no `done` event was sent — the last
// event observed on events is the most recent progress made before failure.
func (o *Orchestrator) Stream(ctx context.Context, sessionID, userText string) (<-chan Event, <-chan error) {
	events := make(chan Event, eventBuffer)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		history := o.History.GetHistory(ctx, sessionID)
		o.History.AppendUser(sessionID, userText)

		fragments := make(chan chunker.Fragment, eventBuffer)

		var assistantBuf strings.Builder
		var llmErr, ttsErr error

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			defer close(fragments)

			c := chunker.New()
			req := llmstream.Request{
				SystemPrompt: o.SystemPrompt,
				History:      history,
				UserText:     userText,
				Model:        o.Model,
			}
			err := o.LLM.Stream(ctx, req, func(token string) error {
				assistantBuf.WriteString(token)
				select {
				case events <- Event{Type: EventToken, Text: token}:
				case <-ctx.Done():
					return ctx.Err()
				}
				if frag, ok := c.Push(token); ok {
					select {
					case fragments <- frag:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			})
			if err != nil {
				llmErr = err
			}
			if frag, ok := c.Flush(); ok {
				select {
				case fragments <- frag:
				case <-ctx.Done():
				}
			}
		}()

		go func() {
			defer wg.Done()
			for frag := range fragments {
				audio, err := o.TTS.Synthesize(ctx, frag.Text, ttsclient.FormatWAV)
				if err != nil {
					if ttsErr == nil {
						ttsErr = err
					}
					continue
				}
				select {
				case events <- Event{
					Type:   EventAudio,
					Seq:    frag.Seq,
					Format: string(ttsclient.FormatWAV),
					Data:   base64.StdEncoding.EncodeToString(audio),
				}:
				case <-ctx.Done():
					return
				}
			}
		}()

		wg.Wait()

		assistantText := strings.TrimSpace(assistantBuf.String())
		if assistantText != "" {
			o.History.AppendAssistant(sessionID, assistantText)
		}
		o.History.FlushTurn(ctx, sessionID, userText, assistantText)

		if err := firstNonNil(llmErr, ttsErr); err != nil {
			errs <- err
			return
		}

		var text *string
		if assistantText != "" {
			text = &assistantText
		}
		events <- Event{Type: EventDone, AssistantText: text}
	}()

	return events, errs
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
