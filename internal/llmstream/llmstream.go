// Package llmstream produces a lazy sequence of text tokens for a user
// utterance plus history. Tokens are concatenation-correct: joining all
// tokens yielded by one Stream call reconstructs the complete reply.
package llmstream

import (
	"context"

	"github.com/turngate-dev/turngate/internal/domain"
)

// Request is the input to one Stream call.
type Request struct {
	SystemPrompt string
	History      []domain.Message
	UserText     string
	Model        string
}

// TokenHandler is invoked once per token, in order, as it is produced.
// Returning an error aborts the stream.
type TokenHandler func(token string) error

// Streamer produces tokens for one turn. Each Stream call yields one token
// sequence that cannot be restarted; the implementations in this package keep
// no per-call state, so one Streamer value serves every turn.
type Streamer interface {
	// Stream drives onToken once per token and returns when the sequence
	// ends, is cancelled via ctx, or fails. On failure after some tokens
	// were already delivered, the error is an *domain.LLMError.
	Stream(ctx context.Context, req Request, onToken TokenHandler) error
}
