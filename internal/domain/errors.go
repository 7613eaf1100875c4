package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound and ErrCharacterNotBound are precondition failures
// surfaced before any turn event is emitted.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrCharacterNotBound = errors.New("session has no character bound")
)

// ProviderErrorKind classifies a failure from an upstream LLM or TTS
// provider. The same taxonomy applies to both providers.
type ProviderErrorKind string

const (
	ErrAuth      ProviderErrorKind = "auth"
	ErrRateLimit ProviderErrorKind = "rate_limit"
	ErrUpstream  ProviderErrorKind = "upstream"
	ErrTimeout   ProviderErrorKind = "timeout"
	ErrNetwork   ProviderErrorKind = "network"
)

// LLMError is a typed failure from an LLMStreamer producer.
type LLMError struct {
	Kind ProviderErrorKind
	Msg  string
	Err  error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm error (%s): %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("llm error (%s): %s", e.Kind, e.Msg)
}

func (e *LLMError) Unwrap() error { return e.Err }

// NewLLMError builds an LLMError of the given kind.
func NewLLMError(kind ProviderErrorKind, msg string, err error) *LLMError {
	return &LLMError{Kind: kind, Msg: msg, Err: err}
}

// TTSError is a typed failure from a TTSClient.
type TTSError struct {
	Kind ProviderErrorKind
	Msg  string
	Err  error
}

func (e *TTSError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tts error (%s): %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("tts error (%s): %s", e.Kind, e.Msg)
}

func (e *TTSError) Unwrap() error { return e.Err }

// NewTTSError builds a TTSError of the given kind.
func NewTTSError(kind ProviderErrorKind, msg string, err error) *TTSError {
	return &TTSError{Kind: kind, Msg: msg, Err: err}
}

// ClassifyHTTPStatus maps an HTTP status code to a ProviderErrorKind,
// following the taxonomy in §4.2/§4.3: 401 is auth, 429 is rate limit,
// any other >=400 is upstream.
func ClassifyHTTPStatus(status int) ProviderErrorKind {
	switch {
	case status == 401:
		return ErrAuth
	case status == 429:
		return ErrRateLimit
	default:
		return ErrUpstream
	}
}
