package llmstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/turngate-dev/turngate/internal/domain"
)

func sseServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestRemoteStreamerParsesDeltas(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n"
	srv := sseServer(t, body, http.StatusOK)
	defer srv.Close()

	r := NewRemoteStreamer(srv.URL, "key", "gpt-4o-mini", 0.5, 100)
	var got strings.Builder
	err := r.Stream(context.Background(), Request{UserText: "hi"}, func(tok string) error {
		got.WriteString(tok)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got.String() != "Hello" {
		t.Fatalf("got %q, want %q", got.String(), "Hello")
	}
}

func TestRemoteStreamerSkipsMalformedEvents(t *testing.T) {
	body := "data: not-json\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n" +
		"data: [DONE]\n\n"
	srv := sseServer(t, body, http.StatusOK)
	defer srv.Close()

	r := NewRemoteStreamer(srv.URL, "key", "gpt-4o-mini", 0.5, 100)
	var got strings.Builder
	err := r.Stream(context.Background(), Request{UserText: "hi"}, func(tok string) error {
		got.WriteString(tok)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got.String() != "ok" {
		t.Fatalf("got %q, want %q", got.String(), "ok")
	}
}

func TestRemoteStreamerMapsAuthStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	r := NewRemoteStreamer(srv.URL, "key", "gpt-4o-mini", 0.5, 100)
	err := r.Stream(context.Background(), Request{UserText: "hi"}, func(string) error { return nil })
	if err == nil {
		t.Fatalf("expected error")
	}
	var llmErr *domain.LLMError
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *domain.LLMError, got %T", err)
	}
	if llmErr.Kind != domain.ErrAuth {
		t.Fatalf("Kind = %v, want %v", llmErr.Kind, domain.ErrAuth)
	}
}

func TestRemoteStreamerUnterminatedStreamIsUpstreamError(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"
	srv := sseServer(t, body, http.StatusOK)
	defer srv.Close()

	r := NewRemoteStreamer(srv.URL, "key", "gpt-4o-mini", 0.5, 100)
	err := r.Stream(context.Background(), Request{UserText: "hi"}, func(string) error { return nil })
	if err == nil {
		t.Fatalf("expected error for missing [DONE]")
	}
	var llmErr *domain.LLMError
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *domain.LLMError, got %T", err)
	}
	if llmErr.Kind != domain.ErrUpstream {
		t.Fatalf("Kind = %v, want %v", llmErr.Kind, domain.ErrUpstream)
	}
}
