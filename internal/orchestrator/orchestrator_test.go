package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/turngate-dev/turngate/internal/domain"
	"github.com/turngate-dev/turngate/internal/llmstream"
	"github.com/turngate-dev/turngate/internal/ttsclient"
)

// fakeHistory is an in-memory HistoryCache double recording every call.
type fakeHistory struct {
	mu              sync.Mutex
	preloaded       []domain.Message
	gotHistoryFor   []string
	appendedUser    []string
	appendedAsst    []string
	flushed         [][3]string
}

func (f *fakeHistory) GetHistory(ctx context.Context, sessionID string) []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotHistoryFor = append(f.gotHistoryFor, sessionID)
	out := make([]domain.Message, len(f.preloaded))
	copy(out, f.preloaded)
	return out
}

func (f *fakeHistory) AppendUser(sessionID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendedUser = append(f.appendedUser, text)
}

func (f *fakeHistory) AppendAssistant(sessionID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendedAsst = append(f.appendedAsst, text)
}

func (f *fakeHistory) FlushTurn(ctx context.Context, sessionID, userText, assistantText string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = append(f.flushed, [3]string{sessionID, userText, assistantText})
}

// charStreamer streams a fixed reply one character at a time.
type charStreamer struct {
	reply string
}

func (c *charStreamer) Stream(ctx context.Context, req llmstream.Request, onToken llmstream.TokenHandler) error {
	for _, r := range c.reply {
		if err := onToken(string(r)); err != nil {
			return err
		}
	}
	return nil
}

// historyCapturingStreamer records the history it was given and streams one token.
type historyCapturingStreamer struct {
	got []domain.Message
}

func (h *historyCapturingStreamer) Stream(ctx context.Context, req llmstream.Request, onToken llmstream.TokenHandler) error {
	h.got = req.History
	return onToken("OK")
}

// fixedTTS always returns the same bytes.
type fixedTTS struct {
	audio []byte
}

func (f *fixedTTS) Synthesize(ctx context.Context, text string, format ttsclient.Format) ([]byte, error) {
	return f.audio, nil
}

// failingTTS fails every synthesis call.
type failingTTS struct{}

func (failingTTS) Synthesize(ctx context.Context, text string, format ttsclient.Format) ([]byte, error) {
	return nil, domain.NewTTSError(domain.ErrUpstream, "synth failed", nil)
}

func drain(t *testing.T, events <-chan Event, errs <-chan error) ([]Event, error) {
	t.Helper()
	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	return got, <-errs
}

func TestStreamYieldsTokensThenDone(t *testing.T) {
	o := &Orchestrator{
		History: &fakeHistory{},
		LLM:     &charStreamer{reply: "echo: Hi"},
		TTS:     &fixedTTS{audio: []byte("fake_audio_bytes")},
	}
	events, errs := o.Stream(context.Background(), "session-1", "Hi")
	got, err := drain(t, events, errs)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var tokenText strings.Builder
	audioCount := 0
	last := got[len(got)-1]
	for _, ev := range got {
		switch ev.Type {
		case EventToken:
			tokenText.WriteString(ev.Text)
		case EventAudio:
			audioCount++
		}
	}
	if tokenText.String() != "echo: Hi" {
		t.Fatalf("tokens = %q, want %q", tokenText.String(), "echo: Hi")
	}
	if audioCount < 1 {
		t.Fatalf("expected at least one audio_chunk event")
	}
	if last.Type != EventDone {
		t.Fatalf("last event type = %v, want done", last.Type)
	}
	if last.AssistantText == nil || *last.AssistantText != "echo: Hi" {
		t.Fatalf("done.AssistantText = %v, want %q", last.AssistantText, "echo: Hi")
	}
}

func TestStreamCacheOperationsCalledOnce(t *testing.T) {
	hist := &fakeHistory{}
	o := &Orchestrator{
		History: hist,
		LLM:     &charStreamer{reply: "Hello!"},
		TTS:     &fixedTTS{audio: []byte("audio")},
	}
	events, errs := o.Stream(context.Background(), "session-1", "Hi")
	if _, err := drain(t, events, errs); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if len(hist.gotHistoryFor) != 1 || hist.gotHistoryFor[0] != "session-1" {
		t.Fatalf("GetHistory calls = %v", hist.gotHistoryFor)
	}
	if len(hist.appendedUser) != 1 || hist.appendedUser[0] != "Hi" {
		t.Fatalf("AppendUser calls = %v", hist.appendedUser)
	}
	if len(hist.appendedAsst) != 1 || hist.appendedAsst[0] != "Hello!" {
		t.Fatalf("AppendAssistant calls = %v", hist.appendedAsst)
	}
	if len(hist.flushed) != 1 || hist.flushed[0] != [3]string{"session-1", "Hi", "Hello!"} {
		t.Fatalf("FlushTurn calls = %v", hist.flushed)
	}
}

func TestStreamHistoryFanIn(t *testing.T) {
	hist := &fakeHistory{preloaded: []domain.Message{
		{Role: domain.RoleUser, Content: "Previous question"},
		{Role: domain.RoleAssistant, Content: "Previous answer"},
	}}
	streamer := &historyCapturingStreamer{}
	o := &Orchestrator{
		History: hist,
		LLM:     streamer,
		TTS:     &fixedTTS{audio: []byte("audio")},
	}
	events, errs := o.Stream(context.Background(), "session-X", "Q2")
	if _, err := drain(t, events, errs); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(streamer.got) != 2 {
		t.Fatalf("history passed to LLM = %v, want 2 entries", streamer.got)
	}
	if streamer.got[0].Content != "Previous question" || streamer.got[1].Content != "Previous answer" {
		t.Fatalf("unexpected history order: %v", streamer.got)
	}
}

func TestStreamChunksOnPunctuation(t *testing.T) {
	var mu sync.Mutex
	var chunks []string
	recordingTTS := ttsFunc(func(ctx context.Context, text string, format ttsclient.Format) ([]byte, error) {
		mu.Lock()
		chunks = append(chunks, text)
		mu.Unlock()
		return []byte("audio"), nil
	})
	o := &Orchestrator{
		History: &fakeHistory{},
		LLM:     &charStreamer{reply: "Hi. Bye!"},
		TTS:     recordingTTS,
	}
	events, errs := o.Stream(context.Background(), "s1", "test")
	if _, err := drain(t, events, errs); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "Hi." || chunks[1] != "Bye!" {
		t.Fatalf("chunks = %v, want [Hi. Bye!]", chunks)
	}
}

func TestStreamChunksOnSixtyCharThreshold(t *testing.T) {
	var mu sync.Mutex
	var chunks []string
	recordingTTS := ttsFunc(func(ctx context.Context, text string, format ttsclient.Format) ([]byte, error) {
		mu.Lock()
		chunks = append(chunks, text)
		mu.Unlock()
		return []byte("audio"), nil
	})
	o := &Orchestrator{
		History: &fakeHistory{},
		LLM:     &charStreamer{reply: strings.Repeat("a", 70)},
		TTS:     recordingTTS,
	}
	events, errs := o.Stream(context.Background(), "s1", "test")
	if _, err := drain(t, events, errs); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if len(chunks) != 2 || len(chunks[0]) != 60 || len(chunks[1]) != 10 {
		t.Fatalf("chunks = %v, want lengths [60 10]", mapLens(chunks))
	}
}

func TestStreamTTSFailureYieldsErrorNoDone(t *testing.T) {
	hist := &fakeHistory{}
	o := &Orchestrator{
		History: hist,
		LLM:     &charStreamer{reply: "Hi"},
		TTS:     failingTTS{},
	}
	events, errs := o.Stream(context.Background(), "session-1", "Hello")
	got, err := drain(t, events, errs)
	if err == nil {
		t.Fatalf("expected an error when TTS fails")
	}
	var ttsErr *domain.TTSError
	if !errors.As(err, &ttsErr) {
		t.Fatalf("expected *domain.TTSError, got %T", err)
	}
	for _, ev := range got {
		if ev.Type == EventAudio {
			t.Fatalf("no audio_chunk expected when TTS fails, got one")
		}
		if ev.Type == EventDone {
			t.Fatalf("no done event expected when TTS fails")
		}
	}
}

func TestStreamCancellationTerminatesPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		History: &fakeHistory{},
		LLM:     &slowStreamer{},
		TTS:     &fixedTTS{audio: []byte("audio")},
	}
	events, errs := o.Stream(ctx, "session-1", "Hello")
	cancel()

	done := make(chan struct{})
	go func() {
		for range events {
		}
		<-errs
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("orchestrator did not terminate within bound after cancellation")
	}
}

type slowStreamer struct{}

func (slowStreamer) Stream(ctx context.Context, req llmstream.Request, onToken llmstream.TokenHandler) error {
	for i := 0; i < 1000; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		if err := onToken("x"); err != nil {
			return err
		}
	}
	return nil
}

type ttsFunc func(ctx context.Context, text string, format ttsclient.Format) ([]byte, error)

func (f ttsFunc) Synthesize(ctx context.Context, text string, format ttsclient.Format) ([]byte, error) {
	return f(ctx, text, format)
}

func mapLens(ss []string) []int {
	out := make([]int, len(ss))
	for i, s := range ss {
		out[i] = len(s)
	}
	return out
}
