package llmstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turngate-dev/turngate/internal/domain"
)

// RemoteStreamer POSTs to an OpenAI-compatible chat-completions endpoint
// with stream=true and parses the server-sent-event response, following the
// SSE-consumption shape of the grounding repo's openclaw HTTP adapter.
type RemoteStreamer struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	client      *http.Client
}

func NewRemoteStreamer(url, apiKey, model string, temperature float64, maxTokens int) *RemoteStreamer {
	return &RemoteStreamer{
		URL:         url,
		APIKey:      apiKey,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

func (r *RemoteStreamer) Stream(ctx context.Context, req Request, onToken TokenHandler) error {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserText})

	model := req.Model
	if model == "" {
		model = r.Model
	}

	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Stream:      true,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return domain.NewLLMError(domain.ErrUpstream, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(payload))
	if err != nil {
		return domain.NewLLMError(domain.ErrUpstream, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.APIKey)

	res, err := r.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.NewLLMError(domain.ErrTimeout, "request timed out", err)
		}
		return domain.NewLLMError(domain.ErrNetwork, "request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return domain.NewLLMError(domain.ClassifyHTTPStatus(res.StatusCode),
			fmt.Sprintf("status %d: %s", res.StatusCode, string(body)), nil)
	}

	return r.consumeSSE(res.Body, onToken)
}

func (r *RemoteStreamer) consumeSSE(body io.Reader, onToken TokenHandler) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var dataLines []string
	sawDone := false

	flushEvent := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		payload := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]

		p := strings.TrimSpace(payload)
		if p == "" {
			return nil
		}
		if strings.EqualFold(p, "[DONE]") {
			sawDone = true
			return nil
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(p), &event); err != nil {
			// Malformed events are skipped silently.
			return nil
		}
		if len(event.Choices) == 0 {
			return nil
		}
		content := event.Choices[0].Delta.Content
		if content == "" {
			return nil
		}
		return onToken(content)
	}

	for scanner.Scan() {
		if sawDone {
			break
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if err := flushEvent(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field := line
		value := ""
		if idx := strings.IndexByte(line, ':'); idx >= 0 {
			field = line[:idx]
			value = line[idx+1:]
			if strings.HasPrefix(value, " ") {
				value = value[1:]
			}
		}
		if field == "data" {
			dataLines = append(dataLines, value)
		}
	}
	if err := flushEvent(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil {
		return domain.NewLLMError(domain.ErrNetwork, "stream read failed", err)
	}
	if !sawDone {
		// The connection closed before a terminating [DONE] event.
		return domain.NewLLMError(domain.ErrUpstream, "stream closed before [DONE]", nil)
	}
	return nil
}
