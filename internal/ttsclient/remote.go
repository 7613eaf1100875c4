package ttsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turngate-dev/turngate/internal/domain"
)

// RemoteClient POSTs text to an OpenAI-compatible speech endpoint and
// returns the synthesized audio bytes whole; there is no streaming
// response to parse, unlike the LLM side.
type RemoteClient struct {
	URL    string
	APIKey string
	Model  string
	Voice  string
	client *http.Client
}

func NewRemoteClient(url, apiKey, model, voice string) *RemoteClient {
	return &RemoteClient{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		Voice:  voice,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (r *RemoteClient) Synthesize(ctx context.Context, text string, format Format) ([]byte, error) {
	respFormat := string(format)
	if respFormat == "" {
		respFormat = string(FormatWAV)
	}

	payload, err := json.Marshal(speechRequest{
		Model:          r.Model,
		Input:          text,
		Voice:          r.Voice,
		ResponseFormat: respFormat,
	})
	if err != nil {
		return nil, domain.NewTTSError(domain.ErrUpstream, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewTTSError(domain.ErrUpstream, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.APIKey)

	res, err := r.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewTTSError(domain.ErrTimeout, "request timed out", err)
		}
		return nil, domain.NewTTSError(domain.ErrNetwork, "request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, domain.NewTTSError(domain.ClassifyHTTPStatus(res.StatusCode),
			fmt.Sprintf("status %d: %s", res.StatusCode, string(body)), nil)
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, domain.NewTTSError(domain.ErrNetwork, "reading response body", err)
	}
	return audio, nil
}
