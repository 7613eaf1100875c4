package llmstream

import (
	"context"
	"time"
)

// MockStreamer yields the characters of "echo: " + user_text one at a time
// with a small per-character delay, simulating a streaming model without
// any upstream dependency.
type MockStreamer struct {
	// Delay between characters. Defaults to 20ms when zero.
	Delay time.Duration
}

func NewMockStreamer() *MockStreamer {
	return &MockStreamer{Delay: 20 * time.Millisecond}
}

func (m *MockStreamer) Stream(ctx context.Context, req Request, onToken TokenHandler) error {
	delay := m.Delay
	if delay <= 0 {
		delay = 20 * time.Millisecond
	}
	reply := "echo: " + req.UserText

	for _, r := range reply {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := onToken(string(r)); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}
