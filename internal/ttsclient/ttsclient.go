// Package ttsclient synthesizes a short audio blob for one text fragment.
// Synthesis is synchronous request/response per fragment; voice is fixed per
// client instance.
package ttsclient

import "context"

// Format is a supported audio container/encoding.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatOpus Format = "opus"
	FormatAAC  Format = "aac"
	FormatFLAC Format = "flac"
	FormatPCM  Format = "pcm"
)

// Client synthesizes audio for one fragment at a time.
type Client interface {
	// Synthesize returns raw audio bytes for text in the given format, or
	// an *domain.TTSError on failure.
	Synthesize(ctx context.Context, text string, format Format) ([]byte, error)
}
