package gateway

import "github.com/turngate-dev/turngate/internal/turnservice"

// clientMessage is one client->server utterance per §6.
type clientMessage struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type tokenMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type audioChunkMessage struct {
	Type   string `json:"type"`
	Seq    int    `json:"seq"`
	Format string `json:"format"`
	Data   string `json:"data"`
}

type doneMessage struct {
	Type          string  `json:"type"`
	AssistantText *string `json:"assistant_text"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// wireMessage translates one turnservice.Event into its §6 wire shape.
func wireMessage(ev turnservice.Event) any {
	switch ev.Type {
	case turnservice.EventToken:
		return tokenMessage{Type: "token", Text: ev.Text}
	case turnservice.EventAudio:
		return audioChunkMessage{Type: "audio_chunk", Seq: ev.Seq, Format: ev.Format, Data: ev.Data}
	case turnservice.EventDone:
		return doneMessage{Type: "done", AssistantText: ev.AssistantText}
	case turnservice.EventError:
		return errorMessage{Type: "error", Message: ev.Message}
	default:
		return errorMessage{Type: "error", Message: "internal: unrecognized event"}
	}
}
