// Package domain holds the plain data types shared across the turn pipeline:
// characters, sessions, turns and the messages that flow between them.
package domain

import "time"

// Character is a reusable persona bound to a session.
type Character struct {
	ID           int64
	Name         string
	SystemPrompt string
	Model        string
	Voice        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a persistent conversational context identified by an opaque
// string id. CharacterID is nil when the session is not yet bound to a
// character.
type Session struct {
	ID          string
	CharacterID *int64
	CreatedAt   time.Time
	LastSeenAt  time.Time
}

// Turn is one user utterance and the system's full response.
type Turn struct {
	ID            int64
	SessionID     string
	UserText      string
	AssistantText *string
	TTFTMs        *int64
	TTAFMs        *int64
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is an in-memory/cache history item. It is never independently
// persisted; it is derived from Turn rows and the cache.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
