// Package historycache maintains, for each session, a bounded ordered
// sequence of Messages: an in-process mirror backed by a durable keyed list
// in an external cache. The external cache is authoritative; the mirror is
// a fallback and a warm read path, per the single-writer-per-session
// discipline described in the turn pipeline design.
package historycache

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/turngate-dev/turngate/internal/domain"
)

// ExternalCache is the keyed-list-with-TTL store consumed by HistoryCache.
// All failures are swallowed by the HistoryCache; this interface exists so
// a Redis-backed implementation and a process-local test double can share
// one call site.
type ExternalCache interface {
	LPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Expire(ctx context.Context, key string, ttlSeconds int) error
}

// Cache is the HistoryCache component: get_history / append_user /
// append_assistant / flush_turn.
type Cache struct {
	external ExternalCache
	maxTurns int
	ttl      int

	mu     sync.Mutex
	mirror map[string][]domain.Message
}

// New builds a Cache. maxTurns bounds the ring and the external list to
// 2*maxTurns entries; ttlSeconds is the TTL reapplied on every flush.
func New(external ExternalCache, maxTurns, ttlSeconds int) *Cache {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if ttlSeconds <= 0 {
		ttlSeconds = 86400
	}
	return &Cache{
		external: external,
		maxTurns: maxTurns,
		ttl:      ttlSeconds,
		mirror:   make(map[string][]domain.Message),
	}
}

func key(sessionID string) string {
	return "session:" + sessionID + ":history"
}

// GetHistory returns the chronological message history for a session. It
// first attempts the external cache (newest-first entries, reversed to
// chronological order) and refreshes the in-process mirror on success;
// on any external failure it falls back to the mirror. It never returns an
// error.
func (c *Cache) GetHistory(ctx context.Context, sessionID string) []domain.Message {
	raw, err := c.external.LRange(ctx, key(sessionID), 0, int64(2*c.maxTurns-1))
	if err != nil {
		return c.mirrorSnapshot(sessionID)
	}

	messages := make([]domain.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m domain.Message
		if jsonErr := json.Unmarshal([]byte(raw[i]), &m); jsonErr != nil {
			continue
		}
		messages = append(messages, m)
	}

	c.mu.Lock()
	c.mirror[sessionID] = messages
	c.mu.Unlock()

	return messages
}

func (c *Cache) mirrorSnapshot(sessionID string) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing := c.mirror[sessionID]
	out := make([]domain.Message, len(existing))
	copy(out, existing)
	return out
}

// AppendUser appends a user message to the in-process mirror only.
func (c *Cache) AppendUser(sessionID, text string) {
	c.appendLocal(sessionID, domain.Message{Role: domain.RoleUser, Content: text})
}

// AppendAssistant appends an assistant message to the in-process mirror only.
func (c *Cache) AppendAssistant(sessionID, text string) {
	c.appendLocal(sessionID, domain.Message{Role: domain.RoleAssistant, Content: text})
}

func (c *Cache) appendLocal(sessionID string, msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ring := append(c.mirror[sessionID], msg)
	cap := 2 * c.maxTurns
	if len(ring) > cap {
		ring = ring[len(ring)-cap:]
	}
	c.mirror[sessionID] = ring
}

// FlushTurn durably records one completed turn. It pushes user then
// assistant to the head of the external list — LPUSH prepends, so the last
// push (assistant) ends up at index 0 — trims to 2*maxTurns, and resets the
// TTL. On any external failure it silently returns; the in-process mirror
// remains the source of truth for the remainder of the process.
func (c *Cache) FlushTurn(ctx context.Context, sessionID, userText, assistantText string) {
	userEntry, err := json.Marshal(domain.Message{Role: domain.RoleUser, Content: userText})
	if err != nil {
		return
	}
	assistantEntry, err := json.Marshal(domain.Message{Role: domain.RoleAssistant, Content: assistantText})
	if err != nil {
		return
	}

	k := key(sessionID)
	if err := c.external.LPush(ctx, k, string(userEntry)); err != nil {
		return
	}
	if err := c.external.LPush(ctx, k, string(assistantEntry)); err != nil {
		return
	}
	if err := c.external.LTrim(ctx, k, 0, int64(2*c.maxTurns-1)); err != nil {
		return
	}
	_ = c.external.Expire(ctx, k, c.ttl)
}
