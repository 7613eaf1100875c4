package storage

import (
	"context"
	"sync"

	"github.com/turngate-dev/turngate/internal/domain"
)

// InMemoryStore is a process-local Store used for tests and for local runs
// without DATABASE_URL set, mirroring the grounding repo's in-memory
// fallback for its memory.Store.
type InMemoryStore struct {
	mu              sync.Mutex
	characters      map[int64]*domain.Character
	sessions        map[string]*domain.Session
	turns           map[int64]*domain.Turn
	nextTurnID      int64
	nextCharacterID int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		characters: make(map[int64]*domain.Character),
		sessions:   make(map[string]*domain.Session),
		turns:      make(map[int64]*domain.Turn),
	}
}

func (s *InMemoryStore) CreateCharacter(_ context.Context, c domain.Character) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCharacterID++
	c.ID = s.nextCharacterID
	now := nowUTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.characters[c.ID] = &c
	return c.ID, nil
}

func (s *InMemoryStore) UpdateCharacter(_ context.Context, c domain.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.characters[c.ID]
	if !ok {
		return nil
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = nowUTC()
	s.characters[c.ID] = &c
	return nil
}

func (s *InMemoryStore) DeleteCharacter(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.characters, id)
	for _, sess := range s.sessions {
		if sess.CharacterID != nil && *sess.CharacterID == id {
			sess.CharacterID = nil
		}
	}
	return nil
}

// SeedCharacter installs a character for tests; production callers populate
// characters via the external CRUD collaborator this package does not own.
func (s *InMemoryStore) SeedCharacter(c domain.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.characters[c.ID] = &cp
}

// SeedSession installs a session for tests.
func (s *InMemoryStore) SeedSession(sess domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sess
	s.sessions[sess.ID] = &cp
}

func (s *InMemoryStore) GetCharacter(_ context.Context, id int64) (*domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) UpsertSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowUTC()
	if existing, ok := s.sessions[sessionID]; ok {
		existing.LastSeenAt = now
		return nil
	}
	s.sessions[sessionID] = &domain.Session{ID: sessionID, CreatedAt: now, LastSeenAt: now}
	return nil
}

func (s *InMemoryStore) CreateSessionWithCharacter(_ context.Context, sessionID string, characterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowUTC()
	id := characterID
	if existing, ok := s.sessions[sessionID]; ok {
		existing.CharacterID = &id
		existing.LastSeenAt = now
		return nil
	}
	s.sessions[sessionID] = &domain.Session{ID: sessionID, CharacterID: &id, CreatedAt: now, LastSeenAt: now}
	return nil
}

func (s *InMemoryStore) GetSessionWithCharacter(_ context.Context, sessionID string) (*domain.Session, *domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil, nil
	}
	sessCopy := *sess
	if sess.CharacterID == nil {
		return &sessCopy, nil, nil
	}
	character, ok := s.characters[*sess.CharacterID]
	if !ok {
		return &sessCopy, nil, nil
	}
	charCopy := *character
	return &sessCopy, &charCopy, nil
}

func (s *InMemoryStore) UpdateSessionLastSeen(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.LastSeenAt = nowUTC()
	}
	return nil
}

func (s *InMemoryStore) CreateTurn(_ context.Context, sessionID, userText string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTurnID++
	id := s.nextTurnID
	s.turns[id] = &domain.Turn{
		ID:        id,
		SessionID: sessionID,
		UserText:  userText,
		CreatedAt: nowUTC(),
	}
	return id, nil
}

func (s *InMemoryStore) SetTTFT(_ context.Context, turnID int64, ms int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[turnID]
	if !ok || t.TTFTMs != nil {
		return nil
	}
	v := ms
	t.TTFTMs = &v
	return nil
}

func (s *InMemoryStore) SetTTAF(_ context.Context, turnID int64, ms int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[turnID]
	if !ok || t.TTAFMs != nil {
		return nil
	}
	v := ms
	t.TTAFMs = &v
	return nil
}

func (s *InMemoryStore) FinalizeTurn(_ context.Context, turnID int64, assistantText *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[turnID]
	if !ok {
		return nil
	}
	t.AssistantText = assistantText
	now := nowUTC()
	t.CompletedAt = &now
	return nil
}

// Turn returns a copy of the stored turn, for test assertions.
func (s *InMemoryStore) Turn(turnID int64) (domain.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turns[turnID]
	if !ok {
		return domain.Turn{}, false
	}
	return *t, true
}

func (s *InMemoryStore) Close() error { return nil }
