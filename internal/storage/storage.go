// Package storage is the transactional row store for characters, sessions
// and turns. It is an external collaborator per the turn-pipeline scope:
// the core only ever calls the operations declared on Store.
package storage

import (
	"context"
	"time"

	"github.com/turngate-dev/turngate/internal/domain"
)

// Store is the full set of repository operations the turn pipeline and its
// surrounding collaborators consume.
type Store interface {
	GetCharacter(ctx context.Context, id int64) (*domain.Character, error)

	// CreateCharacter, UpdateCharacter and DeleteCharacter back the external
	// character-management CRUD surface. The turn pipeline core itself only
	// ever calls GetCharacter (§1); these exist because a runnable service
	// needs somewhere to create the characters a session can bind to.
	CreateCharacter(ctx context.Context, c domain.Character) (int64, error)
	UpdateCharacter(ctx context.Context, c domain.Character) error
	DeleteCharacter(ctx context.Context, id int64) error

	UpsertSession(ctx context.Context, sessionID string) error
	CreateSessionWithCharacter(ctx context.Context, sessionID string, characterID int64) error
	GetSessionWithCharacter(ctx context.Context, sessionID string) (*domain.Session, *domain.Character, error)
	UpdateSessionLastSeen(ctx context.Context, sessionID string) error

	CreateTurn(ctx context.Context, sessionID, userText string) (int64, error)
	SetTTFT(ctx context.Context, turnID int64, ms int64) error
	SetTTAF(ctx context.Context, turnID int64, ms int64) error
	FinalizeTurn(ctx context.Context, turnID int64, assistantText *string) error

	Close() error
}

// NewStore returns a PostgresStore when databaseURL is set, otherwise an
// InMemoryStore — mirroring the grounding repo's memory.NewStore factory
// switch, which keeps the service runnable without a live database for
// local development and tests.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

func nowUTC() time.Time { return time.Now().UTC() }
