package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turngate-dev/turngate/internal/domain"
)

// PostgresStore persists characters, sessions and turns in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS characters (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			system_prompt TEXT NOT NULL DEFAULT 'You are a helpful assistant.',
			model TEXT NOT NULL,
			voice TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			character_id BIGINT REFERENCES characters(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
			user_text TEXT NOT NULL,
			assistant_text TEXT,
			ttft_ms BIGINT,
			ttaf_ms BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session_created ON turns (session_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateCharacter(ctx context.Context, c domain.Character) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO characters (name, system_prompt, model, voice) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, c.SystemPrompt, c.Model, c.Voice,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create character: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateCharacter(ctx context.Context, c domain.Character) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE characters SET name=$2, system_prompt=$3, model=$4, voice=$5, updated_at=now() WHERE id=$1`,
		c.ID, c.Name, c.SystemPrompt, c.Model, c.Voice)
	if err != nil {
		return fmt.Errorf("update character: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteCharacter(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM characters WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete character: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCharacter(ctx context.Context, id int64) (*domain.Character, error) {
	var c domain.Character
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, system_prompt, model, voice, created_at, updated_at
		 FROM characters WHERE id=$1`, id,
	).Scan(&c.ID, &c.Name, &c.SystemPrompt, &c.Model, &c.Voice, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) UpsertSession(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, last_seen_at) VALUES ($1, now())
		 ON CONFLICT (session_id) DO UPDATE SET last_seen_at = now()`, sessionID)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateSessionWithCharacter(ctx context.Context, sessionID string, characterID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, character_id, last_seen_at) VALUES ($1, $2, now())
		 ON CONFLICT (session_id) DO UPDATE SET character_id = $2, last_seen_at = now()`,
		sessionID, characterID)
	if err != nil {
		return fmt.Errorf("create session with character: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSessionWithCharacter(ctx context.Context, sessionID string) (*domain.Session, *domain.Character, error) {
	var sess domain.Session
	var characterID *int64
	err := s.pool.QueryRow(ctx,
		`SELECT session_id, character_id, created_at, last_seen_at FROM sessions WHERE session_id=$1`,
		sessionID,
	).Scan(&sess.ID, &characterID, &sess.CreatedAt, &sess.LastSeenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get session with character: %w", err)
	}
	sess.CharacterID = characterID
	if characterID == nil {
		return &sess, nil, nil
	}
	character, err := s.GetCharacter(ctx, *characterID)
	if err != nil {
		return nil, nil, err
	}
	return &sess, character, nil
}

func (s *PostgresStore) UpdateSessionLastSeen(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = now() WHERE session_id=$1`, sessionID)
	if err != nil {
		return fmt.Errorf("update session last seen: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTurn(ctx context.Context, sessionID, userText string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO turns (session_id, user_text) VALUES ($1, $2) RETURNING id`,
		sessionID, userText,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create turn: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) SetTTFT(ctx context.Context, turnID int64, ms int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE turns SET ttft_ms=$2 WHERE id=$1 AND ttft_ms IS NULL`, turnID, ms)
	if err != nil {
		return fmt.Errorf("set ttft: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetTTAF(ctx context.Context, turnID int64, ms int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE turns SET ttaf_ms=$2 WHERE id=$1 AND ttaf_ms IS NULL`, turnID, ms)
	if err != nil {
		return fmt.Errorf("set ttaf: %w", err)
	}
	return nil
}

func (s *PostgresStore) FinalizeTurn(ctx context.Context, turnID int64, assistantText *string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE turns SET assistant_text=$2, completed_at=now() WHERE id=$1`,
		turnID, assistantText)
	if err != nil {
		return fmt.Errorf("finalize turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
