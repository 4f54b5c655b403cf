package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/bc-solo/internal/game"
)

// SessionStore keeps the live game of each session in Postgres.
// Rows past expires_at are invisible to Load and removed by PurgeExpired.
type SessionStore struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

func NewSessionStore(db *pgxpool.Pool, ttl time.Duration) *SessionStore {
	return &SessionStore{db: db, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, id string, snap game.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO game_sessions (id, snapshot, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
	`, id, string(b), time.Now().Add(s.ttl))
	return err
}

func (s *SessionStore) Load(ctx context.Context, id string) (game.Snapshot, bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT snapshot
		FROM game_sessions
		WHERE id = $1 AND expires_at > now()
	`, id).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return game.Snapshot{}, false, nil
	}
	if err != nil {
		return game.Snapshot{}, false, err
	}

	var snap game.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return game.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM game_sessions WHERE id = $1`, id)
	return err
}

// PurgeExpired deletes expired rows and reports how many were removed.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM game_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
