package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionStore implements session.Store with version-checked updates
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new PostgreSQL session store
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create inserts a new session
func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	query := `
		INSERT INTO interview_sessions (id, user_id, stage, version, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query,
		sess.ID, sess.UserID, string(sess.Stage), sess.Version, state, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrExists
	}
	return nil
}

// Load retrieves a session by ID
func (s *SessionStore) Load(ctx context.Context, id string) (*session.Session, error) {
	var (
		state   []byte
		version int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT state, version FROM interview_sessions WHERE id::text = $1`, id,
	).Scan(&state, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(state, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	sess.Version = version
	return &sess, nil
}

// Save commits sess when the stored version equals expectedVersion
func (s *SessionStore) Save(ctx context.Context, sess *session.Session, expectedVersion int) error {
	next := expectedVersion + 1
	sess.Version = next
	sess.UpdatedAt = time.Now()

	state, err := json.Marshal(sess)
	if err != nil {
		sess.Version = expectedVersion
		return fmt.Errorf("marshal session: %w", err)
	}

	query := `
		UPDATE interview_sessions
		SET stage = $1, version = $2, state = $3, updated_at = $4
		WHERE id::text = $5 AND version = $6
	`
	tag, err := s.pool.Exec(ctx, query, string(sess.Stage), next, state, sess.UpdatedAt, sess.ID, expectedVersion)
	if err != nil {
		sess.Version = expectedVersion
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	sess.Version = expectedVersion
	var stored int
	err = s.pool.QueryRow(ctx, `SELECT version FROM interview_sessions WHERE id::text = $1`, sess.ID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query session version: %w", err)
	}
	return fmt.Errorf("%w: stored %d, expected %d", session.ErrConflict, stored, expectedVersion)
}

// List returns all session IDs, newest first
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text FROM interview_sessions ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan session ids: %w", err)
	}
	return ids, nil
}

var _ session.Store = (*SessionStore)(nil)
