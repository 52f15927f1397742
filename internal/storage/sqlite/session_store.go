package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/session"
)

// SessionStore persists sessions as JSON state rows guarded by a version column
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite-backed session store
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a new session
func (s *SessionStore) Create(ctx context.Context, sess *session.Session) error {
	state, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE id = ?", sess.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if exists > 0 {
		return session.ErrExists
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, stage, version, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, string(sess.Stage), sess.Version, string(state),
		sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Load retrieves a session by ID
func (s *SessionStore) Load(ctx context.Context, id string) (*session.Session, error) {
	var (
		state   string
		version int
	)
	err := s.db.QueryRowContext(ctx, "SELECT state, version FROM sessions WHERE id = ?", id).Scan(&state, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal([]byte(state), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	// the column is authoritative
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

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET stage = ?, version = ?, state = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(sess.Stage), next, string(state), sess.UpdatedAt,
		sess.ID, expectedVersion,
	)
	if err != nil {
		sess.Version = expectedVersion
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		sess.Version = expectedVersion
		return s.missOrConflict(ctx, sess.ID, expectedVersion)
	}
	return nil
}

func (s *SessionStore) missOrConflict(ctx context.Context, id string, expected int) error {
	var stored int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM sessions WHERE id = ?", id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query session version: %w", err)
	}
	return fmt.Errorf("%w: stored %d, expected %d", session.ErrConflict, stored, expected)
}

// List returns all session IDs, newest first
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM sessions ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a session
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrNotFound
	}
	return nil
}
