package session

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrExists            = errors.New("session already exists")
	ErrConflict          = errors.New("session version conflict")
	ErrInvalidConfig     = errors.New("invalid session config")
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// Store defines the persistence interface for sessions.
// The JSON file store, SQLite and Postgres stores implement this.
//
// Save commits s only if the stored version equals expectedVersion, then
// sets s.Version to expectedVersion+1. A mismatch returns ErrConflict.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, expectedVersion int) error
	List(ctx context.Context) ([]string, error)
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
