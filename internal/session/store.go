package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/storage/local"
)

const collectionSessions = "sessions"

// FileStore persists sessions as JSON documents
type FileStore struct {
	store *local.Store
}

// NewFileStore creates a new session file store rooted at basePath
func NewFileStore(basePath string) (*FileStore, error) {
	store, err := local.NewStore(basePath)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}
	return &FileStore{store: store}, nil
}

// Create persists a new session at version 0
func (f *FileStore) Create(_ context.Context, s *Session) error {
	if err := f.store.Create(collectionSessions, s.ID, s); err != nil {
		if errors.Is(err, local.ErrExists) {
			return ErrExists
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Load retrieves a session by ID
func (f *FileStore) Load(_ context.Context, id string) (*Session, error) {
	var s Session
	if err := f.store.Load(collectionSessions, id, &s); err != nil {
		if errors.Is(err, local.ErrNotFound) || errors.Is(err, local.ErrInvalidID) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

// Save commits s when the stored version matches expectedVersion
func (f *FileStore) Save(_ context.Context, s *Session, expectedVersion int) error {
	var cur Session
	err := f.store.Update(collectionSessions, s.ID, &cur, func() (any, error) {
		if cur.Version != expectedVersion {
			return nil, fmt.Errorf("%w: stored %d, expected %d", ErrConflict, cur.Version, expectedVersion)
		}
		s.Version = expectedVersion + 1
		s.UpdatedAt = time.Now()
		return s, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, local.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict):
		return err
	default:
		s.Version = expectedVersion
		return fmt.Errorf("save session: %w", err)
	}
}

// List returns all session IDs
func (f *FileStore) List(_ context.Context) ([]string, error) {
	return f.store.List(collectionSessions)
}

// MemoryStore keeps sessions in process memory. Values are deep-copied on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create stores a new session
func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	c, err := s.Clone()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return ErrExists
	}
	m.sessions[s.ID] = c
	return nil
}

// Load returns a copy of the stored session
func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone()
}

// Save commits s when the stored version matches expectedVersion
func (m *MemoryStore) Save(_ context.Context, s *Session, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return fmt.Errorf("%w: stored %d, expected %d", ErrConflict, cur.Version, expectedVersion)
	}

	s.Version = expectedVersion + 1
	s.UpdatedAt = time.Now()
	c, err := s.Clone()
	if err != nil {
		s.Version = expectedVersion
		return err
	}
	m.sessions[s.ID] = c
	return nil
}

// List returns all session IDs, sorted
func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
