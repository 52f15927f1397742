package questionbank

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// MemoryRepository serves a fixed question pool and tracks seen and
// asked questions in process
type MemoryRepository struct {
	mu        sync.RWMutex
	questions []domain.Question
	seen      map[string]map[string]struct{}
	asked     map[string][]string
}

// NewMemoryRepository creates a repository over questions, kept in id order
func NewMemoryRepository(questions []domain.Question) *MemoryRepository {
	pool := make([]domain.Question, len(questions))
	copy(pool, questions)
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })

	return &MemoryRepository{
		questions: pool,
		seen:      make(map[string]map[string]struct{}),
		asked:     make(map[string][]string),
	}
}

// FetchCandidates returns questions matching the filter in id order
func (r *MemoryRepository) FetchCandidates(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Question
	for i := range r.questions {
		if !f.Matches(&r.questions[i]) {
			continue
		}
		out = append(out, r.questions[i])
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Get returns one question by id
func (r *MemoryRepository) Get(ctx context.Context, id string) (*domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := sort.Search(len(r.questions), func(i int) bool { return r.questions[i].ID >= id })
	if i < len(r.questions) && r.questions[i].ID == id {
		q := r.questions[i]
		return &q, nil
	}
	return nil, domain.ErrQuestionNotFound
}

// SeenBy returns the ids a user has already been asked, sorted
func (r *MemoryRepository) SeenBy(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.seen[userID]))
	for id := range r.seen[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// MarkSeen records that a user has seen a question
func (r *MemoryRepository) MarkSeen(ctx context.Context, userID, questionID string) error {
	if userID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen[userID] == nil {
		r.seen[userID] = make(map[string]struct{})
	}
	r.seen[userID][questionID] = struct{}{}
	return nil
}

// MarkAsked appends a question to a session's asked log
func (r *MemoryRepository) MarkAsked(ctx context.Context, sessionID, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.asked[sessionID] = append(r.asked[sessionID], questionID)
	return nil
}

// AskedIn returns the asked log of a session
func (r *MemoryRepository) AskedIn(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.asked[sessionID]...)
}

// Len returns the pool size
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.questions)
}
