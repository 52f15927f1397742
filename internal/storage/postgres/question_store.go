package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// QuestionStore implements the question repository over database/sql
type QuestionStore struct {
	db *sql.DB
}

// OpenQuestionStore connects with the lib/pq driver
func OpenQuestionStore(dsn string) (*QuestionStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &QuestionStore{db: db}, nil
}

// NewQuestionStore wraps an open database
func NewQuestionStore(db *sql.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

// Close closes the underlying database
func (s *QuestionStore) Close() error {
	return s.db.Close()
}

// questionMeta holds the optional list fields kept in the metadata column
type questionMeta struct {
	ExpectedTopics  []string `json:"expected_topics,omitempty"`
	EvaluationFocus []string `json:"evaluation_focus,omitempty"`
}

func encodeMeta(q *domain.Question) (pqtype.NullRawMessage, error) {
	if len(q.ExpectedTopics) == 0 && len(q.EvaluationFocus) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	data, err := json.Marshal(questionMeta{ExpectedTopics: q.ExpectedTopics, EvaluationFocus: q.EvaluationFocus})
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

func decodeMeta(raw pqtype.NullRawMessage, q *domain.Question) error {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return nil
	}
	var m questionMeta
	if err := json.Unmarshal(raw.RawMessage, &m); err != nil {
		return fmt.Errorf("unmarshal metadata: %w", err)
	}
	q.ExpectedTopics = m.ExpectedTopics
	q.EvaluationFocus = m.EvaluationFocus
	return nil
}

// Upsert validates and stores questions in one transaction
func (s *QuestionStore) Upsert(ctx context.Context, questions []domain.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO questions (id, track, company, difficulty, category, prompt, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			track = EXCLUDED.track, company = EXCLUDED.company,
			difficulty = EXCLUDED.difficulty, category = EXCLUDED.category,
			prompt = EXCLUDED.prompt, tags = EXCLUDED.tags, metadata = EXCLUDED.metadata`

	for i := range questions {
		q := &questions[i]
		if err := q.Validate(); err != nil {
			return err
		}
		meta, err := encodeMeta(q)
		if err != nil {
			return err
		}
		tags := q.Tags
		if tags == nil {
			tags = []string{}
		}
		if _, err := tx.ExecContext(ctx, query,
			q.ID, q.Track, q.Company, string(q.Difficulty), string(q.Category), q.Prompt,
			pq.Array(tags), meta,
		); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// candidateQuery builds the filtered select for FetchCandidates
func candidateQuery(f domain.QuestionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Track != "" {
		where = append(where, "lower(track) = lower("+arg(f.Track)+")")
	}
	if f.Company != "" {
		where = append(where, "(company = '' OR lower(company) = lower("+arg(f.Company)+"))")
	}
	if f.Difficulty != "" {
		where = append(where, "difficulty = "+arg(string(f.Difficulty)))
	}
	if len(f.Categories) > 0 {
		cats := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = string(c)
		}
		where = append(where, "category = ANY("+arg(pq.Array(cats))+")")
	}

	query := "SELECT id, track, company, difficulty, category, prompt, tags, metadata FROM questions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	return query, args
}

// FetchCandidates returns the questions matching f, ordered by id
func (s *QuestionStore) FetchCandidates(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, error) {
	query, args := candidateQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// Get retrieves a question by ID
func (s *QuestionStore) Get(ctx context.Context, id string) (*domain.Question, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, track, company, difficulty, category, prompt, tags, metadata FROM questions WHERE id = $1", id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	return q, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (*domain.Question, error) {
	var (
		q                    domain.Question
		difficulty, category string
		meta                 pqtype.NullRawMessage
	)
	err := row.Scan(&q.ID, &q.Track, &q.Company, &difficulty, &category, &q.Prompt, pq.Array(&q.Tags), &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	q.Category = domain.Category(category)
	if err := decodeMeta(meta, &q); err != nil {
		return nil, fmt.Errorf("question %s: %w", q.ID, err)
	}
	return &q, nil
}

// SeenBy returns the question IDs a user has been asked
func (s *QuestionStore) SeenBy(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT question_id FROM seen_questions WHERE user_id = $1 ORDER BY question_id", userID)
	if err != nil {
		return nil, fmt.Errorf("query seen: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkSeen records that a user has been asked a question
func (s *QuestionStore) MarkSeen(ctx context.Context, userID, questionID string) error {
	if userID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO seen_questions (user_id, question_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", userID, questionID)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// MarkAsked records a question asked within a session
func (s *QuestionStore) MarkAsked(ctx context.Context, sessionID, questionID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO asked_questions (session_id, question_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", sessionID, questionID)
	if err != nil {
		return fmt.Errorf("mark asked: %w", err)
	}
	return nil
}

var _ interview.QuestionRepository = (*QuestionStore)(nil)
