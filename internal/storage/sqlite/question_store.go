package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// QuestionStore is the question bank plus the per-user seen and per-session
// asked records
type QuestionStore struct {
	db *DB
}

// NewQuestionStore creates a new SQLite-backed question repository
func NewQuestionStore(db *DB) *QuestionStore {
	return &QuestionStore{db: db}
}

const questionColumns = `id, track, company, difficulty, category, prompt, tags, expected_topics, evaluation_focus`

// Upsert validates and stores questions in one transaction
func (s *QuestionStore) Upsert(ctx context.Context, questions []domain.Question) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (`+questionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			track=excluded.track, company=excluded.company,
			difficulty=excluded.difficulty, category=excluded.category,
			prompt=excluded.prompt, tags=excluded.tags,
			expected_topics=excluded.expected_topics, evaluation_focus=excluded.evaluation_focus`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range questions {
		q := &questions[i]
		if err := q.Validate(); err != nil {
			return err
		}
		tags, topics, focus, err := encodeLists(q)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			q.ID, q.Track, q.Company, string(q.Difficulty), string(q.Category), q.Prompt,
			tags, topics, focus,
		); err != nil {
			return fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// FetchCandidates returns the questions matching f, ordered by id
func (s *QuestionStore) FetchCandidates(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, error) {
	query := "SELECT " + questionColumns + " FROM questions WHERE 1=1"
	var args []any

	if f.Track != "" {
		query += " AND lower(track) = lower(?)"
		args = append(args, f.Track)
	}
	if f.Company != "" {
		query += " AND (company = '' OR lower(company) = lower(?))"
		args = append(args, f.Company)
	}
	if f.Difficulty != "" {
		query += " AND difficulty = ?"
		args = append(args, string(f.Difficulty))
	}
	if len(f.Categories) > 0 {
		marks := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			marks[i] = "?"
			args = append(args, string(c))
		}
		query += " AND category IN (" + strings.Join(marks, ", ") + ")"
	}
	query += " ORDER BY id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

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
	row := s.db.QueryRowContext(ctx, "SELECT "+questionColumns+" FROM questions WHERE id = ?", id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	return q, err
}

// Count returns the number of stored questions
func (s *QuestionStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions").Scan(&n)
	return n, err
}

// SeenBy returns the question IDs a user has been asked in any session
func (s *QuestionStore) SeenBy(ctx context.Context, userID string) ([]string, error) {
	return s.ids(ctx, "SELECT question_id FROM seen_questions WHERE user_id = ? ORDER BY question_id", userID)
}

// MarkSeen records that a user has been asked a question
func (s *QuestionStore) MarkSeen(ctx context.Context, userID, questionID string) error {
	if userID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO seen_questions (user_id, question_id) VALUES (?, ?)", userID, questionID)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// MarkAsked records a question asked within a session
func (s *QuestionStore) MarkAsked(ctx context.Context, sessionID, questionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO asked_questions (session_id, question_id, position)
		VALUES (?, ?, (SELECT COUNT(*) FROM asked_questions WHERE session_id = ?))`,
		sessionID, questionID, sessionID)
	if err != nil {
		return fmt.Errorf("mark asked: %w", err)
	}
	return nil
}

// AskedIn returns the questions asked in a session, in order
func (s *QuestionStore) AskedIn(ctx context.Context, sessionID string) ([]string, error) {
	return s.ids(ctx, "SELECT question_id FROM asked_questions WHERE session_id = ? ORDER BY position", sessionID)
}

func (s *QuestionStore) ids(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (*domain.Question, error) {
	var (
		q                    domain.Question
		difficulty, category string
		tags, topics, focus  string
	)
	if err := row.Scan(&q.ID, &q.Track, &q.Company, &difficulty, &category, &q.Prompt, &tags, &topics, &focus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan question: %w", err)
	}
	q.Difficulty = domain.Difficulty(difficulty)
	q.Category = domain.Category(category)

	for _, f := range []struct {
		raw string
		dst *[]string
	}{{tags, &q.Tags}, {topics, &q.ExpectedTopics}, {focus, &q.EvaluationFocus}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("unmarshal question %s lists: %w", q.ID, err)
		}
	}
	return &q, nil
}

func encodeLists(q *domain.Question) (tags, topics, focus string, err error) {
	enc := func(v []string) (string, error) {
		if v == nil {
			v = []string{}
		}
		b, err := json.Marshal(v)
		return string(b), err
	}
	if tags, err = enc(q.Tags); err != nil {
		return "", "", "", fmt.Errorf("marshal tags: %w", err)
	}
	if topics, err = enc(q.ExpectedTopics); err != nil {
		return "", "", "", fmt.Errorf("marshal expected_topics: %w", err)
	}
	if focus, err = enc(q.EvaluationFocus); err != nil {
		return "", "", "", fmt.Errorf("marshal evaluation_focus: %w", err)
	}
	return tags, topics, focus, nil
}
