package interview

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/rehearse/internal/assistant"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

var (
	ErrTurnInProgress = errors.New("another turn is in progress for this session")
	ErrSessionDone    = errors.New("session is complete")
	ErrEmptyAnswer    = errors.New("answer is empty")
)

// IsRetryable reports whether the caller may resubmit the same turn
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTurnInProgress) || errors.Is(err, session.ErrConflict)
}

// QuestionRepository is the question bank as seen by the controller.
// Implemented by questionbank.MemoryRepository and the SQL repositories.
type QuestionRepository interface {
	FetchCandidates(ctx context.Context, f domain.QuestionFilter) ([]domain.Question, error)
	SeenBy(ctx context.Context, userID string) ([]string, error)
	MarkSeen(ctx context.Context, userID, questionID string) error
	MarkAsked(ctx context.Context, sessionID, questionID string) error
}

// Assistant is the language-model collaborator. Implemented by assistant.Assistant.
type Assistant interface {
	ScoreTurn(ctx context.Context, req assistant.ScoreRequest) (domain.RubricScores, error)
	GenerateReply(ctx context.Context, req assistant.ReplyRequest) (string, error)
	FinalizeEvaluation(ctx context.Context, req assistant.EvaluationRequest) (*domain.Evaluation, error)
}

// EventPublisher receives session events after each committed turn
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// HealthReporter receives the outcome of assistant calls
type HealthReporter interface {
	ReportSuccess(component string)
	ReportFailure(component string, err error)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

type noopHealth struct{}

func (noopHealth) ReportSuccess(string)        {}
func (noopHealth) ReportFailure(string, error) {}

var _ Assistant = (*assistant.Assistant)(nil)
