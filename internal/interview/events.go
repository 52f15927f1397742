package interview

import (
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/followup"
	"github.com/felixgeelhaar/rehearse/internal/session"
	"github.com/google/uuid"
)

// EventType names a session event
type EventType string

const (
	EventSessionStarted      EventType = "session.started"
	EventTurnCompleted       EventType = "turn.completed"
	EventQuestionAsked       EventType = "question.asked"
	EventEvaluationCompleted EventType = "evaluation.completed"
)

// Event is published after a turn is committed
type Event struct {
	ID         string             `json:"id"`
	Type       EventType          `json:"type"`
	SessionID  string             `json:"session_id"`
	UserID     string             `json:"user_id,omitempty"`
	Stage      session.Stage      `json:"stage"`
	QuestionID string             `json:"question_id,omitempty"`
	Difficulty domain.Difficulty  `json:"difficulty,omitempty"`
	Signals    map[string]bool    `json:"signals,omitempty"`
	Decision   *followup.Decision `json:"decision,omitempty"`
	HintLevel  domain.HintLevel   `json:"hint_level,omitempty"`
	Evaluation *domain.Evaluation `json:"evaluation,omitempty"`
	Degraded   bool               `json:"degraded,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func newEvent(t EventType, s *session.Session) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		SessionID:  s.ID,
		UserID:     s.UserID,
		Stage:      s.Stage,
		QuestionID: s.CurrentQuestionID,
		Difficulty: s.EffectiveDifficulty,
		OccurredAt: time.Now(),
	}
}
