package assistant

import (
	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// Exchange is one transcript line handed to the model
type Exchange struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReplyKind selects what the interviewer says next
type ReplyKind string

const (
	ReplyWarmup       ReplyKind = "warmup"
	ReplyNextQuestion ReplyKind = "next_question"
	ReplyFollowup     ReplyKind = "followup"
	ReplyClarify      ReplyKind = "clarify"
	ReplyClosing      ReplyKind = "closing"
)

// ScoreRequest asks for rubric scores of one candidate answer
type ScoreRequest struct {
	Question *domain.Question
	Answer   string
	Signals  domain.Signals
	History  []Exchange
}

// ReplyRequest asks for the interviewer's next utterance
type ReplyRequest struct {
	Kind      ReplyKind
	Question  *domain.Question
	Answer    string
	Directive string
	History   []Exchange
}

// EvaluationRequest asks for the final assessment of a session
type EvaluationRequest struct {
	Track             string
	Transcript        []Exchange
	Skill             domain.SkillState
	PatternSummary    string
	DifficultyReached domain.Difficulty
	QuestionsAsked    int
}
