package session

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/selection"
	"github.com/google/uuid"
)

// Stage is the position of a session in the interview state machine
type Stage string

const (
	StageIntro      Stage = "intro"
	StageQuestion   Stage = "question"
	StageFollowups  Stage = "followups"
	StageEvaluation Stage = "evaluation"
	StageDone       Stage = "done"
)

// transitions lists the allowed next stages
var transitions = map[Stage][]Stage{
	StageIntro:      {StageQuestion, StageEvaluation},
	StageQuestion:   {StageQuestion, StageFollowups, StageEvaluation},
	StageFollowups:  {StageQuestion, StageFollowups, StageEvaluation},
	StageEvaluation: {StageDone},
}

// Valid reports whether s is a known stage
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok || s == StageDone
}

// CanTransition reports whether the state machine allows moving to next
func (s Stage) CanTransition(next Stage) bool {
	return slices.Contains(transitions[s], next)
}

// Config holds the per-session interview settings
type Config struct {
	Track            string            `json:"track"`
	Company          string            `json:"company,omitempty"`
	Difficulty       domain.Difficulty `json:"difficulty"`
	StartDifficulty  domain.Difficulty `json:"start_difficulty,omitempty"`
	Adaptive         bool              `json:"adaptive"`
	BehavioralTarget int               `json:"behavioral_target"`
	MaxQuestions     int               `json:"max_questions"`
	MaxFollowups     int               `json:"max_followups"`
	FocusTags        []string          `json:"focus_tags,omitempty"`
}

// DefaultConfig returns the default interview settings
func DefaultConfig() Config {
	return Config{
		Track:            "general",
		Difficulty:       domain.DifficultyMedium,
		BehavioralTarget: 1,
		MaxQuestions:     5,
		MaxFollowups:     2,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if strings.TrimSpace(c.Track) == "" {
		return fmt.Errorf("%w: track is required", ErrInvalidConfig)
	}
	if !c.Difficulty.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, domain.ErrInvalidDifficulty)
	}
	if c.StartDifficulty != "" && !c.StartDifficulty.Valid() {
		return fmt.Errorf("%w: start %w", ErrInvalidConfig, domain.ErrInvalidDifficulty)
	}
	if c.MaxQuestions <= 0 {
		return fmt.Errorf("%w: max_questions must be positive", ErrInvalidConfig)
	}
	if c.MaxFollowups < 0 {
		return fmt.Errorf("%w: max_followups must not be negative", ErrInvalidConfig)
	}
	if c.BehavioralTarget < 0 || c.BehavioralTarget > c.MaxQuestions {
		return fmt.Errorf("%w: behavioral_target must be within [0, max_questions]", ErrInvalidConfig)
	}
	return nil
}

// Role identifies the speaker of a transcript turn
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Turn is one transcript entry
type Turn struct {
	Role       Role                `json:"role"`
	Content    string              `json:"content"`
	QuestionID string              `json:"question_id,omitempty"`
	Signals    *domain.Signals     `json:"signals,omitempty"`
	Scores     domain.RubricScores `json:"scores,omitempty"`
	HintLevel  domain.HintLevel    `json:"hint_level,omitempty"`
	Degraded   bool                `json:"degraded,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Session is one interview instance. It owns its skill, pattern and hint
// state; questions are referenced by id only.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Config Config `json:"config"`
	Stage  Stage  `json:"stage"`

	QuestionsAsked    int             `json:"questions_asked"`
	BehavioralAsked   int             `json:"behavioral_asked"`
	FollowupsUsed     int             `json:"followups_used"`
	CurrentQuestionID string          `json:"current_question_id,omitempty"`
	CurrentCategory   domain.Category `json:"current_category,omitempty"`
	AskedQuestionIDs  []string        `json:"asked_question_ids"`
	AskedTags         []string        `json:"asked_tags"`

	// CurrentQuestion is a snapshot of the catalog entry being discussed
	CurrentQuestion *domain.Question `json:"current_question,omitempty"`

	EffectiveDifficulty domain.Difficulty `json:"effective_difficulty"`

	Skill    domain.SkillState   `json:"skill"`
	Patterns domain.PatternState `json:"patterns"`
	Hints    domain.HintState    `json:"hints"`

	Transcript         []Turn             `json:"transcript"`
	Evaluation         *domain.Evaluation `json:"evaluation,omitempty"`
	EvaluationAttempts int                `json:"evaluation_attempts"`

	// Degraded is set once any assistant call had to fall back
	Degraded bool `json:"degraded"`

	// Version increments on every committed save
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session in the intro stage
func NewSession(userID string, cfg Config) *Session {
	now := time.Now()
	return &Session{
		ID:                  uuid.New().String(),
		UserID:              userID,
		Config:              cfg,
		Stage:               StageIntro,
		AskedQuestionIDs:    []string{},
		AskedTags:           []string{},
		EffectiveDifficulty: selection.StartDifficulty(cfg.Difficulty, cfg.StartDifficulty, cfg.Adaptive),
		Skill:               domain.NewSkillState(),
		Hints:               domain.HintState{},
		Transcript:          []Turn{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Done reports whether the session reached its terminal stage
func (s *Session) Done() bool {
	return s.Stage == StageDone
}

// Transition moves the session to next if the state machine allows it
func (s *Session) Transition(next Stage) error {
	if !s.Stage.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Stage, next)
	}
	s.Stage = next
	s.UpdatedAt = time.Now()
	return nil
}

// AskQuestion records q as the current question and resets per-question state
func (s *Session) AskQuestion(q *domain.Question) {
	snapshot := *q
	s.CurrentQuestion = &snapshot
	s.CurrentQuestionID = q.ID
	s.CurrentCategory = q.Category
	s.QuestionsAsked++
	if q.IsBehavioral() {
		s.BehavioralAsked++
	}
	s.FollowupsUsed = 0
	s.AskedQuestionIDs = append(s.AskedQuestionIDs, q.ID)
	for _, tag := range q.Tags {
		if !slices.Contains(s.AskedTags, tag) {
			s.AskedTags = append(s.AskedTags, tag)
		}
	}
	if s.Hints == nil {
		s.Hints = domain.HintState{}
	}
	s.Hints.Raise(q.ID, domain.HintNone)
	s.UpdatedAt = time.Now()
}

// Append adds a transcript turn
func (s *Session) Append(t Turn) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.Transcript = append(s.Transcript, t)
	s.UpdatedAt = t.CreatedAt
}

// History returns the last n transcript turns (all when n <= 0)
func (s *Session) History(n int) []Turn {
	if n <= 0 || n >= len(s.Transcript) {
		return s.Transcript
	}
	return s.Transcript[len(s.Transcript)-n:]
}

// WantsBehavioral reports whether the next pick should be behavioral
func (s *Session) WantsBehavioral() bool {
	return s.BehavioralAsked < s.Config.BehavioralTarget
}

// BehavioralDue reports whether the next pick must be behavioral for the
// target to fit in the remaining question budget
func (s *Session) BehavioralDue() bool {
	return s.Config.BehavioralTarget-s.BehavioralAsked >= s.Config.MaxQuestions-s.QuestionsAsked
}

// QuestionBudgetLeft reports whether another question may be asked
func (s *Session) QuestionBudgetLeft() bool {
	return s.QuestionsAsked < s.Config.MaxQuestions
}

// Repair fills absent or invalid fields with defaults and returns the
// names of the repaired fields. A freshly created session needs no repair.
func (s *Session) Repair() []string {
	var repaired []string
	mark := func(field string) { repaired = append(repaired, field) }

	defaults := DefaultConfig()
	if !s.Stage.Valid() {
		s.Stage = StageIntro
		mark("stage")
	}
	if strings.TrimSpace(s.Config.Track) == "" {
		s.Config.Track = defaults.Track
		mark("config.track")
	}
	if !s.Config.Difficulty.Valid() {
		s.Config.Difficulty = defaults.Difficulty
		mark("config.difficulty")
	}
	if s.Config.MaxQuestions <= 0 {
		s.Config.MaxQuestions = defaults.MaxQuestions
		mark("config.max_questions")
	}
	if s.Config.MaxFollowups < 0 {
		s.Config.MaxFollowups = defaults.MaxFollowups
		mark("config.max_followups")
	}
	if s.Config.BehavioralTarget < 0 {
		s.Config.BehavioralTarget = 0
		mark("config.behavioral_target")
	}
	if !s.EffectiveDifficulty.Valid() || s.EffectiveDifficulty.Rank() > s.Config.Difficulty.Rank() {
		s.EffectiveDifficulty = selection.StartDifficulty(s.Config.Difficulty, s.Config.StartDifficulty, s.Config.Adaptive)
		mark("effective_difficulty")
	}
	if s.Skill.Sum == nil || s.Skill.Count == nil || s.Skill.Last == nil || s.Skill.EMA == nil {
		fresh := domain.NewSkillState()
		if s.Skill.Sum == nil && s.Skill.Count == nil && s.Skill.Last == nil && s.Skill.EMA == nil {
			s.Skill = fresh
		} else {
			s.Skill = mergeSkill(s.Skill, fresh)
		}
		mark("skill")
	}
	if s.Skill.GoodStreak > 0 && s.Skill.WeakStreak > 0 {
		s.Skill.GoodStreak, s.Skill.WeakStreak = 0, 0
		mark("skill.streaks")
	}
	if s.Patterns.Scored < 0 || s.Patterns.ComplexityMentions < 0 || s.Patterns.ApproachBeforeCode < 0 ||
		s.Patterns.CodeWithoutPlan < 0 || s.Patterns.TradeoffMentions < 0 || s.Patterns.EdgeCaseMentions < 0 {
		s.Patterns = domain.PatternState{
			StrongCategories: s.Patterns.StrongCategories,
			WeakCategories:   s.Patterns.WeakCategories,
		}
		mark("patterns")
	}
	if s.Hints == nil {
		s.Hints = domain.HintState{}
		mark("hints")
	}
	if s.AskedQuestionIDs == nil {
		s.AskedQuestionIDs = []string{}
		mark("asked_question_ids")
	}
	if s.AskedTags == nil {
		s.AskedTags = []string{}
		mark("asked_tags")
	}
	if s.Transcript == nil {
		s.Transcript = []Turn{}
		mark("transcript")
	}
	if s.QuestionsAsked < len(s.AskedQuestionIDs) {
		s.QuestionsAsked = len(s.AskedQuestionIDs)
		mark("questions_asked")
	}
	if s.CurrentQuestion == nil && s.CurrentQuestionID != "" {
		s.CurrentQuestion = &domain.Question{ID: s.CurrentQuestionID, Category: s.CurrentCategory}
		mark("current_question")
	}
	if s.CurrentQuestion != nil && s.CurrentQuestion.Category == "" {
		s.CurrentQuestion.Category = domain.CategoryCoding
		mark("current_question.category")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
		mark("created_at")
	}

	return repaired
}

func mergeSkill(cur, fresh domain.SkillState) domain.SkillState {
	fresh.N = cur.N
	fresh.GoodStreak = cur.GoodStreak
	fresh.WeakStreak = cur.WeakStreak
	for k, v := range cur.Sum {
		fresh.Sum[k] = v
	}
	for k, v := range cur.Count {
		fresh.Count[k] = v
	}
	for k, v := range cur.Last {
		fresh.Last[k] = v
	}
	for k, v := range cur.EMA {
		fresh.EMA[k] = v
	}
	return fresh
}

// Clone returns a deep copy through the persistence encoding
func (s *Session) Clone() (*Session, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &out, nil
}
