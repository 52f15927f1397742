// Package interview drives a mock interview one candidate turn at a time.
// The Controller is the only component that mutates persisted session state.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/assistant"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/followup"
	"github.com/felixgeelhaar/rehearse/internal/selection"
	"github.com/felixgeelhaar/rehearse/internal/session"
	"github.com/felixgeelhaar/rehearse/internal/signals"
)

const (
	DefaultTurnTimeout         = 20 * time.Second
	DefaultMaxFinalizeAttempts = 3
	DefaultHistoryTurns        = 12

	// assistantComponent is the name reported to the health reporter
	assistantComponent = "assistant"

	pendingEvaluationReply = "I'm still putting your feedback together. Ask me for it again in a moment."
)

// Result is the outcome of one controller operation
type Result struct {
	Session   *session.Session   `json:"session"`
	Reply     string             `json:"reply"`
	Question  *domain.Question   `json:"question,omitempty"`
	Decision  *followup.Decision `json:"decision,omitempty"`
	HintLevel domain.HintLevel   `json:"hint_level"`
	Degraded  bool               `json:"degraded"`
}

// Controller runs the interview state machine
type Controller struct {
	store     session.Store
	questions QuestionRepository
	assistant Assistant
	events    EventPublisher
	health    HealthReporter

	selector    *selection.Selector
	extractor   *signals.Extractor
	tracker     *domain.SkillTracker
	aggregator  *domain.PatternAggregator
	policy      *followup.Policy
	hints       *domain.HintEscalator
	prompter    *Prompter
	calibration domain.Calibration

	turnTimeout  time.Duration
	maxFinalize  int
	historyTurns int

	locks  *turnLocks
	logger *slog.Logger
}

// Option configures a Controller
type Option func(*Controller)

// WithEvents sets the publisher that receives committed session events
func WithEvents(p EventPublisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.events = p
		}
	}
}

// WithHealth sets the reporter for assistant call outcomes
func WithHealth(h HealthReporter) Option {
	return func(c *Controller) {
		if h != nil {
			c.health = h
		}
	}
}

// WithSelector replaces the default question selector
func WithSelector(s *selection.Selector) Option {
	return func(c *Controller) {
		if s != nil {
			c.selector = s
		}
	}
}

// WithTracker replaces the default skill tracker. The follow-up policy is
// rebuilt on the same tracker.
func WithTracker(t *domain.SkillTracker) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracker = t
			c.policy = followup.NewPolicy(t)
		}
	}
}

// WithCalibration sets the hire-signal calibration table
func WithCalibration(cal domain.Calibration) Option {
	return func(c *Controller) {
		if len(cal) > 0 {
			c.calibration = cal
		}
	}
}

// WithTurnTimeout bounds each assistant call
func WithTurnTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.turnTimeout = d
		}
	}
}

// WithMaxFinalizeAttempts sets how many evaluation failures are tolerated
// before the fallback evaluation is recorded
func WithMaxFinalizeAttempts(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxFinalize = n
		}
	}
}

// WithHistoryTurns sets how many transcript turns are sent to the assistant
func WithHistoryTurns(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.historyTurns = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a controller over the given collaborators
func NewController(store session.Store, questions QuestionRepository, asst Assistant, opts ...Option) *Controller {
	tracker := domain.NewSkillTracker()
	c := &Controller{
		store:        store,
		questions:    questions,
		assistant:    asst,
		events:       noopPublisher{},
		health:       noopHealth{},
		selector:     selection.NewSelector(),
		extractor:    signals.NewExtractor(),
		tracker:      tracker,
		aggregator:   domain.NewPatternAggregator(),
		policy:       followup.NewPolicy(tracker),
		hints:        domain.NewHintEscalator(),
		prompter:     NewPrompter(),
		calibration:  domain.DefaultCalibration(),
		turnTimeout:  DefaultTurnTimeout,
		maxFinalize:  DefaultMaxFinalizeAttempts,
		historyTurns: DefaultHistoryTurns,
		locks:        newTurnLocks(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// turn collects the side effects of one operation until it is committed
type turn struct {
	s        *session.Session
	asked    []string
	events   []Event
	degraded bool
}

func (t *turn) emit(e Event) {
	t.events = append(t.events, e)
}

// Start creates a session in the intro stage and returns the opening line
func (c *Controller) Start(ctx context.Context, userID string, cfg session.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := session.NewSession(userID, cfg)
	opening := c.prompter.Opening(cfg)
	s.Append(session.Turn{Role: session.RoleInterviewer, Content: opening})

	if err := c.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.publish(ctx, newEvent(EventSessionStarted, s))

	c.logger.Info("session started",
		"session_id", s.ID,
		"track", cfg.Track,
		"difficulty", s.EffectiveDifficulty,
		"adaptive", cfg.Adaptive)

	return &Result{Session: s, Reply: opening}, nil
}

// Status loads a session, repairing it if needed
func (c *Controller) Status(ctx context.Context, sessionID string) (*session.Session, error) {
	return c.load(ctx, sessionID)
}

// Answer processes one candidate turn. Only one turn per session may be in
// flight; a second concurrent call returns ErrTurnInProgress.
func (c *Controller) Answer(ctx context.Context, sessionID, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyAnswer
	}

	if !c.locks.TryLock(sessionID) {
		c.logger.Warn("concurrent turn rejected", "session_id", sessionID)
		return nil, ErrTurnInProgress
	}
	defer c.locks.Unlock(sessionID)

	s, err := c.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Done() {
		return nil, ErrSessionDone
	}
	expected := s.Version
	t := &turn{s: s}

	var res *Result
	switch s.Stage {
	case session.StageIntro:
		res, err = c.handleIntro(ctx, t, text)
	case session.StageEvaluation:
		s.Append(session.Turn{Role: session.RoleCandidate, Content: text})
		res = c.finalize(ctx, t)
	default:
		res, err = c.handleAnswer(ctx, t, text)
	}
	if err != nil {
		return nil, err
	}

	if err := c.commit(ctx, t, expected); err != nil {
		return nil, err
	}
	res.Degraded = t.degraded
	return res, nil
}

// Finalize moves the session to evaluation and attempts the final
// assessment. A finished session is returned unchanged.
func (c *Controller) Finalize(ctx context.Context, sessionID string) (*Result, error) {
	if !c.locks.TryLock(sessionID) {
		c.logger.Warn("concurrent turn rejected", "session_id", sessionID)
		return nil, ErrTurnInProgress
	}
	defer c.locks.Unlock(sessionID)

	s, err := c.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Done() {
		return &Result{Session: s}, nil
	}
	expected := s.Version
	t := &turn{s: s}

	if s.Stage != session.StageEvaluation {
		if err := s.Transition(session.StageEvaluation); err != nil {
			return nil, err
		}
	}
	res := c.finalize(ctx, t)

	if err := c.commit(ctx, t, expected); err != nil {
		return nil, err
	}
	res.Degraded = t.degraded
	return res, nil
}

func (c *Controller) handleIntro(ctx context.Context, t *turn, text string) (*Result, error) {
	s := t.s
	sig := c.extractor.Extract(text, domain.CategoryBehavioral, nil)
	s.Append(session.Turn{Role: session.RoleCandidate, Content: text, Signals: &sig})

	if sig.Clarification {
		reply := c.reply(ctx, t, assistant.ReplyRequest{Kind: assistant.ReplyClarify, Answer: text}, nil, 0)
		return &Result{Session: s, Reply: reply}, nil
	}

	next, err := c.pickNext(ctx, s)
	if err != nil {
		return nil, err
	}
	if next == nil {
		c.logger.Info("question pool exhausted", "session_id", s.ID, "stage", s.Stage)
		return c.enterEvaluation(ctx, t)
	}
	return c.ask(ctx, t, next, assistant.ReplyWarmup, text)
}

func (c *Controller) handleAnswer(ctx context.Context, t *turn, text string) (*Result, error) {
	s := t.s
	q := s.CurrentQuestion
	if q == nil {
		// Nothing to score against; treat the turn as a warm-up.
		return c.handleIntro(ctx, t, text)
	}

	sig := c.extractor.Extract(text, q.Category, q)
	candidate := session.Turn{Role: session.RoleCandidate, Content: text, QuestionID: q.ID, Signals: &sig}

	if sig.Clarification {
		s.Append(candidate)
		d := followup.Decision{Intent: followup.IntentAnswer, Clarification: true}
		reply := c.reply(ctx, t, assistant.ReplyRequest{
			Kind:     assistant.ReplyClarify,
			Question: q,
			Answer:   text,
		}, &d, 0)
		return &Result{Session: s, Reply: reply, Question: q, Decision: &d}, nil
	}

	scores := c.score(ctx, t, q, text, sig)
	candidate.Scores = scores
	s.Append(candidate)

	s.Skill = c.tracker.Update(s.Skill, scores, q.IsBehavioral())
	overall, _ := scores.Mean()
	s.Patterns = c.aggregator.Update(s.Patterns, sig, q.Category, overall)

	d := c.policy.Decide(q, sig, s.Skill, s.FollowupsUsed, s.Config.MaxFollowups)

	c.logger.Debug("turn decision",
		"session_id", s.ID,
		"question_id", q.ID,
		"continue", d.Continue,
		"intent", d.Intent,
		"missing", d.MissingFocus,
		"thin", d.Thin,
		"followups_used", s.FollowupsUsed,
		"overall", overall)

	ev := newEvent(EventTurnCompleted, s)
	ev.Signals = sig.Map()
	ev.Decision = &d
	ev.Degraded = t.degraded

	if d.Continue {
		level := c.hints.Level(s.Hints, q.ID, s.Skill, s.FollowupsUsed)
		level = s.Hints.Raise(q.ID, level)
		s.FollowupsUsed++
		if err := s.Transition(session.StageFollowups); err != nil {
			return nil, err
		}
		ev.HintLevel = level
		t.emit(ev)

		reply := c.reply(ctx, t, assistant.ReplyRequest{
			Kind:      assistant.ReplyFollowup,
			Question:  q,
			Answer:    text,
			Directive: c.prompter.FollowupDirective(d, level, s.Patterns),
		}, &d, level)
		return &Result{Session: s, Reply: reply, Question: q, Decision: &d, HintLevel: level}, nil
	}

	t.emit(ev)
	res, err := c.advance(ctx, t, text)
	if err != nil {
		return nil, err
	}
	res.Decision = &d
	return res, nil
}

// advance closes the current question and moves to the next one, or to
// evaluation when the budget or the pool is exhausted
func (c *Controller) advance(ctx context.Context, t *turn, answer string) (*Result, error) {
	s := t.s
	if s.Config.Adaptive {
		prev := s.EffectiveDifficulty
		s.EffectiveDifficulty = selection.AdaptDifficulty(prev, s.Config.Difficulty, s.Skill)
		if s.EffectiveDifficulty != prev {
			c.logger.Info("difficulty adjusted",
				"session_id", s.ID,
				"from", prev,
				"to", s.EffectiveDifficulty)
		}
	}

	if !s.QuestionBudgetLeft() {
		return c.enterEvaluation(ctx, t)
	}

	next, err := c.pickNext(ctx, s)
	if err != nil {
		return nil, err
	}
	if next == nil {
		c.logger.Info("question pool exhausted", "session_id", s.ID, "asked", s.QuestionsAsked)
		return c.enterEvaluation(ctx, t)
	}
	return c.ask(ctx, t, next, assistant.ReplyNextQuestion, answer)
}

func (c *Controller) ask(ctx context.Context, t *turn, q *domain.Question, kind assistant.ReplyKind, answer string) (*Result, error) {
	s := t.s
	s.AskQuestion(q)
	if err := s.Transition(session.StageQuestion); err != nil {
		return nil, err
	}
	t.asked = append(t.asked, q.ID)
	t.emit(newEvent(EventQuestionAsked, s))

	reply := c.reply(ctx, t, assistant.ReplyRequest{
		Kind:      kind,
		Question:  q,
		Answer:    answer,
		Directive: c.prompter.QuestionDirective(q, s.Patterns),
	}, nil, 0)
	return &Result{Session: s, Reply: reply, Question: s.CurrentQuestion}, nil
}

// pickNext returns the next question, or nil when the pool has nothing left.
// A behavioral pick is preferred while the target is unmet, from the second
// question on or earlier when the budget leaves no other way to meet it. Then
// the strict filter, then the relaxed one.
func (c *Controller) pickNext(ctx context.Context, s *session.Session) (*domain.Question, error) {
	pool, err := c.questions.FetchCandidates(ctx, domain.QuestionFilter{
		Track:   s.Config.Track,
		Company: s.Config.Company,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	seen, err := c.questions.SeenBy(ctx, s.UserID)
	if err != nil {
		c.logger.Warn("seen questions unavailable", "user_id", s.UserID, "error", err)
		seen = nil
	}

	req := selection.Request{
		Pool:       pool,
		Track:      s.Config.Track,
		Company:    s.Config.Company,
		Difficulty: s.EffectiveDifficulty,
		AskedIDs:   s.AskedQuestionIDs,
		SeenIDs:    seen,
		AskedTags:  s.AskedTags,
		FocusTags:  s.Config.FocusTags,
		RubricGaps: c.tracker.CriticalGaps(s.Skill, domain.DefaultGapCutoff),
	}
	if weak, ok := c.tracker.WeakestDimension(s.Skill); ok {
		req.WeakDimension = weak
	}

	if s.WantsBehavioral() && (s.QuestionsAsked > 0 || s.BehavioralDue()) {
		behavioral := req
		behavioral.DesiredCategory = domain.CategoryBehavioral
		if q, ok := c.selector.Pick(behavioral); ok {
			return q, nil
		}
	}
	if q, ok := c.selector.Pick(req); ok {
		return q, nil
	}
	relaxed := req
	relaxed.Relaxed = true
	if q, ok := c.selector.Pick(relaxed); ok {
		return q, nil
	}
	return nil, nil
}

func (c *Controller) enterEvaluation(ctx context.Context, t *turn) (*Result, error) {
	if err := t.s.Transition(session.StageEvaluation); err != nil {
		return nil, err
	}
	return c.finalize(ctx, t), nil
}

// finalize makes one evaluation attempt. Failures below the attempt limit
// leave the session in evaluation; at the limit the fallback evaluation
// completes it.
func (c *Controller) finalize(ctx context.Context, t *turn) *Result {
	s := t.s
	s.EvaluationAttempts++
	reached := s.EffectiveDifficulty

	callCtx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	eval, err := c.assistant.FinalizeEvaluation(callCtx, assistant.EvaluationRequest{
		Track:             s.Config.Track,
		Transcript:        exchanges(s.Transcript),
		Skill:             s.Skill,
		PatternSummary:    c.aggregator.Summary(s.Patterns),
		DifficultyReached: reached,
		QuestionsAsked:    s.QuestionsAsked,
	})
	cancel()

	if err != nil {
		c.degrade(t, err)
		c.logger.Warn("evaluation attempt failed",
			"session_id", s.ID,
			"attempt", s.EvaluationAttempts,
			"max_attempts", c.maxFinalize,
			"error", err)
		if s.EvaluationAttempts < c.maxFinalize {
			return &Result{Session: s, Reply: pendingEvaluationReply}
		}
		eval = domain.FallbackEvaluation(s.Skill, s.Patterns, reached, domain.HireNoHire)
		eval.HireSignal = c.calibration.Signal(eval.OverallScore, s.Config.Difficulty, reached, s.Config.Adaptive).
			Cap(domain.HireLeanHire)
	} else {
		c.health.ReportSuccess(assistantComponent)
		eval.HireSignal = c.calibration.Signal(eval.OverallScore, s.Config.Difficulty, reached, s.Config.Adaptive)
		eval.DifficultyReached = reached
		if len(eval.PatternsObserved) == 0 {
			if summary := c.aggregator.Summary(s.Patterns); summary != "" {
				eval.PatternsObserved = []string{summary}
			}
		}
	}
	if eval.CreatedAt.IsZero() {
		eval.CreatedAt = time.Now()
	}

	s.Evaluation = eval
	// evaluation -> done is always allowed
	_ = s.Transition(session.StageDone)

	ev := newEvent(EventEvaluationCompleted, s)
	ev.Evaluation = eval
	ev.Degraded = eval.Fallback
	t.emit(ev)

	c.logger.Info("session evaluated",
		"session_id", s.ID,
		"overall", eval.OverallScore,
		"hire_signal", eval.HireSignal,
		"fallback", eval.Fallback,
		"attempts", s.EvaluationAttempts)

	reply := c.reply(ctx, t, assistant.ReplyRequest{Kind: assistant.ReplyClosing}, nil, 0)
	return &Result{Session: s, Reply: reply}
}

// score asks the assistant for rubric scores. Failures and malformed output
// degrade to neutral scores.
func (c *Controller) score(ctx context.Context, t *turn, q *domain.Question, text string, sig domain.Signals) domain.RubricScores {
	s := t.s
	callCtx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	defer cancel()

	raw, err := c.assistant.ScoreTurn(callCtx, assistant.ScoreRequest{
		Question: q,
		Answer:   text,
		Signals:  sig,
		History:  exchanges(s.History(c.historyTurns)),
	})
	if err != nil {
		c.degrade(t, err)
		c.logger.Warn("scoring unavailable, using neutral scores",
			"session_id", s.ID,
			"question_id", q.ID,
			"error", err)
		raw = nil
	} else {
		c.health.ReportSuccess(assistantComponent)
	}

	scores, repaired := c.tracker.Normalize(raw, q.IsBehavioral())
	if err == nil && len(repaired) > 0 {
		c.logger.Warn("malformed scores",
			"session_id", s.ID,
			"question_id", q.ID,
			"repaired", repaired)
	}
	return scores
}

// reply generates the interviewer's next message and appends it to the
// transcript, falling back to a canned line when the assistant fails
func (c *Controller) reply(ctx context.Context, t *turn, req assistant.ReplyRequest, d *followup.Decision, level domain.HintLevel) string {
	s := t.s
	req.History = exchanges(s.History(c.historyTurns))

	callCtx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	defer cancel()

	degraded := false
	text, err := c.assistant.GenerateReply(callCtx, req)
	if err != nil {
		c.degrade(t, err)
		c.logger.Warn("assistant unavailable, using canned reply",
			"session_id", s.ID,
			"kind", req.Kind,
			"error", err)
		text = c.prompter.Canned(req.Kind, req.Question, d)
		degraded = true
	} else {
		c.health.ReportSuccess(assistantComponent)
	}

	entry := session.Turn{
		Role:      session.RoleInterviewer,
		Content:   text,
		HintLevel: level,
		Degraded:  degraded,
	}
	if req.Question != nil {
		entry.QuestionID = req.Question.ID
	}
	s.Append(entry)
	return text
}

func (c *Controller) degrade(t *turn, err error) {
	t.degraded = true
	t.s.Degraded = true
	c.health.ReportFailure(assistantComponent, err)
}

func (c *Controller) load(ctx context.Context, sessionID string) (*session.Session, error) {
	s, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if repaired := s.Repair(); len(repaired) > 0 {
		c.logger.Warn("session state repaired", "session_id", s.ID, "fields", repaired)
	}
	return s, nil
}

// commit saves the session under the version read at the start of the turn,
// then records asked questions and publishes events. Only the save can fail
// the turn.
func (c *Controller) commit(ctx context.Context, t *turn, expected int) error {
	s := t.s
	if err := c.store.Save(ctx, s, expected); err != nil {
		if errors.Is(err, session.ErrConflict) {
			c.logger.Warn("session version conflict", "session_id", s.ID, "expected", expected)
		}
		return fmt.Errorf("save session: %w", err)
	}

	for _, qid := range t.asked {
		if err := c.questions.MarkAsked(ctx, s.ID, qid); err != nil {
			c.logger.Warn("mark asked failed", "session_id", s.ID, "question_id", qid, "error", err)
		}
		if err := c.questions.MarkSeen(ctx, s.UserID, qid); err != nil {
			c.logger.Warn("mark seen failed", "user_id", s.UserID, "question_id", qid, "error", err)
		}
	}
	for _, e := range t.events {
		c.publish(ctx, e)
	}
	return nil
}

func (c *Controller) publish(ctx context.Context, e Event) {
	if err := c.events.Publish(ctx, e); err != nil {
		c.logger.Warn("publish event failed", "type", e.Type, "session_id", e.SessionID, "error", err)
	}
}
