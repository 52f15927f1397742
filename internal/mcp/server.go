// Package mcp exposes the interview engine as MCP tools so an editor or
// agent can run a mock interview.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

// Engine is the part of the interview controller the tools drive
type Engine interface {
	Start(ctx context.Context, userID string, cfg session.Config) (*interview.Result, error)
	Answer(ctx context.Context, sessionID, text string) (*interview.Result, error)
	Status(ctx context.Context, sessionID string) (*session.Session, error)
	Finalize(ctx context.Context, sessionID string) (*interview.Result, error)
}

// Server wraps the MCP server with the interview tools
type Server struct {
	mcpServer *server.Server
	engine    Engine
	defaults  config.InterviewConfig
}

// Config contains configuration for the MCP server
type Config struct {
	Engine   Engine
	Defaults config.InterviewConfig
	Version  string
}

// NewServer creates a new MCP server over the interview engine
func NewServer(cfg Config) *Server {
	s := &Server{
		engine:   cfg.Engine,
		defaults: cfg.Defaults,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "rehearse",
		Version: version,
	}, server.WithInstructions(`
Rehearse runs adaptive mock technical interviews.
The interviewer opens with a warmup, asks questions from the bank, probes
with follow-ups and closes with a calibrated evaluation.

Available tools:
- interview_start: Start a session and get the opening line
- interview_answer: Send the candidate's answer and get the interviewer's reply
- interview_status: Check progress of a session
- interview_finalize: End early and produce the evaluation

Relay the interviewer reply verbatim. Do not answer on the candidate's behalf.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("interview_start").
		Description("Start a mock interview session. Returns the session ID and the interviewer's opening line.").
		Handler(s.handleStart)

	s.mcpServer.Tool("interview_answer").
		Description("Submit the candidate's answer for the current turn.").
		Handler(s.handleAnswer)

	s.mcpServer.Tool("interview_status").
		Description("Get the stage and progress of a session.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("interview_finalize").
		Description("End the interview and return the evaluation.").
		Handler(s.handleFinalize)
}

type StartInput struct {
	UserID       string   `json:"user_id,omitempty" jsonschema:"description=Stable candidate ID so questions are not repeated across sessions"`
	Track        string   `json:"track,omitempty" jsonschema:"description=Question track such as general or backend"`
	Company      string   `json:"company,omitempty" jsonschema:"description=Prefer questions tagged for this company"`
	Difficulty   string   `json:"difficulty,omitempty" jsonschema:"description=Target difficulty,enum=easy,enum=medium,enum=hard"`
	Adaptive     *bool    `json:"adaptive,omitempty" jsonschema:"description=Move difficulty with performance"`
	MaxQuestions *int     `json:"max_questions,omitempty" jsonschema:"description=Number of main questions"`
	FocusTags    []string `json:"focus_tags,omitempty" jsonschema:"description=Topics to emphasize"`
}

type TurnOutput struct {
	SessionID      string `json:"session_id"`
	Stage          string `json:"stage"`
	Reply          string `json:"reply"`
	QuestionID     string `json:"question_id,omitempty"`
	QuestionsAsked int    `json:"questions_asked"`
	HintLevel      int    `json:"hint_level"`
	Degraded       bool   `json:"degraded,omitempty"`
	Done           bool   `json:"done"`
}

type AnswerInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from interview_start"`
	Text      string `json:"text" jsonschema:"description=The candidate's answer"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from interview_start"`
}

type StatusOutput struct {
	SessionID      string `json:"session_id"`
	Stage          string `json:"stage"`
	Track          string `json:"track"`
	Difficulty     string `json:"difficulty"`
	QuestionsAsked int    `json:"questions_asked"`
	MaxQuestions   int    `json:"max_questions"`
	FollowupsUsed  int    `json:"followups_used"`
	Turns          int    `json:"turns"`
	Degraded       bool   `json:"degraded,omitempty"`
}

type EvaluationOutput struct {
	SessionID  string             `json:"session_id"`
	Overall    int                `json:"overall_score"`
	HireSignal string             `json:"hire_signal"`
	Rubric     map[string]float64 `json:"rubric"`
	Strengths  []string           `json:"strengths,omitempty"`
	Weaknesses []string           `json:"weaknesses,omitempty"`
	NextSteps  []string           `json:"next_steps,omitempty"`
	Narrative  string             `json:"narrative"`
	Fallback   bool               `json:"fallback,omitempty"`
}

func (s *Server) handleStart(ctx context.Context, input StartInput) (TurnOutput, error) {
	ic := s.defaults
	if input.Track != "" {
		ic.Track = input.Track
	}
	if input.Company != "" {
		ic.Company = input.Company
	}
	if input.Difficulty != "" {
		ic.Difficulty = strings.ToLower(input.Difficulty)
	}
	if input.Adaptive != nil {
		ic.Adaptive = *input.Adaptive
	}
	if input.MaxQuestions != nil {
		ic.MaxQuestions = *input.MaxQuestions
		ic.BehavioralTarget = min(ic.BehavioralTarget, ic.MaxQuestions)
	}

	cfg, err := ic.SessionDefaults()
	if err != nil {
		return TurnOutput{}, err
	}
	cfg.FocusTags = input.FocusTags

	res, err := s.engine.Start(ctx, input.UserID, cfg)
	if err != nil {
		return TurnOutput{}, fmt.Errorf("failed to start session: %w", err)
	}
	return turnOutput(res), nil
}

func (s *Server) handleAnswer(ctx context.Context, input AnswerInput) (TurnOutput, error) {
	res, err := s.engine.Answer(ctx, input.SessionID, input.Text)
	if err != nil {
		if interview.IsRetryable(err) {
			return TurnOutput{}, fmt.Errorf("another turn is in progress, retry shortly: %w", err)
		}
		return TurnOutput{}, fmt.Errorf("turn failed: %w", err)
	}
	return turnOutput(res), nil
}

func (s *Server) handleStatus(ctx context.Context, input SessionInput) (StatusOutput, error) {
	sess, err := s.engine.Status(ctx, input.SessionID)
	if err != nil {
		return StatusOutput{}, fmt.Errorf("session not found: %w", err)
	}

	return StatusOutput{
		SessionID:      sess.ID,
		Stage:          string(sess.Stage),
		Track:          sess.Config.Track,
		Difficulty:     string(sess.EffectiveDifficulty),
		QuestionsAsked: sess.QuestionsAsked,
		MaxQuestions:   sess.Config.MaxQuestions,
		FollowupsUsed:  sess.FollowupsUsed,
		Turns:          len(sess.Transcript),
		Degraded:       sess.Degraded,
	}, nil
}

func (s *Server) handleFinalize(ctx context.Context, input SessionInput) (EvaluationOutput, error) {
	res, err := s.engine.Finalize(ctx, input.SessionID)
	if err != nil {
		return EvaluationOutput{}, fmt.Errorf("failed to finalize: %w", err)
	}

	eval := res.Session.Evaluation
	if eval == nil {
		return EvaluationOutput{}, fmt.Errorf("session %s has no evaluation", input.SessionID)
	}

	rubric := make(map[string]float64, len(eval.Rubric))
	for d, v := range eval.Rubric {
		rubric[string(d)] = v
	}
	return EvaluationOutput{
		SessionID:  res.Session.ID,
		Overall:    eval.OverallScore,
		HireSignal: string(eval.HireSignal),
		Rubric:     rubric,
		Strengths:  eval.Strengths,
		Weaknesses: eval.Weaknesses,
		NextSteps:  eval.NextSteps,
		Narrative:  eval.Narrative,
		Fallback:   eval.Fallback,
	}, nil
}

func turnOutput(res *interview.Result) TurnOutput {
	out := TurnOutput{
		SessionID:      res.Session.ID,
		Stage:          string(res.Session.Stage),
		Reply:          res.Reply,
		QuestionsAsked: res.Session.QuestionsAsked,
		HintLevel:      int(res.HintLevel),
		Degraded:       res.Degraded,
		Done:           res.Session.Stage == session.StageDone,
	}
	if res.Question != nil {
		out.QuestionID = res.Question.ID
	}
	return out
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
