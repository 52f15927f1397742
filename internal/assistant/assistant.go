// Package assistant turns interview requests into completion calls and
// parses what comes back.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/llm"
)

// ProviderSource resolves the backend for each call
type ProviderSource interface {
	Get(name string) (llm.Provider, error)
	Default() (llm.Provider, error)
}

// Assistant scores answers, writes interviewer replies and final evaluations
type Assistant struct {
	providers    ProviderSource
	providerName string
	model        string
	logger       *slog.Logger
}

// Option configures an Assistant
type Option func(*Assistant)

// WithModel overrides the provider's default model
func WithModel(model string) Option {
	return func(a *Assistant) { a.model = model }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) { a.logger = l }
}

// New creates an assistant. An empty providerName uses the registry default.
func New(providers ProviderSource, providerName string, opts ...Option) *Assistant {
	a := &Assistant{
		providers:    providers,
		providerName: providerName,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assistant) provider() (llm.Provider, error) {
	if a.providerName == "" || a.providerName == "auto" {
		return a.providers.Default()
	}
	return a.providers.Get(a.providerName)
}

func (a *Assistant) generate(ctx context.Context, req *llm.Request) (string, error) {
	p, err := a.provider()
	if err != nil {
		return "", fmt.Errorf("get LLM provider: %w", err)
	}
	req.Model = a.model

	resp, err := p.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// ScoreTurn returns raw rubric scores for one answer. Values are not
// clamped here; the skill tracker normalizes them.
func (a *Assistant) ScoreTurn(ctx context.Context, req ScoreRequest) (domain.RubricScores, error) {
	content, err := a.generate(ctx, &llm.Request{
		System:      scoringSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildScorePrompt(req)}},
		MaxTokens:   256,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("score turn: %w", err)
	}

	scores, err := parseScores(content)
	if err != nil {
		a.logger.Warn("unparseable scores", "error", err, "content", truncate(content, 200))
		return nil, fmt.Errorf("score turn: %w", err)
	}
	return scores, nil
}

// GenerateReply returns the interviewer's next utterance
func (a *Assistant) GenerateReply(ctx context.Context, req ReplyRequest) (string, error) {
	content, err := a.generate(ctx, &llm.Request{
		System:      replySystemPrompt(req.Kind),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildReplyPrompt(req)}},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if content == "" {
		return "", fmt.Errorf("generate reply: %w", llm.ErrEmptyResponse)
	}
	return content, nil
}

// FinalizeEvaluation returns the model's assessment of the whole session
func (a *Assistant) FinalizeEvaluation(ctx context.Context, req EvaluationRequest) (*domain.Evaluation, error) {
	content, err := a.generate(ctx, &llm.Request{
		System:      evaluationSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildEvaluationPrompt(req)}},
		MaxTokens:   1500,
		Temperature: 0.2,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("finalize evaluation: %w", err)
	}

	eval, err := parseEvaluation(content)
	if err != nil {
		a.logger.Warn("unparseable evaluation", "error", err)
		return nil, fmt.Errorf("finalize evaluation: %w", err)
	}
	eval.DifficultyReached = req.DifficultyReached
	return eval, nil
}
