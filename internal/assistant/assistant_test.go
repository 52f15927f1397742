package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/llm"
)

// scriptedProvider returns a canned completion and records the request
type scriptedProvider struct {
	content string
	err     error
	last    *llm.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content}, nil
}

func newTestAssistant(p *scriptedProvider) *Assistant {
	reg := llm.NewRegistry()
	reg.Register(p.Name(), p)
	return New(reg, "", WithModel("test-model"))
}

var twoSum = &domain.Question{
	ID:             "q-two-sum",
	Track:          "general",
	Difficulty:     domain.DifficultyEasy,
	Category:       domain.CategoryCoding,
	Prompt:         "Find two numbers that add up to a target.",
	ExpectedTopics: []string{"hash map"},
}

func TestAssistant_ScoreTurn(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    domain.RubricScores
		wantErr bool
	}{
		{
			name:    "flat object",
			content: `{"communication": 8, "problem_solving": 7, "correctness_reasoning": 6, "complexity": 9, "edge_cases": 5}`,
			want: domain.RubricScores{
				domain.DimCommunication: 8, domain.DimProblemSolving: 7, domain.DimCorrectnessReasoning: 6,
				domain.DimComplexity: 9, domain.DimEdgeCases: 5,
			},
		},
		{
			name:    "nested in fence with string values",
			content: "```json\n{\"scores\": {\"communication\": \"6.5\", \"unknown\": 3}}\n```",
			want:    domain.RubricScores{domain.DimCommunication: 6.5},
		},
		{
			name:    "out of range kept for the tracker",
			content: `{"communication": 14}`,
			want:    domain.RubricScores{domain.DimCommunication: 14},
		},
		{name: "prose", content: "The answer was good.", wantErr: true},
		{name: "no dimensions", content: `{"score": 5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{content: tt.content}
			got, err := newTestAssistant(p).ScoreTurn(context.Background(), ScoreRequest{
				Question: twoSum,
				Answer:   "Use a hash map.",
			})
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Fatalf("ScoreTurn() error = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScoreTurn() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ScoreTurn() = %v, want %v", got, tt.want)
			}
			for d, v := range tt.want {
				if got[d] != v {
					t.Errorf("score[%s] = %v, want %v", d, got[d], v)
				}
			}
			if !p.last.JSON || p.last.Model != "test-model" {
				t.Errorf("request JSON=%v model=%q", p.last.JSON, p.last.Model)
			}
		})
	}
}

func TestAssistant_ScoreTurn_ProviderError(t *testing.T) {
	p := &scriptedProvider{err: &llm.StatusError{Provider: "scripted", StatusCode: 503}}
	_, err := newTestAssistant(p).ScoreTurn(context.Background(), ScoreRequest{Question: twoSum})
	if !llm.IsRetryable(err) {
		t.Errorf("error = %v, should stay retryable through wrapping", err)
	}
}

func TestAssistant_GenerateReply(t *testing.T) {
	p := &scriptedProvider{content: "  What is the complexity of that?  "}
	got, err := newTestAssistant(p).GenerateReply(context.Background(), ReplyRequest{
		Kind:      ReplyFollowup,
		Question:  twoSum,
		Answer:    "I'd loop twice.",
		Directive: "Missing focus: complexity",
	})
	if err != nil {
		t.Fatalf("GenerateReply() error = %v", err)
	}
	if got != "What is the complexity of that?" {
		t.Errorf("GenerateReply() = %q", got)
	}
	prompt := p.last.Messages[0].Content
	for _, want := range []string{"Find two numbers", "I'd loop twice.", "Missing focus: complexity"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if p.last.JSON {
		t.Error("replies should not request JSON")
	}
}

func TestAssistant_GenerateReply_Empty(t *testing.T) {
	p := &scriptedProvider{content: "   "}
	_, err := newTestAssistant(p).GenerateReply(context.Background(), ReplyRequest{Kind: ReplyClosing})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("error = %v, want ErrEmptyResponse", err)
	}
}

func TestAssistant_FinalizeEvaluation(t *testing.T) {
	p := &scriptedProvider{content: `Here you go:
{"overall_score": 81.6, "rubric": {"communication": 8, "complexity": 11},
 "strengths": ["clear structure"], "weaknesses": ["edge cases"], "next_steps": ["practice"],
 "hire_signal": "Lean Hire", "narrative": " Solid. "}`}

	eval, err := newTestAssistant(p).FinalizeEvaluation(context.Background(), EvaluationRequest{
		Track:             "general",
		DifficultyReached: domain.DifficultyHard,
		Transcript:        []Exchange{{Role: "candidate", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("FinalizeEvaluation() error = %v", err)
	}
	if eval.OverallScore != 82 {
		t.Errorf("OverallScore = %d, want 82", eval.OverallScore)
	}
	if eval.HireSignal != domain.HireLeanHire {
		t.Errorf("HireSignal = %s, want lean_hire", eval.HireSignal)
	}
	if eval.Rubric[domain.DimComplexity] != 10 {
		t.Errorf("rubric complexity = %v, want clamped 10", eval.Rubric[domain.DimComplexity])
	}
	if eval.Narrative != "Solid." || eval.DifficultyReached != domain.DifficultyHard || eval.Fallback {
		t.Errorf("eval = %+v", eval)
	}
}

func TestAssistant_FinalizeEvaluation_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "great candidate"},
		{"missing overall", `{"narrative": "ok"}`},
		{"bad signal", `{"overall_score": 50, "hire_signal": "maybe"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &scriptedProvider{content: tt.content}
			_, err := newTestAssistant(p).FinalizeEvaluation(context.Background(), EvaluationRequest{})
			if !errors.Is(err, ErrMalformedOutput) {
				t.Errorf("error = %v, want ErrMalformedOutput", err)
			}
		})
	}
}

func TestAssistant_NoProvider(t *testing.T) {
	a := New(llm.NewRegistry(), "missing")
	_, err := a.GenerateReply(context.Background(), ReplyRequest{})
	if !errors.Is(err, llm.ErrProviderNotFound) {
		t.Errorf("error = %v, want ErrProviderNotFound", err)
	}
}

func TestBuildScorePrompt_Behavioral(t *testing.T) {
	prompt := buildScorePrompt(ScoreRequest{
		Question: &domain.Question{Category: domain.CategoryBehavioral, Difficulty: domain.DifficultyMedium, Prompt: "Tell me about a conflict."},
		Answer:   "We disagreed.",
		Signals:  domain.Signals{MissingSTAR: []string{"task", "result"}},
	})
	if !strings.Contains(prompt, "missing STAR parts: task, result") {
		t.Errorf("prompt should list missing STAR parts:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- has_code: false") {
		t.Errorf("prompt should list signals:\n%s", prompt)
	}
}

func TestWriteHistory_Bounded(t *testing.T) {
	history := make([]Exchange, 20)
	for i := range history {
		history[i] = Exchange{Role: "candidate", Content: strings.Repeat("x", i+1)}
	}
	var sb strings.Builder
	writeHistory(&sb, history)
	if got := strings.Count(sb.String(), "candidate:"); got != maxHistory {
		t.Errorf("history lines = %d, want %d", got, maxHistory)
	}
}
