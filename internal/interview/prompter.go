package interview

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/assistant"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/followup"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

// Prompter builds interviewer directives and the canned replies used when
// the assistant is unavailable
type Prompter struct {
	patterns *domain.PatternAggregator
}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{patterns: domain.NewPatternAggregator()}
}

// focusPhrases turn focus keys into interviewer language
var focusPhrases = map[string]string{
	domain.FocusApproach:    "the overall approach",
	domain.FocusComplexity:  "time and space complexity",
	domain.FocusEdgeCases:   "edge cases",
	domain.FocusCorrectness: "why the solution is correct",
	domain.FocusClarity:     "a clearer explanation",
	domain.FocusDepth:       "more depth on the underlying mechanism",
	domain.FocusScalability: "how the design scales",
	domain.FocusTradeoffs:   "the trade-offs involved",
	domain.FocusComponents:  "the main components and how they interact",
	domain.FocusSituation:   "the situation",
	domain.FocusTask:        "what your responsibility was",
	domain.FocusAction:      "the actions you personally took",
	domain.FocusResult:      "the outcome",

	string(domain.DimCommunication):        "communicating the reasoning step by step",
	string(domain.DimCorrectnessReasoning): "reasoning about correctness",
}

func focusPhrase(key string) string {
	if p, ok := focusPhrases[key]; ok {
		return p
	}
	return strings.ReplaceAll(key, "_", " ")
}

// FollowupDirective describes the follow-up the interviewer should ask
func (p *Prompter) FollowupDirective(d followup.Decision, level domain.HintLevel, patterns domain.PatternState) string {
	var sb strings.Builder

	switch d.Intent {
	case followup.IntentProbe:
		sb.WriteString("Intent: the answer was thin. Ask the candidate to elaborate before moving on.\n")
	default:
		sb.WriteString("Intent: the answer has gaps. Dig into the first missing focus area.\n")
	}

	if len(d.MissingFocus) > 0 {
		phrases := make([]string, len(d.MissingFocus))
		for i, k := range d.MissingFocus {
			phrases[i] = focusPhrase(k)
		}
		fmt.Fprintf(&sb, "Missing focus (most important first): %s\n", strings.Join(phrases, "; "))
	}

	if style := level.Style(); style != "" {
		fmt.Fprintf(&sb, "Hint style (level %d): %s\n", level, style)
	} else {
		sb.WriteString("Hint style: no hints; ask an open question.\n")
	}

	if summary := p.patterns.Summary(patterns); summary != "" {
		fmt.Fprintf(&sb, "Observed so far: %s\n", summary)
	}
	return strings.TrimSpace(sb.String())
}

// QuestionDirective describes how to present the next question
func (p *Prompter) QuestionDirective(q *domain.Question, patterns domain.PatternState) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Present this %s question: %s", strings.ReplaceAll(string(q.Category), "_", " "), q.Prompt)
	if summary := p.patterns.Summary(patterns); summary != "" {
		fmt.Fprintf(&sb, "\nObserved so far: %s", summary)
	}
	return sb.String()
}

// Opening is the first interviewer message of every session
func (p *Prompter) Opening(cfg session.Config) string {
	where := ""
	if cfg.Company != "" {
		where = " for " + cfg.Company
	}
	return fmt.Sprintf("Hi, thanks for joining this %s mock interview%s. Before we start, tell me a bit about yourself and what you have been working on.",
		cfg.Track, where)
}

// Canned returns a deterministic reply for kind
func (p *Prompter) Canned(kind assistant.ReplyKind, q *domain.Question, d *followup.Decision) string {
	switch kind {
	case assistant.ReplyWarmup:
		return "Thanks for the introduction. Let's start with the first question: " + promptOf(q)

	case assistant.ReplyNextQuestion:
		return "Thanks, let's move on. " + promptOf(q)

	case assistant.ReplyFollowup:
		if d == nil || len(d.MissingFocus) == 0 {
			return "Could you expand on that a little more?"
		}
		if d.Intent == followup.IntentProbe {
			return fmt.Sprintf("Could you say more? In particular, walk me through %s.", focusPhrase(d.MissingFocus[0]))
		}
		return fmt.Sprintf("Good. What about %s?", focusPhrase(d.MissingFocus[0]))

	case assistant.ReplyClarify:
		return "Good question. Make whatever reasonable assumption you need, state it, and carry on."

	case assistant.ReplyClosing:
		return "That's all the questions I have. Thanks for your time, I'll put together your feedback now."

	default:
		return "Please continue."
	}
}

func promptOf(q *domain.Question) string {
	if q == nil {
		return ""
	}
	return q.Prompt
}

// exchanges converts the tail of the transcript for the assistant
func exchanges(turns []session.Turn) []assistant.Exchange {
	out := make([]assistant.Exchange, len(turns))
	for i, t := range turns {
		out[i] = assistant.Exchange{Role: string(t.Role), Content: t.Content}
	}
	return out
}
