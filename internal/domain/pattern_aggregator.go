package domain

import (
	"fmt"
	"slices"
	"strings"
)

// PatternState holds cross-question behavioral counters for one session.
// Counters only grow and category sets only gain members.
type PatternState struct {
	Scored             int        `json:"scored"`
	ComplexityMentions int        `json:"complexity_mentions"`
	ApproachBeforeCode int        `json:"approach_before_code"`
	CodeWithoutPlan    int        `json:"code_without_plan"`
	TradeoffMentions   int        `json:"tradeoff_mentions"`
	EdgeCaseMentions   int        `json:"edge_case_mentions"`
	StrongCategories   []Category `json:"strong_categories,omitempty"`
	WeakCategories     []Category `json:"weak_categories,omitempty"`
}

// Clone returns a deep copy
func (p PatternState) Clone() PatternState {
	out := p
	out.StrongCategories = slices.Clone(p.StrongCategories)
	out.WeakCategories = slices.Clone(p.WeakCategories)
	return out
}

// PatternAggregator accumulates PatternState and renders it for prompting
type PatternAggregator struct{}

// NewPatternAggregator creates a new aggregator
func NewPatternAggregator() *PatternAggregator {
	return &PatternAggregator{}
}

// Update folds one scored turn into the pattern state
func (a *PatternAggregator) Update(state PatternState, sig Signals, category Category, overall float64) PatternState {
	next := state.Clone()
	next.Scored++

	if sig.MentionsComplexity {
		next.ComplexityMentions++
	}
	if sig.ApproachBeforeCode {
		next.ApproachBeforeCode++
	}
	if sig.CodeWithoutPlan() {
		next.CodeWithoutPlan++
	}
	if sig.MentionsTradeoffs {
		next.TradeoffMentions++
	}
	if sig.MentionsEdgeCases {
		next.EdgeCaseMentions++
	}

	if category != "" {
		switch {
		case overall >= StrongOverall && !slices.Contains(next.StrongCategories, category):
			next.StrongCategories = append(next.StrongCategories, category)
		case overall <= WeakOverall && !slices.Contains(next.WeakCategories, category):
			next.WeakCategories = append(next.WeakCategories, category)
		}
	}

	return next
}

// Summary renders the counters as a short natural-language note for the
// interviewer prompt. It returns "" until at least one turn was scored.
func (a *PatternAggregator) Summary(state PatternState) string {
	if state.Scored == 0 {
		return ""
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("Across %d scored %s:", state.Scored, plural(state.Scored, "answer", "answers")))
	parts = append(parts, fmt.Sprintf("discussed complexity %s", times(state.ComplexityMentions)))
	parts = append(parts, fmt.Sprintf("raised edge cases %s", times(state.EdgeCaseMentions)))
	parts = append(parts, fmt.Sprintf("weighed trade-offs %s", times(state.TradeoffMentions)))
	if state.ApproachBeforeCode > 0 {
		parts = append(parts, fmt.Sprintf("explained the approach before coding %s", times(state.ApproachBeforeCode)))
	}
	if state.CodeWithoutPlan > 0 {
		parts = append(parts, fmt.Sprintf("jumped into code without a plan %s", times(state.CodeWithoutPlan)))
	}

	summary := parts[0] + " " + strings.Join(parts[1:], "; ") + "."
	if len(state.StrongCategories) > 0 {
		summary += " Strong in " + joinCategories(state.StrongCategories) + "."
	}
	if len(state.WeakCategories) > 0 {
		summary += " Struggled in " + joinCategories(state.WeakCategories) + "."
	}
	return summary
}

func times(n int) string {
	switch n {
	case 0:
		return "never"
	case 1:
		return "once"
	default:
		return fmt.Sprintf("%d times", n)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func joinCategories(cats []Category) string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = strings.ReplaceAll(string(c), "_", " ")
	}
	return strings.Join(names, ", ")
}
