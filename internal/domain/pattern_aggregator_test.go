package domain

import (
	"strings"
	"testing"
)

func TestPatternAggregator_Update(t *testing.T) {
	a := NewPatternAggregator()

	s := a.Update(PatternState{}, Signals{
		HasCode:            true,
		MentionsApproach:   true,
		MentionsComplexity: true,
		ApproachBeforeCode: true,
	}, CategoryCoding, 8)
	s = a.Update(s, Signals{HasCode: true, MentionsTradeoffs: true, MentionsEdgeCases: true}, CategoryCoding, 3)
	s = a.Update(s, Signals{}, CategoryBehavioral, 4)

	if s.Scored != 3 {
		t.Errorf("Scored = %d, want 3", s.Scored)
	}
	if s.ComplexityMentions != 1 || s.ApproachBeforeCode != 1 || s.CodeWithoutPlan != 1 {
		t.Errorf("counters = %+v", s)
	}
	if s.TradeoffMentions != 1 || s.EdgeCaseMentions != 1 {
		t.Errorf("counters = %+v", s)
	}
	if len(s.StrongCategories) != 1 || s.StrongCategories[0] != CategoryCoding {
		t.Errorf("StrongCategories = %v", s.StrongCategories)
	}
	if len(s.WeakCategories) != 2 {
		t.Errorf("WeakCategories = %v, want coding and behavioral", s.WeakCategories)
	}
}

func TestPatternAggregator_CategorySetsNeverShrink(t *testing.T) {
	a := NewPatternAggregator()
	s := a.Update(PatternState{}, Signals{}, CategoryConceptual, 9)
	s = a.Update(s, Signals{}, CategoryConceptual, 9)
	s = a.Update(s, Signals{}, CategoryConceptual, 6)

	if len(s.StrongCategories) != 1 {
		t.Errorf("StrongCategories = %v, want one entry without duplicates", s.StrongCategories)
	}
}

func TestPatternAggregator_UpdateDoesNotAlias(t *testing.T) {
	a := NewPatternAggregator()
	base := a.Update(PatternState{}, Signals{}, CategoryCoding, 9)
	_ = a.Update(base, Signals{}, CategorySystemDesign, 9)

	if len(base.StrongCategories) != 1 {
		t.Errorf("base state mutated: %v", base.StrongCategories)
	}
}

func TestPatternAggregator_Summary(t *testing.T) {
	a := NewPatternAggregator()

	if got := a.Summary(PatternState{}); got != "" {
		t.Errorf("Summary(empty) = %q, want empty", got)
	}

	s := PatternState{
		Scored:             3,
		ComplexityMentions: 2,
		EdgeCaseMentions:   1,
		CodeWithoutPlan:    1,
		StrongCategories:   []Category{CategorySystemDesign},
		WeakCategories:     []Category{CategoryBehavioral},
	}
	got := a.Summary(s)

	for _, want := range []string{
		"3 scored answers",
		"discussed complexity 2 times",
		"raised edge cases once",
		"weighed trade-offs never",
		"without a plan once",
		"Strong in system design",
		"Struggled in behavioral",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, missing %q", got, want)
		}
	}
}
