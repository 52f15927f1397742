package followup

import (
	"slices"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/signals"
)

// DefaultMaxFollowups caps follow-ups per question
const DefaultMaxFollowups = 2

// lowConfidence is the satisfied-ratio below which a second follow-up is allowed
const lowConfidence = 0.6

// Intent describes what the next interviewer message should do
type Intent string

const (
	IntentAnswer  Intent = "answer"  // respond to a clarification request
	IntentProbe   Intent = "probe"   // thin answer: ask the candidate to elaborate
	IntentDeepen  Intent = "deepen"  // substantive answer with gaps
	IntentAdvance Intent = "advance" // move to the next question
)

// requirements lists the focus keys each category must cover
var requirements = map[domain.Category][]string{
	domain.CategoryCoding:       {domain.FocusApproach, domain.FocusComplexity, domain.FocusEdgeCases, domain.FocusCorrectness},
	domain.CategoryConceptual:   {domain.FocusClarity, domain.FocusDepth},
	domain.CategorySystemDesign: {domain.FocusScalability, domain.FocusTradeoffs, domain.FocusComponents},
	domain.CategoryBehavioral:   domain.STARParts(),
}

// Required returns the focus keys for a category
func Required(c domain.Category) []string {
	if r, ok := requirements[c]; ok {
		return slices.Clone(r)
	}
	return slices.Clone(requirements[domain.CategoryCoding])
}

// Decision is the outcome of one follow-up evaluation
type Decision struct {
	Continue      bool     `json:"continue"`
	MissingFocus  []string `json:"missing_focus,omitempty"`
	AllowSecond   bool     `json:"allow_second"`
	Intent        Intent   `json:"intent"`
	Thin          bool     `json:"thin"`
	Clarification bool     `json:"clarification"`
	Confidence    float64  `json:"confidence"`
}

// Policy decides whether the current question deserves another follow-up
type Policy struct {
	tracker   *domain.SkillTracker
	gapCutoff float64
}

// NewPolicy creates a policy using the default critical-gap threshold
func NewPolicy(tracker *domain.SkillTracker) *Policy {
	if tracker == nil {
		tracker = domain.NewSkillTracker()
	}
	return &Policy{tracker: tracker, gapCutoff: domain.DefaultGapCutoff}
}

// Decide evaluates one answer. Clarification requests are reported with
// IntentAnswer and never continue; the caller answers them without scoring.
func (p *Policy) Decide(q *domain.Question, sig domain.Signals, skill domain.SkillState, used, maxFollowups int) Decision {
	category := domain.CategoryCoding
	if q != nil {
		category = q.Category
	}

	if sig.Clarification {
		return Decision{Intent: IntentAnswer, Thin: true, Clarification: true}
	}

	required := Required(category)
	satisfied := Satisfied(category, sig)

	var missing []string
	for _, key := range required {
		if !satisfied[key] {
			missing = append(missing, key)
		}
	}
	confidence := 1.0
	if len(required) > 0 {
		confidence = float64(len(required)-len(missing)) / float64(len(required))
	}

	for _, gap := range p.tracker.CriticalGaps(skill, p.gapCutoff) {
		if category.IsBehavioral() && gap != string(domain.DimCommunication) {
			continue
		}
		gap = foldGap(category, gap)
		if !slices.Contains(missing, gap) {
			missing = append(missing, gap)
		}
	}
	missing = p.prioritize(category, missing, skill)

	thin := IsThin(category, sig)
	d := Decision{
		MissingFocus: missing,
		Thin:         thin,
		Confidence:   confidence,
		Intent:       IntentAdvance,
	}

	if used >= maxFollowups {
		return d
	}
	if len(missing) == 0 && !thin {
		return d
	}

	d.Continue = true
	d.Intent = IntentDeepen
	if thin {
		d.Intent = IntentProbe
	}
	d.AllowSecond = (confidence < lowConfidence || (d.Intent == IntentDeepen && len(missing) > 0)) &&
		used+1 < maxFollowups
	return d
}

// prioritize moves the weakest dimension's focus key to the front, keeping
// declared order for the rest
func (p *Policy) prioritize(c domain.Category, missing []string, skill domain.SkillState) []string {
	weakest, ok := p.tracker.WeakestDimension(skill)
	if !ok || len(missing) < 2 {
		return missing
	}
	key := foldGap(c, weakest.FocusKey())
	i := slices.Index(missing, key)
	if i <= 0 {
		return missing
	}
	out := make([]string, 0, len(missing))
	out = append(out, key)
	out = append(out, missing[:i]...)
	out = append(out, missing[i+1:]...)
	return out
}

// foldGap maps a rubric gap onto the category's own focus key when both name
// the same content
func foldGap(c domain.Category, gap string) string {
	if c == domain.CategoryCoding && gap == string(domain.DimCorrectnessReasoning) {
		return domain.FocusCorrectness
	}
	return gap
}

// Satisfied returns the focus keys covered by an answer's signals
func Satisfied(c domain.Category, sig domain.Signals) map[string]bool {
	out := map[string]bool{
		domain.FocusApproach:    sig.MentionsApproach,
		domain.FocusComplexity:  sig.MentionsComplexity,
		domain.FocusEdgeCases:   sig.MentionsEdgeCases,
		domain.FocusCorrectness: sig.MentionsCorrectness || sig.MentionsTests,
		domain.FocusTradeoffs:   sig.MentionsTradeoffs,
		domain.FocusScalability: sig.MentionsConstraints,
		domain.FocusComponents:  sig.MentionsApproach || sig.ExpectedTopicHits > 0,
		domain.FocusClarity:     sig.TokenCount >= signals.ThinFloor(c) && !sig.CodeWithoutPlan(),
		domain.FocusDepth: sig.MentionsComplexity || sig.MentionsTradeoffs ||
			sig.MentionsCorrectness || sig.MentionsEdgeCases || sig.ExpectedTopicHits > 0,
	}
	if c.IsBehavioral() {
		for _, part := range domain.STARParts() {
			out[part] = !slices.Contains(sig.MissingSTAR, part)
		}
	}
	return out
}

// IsThin reports whether an answer lacks enough substance to move on
func IsThin(c domain.Category, sig domain.Signals) bool {
	switch {
	case sig.Clarification:
		return true
	case sig.TokenCount < signals.ThinFloor(c):
		return true
	case sig.CodeWithoutPlan():
		return true
	case c.IsBehavioral() && sig.STARThin() && !sig.Substantive():
		return true
	default:
		return false
	}
}
