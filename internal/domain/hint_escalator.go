package domain

// HintLevel is the scaffolding depth of the next follow-up (0-3)
type HintLevel int

const (
	HintNone     HintLevel = 0
	HintNudge    HintLevel = 1
	HintDirect   HintLevel = 2
	HintScaffold HintLevel = 3
)

// Style returns the prompt directive for a hint level
func (l HintLevel) Style() string {
	switch {
	case l <= HintNone:
		return ""
	case l == HintNudge:
		return "Give an indirect nudge: ask a guiding question without naming the technique."
	case l == HintDirect:
		return "Reveal the direction: name the relevant idea or data structure and ask them to apply it."
	default:
		return "Offer a near-complete scaffold: outline the steps and ask them to fill in the final piece."
	}
}

// HintState maps question ids to their current hint level.
// Entries for earlier questions are retained but no longer consulted.
type HintState map[string]HintLevel

// Get returns the stored level for a question
func (h HintState) Get(questionID string) HintLevel {
	return h[questionID]
}

// Raise stores level for a question unless a higher level is already recorded.
// It returns the effective level.
func (h HintState) Raise(questionID string, level HintLevel) HintLevel {
	if cur, ok := h[questionID]; ok && cur >= level {
		return cur
	}
	h[questionID] = level
	return level
}

// HintEscalator decides how much scaffolding the next follow-up reveals.
// It shapes style only; whether to follow up is decided elsewhere.
type HintEscalator struct{}

// NewHintEscalator creates a new hint escalator
func NewHintEscalator() *HintEscalator {
	return &HintEscalator{}
}

// Compute returns the level implied by the latest skill state and follow-up count
func (e *HintEscalator) Compute(skill SkillState, followupsUsed int) HintLevel {
	last, ok := skill.LastOverall()
	if !ok || last >= 5.5 {
		return HintNone
	}

	switch {
	case followupsUsed <= 0:
		return HintNone
	case followupsUsed == 1:
		if last < 4.5 {
			return HintNudge
		}
		return HintNone
	case followupsUsed == 2:
		switch {
		case last < 3.5:
			return HintScaffold
		case last < 5.0:
			return HintDirect
		default:
			return HintNudge
		}
	default:
		return HintScaffold
	}
}

// Level returns the level for questionID, never lower than what was stored
func (e *HintEscalator) Level(hints HintState, questionID string, skill SkillState, followupsUsed int) HintLevel {
	return max(hints.Get(questionID), e.Compute(skill, followupsUsed))
}
