package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// HireSignal is the qualitative hiring recommendation of an evaluation
type HireSignal string

const (
	HireStrongHire  HireSignal = "strong_hire"
	HireHire        HireSignal = "hire"
	HireLeanHire    HireSignal = "lean_hire"
	HireLeanNoHire  HireSignal = "lean_no_hire"
	HireNoHire      HireSignal = "no_hire"
	hireSignalFloor            = HireNoHire
)

// hireRank orders signals from weakest to strongest
var hireRank = map[HireSignal]int{
	HireNoHire:     0,
	HireLeanNoHire: 1,
	HireLeanHire:   2,
	HireHire:       3,
	HireStrongHire: 4,
}

// ParseHireSignal normalizes a label such as "Lean Hire" or "lean-hire"
func ParseHireSignal(s string) (HireSignal, error) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	h := HireSignal(norm)
	if _, ok := hireRank[h]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidHireSignal, s)
	}
	return h, nil
}

// Cap returns the weaker of h and ceiling
func (h HireSignal) Cap(ceiling HireSignal) HireSignal {
	r, ok := hireRank[h]
	if !ok {
		return hireSignalFloor
	}
	if r > hireRank[ceiling] {
		return ceiling
	}
	return h
}

// Evaluation is the final assessment recorded when a session completes
type Evaluation struct {
	OverallScore      int                   `json:"overall_score"`
	Rubric            map[Dimension]float64 `json:"rubric"`
	Strengths         []string              `json:"strengths"`
	Weaknesses        []string              `json:"weaknesses"`
	NextSteps         []string              `json:"next_steps"`
	HireSignal        HireSignal            `json:"hire_signal"`
	Narrative         string                `json:"narrative"`
	PatternsObserved  []string              `json:"patterns_observed,omitempty"`
	StandoutMoments   []string              `json:"standout_moments,omitempty"`
	DifficultyReached Difficulty            `json:"difficulty_reached"`
	Fallback          bool                  `json:"fallback"`
	CreatedAt         time.Time             `json:"created_at"`
}

// Normalize clamps the overall score into [0,100] and rubric values into [0,10]
func (e *Evaluation) Normalize() {
	e.OverallScore = max(0, min(100, e.OverallScore))
	for d, v := range e.Rubric {
		if math.IsNaN(v) {
			e.Rubric[d] = ScoreNeutral
			continue
		}
		e.Rubric[d] = math.Max(ScoreMin, math.Min(ScoreMax, v))
	}
}

// FallbackEvaluation builds a conservative evaluation from accumulated skill
// averages. The hire signal is capped at lean_hire since no reviewer weighed in.
func FallbackEvaluation(skill SkillState, patterns PatternState, reached Difficulty, signal HireSignal) *Evaluation {
	rubric := make(map[Dimension]float64, len(Dimensions()))
	var total float64
	var n int
	for _, d := range Dimensions() {
		avg, ok := skill.Average(d)
		if !ok {
			continue
		}
		rubric[d] = avg
		total += avg
		n++
	}

	overall := 50
	if n > 0 {
		overall = int(math.Round(total / float64(n) * 10))
	}

	var strengths, weaknesses []string
	for _, d := range Dimensions() {
		v, ok := rubric[d]
		if !ok {
			continue
		}
		label := strings.ReplaceAll(string(d), "_", " ")
		switch {
		case v >= StrongOverall:
			strengths = append(strengths, label)
		case v < DefaultGapCutoff:
			weaknesses = append(weaknesses, label)
		}
	}

	eval := &Evaluation{
		OverallScore:      overall,
		Rubric:            rubric,
		Strengths:         strengths,
		Weaknesses:        weaknesses,
		NextSteps:         []string{"Review the weaker rubric areas and practice explaining your reasoning out loud."},
		HireSignal:        signal.Cap(HireLeanHire),
		Narrative:         "Automated summary generated from turn-level scores; a detailed review was unavailable.",
		DifficultyReached: reached,
		Fallback:          true,
		CreatedAt:         time.Now(),
	}
	if summary := NewPatternAggregator().Summary(patterns); summary != "" {
		eval.PatternsObserved = []string{summary}
	}
	eval.Normalize()
	return eval
}
