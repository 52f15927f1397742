package domain

import (
	"cmp"
	"math"
	"slices"
)

// DefaultEMAAlpha weights the newest observation in the moving average
const DefaultEMAAlpha = 0.4

// SkillTracker is a domain service that folds rubric scores into a SkillState.
// It never deduplicates: every call counts as one scored turn.
type SkillTracker struct {
	alpha float64
}

// NewSkillTracker creates a tracker with the default smoothing factor
func NewSkillTracker() *SkillTracker {
	return &SkillTracker{alpha: DefaultEMAAlpha}
}

// NewSkillTrackerWithAlpha creates a tracker with a custom smoothing factor in (0,1]
func NewSkillTrackerWithAlpha(alpha float64) *SkillTracker {
	if alpha <= 0 || alpha > 1 || math.IsNaN(alpha) {
		alpha = DefaultEMAAlpha
	}
	return &SkillTracker{alpha: alpha}
}

// Normalize clamps raw scores into range and substitutes the neutral score
// for missing or non-numeric dimensions. Technical dimensions omitted from a
// behavioral turn are left out rather than defaulted. The second return lists
// the dimensions that had to be repaired.
func (t *SkillTracker) Normalize(scores RubricScores, isBehavioral bool) (RubricScores, []Dimension) {
	out := make(RubricScores, len(Dimensions()))
	var repaired []Dimension

	for _, d := range Dimensions() {
		v, ok := scores[d]
		if !ok {
			if isBehavioral && d.IsTechnical() {
				continue
			}
			out[d] = ScoreNeutral
			repaired = append(repaired, d)
			continue
		}
		if math.IsNaN(v) {
			out[d] = ScoreNeutral
			repaired = append(repaired, d)
			continue
		}
		clamped := math.Max(ScoreMin, math.Min(ScoreMax, v))
		if clamped != v {
			repaired = append(repaired, d)
		}
		out[d] = clamped
	}

	return out, repaired
}

// Update folds one turn's scores into state and returns the new state
func (t *SkillTracker) Update(state SkillState, scores RubricScores, isBehavioral bool) SkillState {
	normalized, _ := t.Normalize(scores, isBehavioral)
	next := state.Clone()

	for _, d := range Dimensions() {
		v, ok := normalized[d]
		if !ok {
			continue
		}
		next.Sum[d] += v
		if next.Count[d] == 0 {
			next.EMA[d] = v
		} else {
			next.EMA[d] = next.EMA[d]*(1-t.alpha) + v*t.alpha
		}
		next.Count[d]++
		next.Last[d] = v
	}
	next.N++

	overall, _ := next.LastOverall()
	switch {
	case overall >= StrongOverall:
		next.GoodStreak++
		next.WeakStreak = 0
	case overall <= WeakOverall:
		next.WeakStreak++
		next.GoodStreak = 0
	default:
		next.GoodStreak = 0
		next.WeakStreak = 0
	}

	return next
}

// WeakestDimension returns the dimension with the lowest EMA.
// Ties and untracked dimensions resolve by declaration order.
func (t *SkillTracker) WeakestDimension(state SkillState) (Dimension, bool) {
	var (
		weakest Dimension
		lowest  = math.Inf(1)
		found   bool
	)
	for _, d := range Dimensions() {
		v, ok := state.EMA[d]
		if !ok {
			continue
		}
		if v < lowest {
			weakest, lowest, found = d, v, true
		}
	}
	return weakest, found
}

// CriticalGaps returns focus keys for dimensions whose last score is
// strictly below threshold, in declaration order
func (t *SkillTracker) CriticalGaps(state SkillState, threshold float64) []string {
	var gaps []string
	for _, d := range Dimensions() {
		v, ok := state.Last[d]
		if ok && v < threshold {
			gaps = append(gaps, d.FocusKey())
		}
	}
	return gaps
}

// EMAOrder returns dimensions sorted by ascending EMA, stable on declaration order
func (t *SkillTracker) EMAOrder(state SkillState) []Dimension {
	dims := Dimensions()
	ema := func(d Dimension) float64 {
		if v, ok := state.EMA[d]; ok {
			return v
		}
		return ScoreNeutral
	}
	slices.SortStableFunc(dims, func(a, b Dimension) int {
		return cmp.Compare(ema(a), ema(b))
	})
	return dims
}
