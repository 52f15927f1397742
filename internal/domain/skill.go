package domain

// Streak and neutral-score thresholds on the 0-10 rubric scale
const (
	ScoreMin         = 0.0
	ScoreMax         = 10.0
	ScoreNeutral     = 5.0
	StrongOverall    = 7.5
	WeakOverall      = 4.5
	DefaultGapCutoff = 5.0
)

// SkillState accumulates rubric scores across the scored turns of a session
type SkillState struct {
	N          int                   `json:"n"`
	Sum        map[Dimension]float64 `json:"sum"`
	Count      map[Dimension]int     `json:"count"`
	Last       map[Dimension]float64 `json:"last"`
	EMA        map[Dimension]float64 `json:"ema"`
	GoodStreak int                   `json:"good_streak"`
	WeakStreak int                   `json:"weak_streak"`
}

// NewSkillState returns an empty accumulator
func NewSkillState() SkillState {
	return SkillState{
		Sum:   make(map[Dimension]float64),
		Count: make(map[Dimension]int),
		Last:  make(map[Dimension]float64),
		EMA:   make(map[Dimension]float64),
	}
}

// Clone returns a deep copy
func (s SkillState) Clone() SkillState {
	out := NewSkillState()
	out.N = s.N
	out.GoodStreak = s.GoodStreak
	out.WeakStreak = s.WeakStreak
	for k, v := range s.Sum {
		out.Sum[k] = v
	}
	for k, v := range s.Count {
		out.Count[k] = v
	}
	for k, v := range s.Last {
		out.Last[k] = v
	}
	for k, v := range s.EMA {
		out.EMA[k] = v
	}
	return out
}

// IsZero reports whether the state has never been initialized
func (s SkillState) IsZero() bool {
	return s.N == 0 && s.Sum == nil && s.Count == nil && s.Last == nil && s.EMA == nil
}

// Average returns the running average for a dimension
func (s SkillState) Average(d Dimension) (float64, bool) {
	c := s.Count[d]
	if c == 0 {
		return 0, false
	}
	return s.Sum[d] / float64(c), true
}

// LastOverall returns the mean of the last observed scores
func (s SkillState) LastOverall() (float64, bool) {
	return RubricScores(s.Last).Mean()
}
