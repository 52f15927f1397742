package selection

import "github.com/felixgeelhaar/rehearse/internal/domain"

// Streak length and score bands that move adaptive difficulty
const (
	AdaptiveStreak = 2
	RaiseOverall   = domain.StrongOverall
	LowerOverall   = domain.WeakOverall
)

// StartDifficulty returns the first effective difficulty of a session.
// Without adaptation it is always the ceiling. With adaptation it is the
// configured start (bounded by the ceiling) or one tier below the ceiling.
func StartDifficulty(ceiling, start domain.Difficulty, adaptive bool) domain.Difficulty {
	if !ceiling.Valid() {
		ceiling = domain.DifficultyMedium
	}
	if !adaptive {
		return ceiling
	}
	if start.Valid() {
		if start.Rank() > ceiling.Rank() {
			return ceiling
		}
		return start
	}
	return ceiling.Lower()
}

// AdaptDifficulty applies the once-per-question adjustment: two strong turns
// in a row raise a tier, two weak turns lower it, always within [easy, ceiling]
func AdaptDifficulty(current, ceiling domain.Difficulty, skill domain.SkillState) domain.Difficulty {
	if !current.Valid() {
		current = ceiling
	}
	last, ok := skill.LastOverall()
	if !ok {
		return current
	}

	switch {
	case skill.GoodStreak >= AdaptiveStreak && last >= RaiseOverall:
		return current.Raise(ceiling)
	case skill.WeakStreak >= AdaptiveStreak && last <= LowerOverall:
		return current.Lower()
	default:
		return current
	}
}
