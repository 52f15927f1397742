package selection

import (
	"testing"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

func scored(values ...float64) domain.SkillState {
	tr := domain.NewSkillTracker()
	s := domain.NewSkillState()
	for _, v := range values {
		scores := domain.RubricScores{}
		for _, d := range domain.Dimensions() {
			scores[d] = v
		}
		s = tr.Update(s, scores, false)
	}
	return s
}

func TestStartDifficulty(t *testing.T) {
	tests := []struct {
		name     string
		ceiling  domain.Difficulty
		start    domain.Difficulty
		adaptive bool
		want     domain.Difficulty
	}{
		{"fixed uses ceiling", domain.DifficultyHard, domain.DifficultyEasy, false, domain.DifficultyHard},
		{"adaptive default below ceiling", domain.DifficultyHard, "", true, domain.DifficultyMedium},
		{"adaptive floor", domain.DifficultyEasy, "", true, domain.DifficultyEasy},
		{"adaptive explicit start", domain.DifficultyHard, domain.DifficultyEasy, true, domain.DifficultyEasy},
		{"start capped at ceiling", domain.DifficultyMedium, domain.DifficultyHard, true, domain.DifficultyMedium},
		{"invalid ceiling", "", "", false, domain.DifficultyMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartDifficulty(tt.ceiling, tt.start, tt.adaptive); got != tt.want {
				t.Errorf("StartDifficulty() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAdaptDifficulty(t *testing.T) {
	tests := []struct {
		name    string
		current domain.Difficulty
		ceiling domain.Difficulty
		skill   domain.SkillState
		want    domain.Difficulty
	}{
		{"no scores", domain.DifficultyMedium, domain.DifficultyHard, domain.NewSkillState(), domain.DifficultyMedium},
		{"one strong turn", domain.DifficultyMedium, domain.DifficultyHard, scored(9), domain.DifficultyMedium},
		{"two strong turns raise", domain.DifficultyMedium, domain.DifficultyHard, scored(8, 9), domain.DifficultyHard},
		{"raise capped at ceiling", domain.DifficultyHard, domain.DifficultyHard, scored(8, 9), domain.DifficultyHard},
		{"two weak turns lower", domain.DifficultyMedium, domain.DifficultyHard, scored(3, 4), domain.DifficultyEasy},
		{"lower floored at easy", domain.DifficultyEasy, domain.DifficultyHard, scored(1, 2, 3), domain.DifficultyEasy},
		{"streak broken", domain.DifficultyMedium, domain.DifficultyHard, scored(3, 4, 6), domain.DifficultyMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdaptDifficulty(tt.current, tt.ceiling, tt.skill); got != tt.want {
				t.Errorf("AdaptDifficulty() = %s, want %s", got, tt.want)
			}
		})
	}
}
