package domain

import (
	"errors"
	"testing"
)

func TestDifficulty_RaiseLower(t *testing.T) {
	tests := []struct {
		name    string
		from    Difficulty
		ceiling Difficulty
		raise   Difficulty
		lower   Difficulty
	}{
		{"easy under hard", DifficultyEasy, DifficultyHard, DifficultyMedium, DifficultyEasy},
		{"medium under hard", DifficultyMedium, DifficultyHard, DifficultyHard, DifficultyEasy},
		{"hard at hard", DifficultyHard, DifficultyHard, DifficultyHard, DifficultyMedium},
		{"medium at medium", DifficultyMedium, DifficultyMedium, DifficultyMedium, DifficultyEasy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Raise(tt.ceiling); got != tt.raise {
				t.Errorf("Raise() = %s, want %s", got, tt.raise)
			}
			if got := tt.from.Lower(); got != tt.lower {
				t.Errorf("Lower() = %s, want %s", got, tt.lower)
			}
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	if d, err := ParseDifficulty(" Hard "); err != nil || d != DifficultyHard {
		t.Errorf("ParseDifficulty = %q, %v", d, err)
	}
	if _, err := ParseDifficulty("expert"); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("ParseDifficulty(expert) err = %v, want ErrInvalidDifficulty", err)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		err  bool
	}{
		{"coding", CategoryCoding, false},
		{"System-Design", CategorySystemDesign, false},
		{"behavioral", CategoryBehavioral, false},
		{"trivia", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestDimension_FocusKey(t *testing.T) {
	if DimProblemSolving.FocusKey() != FocusApproach {
		t.Errorf("problem_solving focus key = %q", DimProblemSolving.FocusKey())
	}
	if DimEdgeCases.FocusKey() != FocusEdgeCases {
		t.Errorf("edge_cases focus key = %q", DimEdgeCases.FocusKey())
	}
}

func TestQuestion_Validate(t *testing.T) {
	valid := Question{ID: "q1", Prompt: "Reverse a list", Difficulty: DifficultyEasy, Category: CategoryCoding}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	bad := valid
	bad.Category = "trivia"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidQuestion) || !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("Validate() = %v, want invalid category", err)
	}

	bad = valid
	bad.Difficulty = ""
	if err := bad.Validate(); !errors.Is(err, ErrInvalidDifficulty) {
		t.Errorf("Validate() = %v, want invalid difficulty", err)
	}
}

func TestQuestion_MatchesCompany(t *testing.T) {
	generic := Question{ID: "g"}
	acme := Question{ID: "a", Company: "Acme"}

	if !generic.MatchesCompany("acme") {
		t.Error("generic question should match any company")
	}
	if !acme.MatchesCompany("ACME") {
		t.Error("company match should be case-insensitive")
	}
	if acme.MatchesCompany("globex") {
		t.Error("acme question should not match globex")
	}
}
