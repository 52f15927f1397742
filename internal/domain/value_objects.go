package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidDimension  = errors.New("invalid rubric dimension")
)

// -----------------------------------------------------------------------------
// Difficulty - ordered question tiers
// -----------------------------------------------------------------------------

// Difficulty represents a question difficulty tier (easy < medium < hard)
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// difficultyTiers lists tiers from lowest to highest
var difficultyTiers = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty normalizes and validates a difficulty label
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}

// Valid reports whether d is a known tier
func (d Difficulty) Valid() bool {
	return d.Rank() >= 0
}

// Rank returns the tier position (0 for easy), or -1 for unknown values
func (d Difficulty) Rank() int {
	for i, t := range difficultyTiers {
		if t == d {
			return i
		}
	}
	return -1
}

// Raise returns the next tier up, never exceeding ceiling
func (d Difficulty) Raise(ceiling Difficulty) Difficulty {
	r := d.Rank()
	if r < 0 {
		return ceiling
	}
	next := difficultyTiers[min(r+1, len(difficultyTiers)-1)]
	if ceiling.Valid() && next.Rank() > ceiling.Rank() {
		return ceiling
	}
	return next
}

// Lower returns the next tier down, floored at the lowest tier
func (d Difficulty) Lower() Difficulty {
	r := d.Rank()
	if r <= 0 {
		return difficultyTiers[0]
	}
	return difficultyTiers[r-1]
}

// String returns the tier label
func (d Difficulty) String() string {
	return string(d)
}

// LowestDifficulty returns the floor tier
func LowestDifficulty() Difficulty {
	return difficultyTiers[0]
}

// -----------------------------------------------------------------------------
// Category - closed set of question categories
// -----------------------------------------------------------------------------

// Category classifies a question
type Category string

const (
	CategoryCoding       Category = "coding"
	CategoryConceptual   Category = "conceptual"
	CategorySystemDesign Category = "system_design"
	CategoryBehavioral   Category = "behavioral"
)

// AllCategories lists the supported categories
func AllCategories() []Category {
	return []Category{CategoryCoding, CategoryConceptual, CategorySystemDesign, CategoryBehavioral}
}

// ParseCategory normalizes and validates a category label
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, known := range AllCategories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// IsBehavioral reports whether the category is behavioral
func (c Category) IsBehavioral() bool {
	return c == CategoryBehavioral
}

// -----------------------------------------------------------------------------
// Dimension - rubric axes scored 0-10 per turn
// -----------------------------------------------------------------------------

// Dimension is one of the five fixed rubric axes
type Dimension string

const (
	DimCommunication        Dimension = "communication"
	DimProblemSolving       Dimension = "problem_solving"
	DimCorrectnessReasoning Dimension = "correctness_reasoning"
	DimComplexity           Dimension = "complexity"
	DimEdgeCases            Dimension = "edge_cases"
)

// Dimensions returns the rubric dimensions in declaration order.
// Tie-breaking everywhere relies on this order.
func Dimensions() []Dimension {
	return []Dimension{
		DimCommunication,
		DimProblemSolving,
		DimCorrectnessReasoning,
		DimComplexity,
		DimEdgeCases,
	}
}

// ParseDimension validates a dimension label
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dimensions() {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDimension, s)
}

// FocusKey maps a dimension to its semantic focus key
func (d Dimension) FocusKey() string {
	if d == DimProblemSolving {
		return FocusApproach
	}
	return string(d)
}

// IsTechnical reports whether the dimension only applies to technical answers
func (d Dimension) IsTechnical() bool {
	return d == DimComplexity || d == DimEdgeCases
}

// Focus keys used to match required answer content
const (
	FocusApproach    = "approach"
	FocusComplexity  = "complexity"
	FocusEdgeCases   = "edge_cases"
	FocusCorrectness = "correctness"
	FocusClarity     = "clarity"
	FocusDepth       = "depth"
	FocusScalability = "scalability"
	FocusTradeoffs   = "tradeoffs"
	FocusComponents  = "components"
	FocusSituation   = "situation"
	FocusTask        = "task"
	FocusAction      = "action"
	FocusResult      = "result"
)

// STARParts lists behavioral narrative parts in order
func STARParts() []string {
	return []string{FocusSituation, FocusTask, FocusAction, FocusResult}
}

// RubricScores holds per-dimension scores for one turn
type RubricScores map[Dimension]float64

// Mean returns the average of the present scores, or false when empty
func (r RubricScores) Mean() (float64, bool) {
	if len(r) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range r {
		sum += v
	}
	return sum / float64(len(r)), true
}
