package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Question is an immutable catalog entry
type Question struct {
	ID              string     `json:"id" yaml:"id"`
	Track           string     `json:"track" yaml:"track"`
	Company         string     `json:"company,omitempty" yaml:"company,omitempty"`
	Difficulty      Difficulty `json:"difficulty" yaml:"difficulty"`
	Category        Category   `json:"category" yaml:"category"`
	Prompt          string     `json:"prompt" yaml:"prompt"`
	Tags            []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	ExpectedTopics  []string   `json:"expected_topics,omitempty" yaml:"expected_topics,omitempty"`
	EvaluationFocus []string   `json:"evaluation_focus,omitempty" yaml:"evaluation_focus,omitempty"`
}

// IsBehavioral reports whether the question is behavioral
func (q *Question) IsBehavioral() bool {
	return q != nil && q.Category.IsBehavioral()
}

// HasTag reports whether the question carries tag (case-insensitive)
func (q *Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// HasFocus reports whether the evaluation-focus metadata contains label
func (q *Question) HasFocus(label string) bool {
	for _, f := range q.EvaluationFocus {
		if strings.EqualFold(f, label) {
			return true
		}
	}
	return false
}

// MatchesCompany reports whether the question applies to a company profile.
// Questions without a company are generic and match every profile.
func (q *Question) MatchesCompany(company string) bool {
	return q.Company == "" || company == "" || strings.EqualFold(q.Company, company)
}

// Validate checks the fields a question bank entry must carry
func (q *Question) Validate() error {
	switch {
	case strings.TrimSpace(q.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	case strings.TrimSpace(q.Prompt) == "":
		return fmt.Errorf("%w: %s: missing prompt", ErrInvalidQuestion, q.ID)
	case !q.Difficulty.Valid():
		return fmt.Errorf("%w: %s: %w", ErrInvalidQuestion, q.ID, ErrInvalidDifficulty)
	}
	if _, err := ParseCategory(string(q.Category)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidQuestion, q.ID, err)
	}
	return nil
}

// QuestionFilter is the coarse catalog query run before selection scoring
type QuestionFilter struct {
	Track      string
	Company    string
	Difficulty Difficulty
	Categories []Category
	Limit      int
}

// Matches reports whether q passes the filter. Empty fields match anything.
func (f QuestionFilter) Matches(q *Question) bool {
	if f.Track != "" && !strings.EqualFold(q.Track, f.Track) {
		return false
	}
	if !q.MatchesCompany(f.Company) {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, q.Category) {
		return false
	}
	return true
}
