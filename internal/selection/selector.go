package selection

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// DefaultSampleSize bounds how many filtered candidates are scored per pick
const DefaultSampleSize = 120

// Weights are the scoring terms applied to each candidate
type Weights struct {
	TagOverlap       float64 `json:"tag_overlap" yaml:"tag_overlap"`
	DiversityPenalty float64 `json:"diversity_penalty" yaml:"diversity_penalty"`
	Weakness         float64 `json:"weakness" yaml:"weakness"`
	RubricAlignment  float64 `json:"rubric_alignment" yaml:"rubric_alignment"`
}

// DefaultWeights returns the documented weights: +5 per focus tag, -1 per
// repeated tag, +1 per weakness keyword, +10 per rubric gap in the focus list
func DefaultWeights() Weights {
	return Weights{
		TagOverlap:       5,
		DiversityPenalty: 1,
		Weakness:         1,
		RubricAlignment:  10,
	}
}

// RubricDominates reports whether a single rubric-gap match outscores a
// candidate overlapping tags focus tags
func (w Weights) RubricDominates(tags int) bool {
	return w.RubricAlignment > w.TagOverlap*float64(tags)
}

// weaknessKeywords are matched against question text and tags per weak dimension
var weaknessKeywords = map[domain.Dimension][]string{
	domain.DimCommunication:        {"explain", "describe", "walk through", "communicate", "tell me"},
	domain.DimProblemSolving:       {"design", "approach", "algorithm", "strategy", "optimize"},
	domain.DimCorrectnessReasoning: {"prove", "correct", "invariant", "validate", "test"},
	domain.DimComplexity:           {"complexity", "big-o", "performance", "efficient", "scale"},
	domain.DimEdgeCases:            {"edge", "empty", "overflow", "boundary", "invalid"},
}

// Request carries the session context for one pick
type Request struct {
	Pool            []domain.Question
	Track           string
	Company         string
	Difficulty      domain.Difficulty
	AskedIDs        []string
	SeenIDs         []string
	AskedTags       []string
	FocusTags       []string
	WeakDimension   domain.Dimension
	RubricGaps      []string
	DesiredCategory domain.Category

	// Relaxed drops the diversity penalty and the category constraint
	Relaxed bool
}

// Candidate is a scored question
type Candidate struct {
	Question *domain.Question
	Score    float64
}

// Selector ranks candidate questions for the next turn
type Selector struct {
	weights    Weights
	sampleSize int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Selector
type Option func(*Selector)

// WithWeights overrides the scoring weights
func WithWeights(w Weights) Option {
	return func(s *Selector) { s.weights = w }
}

// WithSampleSize overrides the candidate sample bound
func WithSampleSize(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.sampleSize = n
		}
	}
}

// WithRand injects the random source used for sampling
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) {
		if r != nil {
			s.rng = r
		}
	}
}

// NewSelector creates a selector with default weights
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		weights:    DefaultWeights(),
		sampleSize: DefaultSampleSize,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the active weights
func (s *Selector) Weights() Weights {
	return s.weights
}

// Pick returns the highest-scoring candidate, or false when nothing survives
// filtering. It never returns an asked or seen question.
func (s *Selector) Pick(req Request) (*domain.Question, bool) {
	ranked := s.Rank(req)
	if len(ranked) == 0 {
		return nil, false
	}
	return ranked[0].Question, true
}

// Rank filters, samples and scores the pool. The result is ordered by
// descending score; equal scores keep pool order.
func (s *Selector) Rank(req Request) []Candidate {
	filtered := s.filter(req)
	if len(filtered) == 0 {
		return nil
	}

	sampled := s.sample(filtered)
	ranked := make([]Candidate, len(sampled))
	for i, q := range sampled {
		ranked[i] = Candidate{Question: q, Score: s.score(q, req)}
	}

	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return ranked
}

func (s *Selector) filter(req Request) []*domain.Question {
	excluded := make(map[string]struct{}, len(req.AskedIDs)+len(req.SeenIDs))
	for _, id := range req.AskedIDs {
		excluded[id] = struct{}{}
	}
	for _, id := range req.SeenIDs {
		excluded[id] = struct{}{}
	}

	var out []*domain.Question
	for i := range req.Pool {
		q := &req.Pool[i]
		if _, skip := excluded[q.ID]; skip {
			continue
		}
		if req.Track != "" && !strings.EqualFold(q.Track, req.Track) {
			continue
		}
		if !q.MatchesCompany(req.Company) {
			continue
		}
		if req.Difficulty != "" && q.Difficulty != req.Difficulty {
			continue
		}
		if req.Relaxed {
			out = append(out, q)
			continue
		}
		if req.DesiredCategory != "" {
			if q.Category != req.DesiredCategory {
				continue
			}
		} else if q.IsBehavioral() {
			continue
		}
		out = append(out, q)
	}
	return out
}

// sample draws up to sampleSize candidates, preserving pool order
func (s *Selector) sample(in []*domain.Question) []*domain.Question {
	if len(in) <= s.sampleSize {
		return in
	}

	s.mu.Lock()
	idx := s.rng.Perm(len(in))[:s.sampleSize]
	s.mu.Unlock()

	slices.Sort(idx)
	out := make([]*domain.Question, len(idx))
	for i, j := range idx {
		out[i] = in[j]
	}
	return out
}

func (s *Selector) score(q *domain.Question, req Request) float64 {
	var score float64

	for _, tag := range req.FocusTags {
		if q.HasTag(tag) {
			score += s.weights.TagOverlap
		}
	}

	if !req.Relaxed {
		for _, tag := range uniqueFold(req.AskedTags) {
			if q.HasTag(tag) {
				score -= s.weights.DiversityPenalty
			}
		}
	}

	if req.WeakDimension != "" {
		text := strings.ToLower(q.Prompt + " " + strings.Join(q.Tags, " "))
		for _, kw := range weaknessKeywords[req.WeakDimension] {
			if strings.Contains(text, kw) {
				score += s.weights.Weakness
			}
		}
	}

	for _, gap := range req.RubricGaps {
		if q.HasFocus(gap) {
			score += s.weights.RubricAlignment
		}
	}

	return score
}

func uniqueFold(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		k := strings.ToLower(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
