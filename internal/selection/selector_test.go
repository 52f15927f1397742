package selection

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

func q(id string, cat domain.Category, tags []string, focus []string) domain.Question {
	return domain.Question{
		ID:              id,
		Track:           "backend",
		Difficulty:      domain.DifficultyMedium,
		Category:        cat,
		Prompt:          "Prompt for " + id,
		Tags:            tags,
		EvaluationFocus: focus,
	}
}

func baseRequest(pool ...domain.Question) Request {
	return Request{
		Pool:       pool,
		Track:      "backend",
		Difficulty: domain.DifficultyMedium,
	}
}

func seeded() Option {
	return WithRand(rand.New(rand.NewPCG(1, 2)))
}

func TestSelector_Pick_EmptyPool(t *testing.T) {
	s := NewSelector(seeded())
	if got, ok := s.Pick(baseRequest()); ok || got != nil {
		t.Errorf("Pick(empty) = %v, %v; want nil, false", got, ok)
	}
}

func TestSelector_Pick_ExcludesAskedAndSeen(t *testing.T) {
	pool := []domain.Question{
		q("a", domain.CategoryCoding, nil, nil),
		q("b", domain.CategoryCoding, nil, nil),
		q("c", domain.CategoryCoding, nil, nil),
	}
	s := NewSelector(seeded())

	req := baseRequest(pool...)
	req.AskedIDs = []string{"a"}
	req.SeenIDs = []string{"b"}

	for i := 0; i < 20; i++ {
		got, ok := s.Pick(req)
		if !ok {
			t.Fatal("Pick() returned nothing")
		}
		if got.ID != "c" {
			t.Fatalf("Pick() = %s, want c", got.ID)
		}
	}

	req.SeenIDs = []string{"b", "c"}
	if _, ok := s.Pick(req); ok {
		t.Error("Pick() should return nothing when every candidate was asked or seen")
	}
}

func TestSelector_Pick_Filters(t *testing.T) {
	other := q("track", domain.CategoryCoding, nil, nil)
	other.Track = "frontend"
	hard := q("hard", domain.CategoryCoding, nil, nil)
	hard.Difficulty = domain.DifficultyHard
	globex := q("globex", domain.CategoryCoding, nil, nil)
	globex.Company = "globex"
	acme := q("acme", domain.CategoryCoding, nil, nil)
	acme.Company = "acme"

	s := NewSelector(seeded())
	req := baseRequest(other, hard, globex, acme)
	req.Company = "acme"

	got, ok := s.Pick(req)
	if !ok || got.ID != "acme" {
		t.Errorf("Pick() = %v, want acme", got)
	}
}

func TestSelector_Pick_BehavioralOnlyWhenDesired(t *testing.T) {
	pool := []domain.Question{
		q("beh", domain.CategoryBehavioral, nil, nil),
		q("code", domain.CategoryCoding, nil, nil),
	}
	s := NewSelector(seeded())

	req := baseRequest(pool...)
	got, _ := s.Pick(req)
	if got.ID != "code" {
		t.Errorf("Pick() = %s, want code when no behavioral pick is desired", got.ID)
	}

	req.DesiredCategory = domain.CategoryBehavioral
	got, _ = s.Pick(req)
	if got.ID != "beh" {
		t.Errorf("Pick() = %s, want beh when behavioral is desired", got.ID)
	}

	onlyBehavioral := baseRequest(pool[0])
	if _, ok := s.Pick(onlyBehavioral); ok {
		t.Error("strict pick should not return a behavioral question")
	}
	onlyBehavioral.Relaxed = true
	if got, ok := s.Pick(onlyBehavioral); !ok || got.ID != "beh" {
		t.Error("relaxed pick should accept a behavioral question")
	}
}

func TestSelector_Rank_Scoring(t *testing.T) {
	pool := []domain.Question{
		q("plain", domain.CategoryCoding, []string{"arrays"}, nil),
		q("focus", domain.CategoryCoding, []string{"graphs", "bfs"}, nil),
		q("repeat", domain.CategoryCoding, []string{"graphs", "arrays"}, nil),
		q("gap", domain.CategoryCoding, nil, []string{"complexity"}),
	}
	s := NewSelector(seeded())

	req := baseRequest(pool...)
	req.FocusTags = []string{"graphs", "bfs"}
	req.AskedTags = []string{"arrays", "arrays"}
	req.RubricGaps = []string{"complexity"}

	ranked := s.Rank(req)
	scores := map[string]float64{}
	for _, c := range ranked {
		scores[c.Question.ID] = c.Score
	}

	want := map[string]float64{
		"plain":  -1,
		"focus":  10,
		"repeat": 4,
		"gap":    10,
	}
	for id, w := range want {
		if scores[id] != w {
			t.Errorf("score[%s] = %v, want %v", id, scores[id], w)
		}
	}
	// focus and gap tie; pool order wins
	if ranked[0].Question.ID != "focus" || ranked[1].Question.ID != "gap" {
		t.Errorf("order = %s, %s; want focus, gap", ranked[0].Question.ID, ranked[1].Question.ID)
	}
}

func TestSelector_Rank_WeaknessKeywords(t *testing.T) {
	plain := q("plain", domain.CategoryCoding, nil, nil)
	weak := q("weak", domain.CategoryCoding, []string{"performance"}, nil)
	weak.Prompt = "Analyze the complexity of this efficient cache"

	s := NewSelector(seeded())
	req := baseRequest(plain, weak)
	req.WeakDimension = domain.DimComplexity

	ranked := s.Rank(req)
	if ranked[0].Question.ID != "weak" || ranked[0].Score != 3 {
		t.Errorf("top = %s (%v), want weak (3)", ranked[0].Question.ID, ranked[0].Score)
	}
}

func TestSelector_Relaxed_DropsDiversityPenalty(t *testing.T) {
	s := NewSelector(seeded())
	req := baseRequest(q("a", domain.CategoryCoding, []string{"x"}, nil))
	req.AskedTags = []string{"x"}
	req.Relaxed = true

	if ranked := s.Rank(req); ranked[0].Score != 0 {
		t.Errorf("relaxed score = %v, want 0", ranked[0].Score)
	}
}

// With the documented weights, five overlapping tags (+25) outrank a single
// rubric-gap match (+10). The weights are kept and the tension is asserted.
func TestDefaultWeights_RubricDoesNotDominateFullTagOverlap(t *testing.T) {
	w := DefaultWeights()
	if !w.RubricDominates(1) {
		t.Error("one rubric match should beat one overlapping tag")
	}
	if w.RubricDominates(2) {
		t.Error("default weights: two overlapping tags tie or beat one rubric match")
	}
	if w.RubricDominates(5) {
		t.Error("default weights unexpectedly let one rubric match beat five tags")
	}

	tags := []string{"t1", "t2", "t3", "t4", "t5"}
	pool := []domain.Question{
		q("rubric", domain.CategoryCoding, nil, []string{"edge_cases"}),
		q("tags", domain.CategoryCoding, tags, nil),
	}
	req := baseRequest(pool...)
	req.FocusTags = tags
	req.RubricGaps = []string{"edge_cases"}

	got, _ := NewSelector(seeded()).Pick(req)
	if got.ID != "tags" {
		t.Errorf("Pick() = %s; default weights favor the full tag overlap", got.ID)
	}
}

func TestTunedWeights_RubricDominates(t *testing.T) {
	tuned := Weights{TagOverlap: 1, DiversityPenalty: 1, Weakness: 0.5, RubricAlignment: 10}
	if !tuned.RubricDominates(5) {
		t.Fatal("tuned weights should let one rubric match beat five tags")
	}

	tags := []string{"t1", "t2", "t3", "t4", "t5"}
	pool := []domain.Question{
		q("tags", domain.CategoryCoding, tags, nil),
		q("rubric", domain.CategoryCoding, nil, []string{"edge_cases"}),
	}
	req := baseRequest(pool...)
	req.FocusTags = tags
	req.RubricGaps = []string{"edge_cases"}

	got, _ := NewSelector(seeded(), WithWeights(tuned)).Pick(req)
	if got.ID != "rubric" {
		t.Errorf("Pick() = %s, want rubric with tuned weights", got.ID)
	}
}

func TestSelector_Sample(t *testing.T) {
	var pool []domain.Question
	for i := 0; i < 50; i++ {
		pool = append(pool, q(fmt.Sprintf("q%02d", i), domain.CategoryCoding, nil, nil))
	}

	s := NewSelector(seeded(), WithSampleSize(10))
	ranked := s.Rank(baseRequest(pool...))
	if len(ranked) != 10 {
		t.Fatalf("Rank() returned %d candidates, want 10", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Question.ID >= ranked[i].Question.ID {
			t.Fatalf("sample not in pool order: %s before %s", ranked[i-1].Question.ID, ranked[i].Question.ID)
		}
	}
}
