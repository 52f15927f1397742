package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// ErrMalformedOutput is returned when the model's output cannot be parsed
var ErrMalformedOutput = errors.New("malformed model output")

// extractJSON returns the outermost JSON object in s, tolerating code
// fences and surrounding prose.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object", ErrMalformedOutput)
	}
	return s[start : end+1], nil
}

// parseScores reads rubric scores from either a flat object or one nested
// under "scores". Unknown keys are ignored; numeric strings are accepted.
func parseScores(content string) (domain.RubricScores, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if nested, ok := obj["scores"].(map[string]any); ok {
		obj = nested
	}

	scores := make(domain.RubricScores, len(domain.Dimensions()))
	for key, v := range obj {
		d, err := domain.ParseDimension(key)
		if err != nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			continue
		}
		scores[d] = f
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: no rubric dimensions", ErrMalformedOutput)
	}
	return scores, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

type evaluationPayload struct {
	OverallScore     json.Number    `json:"overall_score"`
	Rubric           map[string]any `json:"rubric"`
	Strengths        []string       `json:"strengths"`
	Weaknesses       []string       `json:"weaknesses"`
	NextSteps        []string       `json:"next_steps"`
	HireSignal       string         `json:"hire_signal"`
	Narrative        string         `json:"narrative"`
	PatternsObserved []string       `json:"patterns_observed"`
	StandoutMoments  []string       `json:"standout_moments"`
}

// parseEvaluation reads the final evaluation object. An unknown hire
// signal is an error; the caller derives one from the calibration table.
func parseEvaluation(content string) (*domain.Evaluation, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var p evaluationPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	overall, err := p.OverallScore.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: overall_score: %v", ErrMalformedOutput, err)
	}

	eval := &domain.Evaluation{
		OverallScore:     int(math.Round(overall)),
		Rubric:           make(map[domain.Dimension]float64),
		Strengths:        p.Strengths,
		Weaknesses:       p.Weaknesses,
		NextSteps:        p.NextSteps,
		Narrative:        strings.TrimSpace(p.Narrative),
		PatternsObserved: p.PatternsObserved,
		StandoutMoments:  p.StandoutMoments,
	}
	for key, v := range p.Rubric {
		d, err := domain.ParseDimension(key)
		if err != nil {
			continue
		}
		if f, ok := toFloat(v); ok {
			eval.Rubric[d] = f
		}
	}
	if p.HireSignal != "" {
		signal, err := domain.ParseHireSignal(p.HireSignal)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
		}
		eval.HireSignal = signal
	}

	eval.Normalize()
	return eval, nil
}
