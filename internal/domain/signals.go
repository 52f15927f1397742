package domain

// Signal keys of the fixed boolean map
const (
	SignalHasCode             = "has_code"
	SignalMentionsApproach    = "mentions_approach"
	SignalMentionsComplexity  = "mentions_complexity"
	SignalMentionsEdgeCases   = "mentions_edge_cases"
	SignalMentionsConstraints = "mentions_constraints"
	SignalMentionsCorrectness = "mentions_correctness"
	SignalMentionsTradeoffs   = "mentions_tradeoffs"
	SignalMentionsTests       = "mentions_tests"
)

// Signals holds the lexical observations derived from one candidate turn
type Signals struct {
	HasCode             bool `json:"has_code"`
	MentionsApproach    bool `json:"mentions_approach"`
	MentionsComplexity  bool `json:"mentions_complexity"`
	MentionsEdgeCases   bool `json:"mentions_edge_cases"`
	MentionsConstraints bool `json:"mentions_constraints"`
	MentionsCorrectness bool `json:"mentions_correctness"`
	MentionsTradeoffs   bool `json:"mentions_tradeoffs"`
	MentionsTests       bool `json:"mentions_tests"`

	// Observation data used by the follow-up policy
	TokenCount         int      `json:"token_count"`
	Clarification      bool     `json:"clarification"`
	ApproachBeforeCode bool     `json:"approach_before_code"`
	ExpectedTopicHits  int      `json:"expected_topic_hits"`
	MissingSTAR        []string `json:"missing_star,omitempty"`
}

// Map renders the fixed-key boolean map
func (s Signals) Map() map[string]bool {
	return map[string]bool{
		SignalHasCode:             s.HasCode,
		SignalMentionsApproach:    s.MentionsApproach,
		SignalMentionsComplexity:  s.MentionsComplexity,
		SignalMentionsEdgeCases:   s.MentionsEdgeCases,
		SignalMentionsConstraints: s.MentionsConstraints,
		SignalMentionsCorrectness: s.MentionsCorrectness,
		SignalMentionsTradeoffs:   s.MentionsTradeoffs,
		SignalMentionsTests:       s.MentionsTests,
	}
}

// Substantive reports whether any content signal fired
func (s Signals) Substantive() bool {
	return s.MentionsApproach || s.MentionsComplexity || s.MentionsEdgeCases ||
		s.MentionsConstraints || s.MentionsCorrectness || s.MentionsTradeoffs ||
		s.MentionsTests || s.HasCode
}

// CodeWithoutPlan reports code presented with no accompanying approach
func (s Signals) CodeWithoutPlan() bool {
	return s.HasCode && !s.MentionsApproach
}

// STARThin reports a behavioral narrative missing three or more parts
func (s Signals) STARThin() bool {
	return len(s.MissingSTAR) >= 3
}
