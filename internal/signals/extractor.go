package signals

import (
	"regexp"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// clarificationMaxTokens bounds how long a turn can be and still count as a
// request for clarification; longer turns are scored as answers
const clarificationMaxTokens = 20

// Extractor derives lexical signals from candidate text.
// It is pure: no external calls and no shared mutable state.
type Extractor struct {
	families []Family
}

// NewExtractor creates an extractor with the default marker families
func NewExtractor() *Extractor {
	return &Extractor{families: defaultFamilies()}
}

// Extract computes the signals for one candidate turn
func (e *Extractor) Extract(text string, category domain.Category, q *domain.Question) domain.Signals {
	var sig domain.Signals
	firstHit := make(map[string]int, len(e.families))

	for _, f := range e.families {
		loc := f.Regex.FindStringIndex(text)
		if loc == nil {
			continue
		}
		firstHit[f.Key] = loc[0]
		switch f.Key {
		case domain.SignalHasCode:
			sig.HasCode = true
		case domain.SignalMentionsApproach:
			sig.MentionsApproach = true
		case domain.SignalMentionsComplexity:
			sig.MentionsComplexity = true
		case domain.SignalMentionsEdgeCases:
			sig.MentionsEdgeCases = true
		case domain.SignalMentionsConstraints:
			sig.MentionsConstraints = true
		case domain.SignalMentionsCorrectness:
			sig.MentionsCorrectness = true
		case domain.SignalMentionsTradeoffs:
			sig.MentionsTradeoffs = true
		case domain.SignalMentionsTests:
			sig.MentionsTests = true
		}
	}

	sig.TokenCount = CountTokens(text)
	sig.ApproachBeforeCode = sig.HasCode && sig.MentionsApproach &&
		firstHit[domain.SignalMentionsApproach] < firstHit[domain.SignalHasCode]
	sig.Clarification = isClarification(text, sig)

	if q != nil {
		sig.ExpectedTopicHits = countTopicHits(text, q.ExpectedTopics)
	}
	if category.IsBehavioral() {
		sig.MissingSTAR = MissingSTAR(text)
	}

	return sig
}

// MissingSTAR returns the narrative parts (situation, task, action, result)
// with no marker in text, in order
func MissingSTAR(text string) []string {
	var missing []string
	for _, part := range domain.STARParts() {
		if !starMarkers[part].MatchString(text) {
			missing = append(missing, part)
		}
	}
	return missing
}

// CountTokens returns the number of word-like tokens in text
func CountTokens(text string) int {
	return len(tokenRegex.FindAllStringIndex(text, -1))
}

func isClarification(text string, sig domain.Signals) bool {
	if sig.TokenCount > clarificationMaxTokens || sig.HasCode {
		return false
	}
	return clarificationRegex.MatchString(text) ||
		strings.HasSuffix(strings.TrimSpace(text), "?")
}

func countTopicHits(text string, topics []string) int {
	hits := 0
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(topic) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}
