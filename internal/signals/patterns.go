package signals

import (
	"regexp"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// Family is a named group of lexical markers for one signal
type Family struct {
	Key   string
	Regex *regexp.Regexp
}

func family(key, expr string) Family {
	return Family{Key: key, Regex: regexp.MustCompile(`(?i)` + expr)}
}

func defaultFamilies() []Family {
	return []Family{
		family(domain.SignalHasCode,
			"(?s:```.*?```)"+
				`|\b(?:def|func|function|class|const|let|var)\s+[a-z_][a-z0-9_]*\s*[({:=<]`+
				`|\b(?:for|while|if)\s*\([^)\n]*\)\s*\{`+
				`|\b[a-z_][a-z0-9_]*\s*\([^)\n]*\)\s*\{`+
				`|\b[a-z_][a-z0-9_]*\s*(?:\+=|-=|==|!=|:=)`+
				`|\b[a-z_][a-z0-9_]*\[[a-z0-9_+\- ]+\]`),
		family(domain.SignalMentionsApproach,
			`\b(?:my approach|approach (?:is|would be)|i would|i'd|i will|i'll|first(?:ly)?,?|then|next|the idea is|plan is|strategy|step \d|brute[- ]force|intuition|we can|i'm going to|algorithm)\b`),
		family(domain.SignalMentionsComplexity,
			`\bO\s*\(\s*[^)]{1,20}\)|\b(?:time complexity|space complexity|big[- ]o|linear time|constant time|logarithmic|quadratic|amortized|complexity)\b`),
		family(domain.SignalMentionsEdgeCases,
			`\b(?:edge cases?|corner cases?|empty (?:input|array|list|string)|null|nil|none|zero|negative|overflow|duplicates?|boundary|single element|off[- ]by[- ]one)\b`),
		family(domain.SignalMentionsConstraints,
			`\b(?:constraints?|assum(?:e|ing|ption)s?|input size|up to \d|at most|at least|bounded|limits?|requirements?|throughput|latency|qps|users? per|millions?|billions?|scal(?:e|es|ing|able|ability)|shard(?:s|ing)?|partition(?:s|ing)?|replicas?|horizontal(?:ly)?)\b`),
		family(domain.SignalMentionsCorrectness,
			`\b(?:correct(?:ness)?|invariant|proof|prove|guarantees?|verify|valid(?:ate|ity)?|walk(?:ing)? through|dry[- ]run|trace|works because)\b`),
		family(domain.SignalMentionsTradeoffs,
			`\b(?:trade[- ]?offs?|pros and cons|on the other hand|alternatively|instead of|at the cost of|downside|upside|versus|vs\.?|compared to|cheaper|more expensive)\b`),
		family(domain.SignalMentionsTests,
			`\b(?:tests?|testing|unit tests?|test cases?|assert(?:ion)?s?|example input|sample input|expected output)\b`),
	}
}

// clarification markers: the candidate is asking rather than answering
var clarificationRegex = regexp.MustCompile(`(?i)^\s*(?:(?:can|could) you (?:clarify|repeat|explain|rephrase)|what do you mean|do you mean|sorry,? (?:what|could)|i(?:'m| am) not sure (?:what|i understand)|is it ok(?:ay)? (?:if|to)|should i assume|are we allowed|does the input)\b`)

// STAR narrative markers
var starMarkers = map[string]*regexp.Regexp{
	domain.FocusSituation: regexp.MustCompile(`(?i)\b(?:situation|context|background|at my (?:last|previous) (?:job|company|role)|when i was|we were|there was a time|our team)\b`),
	domain.FocusTask:      regexp.MustCompile(`(?i)\b(?:task|goal|responsib(?:le|ility)|my role|i was asked|needed to|had to|objective|challenge was)\b`),
	domain.FocusAction:    regexp.MustCompile(`(?i)\b(?:i (?:decided|implemented|built|led|organized|proposed|talked|worked|wrote|started|created|set up|reached out)|my action|so i|i took)\b`),
	domain.FocusResult:    regexp.MustCompile(`(?i)\b(?:result(?:ed)?|outcome|in the end|eventually|as a result|reduced|increased|improved|saved|shipped|launched|learned|impact)\b|\d+\s?%`),
}

// thinFloors is the minimum token count per category below which an answer is thin
var thinFloors = map[domain.Category]int{
	domain.CategoryCoding:       25,
	domain.CategoryConceptual:   40,
	domain.CategorySystemDesign: 35,
	domain.CategoryBehavioral:   30,
}

// ThinFloor returns the token floor for a category
func ThinFloor(c domain.Category) int {
	if f, ok := thinFloors[c]; ok {
		return f
	}
	return thinFloors[domain.CategoryCoding]
}

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_']+`)
