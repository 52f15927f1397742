package assistant

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

const interviewerPersona = `You are a calm, experienced technical interviewer running a mock interview.
Keep every reply short: one or two sentences, at most one question.
Never reveal a full solution and never grade the candidate out loud.`

// replySystemPrompt returns the system prompt for a reply kind
func replySystemPrompt(kind ReplyKind) string {
	switch kind {
	case ReplyWarmup:
		return interviewerPersona + `
- Briefly acknowledge the candidate's introduction
- Then present the first question exactly as given`

	case ReplyNextQuestion:
		return interviewerPersona + `
- Close out the previous topic in a few words without judging it
- Then present the next question exactly as given`

	case ReplyFollowup:
		return interviewerPersona + `
- Ask ONE follow-up about the missing focus areas listed below
- Respect the hint style; never give more help than it allows`

	case ReplyClarify:
		return interviewerPersona + `
- The candidate asked a clarifying question
- Answer it plainly without hinting at the solution, then invite them to continue`

	case ReplyClosing:
		return interviewerPersona + `
- Thank the candidate and tell them the interview is over
- Do not summarize performance`

	default:
		return interviewerPersona
	}
}

const scoringSystemPrompt = `You score one interview answer on a 0-10 rubric.
Return a JSON object with numeric fields:
communication, problem_solving, correctness_reasoning, complexity, edge_cases.
For behavioral questions omit complexity and edge_cases.`

const evaluationSystemPrompt = `You write the final evaluation of a mock interview.
Return a JSON object with fields:
overall_score (0-100 integer), rubric (object of 0-10 numbers keyed by
communication, problem_solving, correctness_reasoning, complexity, edge_cases),
strengths, weaknesses, next_steps, patterns_observed, standout_moments (string arrays),
hire_signal (strong_hire|hire|lean_hire|lean_no_hire|no_hire), narrative (string).`

func buildScorePrompt(req ScoreRequest) string {
	var sb strings.Builder

	writeQuestion(&sb, req.Question)

	sb.WriteString("## Candidate Answer\n\n")
	sb.WriteString(req.Answer)
	sb.WriteString("\n\n")

	sb.WriteString("## Observed Signals\n")
	flags := req.Signals.Map()
	for _, k := range signalOrder {
		fmt.Fprintf(&sb, "- %s: %t\n", k, flags[k])
	}
	if len(req.Signals.MissingSTAR) > 0 {
		fmt.Fprintf(&sb, "- missing STAR parts: %s\n", strings.Join(req.Signals.MissingSTAR, ", "))
	}
	sb.WriteString("\n")

	writeHistory(&sb, req.History)
	return sb.String()
}

func buildReplyPrompt(req ReplyRequest) string {
	var sb strings.Builder

	writeQuestion(&sb, req.Question)
	if req.Answer != "" {
		sb.WriteString("## Candidate Said\n\n")
		sb.WriteString(req.Answer)
		sb.WriteString("\n\n")
	}
	if req.Directive != "" {
		sb.WriteString("## Interviewer Directive\n\n")
		sb.WriteString(req.Directive)
		sb.WriteString("\n\n")
	}
	writeHistory(&sb, req.History)
	return sb.String()
}

func buildEvaluationPrompt(req EvaluationRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Session\n\n- track: %s\n- questions asked: %d\n- difficulty reached: %s\n\n",
		req.Track, req.QuestionsAsked, req.DifficultyReached)

	sb.WriteString("## Turn-Level Averages\n")
	for _, d := range domain.Dimensions() {
		if avg, ok := req.Skill.Average(d); ok {
			fmt.Fprintf(&sb, "- %s: %.1f\n", d, avg)
		}
	}
	sb.WriteString("\n")

	if req.PatternSummary != "" {
		sb.WriteString("## Patterns\n\n")
		sb.WriteString(req.PatternSummary)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Transcript\n\n")
	for _, ex := range req.Transcript {
		fmt.Fprintf(&sb, "%s: %s\n", ex.Role, ex.Content)
	}
	return sb.String()
}

var signalOrder = []string{
	domain.SignalHasCode,
	domain.SignalMentionsApproach,
	domain.SignalMentionsComplexity,
	domain.SignalMentionsEdgeCases,
	domain.SignalMentionsConstraints,
	domain.SignalMentionsCorrectness,
	domain.SignalMentionsTradeoffs,
	domain.SignalMentionsTests,
}

func writeQuestion(sb *strings.Builder, q *domain.Question) {
	if q == nil {
		return
	}
	fmt.Fprintf(sb, "## Question (%s, %s)\n\n%s\n\n", q.Category, q.Difficulty, q.Prompt)
	if len(q.ExpectedTopics) > 0 {
		fmt.Fprintf(sb, "Expected topics: %s\n\n", strings.Join(q.ExpectedTopics, ", "))
	}
}

// maxHistory bounds how many prior exchanges reach the model
const maxHistory = 12

func writeHistory(sb *strings.Builder, history []Exchange) {
	if len(history) == 0 {
		return
	}
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	sb.WriteString("## Recent Conversation\n\n")
	for _, ex := range history {
		fmt.Fprintf(sb, "%s: %s\n", ex.Role, truncate(ex.Content, 600))
	}
	sb.WriteString("\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
