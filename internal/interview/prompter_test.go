package interview

import (
	"strings"
	"testing"

	"github.com/felixgeelhaar/rehearse/internal/assistant"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/followup"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

func TestPrompter_FollowupDirective(t *testing.T) {
	p := NewPrompter()

	tests := []struct {
		name     string
		decision followup.Decision
		level    domain.HintLevel
		want     []string
	}{
		{
			name:     "probe",
			decision: followup.Decision{Intent: followup.IntentProbe, MissingFocus: []string{domain.FocusApproach}},
			level:    domain.HintNone,
			want:     []string{"elaborate", "the overall approach", "no hints"},
		},
		{
			name: "deepen with hint",
			decision: followup.Decision{
				Intent:       followup.IntentDeepen,
				MissingFocus: []string{domain.FocusEdgeCases, "custom_focus"},
			},
			level: domain.HintScaffold,
			want:  []string{"gaps", "edge cases; custom focus", "level 3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.FollowupDirective(tt.decision, tt.level, domain.PatternState{})
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("directive %q missing %q", got, w)
				}
			}
		})
	}
}

func TestPrompter_Canned(t *testing.T) {
	p := NewPrompter()
	q := &domain.Question{Prompt: "Reverse a linked list."}

	tests := []struct {
		name string
		kind assistant.ReplyKind
		d    *followup.Decision
		want string
	}{
		{"warmup", assistant.ReplyWarmup, nil, "Reverse a linked list."},
		{"next", assistant.ReplyNextQuestion, nil, "Reverse a linked list."},
		{"followup generic", assistant.ReplyFollowup, nil, "expand"},
		{"followup probe", assistant.ReplyFollowup, &followup.Decision{Intent: followup.IntentProbe, MissingFocus: []string{domain.FocusComplexity}}, "time and space complexity"},
		{"followup deepen", assistant.ReplyFollowup, &followup.Decision{Intent: followup.IntentDeepen, MissingFocus: []string{domain.FocusTradeoffs}}, "trade-offs"},
		{"clarify", assistant.ReplyClarify, nil, "assumption"},
		{"closing", assistant.ReplyClosing, nil, "feedback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Canned(tt.kind, q, tt.d); !strings.Contains(got, tt.want) {
				t.Errorf("Canned() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestPrompter_Opening(t *testing.T) {
	p := NewPrompter()
	got := p.Opening(session.Config{Track: "backend", Company: "Acme"})
	if !strings.Contains(got, "backend") || !strings.Contains(got, "for Acme") {
		t.Errorf("Opening() = %q", got)
	}
}

func TestTurnLocks(t *testing.T) {
	l := newTurnLocks()
	if !l.TryLock("a") {
		t.Fatal("TryLock(a) on free lock failed")
	}
	if l.TryLock("a") {
		t.Error("TryLock(a) succeeded while held")
	}
	if !l.TryLock("b") {
		t.Error("TryLock(b) blocked by a")
	}
	l.Unlock("a")
	if !l.TryLock("a") {
		t.Error("TryLock(a) after Unlock failed")
	}
	if len(l.held) != 2 {
		t.Errorf("held = %d entries, want 2", len(l.held))
	}
}
