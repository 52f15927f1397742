package llm

import (
	"sort"
	"sync"
	"time"
)

// HealthReporter receives the outcome of backend calls
type HealthReporter interface {
	ReportSuccess(provider string)
	ReportFailure(provider string, err error)
}

// ProviderHealth is a point-in-time view of one backend
type ProviderHealth struct {
	Provider            string    `json:"provider"`
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// Health tracks backend availability. A success resets the failure
// count; any failure marks the provider unhealthy until the next success.
type Health struct {
	mu    sync.RWMutex
	state map[string]*ProviderHealth
	now   func() time.Time
}

// NewHealth creates an empty health tracker
func NewHealth() *Health {
	return &Health{
		state: make(map[string]*ProviderHealth),
		now:   time.Now,
	}
}

func (h *Health) entry(provider string) *ProviderHealth {
	e, ok := h.state[provider]
	if !ok {
		e = &ProviderHealth{Provider: provider, Healthy: true}
		h.state[provider] = e
	}
	return e
}

// ReportSuccess implements HealthReporter
func (h *Health) ReportSuccess(provider string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.entry(provider)
	e.Healthy = true
	e.ConsecutiveFailures = 0
	e.LastError = ""
	e.LastSuccess = h.now()
}

// ReportFailure implements HealthReporter
func (h *Health) ReportFailure(provider string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.entry(provider)
	e.Healthy = false
	e.ConsecutiveFailures++
	if err != nil {
		e.LastError = err.Error()
	}
	e.LastFailure = h.now()
}

// Healthy reports whether every known provider is healthy
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, e := range h.state {
		if !e.Healthy {
			return false
		}
	}
	return true
}

// Snapshot returns the tracked providers sorted by name
func (h *Health) Snapshot() []ProviderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(h.state))
	for _, e := range h.state {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

var _ HealthReporter = (*Health)(nil)
