package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockProvider is a test implementation of Provider. errs are returned
// in order before response is served.
type mockProvider struct {
	name     string
	response *Response
	errs     []error
	calls    atomic.Int32
	closed   bool
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	n := int(m.calls.Add(1))
	if n <= len(m.errs) {
		return nil, m.errs[n-1]
	}
	return m.response, nil
}

func (m *mockProvider) Close() error {
	m.closed = true
	return nil
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}

	if err := r.SetDefault("test"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("SetDefault() before Register error = %v, want ErrProviderNotFound", err)
	}

	r.Register("test", p)
	if err := r.SetDefault("test"); err != nil {
		t.Fatalf("SetDefault() error = %v", err)
	}

	got, err := r.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if got != p {
		t.Error("Default() returned wrong provider")
	}
	if r.DefaultName() != "test" {
		t.Errorf("DefaultName() = %q, want test", r.DefaultName())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register("test", &mockProvider{name: "test"})

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"existing provider", "test", false},
		{"non-existing provider", "nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Get(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("Get() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_Default(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Default(); !errors.Is(err, ErrNoDefaultProvider) {
		t.Errorf("Default() on empty registry error = %v, want ErrNoDefaultProvider", err)
	}

	ollama := &mockProvider{name: "ollama"}
	claude := &mockProvider{name: "claude"}
	r.Register("ollama", ollama)
	r.Register("claude", claude)

	// unset default falls back to the first sorted name
	got, err := r.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if got != claude {
		t.Errorf("Default() = %s, want claude", got.Name())
	}

	r.defaultP = "auto"
	if got, _ := r.Default(); got != claude {
		t.Errorf("Default() with auto = %s, want claude", got.Name())
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &mockProvider{name: "openai"})
	r.Register("claude", &mockProvider{name: "claude"})
	r.Register("ollama", &mockProvider{name: "ollama"})

	got := r.List()
	want := []string{"claude", "ollama", "openai"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{name: "test"}
	r.Register("test", p)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !p.closed {
		t.Error("Close() did not close provider")
	}
}

func TestRegistry_Concurrency(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register("test", &mockProvider{name: "test"})
		}()
		go func() {
			defer wg.Done()
			_ = r.List()
			_, _ = r.Default()
		}()
	}
	wg.Wait()

	if _, err := r.Get("test"); err != nil {
		t.Errorf("Get() after concurrent registers error = %v", err)
	}
}

func TestStatusError_Retryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		err := &StatusError{Provider: "test", StatusCode: tt.code}
		if got := err.Retryable(); got != tt.want {
			t.Errorf("StatusError{%d}.Retryable() = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"service unavailable", &StatusError{StatusCode: 503}, true},
		{"wrapped too many requests", errors.Join(errors.New("ctx"), &StatusError{StatusCode: 429}), true},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"empty response", ErrEmptyResponse, true},
		{"canceled", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h := NewHealth()
	if !h.Healthy() {
		t.Error("empty tracker should be healthy")
	}

	h.ReportFailure("claude", errors.New("timeout"))
	h.ReportFailure("claude", errors.New("timeout"))
	h.ReportSuccess("ollama")

	if h.Healthy() {
		t.Error("Healthy() = true after failure")
	}

	snap := h.Snapshot()
	if len(snap) != 2 || snap[0].Provider != "claude" || snap[1].Provider != "ollama" {
		t.Fatalf("Snapshot() = %+v, want claude then ollama", snap)
	}
	if snap[0].ConsecutiveFailures != 2 || snap[0].LastError != "timeout" {
		t.Errorf("claude health = %+v", snap[0])
	}

	h.ReportSuccess("claude")
	if !h.Healthy() {
		t.Error("success should reset health")
	}
	if got := h.Snapshot()[0]; got.ConsecutiveFailures != 0 || got.LastError != "" {
		t.Errorf("claude health after success = %+v", got)
	}
}

func fastRetryConfig() ResilientConfig {
	return ResilientConfig{
		EnableRetry:  true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestResilientProvider_Generate_NoPatterns(t *testing.T) {
	p := &mockProvider{name: "test", response: &Response{Content: "direct"}}
	rp := NewResilientProvider(p, ResilientConfig{})

	resp, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "direct" {
		t.Errorf("Content = %v, want direct", resp.Content)
	}
}

func TestResilientProvider_RetriesTransient(t *testing.T) {
	p := &mockProvider{
		name:     "test",
		response: &Response{Content: "recovered"},
		errs: []error{
			&StatusError{Provider: "test", StatusCode: 503},
			&StatusError{Provider: "test", StatusCode: 429},
		},
	}
	rp := NewResilientProvider(p, fastRetryConfig())

	resp, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("Content = %v, want recovered", resp.Content)
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestResilientProvider_DoesNotRetryPermanent(t *testing.T) {
	p := &mockProvider{
		name:     "test",
		response: &Response{Content: "unreachable"},
		errs:     []error{&StatusError{Provider: "test", StatusCode: 400}},
	}
	rp := NewResilientProvider(p, fastRetryConfig())

	if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
		t.Fatal("Generate() expected error for 400")
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestResilientProvider_ReportsHealth(t *testing.T) {
	h := NewHealth()
	failing := &mockProvider{
		name:     "flaky",
		errs:     []error{&StatusError{Provider: "flaky", StatusCode: 400}},
		response: &Response{Content: "ok"},
	}
	cfg := ResilientConfig{Health: h}
	rp := NewResilientProvider(failing, cfg)

	if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
		t.Fatal("expected first call to fail")
	}
	if h.Healthy() {
		t.Error("failure was not reported")
	}

	if _, err := rp.Generate(context.Background(), &Request{}); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if !h.Healthy() {
		t.Error("success was not reported")
	}
}

func TestResilientProvider_CircuitOpensAfterFailures(t *testing.T) {
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = &StatusError{Provider: "down", StatusCode: 500}
	}
	p := &mockProvider{name: "down", errs: errs}
	rp := NewResilientProvider(p, ResilientConfig{EnableCircuitBreaker: true})

	for i := 0; i < 5; i++ {
		if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("calls reaching provider = %d, want 3 before the breaker opens", got)
	}
}

func TestResilientProvider_Defaults(t *testing.T) {
	p := &mockProvider{name: "test", response: &Response{Content: "ok"}}
	rp := NewResilientProvider(p, ResilientConfig{
		EnableBulkhead:  true,
		EnableRateLimit: true,
	})
	defer rp.Close()

	if rp.bulkhead == nil {
		t.Error("bulkhead should be created with defaults")
	}
	if rp.rateLimit == nil {
		t.Error("rateLimit should be created with defaults")
	}
	if rp.Name() != "test" {
		t.Errorf("Name() = %s, want test", rp.Name())
	}

	resp, err := rp.Generate(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %v, want ok", resp.Content)
	}
}

func TestDefaultResilientConfig(t *testing.T) {
	cfg := DefaultResilientConfig()
	if !cfg.EnableCircuitBreaker || !cfg.EnableRetry || !cfg.EnableBulkhead || !cfg.EnableRateLimit {
		t.Errorf("all patterns should be enabled: %+v", cfg)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.MaxConcurrent)
	}
}
