package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/felixgeelhaar/rehearse/internal/app"
	"github.com/felixgeelhaar/rehearse/internal/assistant"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/llm"
	"github.com/felixgeelhaar/rehearse/internal/questionbank"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

// stubAssistant scores every answer 8 and always evaluates successfully
type stubAssistant struct {
	mu       sync.Mutex
	replyErr error
}

func (a *stubAssistant) ScoreTurn(context.Context, assistant.ScoreRequest) (domain.RubricScores, error) {
	out := make(domain.RubricScores)
	for _, d := range domain.Dimensions() {
		out[d] = 8
	}
	return out, nil
}

func (a *stubAssistant) GenerateReply(_ context.Context, req assistant.ReplyRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.replyErr != nil {
		return "", a.replyErr
	}
	return fmt.Sprintf("interviewer reply (%s)", req.Kind), nil
}

func (a *stubAssistant) FinalizeEvaluation(context.Context, assistant.EvaluationRequest) (*domain.Evaluation, error) {
	return &domain.Evaluation{
		OverallScore: 82,
		Rubric:       map[domain.Dimension]float64{domain.Dimensions()[0]: 8},
		Narrative:    "Good session.",
	}, nil
}

func testQuestions() []domain.Question {
	var out []domain.Question
	for i := range 3 {
		out = append(out, domain.Question{
			ID:              fmt.Sprintf("q%d", i),
			Track:           "general",
			Difficulty:      domain.DifficultyMedium,
			Category:        domain.CategoryCoding,
			Prompt:          "Find duplicates in an array.",
			Tags:            []string{"arrays"},
			EvaluationFocus: []string{domain.FocusApproach},
		})
	}
	return out
}

// setupTestServer creates a server over in-memory storage and a stub assistant
func setupTestServer(t *testing.T) (*Server, *stubAssistant) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultLocalConfig()
	cfg.Daemon.Port = 0

	asst := &stubAssistant{}
	health := llm.NewHealth()
	store := session.NewMemoryStore()
	questions := questionbank.NewMemoryRepository(testQuestions())

	a := &app.App{
		Config:        cfg,
		Registry:      llm.NewRegistry(),
		Health:        health,
		Sessions:      store,
		Questions:     questions,
		QuestionCount: 3,
		Controller: interview.NewController(store, questions, asst,
			interview.WithHealth(health),
			interview.WithLogger(logger),
		),
	}
	return NewServer(a, logger), asst
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createSession(t *testing.T, s *Server, body any) interview.Result {
	t.Helper()
	w := do(t, s, http.MethodPost, "/v1/sessions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", w.Code, w.Body.String())
	}
	return decode[interview.Result](t, w)
}

func TestHealthEndpoint(t *testing.T) {
	server, asst := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", resp["status"])
	}

	// a failed reply marks the assistant unhealthy
	asst.replyErr = errors.New("model unavailable")
	res := createSession(t, server, map[string]any{"user_id": "u1"})
	if w := do(t, server, http.MethodPost, "/v1/sessions/"+res.Session.ID+"/turns",
		map[string]string{"text": "Hi, I build payment systems in Go."}); w.Code != http.StatusOK {
		t.Fatalf("turn status = %d", w.Code)
	}

	w = do(t, server, http.MethodGet, "/v1/health", nil)
	if resp := decode[map[string]any](t, w); resp["status"] != "degraded" {
		t.Errorf("expected status 'degraded', got %v", resp["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	resp := decode[map[string]any](t, w)
	if resp["version"] != Version {
		t.Errorf("version = %v, want %s", resp["version"], Version)
	}
	if resp["questions"] != float64(3) {
		t.Errorf("questions = %v, want 3", resp["questions"])
	}
	if resp["storage"] != config.DriverFile {
		t.Errorf("storage = %v", resp["storage"])
	}
}

func TestSessionLifecycle(t *testing.T) {
	server, _ := setupTestServer(t)

	res := createSession(t, server, map[string]any{
		"user_id":           "u1",
		"max_questions":     1,
		"max_followups":     0,
		"behavioral_target": 0,
	})
	if res.Session.Stage != session.StageIntro {
		t.Fatalf("stage = %s, want intro", res.Session.Stage)
	}
	if res.Reply == "" {
		t.Error("opening reply should not be empty")
	}
	id := res.Session.ID

	w := do(t, server, http.MethodPost, "/v1/sessions/"+id+"/turns", map[string]string{"text": "Hi, I build payment systems in Go."})
	if w.Code != http.StatusOK {
		t.Fatalf("intro turn status = %d, body %s", w.Code, w.Body.String())
	}
	turn := decode[interview.Result](t, w)
	if turn.Question == nil || turn.Session.Stage != session.StageQuestion {
		t.Fatalf("expected a question, got stage %s", turn.Session.Stage)
	}

	// evaluation before completion is not available
	if w := do(t, server, http.MethodGet, "/v1/sessions/"+id+"/evaluation", nil); w.Code != http.StatusConflict {
		t.Errorf("early evaluation status = %d, want 409", w.Code)
	}

	w = do(t, server, http.MethodPost, "/v1/sessions/"+id+"/turns", map[string]string{
		"text": "My approach is to use a hash set, which is O(n) time complexity; for edge cases an empty array returns nothing.",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body %s", w.Code, w.Body.String())
	}
	done := decode[interview.Result](t, w)
	if done.Session.Stage != session.StageDone {
		t.Fatalf("stage = %s, want done", done.Session.Stage)
	}

	w = do(t, server, http.MethodGet, "/v1/sessions/"+id+"/evaluation", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("evaluation status = %d", w.Code)
	}
	eval := decode[domain.Evaluation](t, w)
	if eval.OverallScore != 82 || eval.HireSignal == "" {
		t.Errorf("evaluation = %+v", eval)
	}

	// further turns are rejected
	w = do(t, server, http.MethodPost, "/v1/sessions/"+id+"/turns", map[string]string{"text": "one more thing"})
	if w.Code != http.StatusConflict {
		t.Errorf("turn after done status = %d, want 409", w.Code)
	}

	w = do(t, server, http.MethodGet, "/v1/sessions/"+id, nil)
	if got := decode[session.Session](t, w); got.Stage != session.StageDone {
		t.Errorf("GET session stage = %s", got.Stage)
	}

	w = do(t, server, http.MethodGet, "/v1/sessions", nil)
	if list := decode[map[string][]string](t, w); len(list["sessions"]) != 1 || list["sessions"][0] != id {
		t.Errorf("list = %v", list)
	}
}

func TestFinalizeEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	res := createSession(t, server, map[string]any{"user_id": "u1"})

	w := do(t, server, http.MethodPost, "/v1/sessions/"+res.Session.ID+"/finalize", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("finalize status = %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[interview.Result](t, w); got.Session.Stage != session.StageDone || got.Session.Evaluation == nil {
		t.Errorf("finalize result stage = %s", got.Session.Stage)
	}
}

func TestErrorMapping(t *testing.T) {
	server, _ := setupTestServer(t)
	res := createSession(t, server, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown session", http.MethodGet, "/v1/sessions/missing", nil, http.StatusNotFound},
		{"turn on unknown session", http.MethodPost, "/v1/sessions/missing/turns", map[string]string{"text": "hi"}, http.StatusNotFound},
		{"empty answer", http.MethodPost, "/v1/sessions/" + res.Session.ID + "/turns", map[string]string{"text": "   "}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/sessions/" + res.Session.ID + "/turns", map[string]string{"answer": "hi"}, http.StatusBadRequest},
		{"bad difficulty", http.MethodPost, "/v1/sessions", map[string]any{"difficulty": "brutal"}, http.StatusBadRequest},
		{"bad budget", http.MethodPost, "/v1/sessions", map[string]any{"max_questions": 0}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			resp := decode[map[string]any](t, w)
			if resp["error"] == nil {
				t.Error("error body should carry a message")
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("save session: %w", session.ErrConflict), http.StatusConflict},
		{interview.ErrTurnInProgress, http.StatusConflict},
		{interview.ErrSessionDone, http.StatusConflict},
		{interview.ErrEmptyAnswer, http.StatusBadRequest},
		{fmt.Errorf("%w: track is required", session.ErrInvalidConfig), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteEngineError_RetryAfter(t *testing.T) {
	server, _ := setupTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/x/turns", nil)

	w := httptest.NewRecorder()
	server.writeEngineError(w, req, "turn failed", interview.ErrTurnInProgress)
	if w.Header().Get("Retry-After") != "1" {
		t.Error("retryable errors should set Retry-After")
	}
	if resp := decode[map[string]any](t, w); resp["retryable"] != true {
		t.Errorf("retryable = %v, want true", resp["retryable"])
	}

	w = httptest.NewRecorder()
	server.writeEngineError(w, req, "turn failed", interview.ErrSessionDone)
	if w.Header().Get("Retry-After") != "" {
		t.Error("terminal errors should not set Retry-After")
	}
}

func TestCreateSessionRequest_SessionConfig(t *testing.T) {
	defaults := config.DefaultLocalConfig().Interview
	adaptive := true
	maxQ := 3

	cfg, err := createSessionRequest{
		Track:        "backend",
		Difficulty:   "hard",
		Adaptive:     &adaptive,
		MaxQuestions: &maxQ,
		FocusTags:    []string{"caching"},
	}.sessionConfig(defaults)
	if err != nil {
		t.Fatalf("sessionConfig() error = %v", err)
	}
	if cfg.Track != "backend" || cfg.Difficulty != domain.DifficultyHard || !cfg.Adaptive || cfg.MaxQuestions != 3 {
		t.Errorf("sessionConfig() = %+v", cfg)
	}
	if cfg.MaxFollowups != defaults.MaxFollowups {
		t.Errorf("MaxFollowups = %d, default should apply", cfg.MaxFollowups)
	}
	if len(cfg.FocusTags) != 1 {
		t.Errorf("FocusTags = %v", cfg.FocusTags)
	}
}
