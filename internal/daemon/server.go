// Package daemon serves the interview engine over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/app"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

// Version is reported by /v1/status; set at build time
var Version = "dev"

// maxBodyBytes bounds request bodies; answers are plain text
const maxBodyBytes = 1 << 20

// Server represents the rehearse daemon HTTP server
type Server struct {
	app    *app.App
	cfg    *config.LocalConfig
	server *http.Server
	router  *http.ServeMux
	limiter *rateLimiter
	logger  *slog.Logger
}

// NewServer creates a daemon server over a wired engine
func NewServer(a *app.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		app:    a,
		cfg:    a.Config,
		router: http.NewServeMux(),
		logger: logger,
	}
	if n := s.cfg.Daemon.TurnsPerMinute; n > 0 {
		s.limiter = newRateLimiter(n, time.Minute, n)
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Daemon.Bind, s.cfg.Daemon.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // turns wait on the model
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	s.router.HandleFunc("POST /v1/sessions", s.limited(s.handleCreateSession))
	s.router.HandleFunc("GET /v1/sessions", s.handleListSessions)
	s.router.HandleFunc("GET /v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("POST /v1/sessions/{id}/turns", s.limited(s.handleTurn))
	s.router.HandleFunc("POST /v1/sessions/{id}/finalize", s.limited(s.handleFinalize))
	s.router.HandleFunc("GET /v1/sessions/{id}/evaluation", s.handleGetEvaluation)
}

func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return rateLimitMiddleware(s.limiter, s.logger, h)
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return chain(s.logger, s.router)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting rehearse daemon",
		"addr", s.server.Addr,
		"llm_providers", s.app.Registry.List(),
		"storage", s.cfg.Storage.Driver,
		"questions", s.app.QuestionCount,
	)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight turns and
// releases the engine
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")
	err := s.server.Shutdown(ctx)
	if cerr := s.app.Close(); cerr != nil {
		s.logger.Warn("failed to release resources", "error", cerr)
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !s.app.Health.Healthy() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"providers": s.app.Health.Snapshot(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "running",
		"version":       Version,
		"llm_providers": s.app.Registry.List(),
		"storage":       s.cfg.Storage.Driver,
		"queue":         s.cfg.Queue.Enabled,
		"questions":     s.app.QuestionCount,
	})
}

// createSessionRequest overrides the configured session defaults. Pointer
// fields distinguish "unset" from zero.
type createSessionRequest struct {
	UserID           string   `json:"user_id"`
	Track            string   `json:"track,omitempty"`
	Company          string   `json:"company,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"`
	StartDifficulty  string   `json:"start_difficulty,omitempty"`
	Adaptive         *bool    `json:"adaptive,omitempty"`
	BehavioralTarget *int     `json:"behavioral_target,omitempty"`
	MaxQuestions     *int     `json:"max_questions,omitempty"`
	MaxFollowups     *int     `json:"max_followups,omitempty"`
	FocusTags        []string `json:"focus_tags,omitempty"`
}

// sessionConfig merges req over the configured defaults
func (req createSessionRequest) sessionConfig(defaults config.InterviewConfig) (session.Config, error) {
	ic := defaults
	if req.Track != "" {
		ic.Track = req.Track
	}
	if req.Company != "" {
		ic.Company = req.Company
	}
	if req.Difficulty != "" {
		ic.Difficulty = req.Difficulty
	}
	if req.StartDifficulty != "" {
		ic.StartDifficulty = req.StartDifficulty
	}
	if req.Adaptive != nil {
		ic.Adaptive = *req.Adaptive
	}
	if req.BehavioralTarget != nil {
		ic.BehavioralTarget = *req.BehavioralTarget
	}
	if req.MaxQuestions != nil {
		ic.MaxQuestions = *req.MaxQuestions
	}
	if req.MaxFollowups != nil {
		ic.MaxFollowups = *req.MaxFollowups
	}

	cfg, err := ic.SessionDefaults()
	if err != nil {
		return cfg, err
	}
	cfg.FocusTags = req.FocusTags
	return cfg, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	cfg, err := req.sessionConfig(s.cfg.Interview)
	if err != nil {
		s.writeEngineError(w, r, "invalid session config", err)
		return
	}

	res, err := s.app.Controller.Start(r.Context(), req.UserID, cfg)
	if err != nil {
		s.writeEngineError(w, r, "failed to start session", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.app.Sessions.List(r.Context())
	if err != nil {
		s.writeEngineError(w, r, "failed to list sessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Controller.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, r, "failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := s.app.Controller.Answer(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		s.writeEngineError(w, r, "turn failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Controller.Finalize(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, r, "finalize failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Controller.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, r, "failed to load session", err)
		return
	}
	if sess.Evaluation == nil {
		writeError(w, http.StatusConflict, "evaluation not available yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, sess.Evaluation)
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case interview.IsRetryable(err), errors.Is(err, interview.ErrSessionDone):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidConfig),
		errors.Is(err, interview.ErrEmptyAnswer),
		errors.Is(err, domain.ErrInvalidDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(message, "correlation_id", GetCorrelationID(r.Context()), "error", err)
	}
	if interview.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, message, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":     message,
		"status":    status,
		"retryable": err != nil && interview.IsRetryable(err),
	}
	if err != nil {
		response["details"] = err.Error()
	}
	writeJSON(w, status, response)
}
