package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"set", context.WithValue(context.Background(), CorrelationIDKey, "req-1"), "req-1"},
		{"missing", context.Background(), ""},
		{"wrong type", context.WithValue(context.Background(), CorrelationIDKey, 42), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCorrelationID(tt.ctx); got != tt.want {
				t.Errorf("GetCorrelationID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	t.Run("generates uuid", func(t *testing.T) {
		var captured string
		h := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetCorrelationID(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

		if _, err := uuid.Parse(captured); err != nil {
			t.Errorf("generated id %q is not a uuid: %v", captured, err)
		}
		if rec.Header().Get(CorrelationIDHeader) != captured {
			t.Error("response header should echo the generated id")
		}
	})

	t.Run("propagates caller id", func(t *testing.T) {
		var captured string
		h := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetCorrelationID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		req.Header.Set(CorrelationIDHeader, "caller-id")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if captured != "caller-id" || rec.Header().Get(CorrelationIDHeader) != "caller-id" {
			t.Errorf("captured %q, header %q", captured, rec.Header().Get(CorrelationIDHeader))
		}
	})
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelDebug},
		{http.StatusCreated, slog.LevelDebug},
		{http.StatusBadRequest, slog.LevelWarn},
		{http.StatusConflict, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
		{http.StatusGatewayTimeout, slog.LevelError},
	}

	for _, tt := range tests {
		if got := requestLevel(tt.status); got != tt.want {
			t.Errorf("requestLevel(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		write     bool
		wantLevel string
	}{
		{"created", http.StatusCreated, true, "DEBUG"},
		{"not found", http.StatusNotFound, true, "WARN"},
		{"server error", http.StatusInternalServerError, true, "ERROR"},
		{"implicit ok", http.StatusOK, false, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := loggingMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.write {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte("body"))
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if rec.Body.String() != "body" {
				t.Errorf("body = %q", rec.Body.String())
			}

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log entry: %v (%q)", err, buf.String())
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != float64(tt.status) || entry["path"] != "/v1/sessions" {
				t.Errorf("entry = %v", entry)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("passes through", func(t *testing.T) {
		h := recoveryMiddleware(discardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("got %d %q", rec.Code, rec.Body.String())
		}
	})

	for _, v := range []any{"boom", nil} {
		h := recoveryMiddleware(discardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(v)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		// panic(nil) surfaces as *runtime.PanicNilError
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("panic(%v): status = %d, want 500", v, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "internal server error") {
			t.Errorf("panic(%v): body = %q", v, rec.Body.String())
		}
	}
}

func TestChain(t *testing.T) {
	var captured string
	h := chain(discardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetCorrelationID(r.Context())
		panic("engine exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/x/turns", nil))

	if captured == "" {
		t.Error("correlation id should be set before the handler runs")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get(CorrelationIDHeader) != captured {
		t.Error("response should carry the correlation id")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
}
