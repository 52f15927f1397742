package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	events []interview.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e interview.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func offlineConfig(t *testing.T, driver string) *config.LocalConfig {
	t.Helper()
	cfg := config.DefaultLocalConfig()
	for _, p := range cfg.LLM.Providers {
		p.Enabled = false
	}
	cfg.Storage.Driver = driver
	cfg.Storage.Path = t.TempDir()
	if driver == config.DriverSQLite {
		cfg.Storage.Path = filepath.Join(cfg.Storage.Path, "rehearse.db")
	}
	return cfg
}

func TestBuild_Drivers(t *testing.T) {
	for _, driver := range []string{config.DriverFile, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			rec := &recorder{}
			a, err := Build(context.Background(), offlineConfig(t, driver), Options{Logger: discard(), Events: rec})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			defer a.Close()

			if a.QuestionCount == 0 {
				t.Fatal("built-in packs should load")
			}
			if len(a.Registry.List()) != 0 {
				t.Errorf("providers = %v, want none", a.Registry.List())
			}

			ctx := context.Background()
			res, err := a.Controller.Start(ctx, "u1", session.DefaultConfig())
			if err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if res.Reply == "" {
				t.Error("opening reply should not be empty")
			}

			// without providers the reply falls back to canned text
			res, err = a.Controller.Answer(ctx, res.Session.ID, "Hi, I am a backend engineer with five years of experience.")
			if err != nil {
				t.Fatalf("Answer() error = %v", err)
			}
			if !res.Degraded {
				t.Error("turn without providers should be degraded")
			}
			if res.Session.Stage != session.StageQuestion {
				t.Errorf("stage = %s, want question", res.Session.Stage)
			}
			if a.Health.Healthy() {
				t.Error("health should report the assistant failure")
			}

			loaded, err := a.Sessions.Load(ctx, res.Session.ID)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded.QuestionsAsked != 1 {
				t.Errorf("QuestionsAsked = %d, want 1", loaded.QuestionsAsked)
			}

			rec.mu.Lock()
			n := len(rec.events)
			rec.mu.Unlock()
			if n < 2 {
				t.Errorf("events delivered = %d, want started and question events", n)
			}
		})
	}
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := offlineConfig(t, "mongo")
	if _, err := Build(context.Background(), cfg, Options{Logger: discard()}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("Build() error = %v, want ErrInvalid", err)
	}
}

func TestBuild_QuestionOverride(t *testing.T) {
	questions := []domain.Question{{
		ID: "only", Track: "general", Difficulty: domain.DifficultyMedium,
		Category: domain.CategoryCoding, Prompt: "Reverse a linked list.",
	}}
	a, err := Build(context.Background(), offlineConfig(t, config.DriverFile), Options{Logger: discard(), Questions: questions})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	if a.QuestionCount != 1 {
		t.Errorf("QuestionCount = %d, want 1", a.QuestionCount)
	}
}

func TestBuild_RegistersOllamaWithoutKey(t *testing.T) {
	cfg := offlineConfig(t, config.DriverFile)
	cfg.LLM.Providers["ollama"].Enabled = true
	cfg.LLM.Providers["claude"].Enabled = true // no key, skipped
	cfg.LLM.DefaultProvider = "claude"

	a, err := Build(context.Background(), cfg, Options{Logger: discard()})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	if got := a.Registry.List(); len(got) != 1 || got[0] != "ollama" {
		t.Errorf("providers = %v, want [ollama]", got)
	}
}

func TestFanout(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("sink down")}
	f := fanout{failing, ok}

	err := f.Publish(context.Background(), interview.Event{ID: "e1"})
	if err == nil {
		t.Error("Publish() should report the failing sink")
	}
	if len(ok.events) != 1 || len(failing.events) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(ok.events), len(failing.events))
	}

	if (fanout{}).publisher(discard()) != nil {
		t.Error("empty fanout should yield a nil publisher")
	}
	if got := (fanout{ok}).publisher(discard()); got != ok {
		t.Error("single sink should be returned directly")
	}
}
