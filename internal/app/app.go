// Package app assembles the interview engine from configuration. The CLI,
// the daemon and the MCP server share this wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/felixgeelhaar/rehearse/internal/assistant"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
	"github.com/felixgeelhaar/rehearse/internal/llm"
	"github.com/felixgeelhaar/rehearse/internal/queue"
	"github.com/felixgeelhaar/rehearse/internal/questionbank"
	"github.com/felixgeelhaar/rehearse/internal/selection"
	"github.com/felixgeelhaar/rehearse/internal/session"
	"github.com/felixgeelhaar/rehearse/internal/storage/postgres"
	"github.com/felixgeelhaar/rehearse/internal/storage/sqlite"
)

// App is a wired engine plus the resources it must release
type App struct {
	Config     *config.LocalConfig
	Controller *interview.Controller
	Registry   *llm.Registry
	Health     *llm.Health
	Sessions   session.Store
	Questions  interview.QuestionRepository

	// QuestionCount is the size of the loaded pool
	QuestionCount int

	logger  *slog.Logger
	closers []func() error
}

// Options adjusts the wiring for tests and embedded use
type Options struct {
	Logger *slog.Logger

	// Questions overrides the configured packs
	Questions []domain.Question

	// Events receives events in addition to the configured sinks
	Events interview.EventPublisher
}

// Build wires the controller for cfg
func Build(ctx context.Context, cfg *config.LocalConfig, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:   cfg,
		Registry: llm.NewRegistry(),
		Health:   llm.NewHealth(),
		logger:   logger,
	}
	a.closers = append(a.closers, a.Registry.Close)

	a.setupProviders()

	questions := opts.Questions
	if questions == nil {
		var err error
		if questions, err = loadQuestions(cfg.Interview.QuestionPacks); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.QuestionCount = len(questions)

	events := fanout{}
	if opts.Events != nil {
		events = append(events, opts.Events)
	}

	if err := a.setupStorage(ctx, questions, &events); err != nil {
		a.Close()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	if cfg.Queue.Enabled {
		conn, err := queue.NewConnection(cfg.Queue.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect queue: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		events = append(events, queue.NewProducer(conn))
	}

	asst := assistant.New(a.Registry, a.Registry.DefaultName(), assistant.WithLogger(logger))
	a.Controller = interview.NewController(a.Sessions, a.Questions, asst,
		interview.WithEvents(events.publisher(logger)),
		interview.WithHealth(a.Health),
		interview.WithSelector(selection.NewSelector(
			selection.WithWeights(cfg.Selector.Weights),
			selection.WithSampleSize(cfg.Selector.SampleSize),
		)),
		interview.WithCalibration(cfg.Calibration),
		interview.WithTurnTimeout(cfg.Interview.TurnTimeout()),
		interview.WithMaxFinalizeAttempts(cfg.Interview.MaxFinalizeAttempts),
		interview.WithLogger(logger),
	)
	return a, nil
}

// setupProviders registers every enabled provider behind the resilient wrapper
func (a *App) setupProviders() {
	res := a.Config.Resilience.ResilientConfig()
	res.Health = a.Health
	res.Logger = a.logger

	for name, pc := range a.Config.LLM.Providers {
		if pc == nil || !pc.Enabled {
			continue
		}

		var p llm.Provider
		switch name {
		case "claude":
			if pc.APIKey == "" {
				a.logger.Debug("Claude provider enabled but no API key set")
				continue
			}
			p = llm.NewClaudeProvider(llm.ClaudeConfig{APIKey: pc.APIKey, Model: pc.Model})
		case "openai":
			if pc.APIKey == "" {
				a.logger.Debug("OpenAI provider enabled but no API key set")
				continue
			}
			p = llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: pc.APIKey, Model: pc.Model})
		case "ollama":
			p = llm.NewOllamaProvider(llm.OllamaConfig{BaseURL: pc.URL, Model: pc.Model})
		default:
			a.logger.Warn("unknown LLM provider in config", "name", name)
			continue
		}

		a.Registry.Register(name, llm.NewResilientProvider(p, res))
		a.logger.Info("registered LLM provider", "name", name, "model", pc.Model)
	}

	if def := a.Config.LLM.DefaultProvider; def != "" && def != "auto" {
		if err := a.Registry.SetDefault(def); err != nil {
			a.logger.Warn("default LLM provider unavailable, using first registered", "name", def, "error", err)
		}
	}
}

func (a *App) setupStorage(ctx context.Context, questions []domain.Question, events *fanout) error {
	st := a.Config.Storage

	switch st.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(st.Path)
		if err != nil {
			return err
		}
		db.WithLogger(a.logger)
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		qs := sqlite.NewQuestionStore(db)
		if err := qs.Upsert(ctx, questions); err != nil {
			return fmt.Errorf("seed questions: %w", err)
		}
		a.Sessions = sqlite.NewSessionStore(db)
		a.Questions = qs
		*events = append(*events, sqlite.NewEventLog(db))

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, st.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		qs, err := postgres.OpenQuestionStore(st.DSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, qs.Close)
		if err := qs.Upsert(ctx, questions); err != nil {
			return fmt.Errorf("seed questions: %w", err)
		}
		a.Sessions = postgres.NewSessionStore(pool)
		a.Questions = qs

	default:
		store, err := session.NewFileStore(filepath.Join(st.Path, "sessions"))
		if err != nil {
			return err
		}
		a.Sessions = store
		a.Questions = questionbank.NewMemoryRepository(questions)
	}

	a.logger.Info("storage ready", "driver", st.Driver, "questions", len(questions))
	return nil
}

func loadQuestions(dir string) ([]domain.Question, error) {
	loader := questionbank.NewBuiltinLoader()
	if dir != "" {
		loader = questionbank.NewLoader(dir)
	}
	questions, err := loader.LoadQuestions()
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
