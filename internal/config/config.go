// Package config loads the YAML configuration shared by the rehearse CLI
// and daemon.
package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides cfg from REHEARSE_* environment variables. Unset or
// unparseable values leave the current setting in place.
func ApplyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt("REHEARSE_PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("REHEARSE_BIND", cfg.Daemon.Bind)
	cfg.Daemon.LogLevel = getEnv("REHEARSE_LOG_LEVEL", cfg.Daemon.LogLevel)

	cfg.LLM.DefaultProvider = getEnv("REHEARSE_LLM_PROVIDER", cfg.LLM.DefaultProvider)
	for name, envKey := range map[string]string{
		"claude": "ANTHROPIC_API_KEY",
		"openai": "OPENAI_API_KEY",
	} {
		if p, ok := cfg.LLM.Providers[name]; ok {
			p.APIKey = getEnv(envKey, p.APIKey)
		}
	}
	if p, ok := cfg.LLM.Providers["ollama"]; ok {
		p.URL = getEnv("REHEARSE_OLLAMA_URL", p.URL)
	}

	cfg.Interview.Track = getEnv("REHEARSE_TRACK", cfg.Interview.Track)
	cfg.Interview.Difficulty = getEnv("REHEARSE_DIFFICULTY", cfg.Interview.Difficulty)
	cfg.Interview.Adaptive = getEnvBool("REHEARSE_ADAPTIVE", cfg.Interview.Adaptive)
	cfg.Interview.MaxQuestions = getEnvInt("REHEARSE_MAX_QUESTIONS", cfg.Interview.MaxQuestions)
	cfg.Interview.TurnTimeoutSeconds = getEnvInt("REHEARSE_TURN_TIMEOUT", cfg.Interview.TurnTimeoutSeconds)

	cfg.Storage.Driver = getEnv("REHEARSE_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("REHEARSE_STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.DSN = getEnv("DATABASE_URL", cfg.Storage.DSN)

	cfg.Queue.Enabled = getEnvBool("REHEARSE_QUEUE_ENABLED", cfg.Queue.Enabled)
	cfg.Queue.URL = getEnv("RABBITMQ_URL", cfg.Queue.URL)

	cfg.Resilience.RatePerSecond = getEnvInt("REHEARSE_LLM_RATE", cfg.Resilience.RatePerSecond)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
