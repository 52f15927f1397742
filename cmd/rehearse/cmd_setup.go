package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/app"
	"github.com/felixgeelhaar/rehearse/internal/config"
)

// cmdInit initializes Rehearse for first-time use
func cmdInit() error {
	fmt.Println("Rehearse - First-Time Setup")
	fmt.Println("===========================")
	fmt.Println()

	fmt.Print("Creating ~/.rehearse directory structure... ")
	dir, err := config.EnsureRehearseDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	fmt.Println("✓")

	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Print("Creating default configuration... ")
		if err := config.SaveLocalConfig(config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("✓")
	} else {
		fmt.Println("Configuration already exists ✓")
	}

	fmt.Println()
	fmt.Println("LLM Provider Setup")
	fmt.Println("------------------")
	fmt.Println("Rehearse supports: Claude (Anthropic), OpenAI, and Ollama (local)")
	fmt.Println()

	cfg, _ := config.LoadLocalConfig()
	if cfg != nil && cfg.LLM.Providers["claude"] != nil && cfg.LLM.Providers["claude"].APIKey != "" {
		fmt.Println("Claude API key: already configured ✓")
	} else {
		fmt.Print("Enter Claude API key (or press Enter to skip): ")
		key, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if key = strings.TrimSpace(key); key != "" {
			if err := config.SaveSecrets(map[string]string{"claude": key}); err != nil {
				fmt.Printf("  ⚠ Failed to save: %v\n", err)
			} else {
				fmt.Println("  ✓ Saved")
			}
		}
	}

	fmt.Println()
	fmt.Println("Setup Complete!")
	fmt.Println("===============")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. rehearse doctor     # Verify configuration")
	fmt.Println("  2. rehearse practice   # Run an interview in the terminal")
	fmt.Println("  3. rehearse start      # Serve the HTTP API")
	fmt.Println()
	fmt.Println("For MCP clients, configure 'rehearse mcp' as a stdio server.")
	return nil
}

// cmdDoctor checks that the configured engine can be assembled
func cmdDoctor() error {
	fmt.Println("Checking system requirements...")
	allGood := true

	fmt.Print("Directory: ")
	dir, err := config.RehearseDir()
	switch {
	case err != nil:
		fmt.Printf("✗ %v\n", err)
		allGood = false
	case !exists(dir):
		fmt.Println("✗ not created (run 'rehearse init')")
		allGood = false
	default:
		fmt.Printf("✓ %s\n", dir)
	}

	fmt.Print("Config:    ")
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return nil
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ %v\n", err)
		return nil
	}
	fmt.Println("✓ loaded")

	fmt.Println("\nLLM Providers:")
	for _, name := range providerNames(cfg) {
		provider := cfg.LLM.Providers[name]
		if !provider.Enabled {
			continue
		}
		fmt.Printf("  %s: ", name)
		switch {
		case name == "ollama":
			if err := checkOllama(provider.URL); err != nil {
				fmt.Printf("✗ %v\n", err)
				allGood = false
			} else {
				fmt.Printf("✓ available (model: %s)\n", provider.Model)
			}
		case provider.APIKey != "":
			fmt.Printf("✓ configured (model: %s)\n", provider.Model)
		default:
			fmt.Printf("✗ no API key (run 'rehearse provider set-key %s')\n", name)
		}
	}

	fmt.Printf("\nStorage:   ")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a, err := app.Build(ctx, cfg, app.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Printf("✓ %s (%d questions)\n", cfg.Storage.Driver, a.QuestionCount)
		if cfg.Queue.Enabled {
			fmt.Println("Queue:     ✓ connected")
		}
		if len(a.Registry.List()) == 0 {
			fmt.Println("Assistant: ⚠ no provider registered; interviews will use fallback replies")
		}
		_ = a.Close()
	}

	fmt.Print("\nDaemon:    ")
	if isRunning() {
		fmt.Println("✓ running")
	} else {
		fmt.Println("✗ not running (run 'rehearse start')")
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed! ✓")
	} else {
		fmt.Println("Some checks failed. Please fix the issues above.")
	}
	return nil
}

// cmdConfig shows current configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Rehearse Configuration")

	fmt.Println("Daemon:")
	fmt.Printf("  bind: %s:%d\n", cfg.Daemon.Bind, cfg.Daemon.Port)
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)

	fmt.Println("\nLLM:")
	fmt.Printf("  default_provider: %s\n", cfg.LLM.DefaultProvider)
	for _, name := range providerNames(cfg) {
		provider := cfg.LLM.Providers[name]
		if !provider.Enabled {
			continue
		}
		keyStatus := "✗"
		if provider.APIKey != "" || name == "ollama" {
			keyStatus = "✓"
		}
		fmt.Printf("  %s: model=%s key=%s\n", name, provider.Model, keyStatus)
	}

	ic := cfg.Interview
	fmt.Println("\nInterview:")
	fmt.Printf("  track: %s\n", ic.Track)
	fmt.Printf("  difficulty: %s (adaptive=%t)\n", ic.Difficulty, ic.Adaptive)
	fmt.Printf("  questions: %d (behavioral=%d, followups=%d)\n", ic.MaxQuestions, ic.BehavioralTarget, ic.MaxFollowups)
	fmt.Printf("  turn_timeout: %s\n", ic.TurnTimeout())
	if ic.QuestionPacks != "" {
		fmt.Printf("  question_packs: %s\n", ic.QuestionPacks)
	}

	fmt.Println("\nStorage:")
	fmt.Printf("  driver: %s\n", cfg.Storage.Driver)
	if cfg.Storage.Driver == config.DriverPostgres {
		fmt.Println("  dsn: (set)")
	} else {
		fmt.Printf("  path: %s\n", cfg.Storage.Path)
	}

	fmt.Println("\nQueue:")
	fmt.Printf("  enabled: %t\n", cfg.Queue.Enabled)

	dir, _ := config.RehearseDir()
	fmt.Printf("\nConfig path: %s/config.yaml\n", dir)
	return nil
}

// cmdProvider manages LLM provider API keys
func cmdProvider(args []string) error {
	if len(args) < 1 {
		fmt.Println(`Provider management commands:

  rehearse provider list              List configured providers
  rehearse provider set-key <name>    Set API key for a provider`)
		return nil
	}

	switch args[0] {
	case "list":
		return cmdProviderList()
	case "set-key":
		if len(args) < 2 {
			return fmt.Errorf("provider name required")
		}
		return cmdProviderSetKey(args[1])
	default:
		return fmt.Errorf("unknown provider command: %s", args[0])
	}
}

func cmdProviderList() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Configured LLM Providers:")
	for _, name := range providerNames(cfg) {
		provider := cfg.LLM.Providers[name]
		status := "disabled"
		if provider.Enabled {
			status = "needs API key"
			if provider.APIKey != "" || name == "ollama" {
				status = "ready"
			}
		}

		isDefault := ""
		if name == cfg.LLM.DefaultProvider {
			isDefault = " (default)"
		}

		fmt.Printf("  %s%s\n", name, isDefault)
		fmt.Printf("    status: %s\n", status)
		fmt.Printf("    model:  %s\n", provider.Model)
		if name == "ollama" && provider.URL != "" {
			fmt.Printf("    url:    %s\n", provider.URL)
		}
		fmt.Println()
	}
	return nil
}

func cmdProviderSetKey(provider string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, ok := cfg.LLM.Providers[provider]; !ok {
		return fmt.Errorf("unknown provider: %s (valid: claude, openai, ollama)", provider)
	}
	if provider == "ollama" {
		fmt.Println("Ollama doesn't require an API key.")
		return nil
	}

	fmt.Printf("Enter %s API key: ", provider)
	key, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	// keep keys already stored for the other providers
	secrets := make(map[string]string)
	for name, pc := range cfg.LLM.Providers {
		if pc != nil && pc.APIKey != "" {
			secrets[name] = pc.APIKey
		}
	}
	secrets[provider] = key

	if err := config.SaveSecrets(secrets); err != nil {
		return fmt.Errorf("save secrets: %w", err)
	}

	fmt.Printf("✓ API key saved for %s\n", provider)
	fmt.Println("Restart the daemon for changes to take effect.")
	return nil
}

func providerNames(cfg *config.LocalConfig) []string {
	names := make([]string, 0, len(cfg.LLM.Providers))
	for name, pc := range cfg.LLM.Providers {
		if pc != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func checkOllama(url string) error {
	if url == "" {
		url = "http://localhost:11434"
	}

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url + "/api/tags")
	if err != nil {
		return fmt.Errorf("not reachable at %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
