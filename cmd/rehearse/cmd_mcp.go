package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/rehearse/internal/app"
	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/daemon"
	mcpserver "github.com/felixgeelhaar/rehearse/internal/mcp"
)

// cmdMCP serves the interview tools over stdio
func cmdMCP() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir, err := config.EnsureRehearseDir()
	if err != nil {
		return err
	}

	// stdout carries the protocol, so logs go to the file only
	logger, logFile, err := daemon.SetupLogging(dir, "mcp", daemon.ParseLogLevel(cfg.Daemon.LogLevel), io.Discard)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		Engine:   a.Controller,
		Defaults: cfg.Interview,
		Version:  Version,
	})
	return srv.ServeStdio(ctx)
}
