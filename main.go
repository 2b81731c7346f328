package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"markestedt/maphider/config"
	"markestedt/maphider/systray"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		slog.Warn("Falling back to info logging", "error", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded", "path", cfg.Path())

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "path", cfg.Path(), "error", err)
		os.Exit(1)
	}

	// Create agent
	agent, err := NewAgent(cfg)
	if err != nil {
		slog.Error("Failed to create agent", "error", err)
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !cfg.Tray.Enabled {
		if err := agent.Run(ctx); err != nil {
			slog.Error("Agent error", "error", err)
			os.Exit(1)
		}
		slog.Info("MapHider stopped")
		return
	}

	// The tray owns the main goroutine, so the agent runs beside it
	tray := systray.NewManager(agent.WebURL(), systray.Icon)
	errCh := make(chan error, 1)
	go func() {
		errCh <- agent.Run(ctx)
		tray.Stop()
	}()
	go func() {
		select {
		case <-tray.WaitForQuit():
			cancel()
		case <-ctx.Done():
		}
	}()

	tray.Run()
	cancel()

	if err := <-errCh; err != nil {
		slog.Error("Agent error", "error", err)
		os.Exit(1)
	}
	slog.Info("MapHider stopped")
}
