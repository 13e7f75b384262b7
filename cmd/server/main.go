package main

import (
	"context"
	"log/slog"
	"os"

	"go-token-auth/internal/app"
	"go-token-auth/internal/config"
	"go-token-auth/internal/logger"
)

func main() {
	slog.SetDefault(logger.New(os.Stdout, "text", "info"))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
