// Package main is the entry point for the chat-auth server.
//
// main stays minimal:
//  1. load configuration (.env + environment)
//  2. build the logger
//  3. hand both to internal/server and block until shutdown
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/sakif/chat-auth/internal/config"
	"github.com/sakif/chat-auth/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No configured logger yet; fall back to the default one.
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger picks the handler by LOG_FORMAT: "json" for log shippers,
// anything else for human-readable text.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
