package main

import (
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/danielhkuo/live-poll/app"
	"github.com/danielhkuo/live-poll/cliparse"
)

func main() {
	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	handler, err := cfg.LogHandler(os.Stderr)
	if err != nil {
		slog.Error("Error configuring logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(handler))

	// Run blocks until SIGINT or SIGTERM, then runs the stop hooks:
	// server shutdown, broadcast drain, client disconnect, database close
	fx.New(app.CreateApp(cfg)).Run()
}
