package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"arxivdigest/internal/app"
	"arxivdigest/internal/config"
	"arxivdigest/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	run := application.Run
	if os.Getenv("ARXIV_DIGEST_DAEMON") == "1" {
		run = application.RunScheduled
	}

	if err := run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}
