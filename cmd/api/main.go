package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/twocards/backoffice/internal/app"
	"github.com/twocards/backoffice/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run returns the process exit code. Deferred cleanup, including the log
// file flush, finishes before main exits.
func run(ctx context.Context) int {
	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logger, closeLog := config.SetupLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}

	code := 0
	if err := a.Serve(ctx); err != nil {
		logger.Error("server error", "error", err)
		code = 1
	}
	if err := a.Close(); err != nil {
		logger.Error("shutdown error", "error", err)
		code = 1
	}
	return code
}
