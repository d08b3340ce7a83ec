// Package cli holds the start-up steps shared by cmd/ledger, cmd/ledger-worker
// and cmd/ledger-reporter.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"famledger/internal/config"
	"famledger/internal/log"
	"famledger/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is fine in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and makes it the
// slog default.
func SetupLogger(level, component string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: component,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads the .env file and the environment, then validates the
// result along with any extra checks the binary needs. It exits on failure.
func LoadConfig(component string, extra ...func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, component)

	checks := append([]func(*config.Config) error{(*config.Config).Validate}, extra...)
	for _, check := range checks {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed", "error", err)
			os.Exit(1)
		}
	}
	return cfg, logger
}

// InitSQLite opens the SQLite repository at dbPath or exits.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Run executes run until it returns or ctx is cancelled, then calls shutdown
// with a context bounded by timeout. run returning, with or without an error,
// also triggers shutdown.
func Run(ctx context.Context, logger *log.Logger, timeout time.Duration, run func(context.Context) error, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", timeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if shutdown == nil {
			return nil
		}
		if err := shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				logger.Warn("Shutdown timeout reached")
			}
			return err
		}
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
