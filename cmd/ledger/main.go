package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"famledger/internal/auth"
	"famledger/internal/backend"
	"famledger/internal/cache"
	"famledger/internal/cli"
	"famledger/internal/export"
	apphttp "famledger/internal/http"
	"famledger/internal/services"
)

func main() {
	cfg, logger := cli.LoadConfig("ledger")

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid ledger time zone", "error", err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		if secret, err = auth.RandomSecret(); err != nil {
			logger.Error("Failed to create session secret", "error", err)
			os.Exit(1)
		}
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	caches := cache.NewManager()
	revoked := cache.NewLRUCache[struct{}](cache.Unbounded, cfg.SessionTTL)
	caches.Register(revoked)
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	deps := apphttp.Dependencies{
		Store:    result.Store,
		Ledger:   services.NewLedgerService(result.Store, loc, cfg.Fallback(), logger),
		Sessions: auth.NewSessions(secret, cfg.SessionTTL, revoked),
		Ready:    result.Ready,
	}
	if cfg.SMTPEnabled() {
		deps.Mailer = export.NewMailer(export.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Info("SMTP_HOST not set, e-mail export disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps, logger)

	logger.Info("Starting famledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String(),
		"fallback", cfg.FilterFallback)

	err = cli.Run(ctx, logger, 30*time.Second,
		func(context.Context) error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		srv.Shutdown)
	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
