package main

import (
	"context"
	"os"
	"time"

	"famledger/internal/backend"
	"famledger/internal/cli"
	"famledger/internal/config"
	"famledger/internal/export"
	"famledger/internal/report"
	"famledger/internal/services"
)

func main() {
	cfg, logger := cli.LoadConfig("ledger-reporter", (*config.Config).ValidateReport)

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
	defer result.Close()

	ledger := services.NewLedgerService(result.Store, loc, cfg.Fallback(), logger)
	mailer := export.NewMailer(export.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	reporter := report.New(ledger, mailer, cfg.ReportRecipients, loc, logger)
	if err := reporter.Start(ctx, cfg.ReportCron); err != nil {
		logger.Error("Failed to start report scheduler", "error", err)
		os.Exit(1)
	}

	err = cli.Run(ctx, logger, time.Minute,
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		func(context.Context) error {
			reporter.Stop()
			return nil
		})
	if err != nil {
		logger.Error("Reporter stopped with error", "error", err)
		os.Exit(1)
	}
}
