package main

import (
	"context"
	"os"
	"time"

	"famledger/internal/amqp"
	"famledger/internal/cli"
	"famledger/internal/config"
	gsheet "famledger/internal/sheets/google"
	"famledger/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig("ledger-worker", (*config.Config).ValidateMirror)
	logger.Info("Starting ledger-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		DataSheet:       cfg.GoogleDataSheet,
		UsersSheet:      cfg.GoogleUsersSheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureSheets(ctx); err != nil {
		logger.Error("Failed to prepare spreadsheet", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sqliteRepo, sheetsClient, cfg.SyncBatchSize)

	// Rows written while the worker was down have no message to replay.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	poller := worker.NewPoller(syncWorker, cfg.SyncInterval)
	if err := poller.Start(ctx); err != nil {
		logger.Error("Failed to start poller", "error", err)
		os.Exit(1)
	}

	err = cli.Run(ctx, logger, 30*time.Second,
		func(ctx context.Context) error {
			return amqpClient.ConsumeTransactionSync(ctx, syncWorker.HandleSyncMessage)
		},
		poller.Stop)
	if err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
