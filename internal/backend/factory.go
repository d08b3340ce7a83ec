package backend

import (
	"context"
	"fmt"
	"log/slog"

	"famledger/internal/adapters"
	"famledger/internal/amqp"
	"famledger/internal/services"
	gsheet "famledger/internal/sheets/google"
	"famledger/internal/sheets/memory"
	"famledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// Optional; a nil interface keeps the service from publishing.
	var publisher services.SyncPublisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	service := services.NewTransactionService(sqliteRepo, publisher)
	adapter := adapters.NewSQLiteAdapter(sqliteRepo, service)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Store:   adapter,
		Cleanup: service.Close,
		Ready:   adapter.Ping,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		DataSheet:       config.GoogleDataSheet,
		UsersSheet:      config.GoogleUsersSheet,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := cli.EnsureSheets(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare spreadsheet: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{
		Store: cli,
		Ready: func(ctx context.Context) error {
			_, err := cli.ScanAll(ctx)
			return err
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFiles(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend seed: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{Store: store}, nil
}
