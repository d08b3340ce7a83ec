package adapters

import (
	"context"

	"famledger/internal/core"
	"famledger/internal/services"
	"famledger/internal/sheets"
	"famledger/internal/storage"
)

// Ensure interface conformance
var _ sheets.Store = (*SQLiteAdapter)(nil)

// SQLiteAdapter adapts SQLiteRepository and TransactionService to sheets.Store.
// Reads go straight to SQLite; writes go through the service so every change
// is announced to the mirror worker.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.TransactionService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.TransactionService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// ScanAll implements sheets.TransactionScanner
func (a *SQLiteAdapter) ScanAll(ctx context.Context) ([]core.Transaction, error) {
	return a.storage.ScanAll(ctx)
}

// GetByID implements sheets.TransactionGetter
func (a *SQLiteAdapter) GetByID(ctx context.Context, id string) (core.Transaction, error) {
	return a.storage.GetByID(ctx, id)
}

// Append implements sheets.TransactionWriter
func (a *SQLiteAdapter) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	return a.service.CreateTransaction(ctx, tx)
}

// Update implements sheets.TransactionWriter
func (a *SQLiteAdapter) Update(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	return a.service.UpdateTransaction(ctx, id, tx)
}

// Delete implements sheets.TransactionWriter
func (a *SQLiteAdapter) Delete(ctx context.Context, id string) error {
	return a.service.DeleteTransaction(ctx, id)
}

// Authenticate implements sheets.UserAuthenticator
func (a *SQLiteAdapter) Authenticate(ctx context.Context, username, password string) (sheets.User, error) {
	return a.storage.Authenticate(ctx, username, password)
}

// Ping reports whether the database answers, for readiness checks.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
