package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"famledger/internal/core"
	"famledger/internal/sheets"

	_ "modernc.org/sqlite"
)

// Sync states of a row relative to the Sheets mirror.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

var _ sheets.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	ids     *core.IDGenerator
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		ids:     core.NewIDGenerator(nil),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ScanAll returns live transactions in insertion order.
func (r *SQLiteRepository) ScanAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, row := range rows {
		out[i] = row.toCore()
	}
	return out, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && row.DeletedAt.Valid) {
		return core.Transaction{}, sheets.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return row.toCore(), nil
}

// Append implements sheets.TransactionWriter
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          r.ids.Next(),
		Date:        tx.Date.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		RecordedAt:  formatTime(r.now()),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"date", row.Date,
		"category", row.Category,
		"amount", row.Amount)

	return row.toCore(), nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          id,
		Date:        tx.Date.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		UpdatedAt:   formatTime(r.now()),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, sheets.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return row.toCore(), nil
}

// Delete tombstones the row so the deletion can still be mirrored.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.queries.SoftDeleteTransaction(ctx, id, formatTime(r.now()))
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Authenticate(ctx context.Context, username, password string) (sheets.User, error) {
	u, err := r.queries.GetUser(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.User{}, sheets.ErrInvalidCredentials
	}
	if err != nil {
		return sheets.User{}, fmt.Errorf("get user: %w", err)
	}
	if u.Password != password {
		return sheets.User{}, sheets.ErrInvalidCredentials
	}
	return sheets.User{Username: u.Username, Name: u.Name}, nil
}

// AddUser registers or replaces a login.
func (r *SQLiteRepository) AddUser(ctx context.Context, username, password, name string) error {
	if err := r.queries.UpsertUser(ctx, UserRow{Username: username, Password: password, Name: name}); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// SyncRecord is a row as the mirror worker needs it.
type SyncRecord struct {
	Transaction core.Transaction
	Version     int64
	Deleted     bool
}

// GetSyncRecord returns the row with id, tombstones included.
func (r *SQLiteRepository) GetSyncRecord(ctx context.Context, id string) (SyncRecord, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncRecord{}, sheets.ErrNotFound
	}
	if err != nil {
		return SyncRecord{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return row.toSync(), nil
}

// GetPendingSync returns up to limit rows still waiting to be mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]SyncRecord, error) {
	rows, err := r.queries.ListPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	out := make([]SyncRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toSync()
	}
	return out, nil
}

// MarkSynced marks the row synced unless it changed after version was read,
// in which case it stays pending for the newer message. It reports whether the
// row was marked.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) (bool, error) {
	n, err := r.queries.MarkSynced(ctx, id, version)
	if err != nil {
		return false, fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.DebugContext(ctx, "Transaction marked as synced", "id", id, "version", version, "applied", n > 0)
	return n > 0, nil
}

// MarkSyncError marks a row as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, version int64) error {
	if err := r.queries.MarkSyncError(ctx, id, version); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id, "version", version)
	return nil
}

// RetrySyncErrors moves rows in error back to pending and returns how many.
func (r *SQLiteRepository) RetrySyncErrors(ctx context.Context) (int64, error) {
	n, err := r.queries.RetrySyncErrors(ctx)
	if err != nil {
		return 0, fmt.Errorf("retry sync errors: %w", err)
	}
	return n, nil
}

// SyncStats counts rows per sync status.
func (r *SQLiteRepository) SyncStats(ctx context.Context) (map[string]int64, error) {
	stats, err := r.queries.CountBySyncStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sync status: %w", err)
	}
	return stats, nil
}

func (row TransactionRow) toCore() core.Transaction {
	date, _ := core.ParseDate(row.Date)
	tx := core.Transaction{
		ID:          row.ID,
		Date:        date,
		Category:    row.Category,
		Description: row.Description,
		Amount:      core.ParseAmount(row.Amount),
	}
	if t, err := time.Parse(time.RFC3339Nano, row.RecordedAt); err == nil {
		tx.RecordedAt = t
	}
	return tx
}

func (row TransactionRow) toSync() SyncRecord {
	return SyncRecord{Transaction: row.toCore(), Version: row.Version, Deleted: row.DeletedAt.Valid}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
