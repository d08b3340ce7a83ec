package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/sheets"
	"famledger/internal/storage"
)

// startupBatches bounds the startup drain; the poller picks up the rest.
const startupBatches = 5

// Source is the SQLite side of the mirror.
type Source interface {
	GetSyncRecord(ctx context.Context, id string) (storage.SyncRecord, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.SyncRecord, error)
	MarkSynced(ctx context.Context, id string, version int64) (bool, error)
	MarkSyncError(ctx context.Context, id string, version int64) error
	RetrySyncErrors(ctx context.Context) (int64, error)
}

// Mirror is the Google Sheets side, addressed by transaction id.
type Mirror interface {
	Upsert(ctx context.Context, tx core.Transaction) error
	Delete(ctx context.Context, id string) error
}

// SyncWorker mirrors transactions from SQLite to Google Sheets.
type SyncWorker struct {
	source    Source
	mirror    Mirror
	batchSize int
}

func NewSyncWorker(source Source, mirror Mirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage mirrors the current state of the row a message points at.
// The message version is informational: the row is always read fresh, so
// redelivered or out-of-order messages converge on the same result.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"op", msg.Op,
		"version", msg.Version)

	rec, err := w.source.GetSyncRecord(ctx, msg.ID)
	if errors.Is(err, sheets.ErrNotFound) {
		slog.WarnContext(ctx, "Sync message for unknown transaction, dropping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	return w.syncRecord(ctx, rec)
}

// ProcessPending mirrors one batch of rows still marked pending. It is the
// backup path for lost messages and returns how many rows were mirrored.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.source.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))
	synced := 0
	for _, rec := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.syncRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", rec.Transaction.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// StartupSyncCheck requeues rows that failed earlier and drains the pending
// backlog, which covers messages missed while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	retried, err := w.source.RetrySyncErrors(ctx)
	if err != nil {
		return err
	}

	total := 0
	for batch := 0; batch < startupBatches; batch++ {
		n, err := w.ProcessPending(ctx)
		if err != nil {
			return fmt.Errorf("startup sync: %w", err)
		}
		total += n
		// a short batch means the backlog is drained or stuck
		if n < w.batchSize {
			break
		}
	}

	slog.InfoContext(ctx, "Startup sync completed", "retried_errors", retried, "synced", total)
	return nil
}

func (w *SyncWorker) syncRecord(ctx context.Context, rec storage.SyncRecord) error {
	id := rec.Transaction.ID
	var err error
	if rec.Deleted {
		err = w.mirror.Delete(ctx, id)
		if errors.Is(err, sheets.ErrNotFound) {
			err = nil
		}
	} else {
		err = w.mirror.Upsert(ctx, rec.Transaction)
	}
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, id, rec.Version); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("mirror transaction %s: %w", id, err)
	}

	applied, err := w.source.MarkSynced(ctx, id, rec.Version)
	if err != nil {
		// the mirror holds the data; the row stays pending and is retried
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", id,
		"deleted", rec.Deleted,
		"version", rec.Version,
		"superseded", !applied)
	return nil
}
