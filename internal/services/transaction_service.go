package services

import (
	"context"
	"fmt"
	"log/slog"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/storage"
)

// TransactionRepository is the local store behind the service.
type TransactionRepository interface {
	Append(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Update(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
	GetSyncRecord(ctx context.Context, id string) (storage.SyncRecord, error)
	Close() error
}

// SyncPublisher announces changes to the mirror worker.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, msg *amqp.TransactionSyncMessage) error
	Close() error
}

// TransactionService orchestrates transaction writes across SQLite and AMQP.
// A publish failure never fails the write: the row stays pending and the
// worker's poller picks it up.
type TransactionService struct {
	storage   TransactionRepository
	publisher SyncPublisher
}

// NewTransactionService wires the repository and an optional publisher. Pass
// a nil interface, not a typed nil pointer, to run without AMQP.
func NewTransactionService(storage TransactionRepository, publisher SyncPublisher) *TransactionService {
	return &TransactionService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreateTransaction saves a transaction locally and publishes a sync message.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.storage.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, saved.ID, amqp.OpUpsert)
	return saved, nil
}

// UpdateTransaction rewrites a transaction locally and publishes a sync message.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	saved, err := s.storage.Update(ctx, id, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, saved.ID, amqp.OpUpsert)
	return saved, nil
}

// DeleteTransaction soft deletes a transaction locally and publishes a delete message.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, id, amqp.OpDelete)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, id string, op amqp.SyncOp) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return
	}

	var version int64
	if rec, err := s.storage.GetSyncRecord(ctx, id); err != nil {
		slog.WarnContext(ctx, "Failed to read version for sync message", "id", id, "error", err)
	} else {
		version = rec.Version
	}

	msg := amqp.NewTransactionSyncMessage(id, op, version)
	if err := s.publisher.PublishTransactionSync(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "op", op, "version", version, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
