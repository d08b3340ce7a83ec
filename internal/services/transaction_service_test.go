package services

import (
	"context"
	"errors"
	"testing"

	"famledger/internal/amqp"
	"famledger/internal/core"
	"famledger/internal/sheets"
	"famledger/internal/storage"
)

type fakeRepo struct {
	rows     map[string]storage.SyncRecord
	next     int
	failNext error
	closed   bool
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: map[string]storage.SyncRecord{}} }

func (r *fakeRepo) Append(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if r.failNext != nil {
		return core.Transaction{}, r.failNext
	}
	r.next++
	tx.ID = string(rune('0' + r.next))
	r.rows[tx.ID] = storage.SyncRecord{Transaction: tx, Version: 1}
	return tx, nil
}

func (r *fakeRepo) Update(_ context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	rec, ok := r.rows[id]
	if !ok {
		return core.Transaction{}, sheets.ErrNotFound
	}
	tx.ID = id
	r.rows[id] = storage.SyncRecord{Transaction: tx, Version: rec.Version + 1}
	return tx, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	rec, ok := r.rows[id]
	if !ok || rec.Deleted {
		return sheets.ErrNotFound
	}
	rec.Deleted = true
	rec.Version++
	r.rows[id] = rec
	return nil
}

func (r *fakeRepo) GetSyncRecord(_ context.Context, id string) (storage.SyncRecord, error) {
	rec, ok := r.rows[id]
	if !ok {
		return storage.SyncRecord{}, sheets.ErrNotFound
	}
	return rec, nil
}

func (r *fakeRepo) Close() error {
	r.closed = true
	return nil
}

type fakePublisher struct {
	sent []amqp.TransactionSyncMessage
	err  error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, msg *amqp.TransactionSyncMessage) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, *msg)
	return nil
}

func (p *fakePublisher) Close() error { return errors.New("already closed") }

func body() core.Transaction {
	return core.Transaction{Date: core.NewDate(2024, 5, 1), Category: core.CategoryExpense, Amount: core.ParseAmount(10)}
}

func TestTransactionService_PublishesVersions(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)
	ctx := context.Background()

	tx, err := svc.CreateTransaction(ctx, body())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateTransaction(ctx, tx.ID, body()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []struct {
		op      amqp.SyncOp
		version int64
	}{{amqp.OpUpsert, 1}, {amqp.OpUpsert, 2}, {amqp.OpDelete, 3}}
	if len(pub.sent) != len(want) {
		t.Fatalf("sent %d messages, want %d", len(pub.sent), len(want))
	}
	for i, w := range want {
		got := pub.sent[i]
		if got.ID != tx.ID || got.Op != w.op || got.Version != w.version {
			t.Errorf("message %d = %+v, want op %s version %d", i, got, w.op, w.version)
		}
	}
}

func TestTransactionService_PublishFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	svc := NewTransactionService(repo, &fakePublisher{err: amqp.ErrCircuitOpen})

	tx, err := svc.CreateTransaction(context.Background(), body())
	if err != nil {
		t.Fatalf("create should succeed without AMQP: %v", err)
	}
	if _, ok := repo.rows[tx.ID]; !ok {
		t.Fatal("row not saved")
	}
}

func TestTransactionService_WithoutPublisher(t *testing.T) {
	svc := NewTransactionService(newFakeRepo(), nil)
	if _, err := svc.CreateTransaction(context.Background(), body()); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestTransactionService_StoreErrors(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)

	repo.failNext = core.ErrEmptyCategory
	if _, err := svc.CreateTransaction(context.Background(), body()); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("create error = %v", err)
	}
	if err := svc.DeleteTransaction(context.Background(), "missing"); !errors.Is(err, sheets.ErrNotFound) {
		t.Fatalf("delete error = %v", err)
	}
	if len(pub.sent) != 0 {
		t.Fatalf("failed writes must not publish, sent %d", len(pub.sent))
	}
}

func TestTransactionService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &TransactionService{}
		if err := service.Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("collects errors", func(t *testing.T) {
		repo := newFakeRepo()
		service := NewTransactionService(repo, &fakePublisher{})
		if err := service.Close(); err == nil {
			t.Fatal("expected publisher close error")
		}
		if !repo.closed {
			t.Fatal("storage not closed")
		}
	})
}
