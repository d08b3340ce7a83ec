package adapters

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"famledger/internal/core"
	"famledger/internal/services"
	"famledger/internal/sheets"
	"famledger/internal/storage"
)

func newAdapter(t *testing.T) (*SQLiteAdapter, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewSQLiteAdapter(repo, services.NewTransactionService(repo, nil)), repo
}

func TestSQLiteAdapter_WritesArePendingSync(t *testing.T) {
	a, repo := newAdapter(t)
	ctx := context.Background()

	tx, err := a.Append(ctx, core.Transaction{Date: core.NewDate(2024, 1, 2), Category: core.CategoryIncome, Amount: core.ParseAmount(5)})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := a.Update(ctx, tx.ID, core.Transaction{Date: core.NewDate(2024, 1, 3), Category: core.CategoryIncome, Amount: core.ParseAmount(7)}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := a.GetByID(ctx, tx.ID)
	if err != nil || got.Date.String() != "2024-01-03" {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Fatalf("pending = %+v, want one row at version 2", pending)
	}

	if err := a.Delete(ctx, tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := a.ScanAll(ctx)
	if len(all) != 0 {
		t.Fatalf("deleted row still listed: %+v", all)
	}
	if _, err := a.GetByID(ctx, tx.ID); !errors.Is(err, sheets.ErrNotFound) {
		t.Fatalf("GetByID after delete: %v", err)
	}
}

func TestSQLiteAdapter_AuthenticateAndPing(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()

	if err := a.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	u, err := a.Authenticate(ctx, "admin", "admin")
	if err != nil || u.Name != "Administrator" {
		t.Fatalf("Authenticate = %+v, %v", u, err)
	}
	if _, err := a.Authenticate(ctx, "admin", "nope"); !errors.Is(err, sheets.ErrInvalidCredentials) {
		t.Fatalf("bad password error = %v", err)
	}
}
