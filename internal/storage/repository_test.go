package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"famledger/internal/core"
	"famledger/internal/sheets"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTx(date, category string, amount string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{Date: d, Category: category, Description: "test", Amount: decimal.RequireFromString(amount)}
}

func TestSQLiteRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a, err := repo.Append(ctx, newTx("2024-01-01", core.CategoryIncome, "1000"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	b, err := repo.Append(ctx, newTx("15/01/2024", core.CategoryExpense, "400.25"))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if a.ID == b.ID || a.RecordedAt.IsZero() {
		t.Fatalf("unexpected ids/recorded: %+v %+v", a, b)
	}

	all, err := repo.ScanAll(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ScanAll: %v %v", all, err)
	}
	if all[0].ID != a.ID || all[1].Date.String() != "2024-01-15" {
		t.Fatalf("unexpected order or date: %+v", all)
	}
	if !all[1].Amount.Equal(decimal.RequireFromString("400.25")) {
		t.Fatalf("amount = %s", all[1].Amount)
	}

	upd, err := repo.Update(ctx, a.ID, newTx("2024-01-02", core.CategoryIncome, "1100"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.ID != a.ID || !upd.RecordedAt.Equal(a.RecordedAt) {
		t.Fatalf("update changed identity: %+v vs %+v", upd, a)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, a.ID); !errors.Is(err, sheets.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted row, got %v", err)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, sheets.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := repo.Update(ctx, a.ID, newTx("2024-01-02", core.CategoryIncome, "1")); !errors.Is(err, sheets.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating deleted row, got %v", err)
	}
	all, _ = repo.ScanAll(ctx)
	if len(all) != 1 || all[0].ID != b.ID {
		t.Fatalf("ScanAll after delete: %+v", all)
	}
}

func TestSQLiteRepository_Validation(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Append(context.Background(), newTx("2024-01-01", core.CategoryExpense, "-1"))
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestSQLiteRepository_SyncLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tx, err := repo.Append(ctx, newTx("2024-03-01", core.CategoryExpense, "10"))
	if err != nil {
		t.Fatal(err)
	}
	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].Version != 1 {
		t.Fatalf("pending: %+v %v", pending, err)
	}

	// a stale version does not mark the row
	if _, err := repo.Update(ctx, tx.ID, newTx("2024-03-02", core.CategoryExpense, "11")); err != nil {
		t.Fatal(err)
	}
	ok, err := repo.MarkSynced(ctx, tx.ID, 1)
	if err != nil || ok {
		t.Fatalf("stale MarkSynced applied=%v err=%v", ok, err)
	}
	rec, _ := repo.GetSyncRecord(ctx, tx.ID)
	if rec.Version != 2 {
		t.Fatalf("version = %d, want 2", rec.Version)
	}
	if ok, _ := repo.MarkSynced(ctx, tx.ID, rec.Version); !ok {
		t.Fatal("current MarkSynced not applied")
	}
	if pending, _ := repo.GetPendingSync(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %+v", pending)
	}

	if err := repo.Delete(ctx, tx.ID); err != nil {
		t.Fatal(err)
	}
	pending, _ = repo.GetPendingSync(ctx, 10)
	if len(pending) != 1 || !pending[0].Deleted || pending[0].Version != 3 {
		t.Fatalf("tombstone not pending: %+v", pending)
	}

	if err := repo.MarkSyncError(ctx, tx.ID, 3); err != nil {
		t.Fatal(err)
	}
	stats, err := repo.SyncStats(ctx)
	if err != nil || stats[SyncError] != 1 {
		t.Fatalf("stats: %v %v", stats, err)
	}
	if n, err := repo.RetrySyncErrors(ctx); err != nil || n != 1 {
		t.Fatalf("RetrySyncErrors: %d %v", n, err)
	}
	if pending, _ := repo.GetPendingSync(ctx, 10); len(pending) != 1 {
		t.Fatalf("retried row not pending: %+v", pending)
	}
}

func TestSQLiteRepository_Authenticate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u, err := repo.Authenticate(ctx, "admin", "admin")
	if err != nil || u.Name != "Administrator" {
		t.Fatalf("seeded admin: %+v %v", u, err)
	}
	if _, err := repo.Authenticate(ctx, "admin", "nope"); !errors.Is(err, sheets.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := repo.Authenticate(ctx, "ghost", "admin"); !errors.Is(err, sheets.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := repo.AddUser(ctx, "anna", "pw", "Anna"); err != nil {
		t.Fatal(err)
	}
	if u, err := repo.Authenticate(ctx, "anna", "pw"); err != nil || u.Username != "anna" {
		t.Fatalf("added user: %+v %v", u, err)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}
