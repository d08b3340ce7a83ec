package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// TransactionRow mirrors a row of the transactions table.
type TransactionRow struct {
	Seq         int64
	ID          string
	Date        string
	Category    string
	Description string
	Amount      string
	RecordedAt  string
	UpdatedAt   string
	DeletedAt   sql.NullString
	SyncStatus  string
	Version     int64
}

const transactionColumns = `seq, id, date, category, description, amount, recorded_at, updated_at, deleted_at, sync_status, version`

func scanTransaction(row interface{ Scan(...any) error }) (TransactionRow, error) {
	var t TransactionRow
	err := row.Scan(&t.Seq, &t.ID, &t.Date, &t.Category, &t.Description, &t.Amount,
		&t.RecordedAt, &t.UpdatedAt, &t.DeletedAt, &t.SyncStatus, &t.Version)
	return t, err
}

const createTransaction = `
INSERT INTO transactions (id, date, category, description, amount, recorded_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ID          string
	Date        string
	Category    string
	Description string
	Amount      string
	RecordedAt  string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID, arg.Date, arg.Category, arg.Description, arg.Amount, arg.RecordedAt, arg.RecordedAt)
	return scanTransaction(row)
}

const updateTransaction = `
UPDATE transactions
SET date = ?, category = ?, description = ?, amount = ?, updated_at = ?,
    sync_status = 'pending', version = version + 1
WHERE id = ? AND deleted_at IS NULL
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	ID          string
	Date        string
	Category    string
	Description string
	Amount      string
	UpdatedAt   string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.Date, arg.Category, arg.Description, arg.Amount, arg.UpdatedAt, arg.ID)
	return scanTransaction(row)
}

const softDeleteTransaction = `
UPDATE transactions
SET deleted_at = ?, updated_at = ?, sync_status = 'pending', version = version + 1
WHERE id = ? AND deleted_at IS NULL
RETURNING ` + transactionColumns

func (q *Queries) SoftDeleteTransaction(ctx context.Context, id, at string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, softDeleteTransaction, at, at, id)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

// GetTransaction returns the row including tombstones.
func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions WHERE deleted_at IS NULL ORDER BY seq`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	return q.list(ctx, listTransactions)
}

const listPendingSync = `SELECT ` + transactionColumns + `
FROM transactions WHERE sync_status = 'pending' ORDER BY seq LIMIT ?`

func (q *Queries) ListPendingSync(ctx context.Context, limit int64) ([]TransactionRow, error) {
	return q.list(ctx, listPendingSync, limit)
}

func (q *Queries) list(ctx context.Context, query string, args ...any) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// markSynced only applies when the row has not changed since version was read.
const markSynced = `UPDATE transactions SET sync_status = 'synced' WHERE id = ? AND version = ?`

func (q *Queries) MarkSynced(ctx context.Context, id string, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, id, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markSyncError = `UPDATE transactions SET sync_status = 'error' WHERE id = ? AND version = ?`

func (q *Queries) MarkSyncError(ctx context.Context, id string, version int64) error {
	_, err := q.db.ExecContext(ctx, markSyncError, id, version)
	return err
}

const retrySyncErrors = `UPDATE transactions SET sync_status = 'pending' WHERE sync_status = 'error'`

func (q *Queries) RetrySyncErrors(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, retrySyncErrors)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countBySyncStatus = `SELECT sync_status, COUNT(*) FROM transactions GROUP BY sync_status`

func (q *Queries) CountBySyncStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countBySyncStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

const getUser = `SELECT username, password, name FROM users WHERE username = ?`

type UserRow struct {
	Username string
	Password string
	Name     string
}

func (q *Queries) GetUser(ctx context.Context, username string) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUser, username).Scan(&u.Username, &u.Password, &u.Name)
	return u, err
}

const upsertUser = `
INSERT INTO users (username, password, name) VALUES (?, ?, ?)
ON CONFLICT (username) DO UPDATE SET password = excluded.password, name = excluded.name`

func (q *Queries) UpsertUser(ctx context.Context, arg UserRow) error {
	_, err := q.db.ExecContext(ctx, upsertUser, arg.Username, arg.Password, arg.Name)
	return err
}
