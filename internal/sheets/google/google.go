package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"famledger/internal/cache"
	"famledger/internal/core"
	ports "famledger/internal/sheets"
)

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// Data sheet layout, one transaction per row below the header.
var dataHeader = []any{"ID", "Date", "Category", "Description", "Amount", "RecordedAt"}

// Users sheet layout.
var usersHeader = []any{"Username", "Password", "Name"}

const (
	colID = iota
	colDate
	colCategory
	colDescription
	colAmount
	colRecordedAt
	dataColumns
)

const usersCacheKey = "users"

// Config names the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	DataSheet       string
	UsersSheet      string
	CredentialsJSON string
	CredentialsFile string
}

type userRow struct {
	username, password, name string
}

type Client struct {
	api        valuesAPI
	dataSheet  string
	usersSheet string
	ids        *core.IDGenerator
	now        func() time.Time

	// scans coalesces concurrent ScanAll calls into one API read.
	scans singleflight.Group
	users *cache.LRUCache[[]userRow]

	// writeMu serializes find-then-write sequences, which address rows by
	// position.
	writeMu sync.Mutex
}

// New creates a Sheets-backed store using service account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg.CredentialsJSON, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&sheetsAPI{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg), nil
}

func newClient(api valuesAPI, cfg Config) *Client {
	data := strings.TrimSpace(cfg.DataSheet)
	if data == "" {
		data = "Data"
	}
	users := strings.TrimSpace(cfg.UsersSheet)
	if users == "" {
		users = "Users"
	}
	return &Client{
		api:        api,
		dataSheet:  data,
		usersSheet: users,
		ids:        core.NewIDGenerator(nil),
		now:        time.Now,
		users:      cache.NewLRUCache[[]userRow](1, time.Minute),
	}
}

// EnsureSheets creates the Data and Users sheets when missing, writing their
// headers and, for a new Users sheet, the default admin/admin login.
func (c *Client) EnsureSheets(ctx context.Context) error {
	created, err := c.api.ensureSheet(ctx, c.dataSheet)
	if err != nil {
		return err
	}
	if created {
		slog.InfoContext(ctx, "Created data sheet", "sheet", c.dataSheet)
		if err := c.api.update(ctx, c.dataSheet+"!A1:F1", [][]any{dataHeader}); err != nil {
			return err
		}
	}

	created, err = c.api.ensureSheet(ctx, c.usersSheet)
	if err != nil {
		return err
	}
	if created {
		slog.InfoContext(ctx, "Created users sheet with default admin", "sheet", c.usersSheet)
		rows := [][]any{usersHeader, {"admin", "admin", "Administrator"}}
		if err := c.api.update(ctx, c.usersSheet+"!A1:C2", rows); err != nil {
			return err
		}
	}
	return nil
}

// ScanAll reads every data row in sheet order. Rows with an empty date cell are
// skipped; rows whose date cannot be parsed are returned with a zero Date.
func (c *Client) ScanAll(ctx context.Context) ([]core.Transaction, error) {
	v, err, _ := c.scans.Do("scan", func() (any, error) {
		rows, err := c.readData(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]core.Transaction, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.tx)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	// every caller gets its own slice
	return slices.Clone(v.([]core.Transaction)), nil
}

func (c *Client) GetByID(ctx context.Context, id string) (core.Transaction, error) {
	r, err := c.find(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return r.tx, nil
}

func (c *Client) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validation failed: %w", err)
	}
	tx.ID = c.ids.Next()
	tx.RecordedAt = c.now()
	if err := c.api.append(ctx, c.dataSheet+"!A:F", [][]any{formatRow(tx)}); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (c *Client) Update(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validation failed: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	r, err := c.find(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = r.tx.ID
	tx.RecordedAt = r.tx.RecordedAt
	if err := c.writeRow(ctx, r.row, tx); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Delete removes the physical row holding id.
func (c *Client) Delete(ctx context.Context, id string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	r, err := c.find(ctx, id)
	if err != nil {
		return err
	}
	return c.api.deleteRow(ctx, c.dataSheet, r.row)
}

// Upsert writes tx under its own id, replacing the row that carries it or
// appending a new one. It is the mirror worker's write path.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) error {
	if tx.ID == "" {
		return core.ErrEmptyID
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	r, err := c.find(ctx, tx.ID)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return c.api.append(ctx, c.dataSheet+"!A:F", [][]any{formatRow(tx)})
	case err != nil:
		return err
	default:
		return c.writeRow(ctx, r.row, tx)
	}
}

// Authenticate checks a username/password pair against the Users sheet. The
// sheet is read at most once a minute.
func (c *Client) Authenticate(ctx context.Context, username, password string) (ports.User, error) {
	users, ok := c.users.Get(usersCacheKey)
	if !ok {
		rows, err := c.api.get(ctx, c.usersSheet+"!A2:C")
		if err != nil {
			return ports.User{}, err
		}
		users = parseUsers(rows)
		c.users.Set(usersCacheKey, users)
	}
	for _, u := range users {
		if u.username == username && u.password == password {
			return ports.User{Username: u.username, Name: u.name}, nil
		}
	}
	return ports.User{}, ports.ErrInvalidCredentials
}

type located struct {
	row int
	tx  core.Transaction
}

func (c *Client) readData(ctx context.Context) ([]located, error) {
	rows, err := c.api.get(ctx, c.dataSheet+"!A2:F")
	if err != nil {
		return nil, err
	}
	out := make([]located, 0, len(rows))
	for i, row := range rows {
		tx, ok := parseRow(row)
		if !ok {
			continue
		}
		c.ids.Observe(tx.ID)
		out = append(out, located{row: i + 2, tx: tx})
	}
	return out, nil
}

func (c *Client) find(ctx context.Context, id string) (located, error) {
	if strings.TrimSpace(id) == "" {
		return located{}, ports.ErrNotFound
	}
	rows, err := c.readData(ctx)
	if err != nil {
		return located{}, err
	}
	for _, r := range rows {
		if r.tx.ID == id {
			return r, nil
		}
	}
	return located{}, ports.ErrNotFound
}

func (c *Client) writeRow(ctx context.Context, row int, tx core.Transaction) error {
	rng := fmt.Sprintf("%s!A%d:F%d", c.dataSheet, row, row)
	return c.api.update(ctx, rng, [][]any{formatRow(tx)})
}

// parseRow reads a data row. ok is false for rows without an id or with an
// empty date cell.
func parseRow(row []any) (core.Transaction, bool) {
	cols := toStrings(row, dataColumns)
	if cols[colID] == "" || cols[colDate] == "" {
		return core.Transaction{}, false
	}
	date := parseDateCell(cellValue(row, colDate), cols[colDate])
	tx := core.Transaction{
		ID:          cols[colID],
		Date:        date,
		Category:    cols[colCategory],
		Description: cols[colDescription],
		Amount:      core.ParseAmount(cellValue(row, colAmount)),
	}
	if t, err := time.Parse(time.RFC3339, cols[colRecordedAt]); err == nil {
		tx.RecordedAt = t
	}
	return tx, true
}

// parseDateCell reads a date written by us as text, or a real date cell which
// the API returns as a serial day count from 1899-12-30.
func parseDateCell(v any, text string) core.Date {
	if serial, ok := v.(float64); ok {
		return core.NewDate(1899, 12, 30+int(math.Floor(serial)))
	}
	date, _ := core.ParseDate(text)
	return date
}

func formatRow(tx core.Transaction) []any {
	amount, _ := tx.Amount.Float64()
	recorded := ""
	if !tx.RecordedAt.IsZero() {
		recorded = tx.RecordedAt.UTC().Format(time.RFC3339)
	}
	return []any{tx.ID, tx.Date.String(), tx.Category, tx.Description, amount, recorded}
}

func parseUsers(rows [][]any) []userRow {
	out := make([]userRow, 0, len(rows))
	for _, row := range rows {
		cols := toStrings(row, 3)
		if cols[0] == "" {
			continue
		}
		out = append(out, userRow{username: cols[0], password: cols[1], name: cols[2]})
	}
	return out
}

func cellValue(row []any, i int) any {
	if i >= len(row) {
		return nil
	}
	return row[i]
}

// toStrings renders the first n cells of row as trimmed strings, padding short
// rows. Whole numbers print without a fractional part so numeric ids survive.
func toStrings(row []any, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(row); i++ {
		switch v := row[i].(type) {
		case nil:
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
