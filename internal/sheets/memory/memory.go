package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"famledger/internal/core"
	"famledger/internal/sheets"
)

var _ sheets.Store = (*Store)(nil)

type credential struct {
	password string
	name     string
}

type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	users map[string]credential
	ids   *core.IDGenerator
	now   func() time.Time
}

// New returns an empty store with the default admin/admin login.
func New() *Store {
	return &Store{
		users: map[string]credential{"admin": {password: "admin", name: "Administrator"}},
		ids:   core.NewIDGenerator(nil),
		now:   time.Now,
	}
}

// seedRow is the on-disk shape of data/seed_transactions.json.
type seedRow struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

// NewFromFiles seeds the store from base/seed_transactions.json when present.
// A missing file yields an empty store; a malformed one is an error.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(filepath.Join(base, "seed_transactions.json"))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var rows []seedRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for _, r := range rows {
		d, _ := core.ParseDate(r.Date)
		tx := core.Transaction{
			ID:          r.ID,
			Date:        d,
			Category:    r.Category,
			Description: r.Description,
			Amount:      core.ParseAmount(r.Amount),
			RecordedAt:  s.now(),
		}
		if tx.ID == "" {
			tx.ID = s.ids.Next()
		}
		s.ids.Observe(tx.ID)
		s.items = append(s.items, tx)
	}
	return s, nil
}

// AddUser registers or replaces a login.
func (s *Store) AddUser(username, password, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = credential{password: password, name: name}
}

// ScanAll returns a copy of the log in append order.
func (s *Store) ScanAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *Store) GetByID(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, sheets.ErrNotFound
	}
	return s.items[i], nil
}

// Append assigns a fresh id and recording time and stores the transaction.
func (s *Store) Append(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.ids.Next()
	tx.RecordedAt = s.now()
	s.items = append(s.items, tx)
	return tx, nil
}

// Update replaces the mutable fields of the transaction with id, keeping its
// position in the log.
func (s *Store) Update(_ context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Transaction{}, sheets.ErrNotFound
	}
	tx.ID = id
	tx.RecordedAt = s.items[i].RecordedAt
	s.items[i] = tx
	return tx, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return sheets.ErrNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

func (s *Store) Authenticate(_ context.Context, username, password string) (sheets.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.users[username]
	if !ok || c.password != password {
		return sheets.User{}, sheets.ErrInvalidCredentials
	}
	return sheets.User{Username: username, Name: c.name}, nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(tx core.Transaction) bool { return tx.ID == id })
}
