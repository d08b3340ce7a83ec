package backend

import (
	"context"

	"famledger/internal/sheets"
)

// CleanupFunc releases the resources held by a backend
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the store and the hooks the server needs around it
type BackendResult struct {
	Store   sheets.Store
	Cleanup CleanupFunc
	Ready   ReadyFunc
}

// Close runs Cleanup when one is set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleDataSheet          string
	GoogleUsersSheet         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
