// Package sheets declares the store ports the ledger talks to. Adapters live in
// the memory and google subpackages and in internal/adapters for SQLite.
package sheets

import (
	"context"
	"errors"

	"famledger/internal/core"
)

var (
	// ErrNotFound is returned when no transaction carries the requested id.
	ErrNotFound = errors.New("transaction not found")
	// ErrInvalidCredentials is returned when a username/password pair matches no user.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is a ledger login. Credentials are compared in plain form by the store.
type User struct {
	Username string
	Name     string
}

// Ports for outbound adapters.
type (
	// TransactionScanner returns a consistent snapshot of every stored
	// transaction in append order. Records whose stored date cannot be parsed
	// carry a zero Date.
	TransactionScanner interface {
		ScanAll(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionGetter interface {
		GetByID(ctx context.Context, id string) (core.Transaction, error)
	}

	// TransactionWriter mutates the log. Ids are assigned by the store on
	// Append and are immutable afterwards.
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		Update(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error)
		Delete(ctx context.Context, id string) error
	}

	UserAuthenticator interface {
		Authenticate(ctx context.Context, username, password string) (User, error)
	}

	// Store is everything the HTTP surface needs from a backend.
	Store interface {
		TransactionScanner
		TransactionGetter
		TransactionWriter
		UserAuthenticator
	}
)
