// Package store defines the transactional storage contract the ledger engine
// runs against. Adapters live in the memory and postgres subpackages.
package store

import (
	"context"

	"github.com/bankledger/backend/internal/models"
	"github.com/shopspring/decimal"
)

// AccountStore is keyed storage of account records.
type AccountStore interface {
	// Get returns models.ErrNotFound when the key is unknown.
	Get(ctx context.Context, key string) (models.Account, error)
	// Create returns models.ErrAlreadyExists when the key, mobile or national ID is taken.
	Create(ctx context.Context, account models.Account) (models.Account, error)
	// ConditionalUpdate sets the balance and bumps the version only if the stored
	// version equals expectedVersion, otherwise models.ErrVersionConflict.
	ConditionalUpdate(ctx context.Context, key string, expectedVersion int64, newBalance decimal.Decimal) (models.Account, error)
	// List returns all accounts ordered by key.
	List(ctx context.Context) ([]models.Account, error)
}

// LedgerStore is append-only storage of per-account transaction records.
type LedgerStore interface {
	// Append assigns the next sequence number for the account and stores the record.
	Append(ctx context.Context, accountKey string, record models.TransactionRecord) (models.TransactionRecord, error)
	// ListByAccount returns records ordered by sequence number ascending.
	ListByAccount(ctx context.Context, accountKey string) ([]models.TransactionRecord, error)
}

// Tx is a unit of work spanning both stores.
type Tx interface {
	Accounts() AccountStore
	Ledger() LedgerStore
}

// Store runs fn inside a unit of work. Everything fn writes commits together
// when fn returns nil and is discarded otherwise.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
