// Package postgres implements the ledger stores on PostgreSQL through
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
	"github.com/lib/pq"
)

// Store runs each unit of work in one database transaction. Account rows
// touched by ConditionalUpdate stay row-locked until commit, which keeps the
// per-account ledger append serialized.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err, models.ErrStoreUnavailable)
	}
	defer sqlTx.Rollback()

	if err := fn(ctx, &tx{tx: sqlTx, now: s.now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapError(err, models.ErrVersionConflict)
	}
	return nil
}

type tx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *tx) Accounts() store.AccountStore { return &accountStore{tx: t.tx, now: t.now} }
func (t *tx) Ledger() store.LedgerStore    { return &ledgerStore{tx: t.tx} }

// Postgres error codes the adapter distinguishes.
const (
	codeNumericOverflow      = "22003"
	codeCheckViolation       = "23514"
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// balanceChecks are the CHECK constraints that guard against overdrafts.
var balanceChecks = map[string]bool{
	"accounts_balance_check":             true,
	"ledger_entries_balance_after_check": true,
}

// mapError converts driver errors to the store contract. onUnique is the
// error kind a unique-constraint violation means for the calling statement.
// Data errors map to domain kinds so they never count as store outages.
func mapError(err error, onUnique error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", onUnique, pqErr.Constraint)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", models.ErrVersionConflict, pqErr.Message)
		case codeNumericOverflow:
			return fmt.Errorf("%w: %s", models.ErrInvalidAmount, pqErr.Message)
		case codeCheckViolation:
			if balanceChecks[pqErr.Constraint] {
				return fmt.Errorf("%w: %s", models.ErrInsufficientFunds, pqErr.Constraint)
			}
			return fmt.Errorf("%w: %s", models.ErrInvalidAmount, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
}

var _ store.Store = (*Store)(nil)
