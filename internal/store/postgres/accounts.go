package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
	"github.com/shopspring/decimal"
)

const accountColumns = `key, first_name, last_name, mobile, national_id, balance, version, created_at, updated_at`

type accountStore struct {
	tx  *sql.Tx
	now func() time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.Key, &a.FirstName, &a.LastName, &a.Mobile, &a.NationalID,
		&a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *accountStore) Get(ctx context.Context, key string) (models.Account, error) {
	account, err := scanAccount(s.tx.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE key = $1`, key))
	if err != nil {
		return models.Account{}, wrapKey(mapError(err, models.ErrAlreadyExists), key)
	}
	return account, nil
}

func (s *accountStore) Create(ctx context.Context, account models.Account) (models.Account, error) {
	now := s.now().UTC()
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := s.tx.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.Key, account.FirstName, account.LastName, account.Mobile, account.NationalID,
		account.Balance, account.Version, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return models.Account{}, wrapKey(mapError(err, models.ErrAlreadyExists), account.Key)
	}
	return account, nil
}

func (s *accountStore) ConditionalUpdate(ctx context.Context, key string, expectedVersion int64, newBalance decimal.Decimal) (models.Account, error) {
	account, err := scanAccount(s.tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE key = $3 AND version = $4
		RETURNING `+accountColumns,
		newBalance, s.now().UTC(), key, expectedVersion))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, wrapKey(mapError(err, models.ErrVersionConflict), key)
	}

	// Zero rows: either the account is gone or someone else bumped the version.
	var exists bool
	if err := s.tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE key = $1)`, key).Scan(&exists); err != nil {
		return models.Account{}, wrapKey(mapError(err, models.ErrVersionConflict), key)
	}
	if !exists {
		return models.Account{}, wrapKey(models.ErrNotFound, key)
	}
	return models.Account{}, fmt.Errorf("%w: account %s, expected version %d", models.ErrVersionConflict, key, expectedVersion)
}

func (s *accountStore) List(ctx context.Context) ([]models.Account, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY key`)
	if err != nil {
		return nil, mapError(err, models.ErrAlreadyExists)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, mapError(err, models.ErrAlreadyExists)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, models.ErrAlreadyExists)
	}
	return accounts, nil
}

func wrapKey(err error, key string) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: account %s", models.ErrNotFound, key)
	}
	return err
}

var _ store.AccountStore = (*accountStore)(nil)
