package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

var accountCols = []string{"key", "first_name", "last_name", "mobile", "national_id", "balance", "version", "created_at", "updated_at"}

func TestStore_DepositUnitOfWork(t *testing.T) {
	s, mock := newMockStore(t)
	ref := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT key, first_name, last_name, mobile, national_id, balance, version, created_at, updated_at FROM accounts WHERE key = \\$1").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("acc_1", "Asha", "Rao", 9876543210, 111122223333, "1000.00", 1, fixedNow, fixedNow))
	mock.ExpectQuery("UPDATE accounts SET balance = \\$1, version = version \\+ 1, updated_at = \\$2 WHERE key = \\$3 AND version = \\$4").
		WithArgs(decimal.RequireFromString("1500"), fixedNow, "acc_1", int64(1)).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("acc_1", "Asha", "Rao", 9876543210, 111122223333, "1500.00", 2, fixedNow, fixedNow))
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WithArgs("acc_1", ref, fixedNow, "Deposit", decimal.RequireFromString("500"), decimal.RequireFromString("1500")).
		WillReturnRows(sqlmock.NewRows([]string{"sequence_number"}).AddRow(2))
	mock.ExpectCommit()

	var (
		updated models.Account
		record  models.TransactionRecord
	)
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.Accounts().Get(ctx, "acc_1")
		if err != nil {
			return err
		}
		next := acc.Balance.Add(decimal.NewFromInt(500))
		if updated, err = tx.Accounts().ConditionalUpdate(ctx, "acc_1", acc.Version, next); err != nil {
			return err
		}
		record, err = tx.Ledger().Append(ctx, "acc_1", models.TransactionRecord{
			Reference:    ref,
			Timestamp:    fixedNow,
			Description:  models.DescriptionDeposit,
			Amount:       decimal.NewFromInt(500),
			BalanceAfter: next,
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, int64(2), record.SequenceNumber)
	assert.Equal(t, "acc_1", record.AccountKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ConditionalUpdate(t *testing.T) {
	t.Run("version conflict", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE accounts SET balance").
			WithArgs(decimal.NewFromInt(10), fixedNow, "acc_1", int64(3)).
			WillReturnRows(sqlmock.NewRows(accountCols))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("acc_1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().ConditionalUpdate(ctx, "acc_1", 3, decimal.NewFromInt(10))
			return err
		})
		assert.ErrorIs(t, err, models.ErrVersionConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE accounts SET balance").
			WillReturnRows(sqlmock.NewRows(accountCols))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().ConditionalUpdate(ctx, "ghost", 1, decimal.NewFromInt(10))
			return err
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE accounts SET balance").
			WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
		mock.ExpectRollback()

		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().ConditionalUpdate(ctx, "acc_1", 1, decimal.NewFromInt(10))
			return err
		})
		assert.ErrorIs(t, err, models.ErrVersionConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_DataErrorsAreDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *pq.Error
		want error
	}{
		{
			name: "numeric overflow",
			err:  &pq.Error{Code: "22003", Message: "numeric field overflow"},
			want: models.ErrInvalidAmount,
		},
		{
			name: "negative balance check",
			err:  &pq.Error{Code: "23514", Constraint: "accounts_balance_check"},
			want: models.ErrInsufficientFunds,
		},
		{
			name: "other check",
			err:  &pq.Error{Code: "23514", Constraint: "ledger_entries_amount_check"},
			want: models.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery("UPDATE accounts SET balance").
				WithArgs(decimal.RequireFromString("1e18"), fixedNow, "acc_1", int64(1)).
				WillReturnError(tt.err)
			mock.ExpectRollback()

			err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
				_, err := tx.Accounts().ConditionalUpdate(ctx, "acc_1", 1, decimal.RequireFromString("1e18"))
				return err
			})
			assert.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, models.ErrStoreUnavailable)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_Create(t *testing.T) {
	account := models.Account{
		Key:        "acc_1",
		FirstName:  "Asha",
		LastName:   "Rao",
		Mobile:     9876543210,
		NationalID: 111122223333,
		Balance:    decimal.NewFromInt(1000),
	}

	t.Run("inserts version one", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs("acc_1", "Asha", "Rao", int64(9876543210), int64(111122223333),
				decimal.NewFromInt(1000), int64(1), fixedNow, fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var created models.Account
		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			var err error
			created, err = tx.Accounts().Create(ctx, account)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.Version)
		assert.Equal(t, fixedNow, created.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO accounts").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "accounts_mobile_key"})
		mock.ExpectRollback()

		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().Create(ctx, account)
			return err
		})
		assert.ErrorIs(t, err, models.ErrAlreadyExists)
		assert.Contains(t, err.Error(), "accounts_mobile_key")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_Get(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM accounts WHERE key").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().Get(ctx, "ghost")
			return err
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM accounts WHERE key").
			WillReturnError(errors.New("connection reset by peer"))
		mock.ExpectRollback()

		err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().Get(ctx, "acc_1")
			return err
		})
		assert.ErrorIs(t, err, models.ErrStoreUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_BeginFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		t.Fatal("unit of work must not run")
		return nil
	})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListByAccount(t *testing.T) {
	s, mock := newMockStore(t)
	ref := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM ledger_entries WHERE account_key = \\$1 ORDER BY sequence_number").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"account_key", "sequence_number", "reference", "occurred_at", "description", "amount", "balance_after"}).
			AddRow("acc_1", 1, ref.String(), fixedNow, "Initial Deposit", "1000.00", "1000.00").
			AddRow("acc_1", 2, ref.String(), fixedNow, "Withdrawn", "250.50", "749.50"))
	mock.ExpectCommit()

	var records []models.TransactionRecord
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		var err error
		records, err = tx.Ledger().ListByAccount(ctx, "acc_1")
		return err
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.DescriptionWithdrawn, records[1].Description)
	assert.Equal(t, ref, records[1].Reference)
	assert.True(t, records[1].BalanceAfter.Equal(decimal.RequireFromString("749.50")))
	assert.NoError(t, models.Replay("acc_1", records, decimal.RequireFromString("749.5")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendDuplicateSequence(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "ledger_entries_pkey"})
	mock.ExpectRollback()

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Ledger().Append(ctx, "acc_1", models.TransactionRecord{Description: models.DescriptionDeposit})
		return err
	})
	assert.ErrorIs(t, err, models.ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
