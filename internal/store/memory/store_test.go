package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(key string, mobile, nationalID int64, balance int64) models.Account {
	return models.Account{
		Key:        key,
		FirstName:  "First" + key,
		LastName:   "Last" + key,
		Mobile:     mobile,
		NationalID: nationalID,
		Balance:    decimal.NewFromInt(balance),
	}
}

func seed(t *testing.T, s *Store, accounts ...models.Account) {
	t.Helper()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for _, acc := range accounts {
			if _, err := tx.Accounts().Create(ctx, acc); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Create(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, newAccount("a", 1, 11, 100))

	t.Run("version starts at one", func(t *testing.T) {
		err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			acc, err := tx.Accounts().Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, int64(1), acc.Version)
			assert.False(t, acc.CreatedAt.IsZero())
			return nil
		})
		require.NoError(t, err)
	})

	tests := []struct {
		name    string
		account models.Account
	}{
		{name: "duplicate key", account: newAccount("a", 2, 22, 0)},
		{name: "duplicate mobile", account: newAccount("b", 1, 22, 0)},
		{name: "duplicate national id", account: newAccount("b", 2, 11, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
				_, err := tx.Accounts().Create(ctx, tt.account)
				return err
			})
			assert.ErrorIs(t, err, models.ErrAlreadyExists)
		})
	}

	t.Run("duplicate within one unit of work", func(t *testing.T) {
		err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.Accounts().Create(ctx, newAccount("c", 3, 33, 0)); err != nil {
				return err
			}
			_, err := tx.Accounts().Create(ctx, newAccount("d", 3, 44, 0))
			return err
		})
		assert.ErrorIs(t, err, models.ErrAlreadyExists)

		err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().Get(ctx, "c")
			return err
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestStore_ConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, newAccount("a", 1, 11, 100))

	t.Run("matching version", func(t *testing.T) {
		err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			acc, err := tx.Accounts().ConditionalUpdate(ctx, "a", 1, decimal.NewFromInt(150))
			require.NoError(t, err)
			assert.Equal(t, int64(2), acc.Version)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("stale version", func(t *testing.T) {
		err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().ConditionalUpdate(ctx, "a", 1, decimal.NewFromInt(0))
			return err
		})
		assert.ErrorIs(t, err, models.ErrVersionConflict)
	})

	t.Run("missing account", func(t *testing.T) {
		err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := tx.Accounts().ConditionalUpdate(ctx, "zz", 1, decimal.NewFromInt(0))
			return err
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("concurrent commit is detected at commit", func(t *testing.T) {
		err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			acc, err := tx.Accounts().Get(ctx, "a")
			require.NoError(t, err)
			if _, err := tx.Accounts().ConditionalUpdate(ctx, "a", acc.Version, decimal.NewFromInt(1)); err != nil {
				return err
			}

			// another unit of work commits first
			inner := s.WithinTx(ctx, func(ctx context.Context, other store.Tx) error {
				_, err := other.Accounts().ConditionalUpdate(ctx, "a", acc.Version, decimal.NewFromInt(2))
				return err
			})
			require.NoError(t, inner)
			return nil
		})
		assert.ErrorIs(t, err, models.ErrVersionConflict)

		err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			acc, err := tx.Accounts().Get(ctx, "a")
			require.NoError(t, err)
			assert.True(t, acc.Balance.Equal(decimal.NewFromInt(2)))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_Append(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, newAccount("a", 1, 11, 0), newAccount("b", 2, 22, 0))

	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for i := 0; i < 3; i++ {
			rec, err := tx.Ledger().Append(ctx, "a", models.TransactionRecord{Description: models.DescriptionDeposit})
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), rec.SequenceNumber)
			assert.Equal(t, "a", rec.AccountKey)
		}
		rec, err := tx.Ledger().Append(ctx, "b", models.TransactionRecord{Description: models.DescriptionDeposit})
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.SequenceNumber)
		return nil
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		rec, err := tx.Ledger().Append(ctx, "a", models.TransactionRecord{Description: models.DescriptionDeposit})
		require.NoError(t, err)
		assert.Equal(t, int64(4), rec.SequenceNumber)

		records, err := tx.Ledger().ListByAccount(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, records, 4)
		return nil
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Ledger().Append(ctx, "missing", models.TransactionRecord{})
		return err
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, newAccount("a", 1, 11, 100))
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Accounts().ConditionalUpdate(ctx, "a", 1, decimal.NewFromInt(50)); err != nil {
			return err
		}
		if _, err := tx.Ledger().Append(ctx, "a", models.TransactionRecord{Description: models.DescriptionWithdrawn}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.Accounts().Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, acc.Balance.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, int64(1), acc.Version)

		records, err := tx.Ledger().ListByAccount(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, records)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_List(t *testing.T) {
	s := New()
	seed(t, s, newAccount("b", 2, 22, 0), newAccount("a", 1, 11, 0))

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		accounts, err := tx.Accounts().List(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "a", accounts[0].Key)
		assert.Equal(t, "b", accounts[1].Key)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
