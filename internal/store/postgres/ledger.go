package postgres

import (
	"context"
	"database/sql"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
)

type ledgerStore struct {
	tx *sql.Tx
}

// Append computes the next sequence number in the INSERT itself. Callers hold
// the account row lock from ConditionalUpdate, and the (account_key,
// sequence_number) primary key rejects anything that slips through.
func (s *ledgerStore) Append(ctx context.Context, accountKey string, record models.TransactionRecord) (models.TransactionRecord, error) {
	record.AccountKey = accountKey
	err := s.tx.QueryRowContext(ctx, `
		INSERT INTO ledger_entries (account_key, sequence_number, reference, occurred_at, description, amount, balance_after)
		VALUES ($1, (SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM ledger_entries WHERE account_key = $1), $2, $3, $4, $5, $6)
		RETURNING sequence_number`,
		accountKey, record.Reference, record.Timestamp, string(record.Description), record.Amount, record.BalanceAfter,
	).Scan(&record.SequenceNumber)
	if err != nil {
		return models.TransactionRecord{}, mapError(err, models.ErrVersionConflict)
	}
	return record, nil
}

func (s *ledgerStore) ListByAccount(ctx context.Context, accountKey string) ([]models.TransactionRecord, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT account_key, sequence_number, reference, occurred_at, description, amount, balance_after
		FROM ledger_entries
		WHERE account_key = $1
		ORDER BY sequence_number`, accountKey)
	if err != nil {
		return nil, mapError(err, models.ErrVersionConflict)
	}
	defer rows.Close()

	records := []models.TransactionRecord{}
	for rows.Next() {
		var (
			rec  models.TransactionRecord
			desc string
		)
		if err := rows.Scan(&rec.AccountKey, &rec.SequenceNumber, &rec.Reference, &rec.Timestamp,
			&desc, &rec.Amount, &rec.BalanceAfter); err != nil {
			return nil, mapError(err, models.ErrVersionConflict)
		}
		rec.Description = models.Description(desc)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, models.ErrVersionConflict)
	}
	return records, nil
}

var _ store.LedgerStore = (*ledgerStore)(nil)
