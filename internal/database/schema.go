package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the account and ledger tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	key          TEXT PRIMARY KEY,
	first_name   TEXT NOT NULL,
	last_name    TEXT NOT NULL,
	mobile       BIGINT NOT NULL UNIQUE,
	national_id  BIGINT NOT NULL UNIQUE,
	balance      NUMERIC(20, 2) NOT NULL CHECK (balance >= 0),
	version      BIGINT NOT NULL DEFAULT 1,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	account_key     TEXT NOT NULL REFERENCES accounts (key),
	sequence_number BIGINT NOT NULL CHECK (sequence_number > 0),
	reference       UUID NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL,
	description     TEXT NOT NULL CHECK (description IN ('Initial Deposit', 'Deposit', 'Withdrawn', 'Debit', 'Credit')),
	amount          NUMERIC(20, 2) NOT NULL CHECK (amount >= 0),
	balance_after   NUMERIC(20, 2) NOT NULL CHECK (balance_after >= 0),
	PRIMARY KEY (account_key, sequence_number)
);

CREATE INDEX IF NOT EXISTS ledger_entries_reference_idx ON ledger_entries (reference);
`

// EnsureSchema applies Schema in a single statement batch.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}
