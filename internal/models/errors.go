package models

import "errors"

var (
	// ErrNotFound is returned when an account or its history does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when an account key, mobile or national ID is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInsufficientFunds is returned when a debit would take a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for non-positive or malformed amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidProfile is returned when identifying fields are missing.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrInvalidTransfer is returned when sender and receiver are the same account.
	ErrInvalidTransfer = errors.New("sender and receiver must differ")

	// ErrInvalidOrder is returned for a history order other than asc or desc.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrContention is returned once the optimistic retry budget is spent.
	ErrContention = errors.New("too much contention, retries exhausted")

	// ErrStoreUnavailable wraps failures of the underlying store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVersionConflict is returned by stores when a conditional update loses a race.
	ErrVersionConflict = errors.New("optimistic lock failed")

	// ErrLedgerMismatch is returned when replaying history does not reproduce the balance.
	ErrLedgerMismatch = errors.New("ledger does not match balance")
)
