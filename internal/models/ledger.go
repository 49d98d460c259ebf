package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Description is the closed set of reasons a ledger record can carry.
type Description string

const (
	DescriptionInitialDeposit Description = "Initial Deposit"
	DescriptionDeposit        Description = "Deposit"
	DescriptionWithdrawn      Description = "Withdrawn"
	DescriptionDebit          Description = "Debit"
	DescriptionCredit         Description = "Credit"
)

// IsCredit reports whether the description increases the balance.
func (d Description) IsCredit() bool {
	switch d {
	case DescriptionInitialDeposit, DescriptionDeposit, DescriptionCredit:
		return true
	}
	return false
}

func (d Description) Valid() bool {
	switch d {
	case DescriptionInitialDeposit, DescriptionDeposit, DescriptionWithdrawn, DescriptionDebit, DescriptionCredit:
		return true
	}
	return false
}

// Apply returns the balance after moving amount in the direction of d.
// A credit that would reach MaxAmount fails with ErrInvalidAmount.
func (d Description) Apply(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	if d.IsCredit() {
		next := balance.Add(amount)
		if next.GreaterThanOrEqual(MaxAmount) {
			return balance, fmt.Errorf("%w: balance %s plus %s reaches the %s limit", ErrInvalidAmount, balance, amount, MaxAmount)
		}
		return next, nil
	}
	next := balance.Sub(amount)
	if next.IsNegative() {
		return balance, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, balance, amount)
	}
	return next, nil
}

// TransactionRecord is one immutable entry of an account's ledger.
type TransactionRecord struct {
	AccountKey     string          `json:"accountKey" db:"account_key"`
	SequenceNumber int64           `json:"sequenceNumber" db:"sequence_number"`
	Reference      uuid.UUID       `json:"reference" db:"reference"`
	Timestamp      time.Time       `json:"timestamp" db:"occurred_at"`
	Description    Description     `json:"description" db:"description"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter   decimal.Decimal `json:"balanceAfter" db:"balance_after"`
}

// Order selects how history is sorted.
type Order string

const (
	OrderNatural Order = ""
	OrderAsc     Order = "asc"
	OrderDesc    Order = "desc"
)

func ParseOrder(s string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(s))); o {
	case OrderNatural, OrderAsc, OrderDesc:
		return o, nil
	}
	return OrderNatural, fmt.Errorf("%w: %q", ErrInvalidOrder, s)
}

// SortRecords orders records by timestamp, breaking ties by sequence number.
// OrderNatural leaves the slice as the store returned it.
func SortRecords(records []TransactionRecord, order Order) {
	if order == OrderNatural {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if order == OrderDesc {
			a, b = b, a
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.SequenceNumber < b.SequenceNumber
	})
}

// ReconcileError describes where a replayed ledger diverged from stored state.
type ReconcileError struct {
	AccountKey string
	Sequence   int64
	Expected   decimal.Decimal
	Replayed   decimal.Decimal
	Reason     string
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("account %s at sequence %d: %s (expected %s, replayed %s)",
		e.AccountKey, e.Sequence, e.Reason, e.Expected, e.Replayed)
}

func (e *ReconcileError) Unwrap() error { return ErrLedgerMismatch }

// Replay folds records in sequence order starting from zero. It checks that
// sequence numbers are gap-free, that each balanceAfter matches the running
// total, and that the final total equals balance.
func Replay(accountKey string, records []TransactionRecord, balance decimal.Decimal) error {
	running := decimal.Zero
	for i, rec := range records {
		seq := int64(i + 1)
		if rec.SequenceNumber != seq {
			return &ReconcileError{AccountKey: accountKey, Sequence: rec.SequenceNumber, Expected: decimal.NewFromInt(seq), Replayed: decimal.NewFromInt(rec.SequenceNumber), Reason: "sequence gap"}
		}
		if !rec.Description.Valid() {
			return &ReconcileError{AccountKey: accountKey, Sequence: seq, Expected: rec.BalanceAfter, Replayed: running, Reason: "unknown description " + string(rec.Description)}
		}
		next, err := rec.Description.Apply(running, rec.Amount)
		if errors.Is(err, ErrInsufficientFunds) {
			return &ReconcileError{AccountKey: accountKey, Sequence: seq, Expected: rec.BalanceAfter, Replayed: running.Sub(rec.Amount), Reason: "negative running balance"}
		}
		if err != nil {
			return &ReconcileError{AccountKey: accountKey, Sequence: seq, Expected: rec.BalanceAfter, Replayed: running, Reason: "running balance out of range"}
		}
		if !next.Equal(rec.BalanceAfter) {
			return &ReconcileError{AccountKey: accountKey, Sequence: seq, Expected: rec.BalanceAfter, Replayed: next, Reason: "balanceAfter mismatch"}
		}
		running = next
	}
	if !running.Equal(balance) {
		return &ReconcileError{AccountKey: accountKey, Sequence: int64(len(records)), Expected: balance, Replayed: running, Reason: "final balance mismatch"}
	}
	return nil
}
