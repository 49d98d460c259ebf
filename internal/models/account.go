package models

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places money values may carry.
const AmountScale = 2

// MaxIntegerDigits matches the NUMERIC(20, 2) columns: twenty digits of
// which AmountScale sit after the point.
const MaxIntegerDigits = 20 - AmountScale

// MaxAmount is the exclusive upper bound for amounts and balances.
var MaxAmount = decimal.New(1, MaxIntegerDigits)

// Account is a customer account and its current balance.
type Account struct {
	Key        string          `json:"key" db:"key"`
	FirstName  string          `json:"firstName" db:"first_name"`
	LastName   string          `json:"lastName" db:"last_name"`
	Mobile     int64           `json:"mobile" db:"mobile"`
	NationalID int64           `json:"nationalId" db:"national_id"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	Version    int64           `json:"version" db:"version"` // for optimistic locking
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time       `json:"updatedAt" db:"updated_at"`
}

// Profile holds the identifying fields supplied when an account is opened.
type Profile struct {
	FirstName  string
	LastName   string
	Mobile     int64
	NationalID int64
}

func (p Profile) Validate() error {
	switch {
	case strings.TrimSpace(p.FirstName) == "":
		return fmt.Errorf("%w: first name is required", ErrInvalidProfile)
	case strings.TrimSpace(p.LastName) == "":
		return fmt.Errorf("%w: last name is required", ErrInvalidProfile)
	case p.Mobile <= 0:
		return fmt.Errorf("%w: mobile is required", ErrInvalidProfile)
	case p.NationalID <= 0:
		return fmt.Errorf("%w: national ID is required", ErrInvalidProfile)
	}
	return nil
}

// ValidateAmount checks that a movement amount is positive, below MaxAmount
// and has at most AmountScale decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if err := checkMagnitude(amount); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount)
	}
	return checkScale(amount)
}

// ValidateOpeningBalance is ValidateAmount that also accepts zero.
func ValidateOpeningBalance(amount decimal.Decimal) error {
	if err := checkMagnitude(amount); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidAmount, amount)
	}
	return checkScale(amount)
}

// checkMagnitude bounds an amount using only its coefficient length and
// exponent. It runs before any comparison because comparing or truncating
// a value like 1e20000000 materialises every digit.
func checkMagnitude(amount decimal.Decimal) error {
	digits := len(new(big.Int).Abs(amount.Coefficient()).String())
	exp := int(amount.Exponent())
	if digits+exp > MaxIntegerDigits {
		return fmt.Errorf("%w: amount must be below %s", ErrInvalidAmount, MaxAmount)
	}
	// More fractional zeros required than the coefficient has digits means a
	// nonzero digit sits past AmountScale.
	if -exp-AmountScale > digits {
		return fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidAmount, AmountScale)
	}
	return nil
}

func checkScale(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, AmountScale)
	}
	return nil
}
