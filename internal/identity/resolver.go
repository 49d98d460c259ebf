// Package identity derives account keys from the fields customers identify
// themselves with.
package identity

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bankledger/backend/internal/models"
	"golang.org/x/crypto/blake2b"
)

const (
	SchemeHash   = "hash"
	SchemeConcat = "concat"

	keyPrefix = "acc_"
)

// Resolver maps a first name and mobile number to a stable account key.
type Resolver interface {
	Key(firstName string, mobile int64) (string, error)
}

// ConcatResolver joins the first name and mobile number verbatim.
type ConcatResolver struct{}

func (ConcatResolver) Key(firstName string, mobile int64) (string, error) {
	if err := check(firstName, mobile); err != nil {
		return "", err
	}
	return strings.TrimSpace(firstName) + strconv.FormatInt(mobile, 10), nil
}

// HashResolver returns "acc_" followed by the hex BLAKE2b-256 digest of the
// case-folded first name and the mobile number. Keys are fixed length and do
// not expose the customer's name.
type HashResolver struct{}

func (HashResolver) Key(firstName string, mobile int64) (string, error) {
	if err := check(firstName, mobile); err != nil {
		return "", err
	}
	name := strings.ToLower(strings.TrimSpace(firstName))
	sum := blake2b.Sum256([]byte(name + ":" + strconv.FormatInt(mobile, 10)))
	return keyPrefix + hex.EncodeToString(sum[:]), nil
}

// FromScheme returns the resolver configured by name.
func FromScheme(scheme string) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case SchemeHash, "":
		return HashResolver{}, nil
	case SchemeConcat:
		return ConcatResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown key scheme %q", scheme)
	}
}

func check(firstName string, mobile int64) error {
	if strings.TrimSpace(firstName) == "" {
		return fmt.Errorf("%w: first name is required", models.ErrInvalidProfile)
	}
	if mobile <= 0 {
		return fmt.Errorf("%w: mobile is required", models.ErrInvalidProfile)
	}
	return nil
}
