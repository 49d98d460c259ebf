// Package breaker guards a store.Store with a circuit breaker so a failing
// database is not hammered by every request.
package breaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/bankledger/backend/internal/config"
	"github.com/bankledger/backend/internal/logging"
	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type Store struct {
	inner   store.Store
	breaker *gobreaker.CircuitBreaker
}

// Wrap returns inner guarded by a breaker that trips after
// cfg.ConsecutiveFailures store-unavailable errors in a row. Domain errors
// and version conflicts count as successes.
func Wrap(inner store.Store, cfg config.BreakerConfig, logger *zap.Logger) *Store {
	logger = logging.OrNop(logger)
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "ledger-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, models.ErrStoreUnavailable)
		},
	}

	return &Store{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.inner.WithinTx(ctx, fn)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return err
}

// State reports the breaker state for health checks.
func (s *Store) State() string {
	return s.breaker.State().String()
}

var _ store.Store = (*Store)(nil)
