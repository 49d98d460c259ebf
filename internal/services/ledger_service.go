package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bankledger/backend/internal/audit"
	"github.com/bankledger/backend/internal/config"
	"github.com/bankledger/backend/internal/events"
	"github.com/bankledger/backend/internal/identity"
	"github.com/bankledger/backend/internal/logging"
	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	opOpen      = "open"
	opDeposit   = "deposit"
	opWithdraw  = "withdraw"
	opTransfer  = "transfer"
	opHistory   = "history"
	opReconcile = "reconcile"
)

// TransferResult holds both records written by one transfer.
type TransferResult struct {
	Reference uuid.UUID                `json:"reference"`
	Debit     models.TransactionRecord `json:"debit"`
	Credit    models.TransactionRecord `json:"credit"`
}

// LedgerService is the ledger engine. Every mutating operation reads fresh
// state, computes the new balance and commits the balance change together
// with its ledger record in one unit of work. Version conflicts restart the
// operation from a fresh read, at most maxRetries times.
type LedgerService struct {
	store      store.Store
	resolver   identity.Resolver
	publisher  events.Publisher
	audit      *audit.Logger
	logger     *zap.Logger
	maxRetries int

	now    func() time.Time
	newRef func() uuid.UUID
}

func NewLedgerService(st store.Store, resolver identity.Resolver, publisher events.Publisher,
	auditLogger *audit.Logger, cfg config.LedgerConfig, logger *zap.Logger) *LedgerService {
	logger = logging.OrNop(logger)
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if resolver == nil {
		resolver = identity.HashResolver{}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &LedgerService{
		store:      st,
		resolver:   resolver,
		publisher:  publisher,
		audit:      auditLogger,
		logger:     logger.Named("ledger"),
		maxRetries: maxRetries,
		now:        time.Now,
		newRef:     uuid.New,
	}
}

// OpenAccount creates an account keyed by the resolver and records its
// initial deposit in the same unit of work.
func (s *LedgerService) OpenAccount(ctx context.Context, profile models.Profile, initialBalance decimal.Decimal) (models.Account, error) {
	if err := profile.Validate(); err != nil {
		return models.Account{}, fmt.Errorf("open account: %w", err)
	}
	if err := models.ValidateOpeningBalance(initialBalance); err != nil {
		return models.Account{}, fmt.Errorf("open account: %w", err)
	}
	key, err := s.resolver.Key(profile.FirstName, profile.Mobile)
	if err != nil {
		return models.Account{}, fmt.Errorf("open account: %w", err)
	}

	ref := s.newRef()
	var (
		account models.Account
		record  models.TransactionRecord
	)
	err = s.withRetry(ctx, opOpen, key, func(ctx context.Context, tx store.Tx) error {
		var err error
		account, err = tx.Accounts().Create(ctx, models.Account{
			Key:        key,
			FirstName:  strings.TrimSpace(profile.FirstName),
			LastName:   strings.TrimSpace(profile.LastName),
			Mobile:     profile.Mobile,
			NationalID: profile.NationalID,
			Balance:    initialBalance,
		})
		if err != nil {
			return err
		}
		record, err = tx.Ledger().Append(ctx, key, models.TransactionRecord{
			Reference:    ref,
			Timestamp:    s.now().UTC(),
			Description:  models.DescriptionInitialDeposit,
			Amount:       initialBalance,
			BalanceAfter: initialBalance,
		})
		return err
	})
	if err != nil {
		s.audit.LogError(ref.String(), key, strings.ToUpper(opOpen), initialBalance, err)
		return models.Account{}, fmt.Errorf("open account %s: %w", key, err)
	}

	s.audit.LogOperation(ref.String(), key, strings.ToUpper(opOpen), initialBalance)
	s.publish(ctx, ref, opOpen, record)
	return account, nil
}

func (s *LedgerService) Deposit(ctx context.Context, key string, amount decimal.Decimal) (models.TransactionRecord, error) {
	return s.move(ctx, opDeposit, key, amount, models.DescriptionDeposit)
}

// Withdraw fails with models.ErrInsufficientFunds when amount exceeds the
// freshly read balance.
func (s *LedgerService) Withdraw(ctx context.Context, key string, amount decimal.Decimal) (models.TransactionRecord, error) {
	return s.move(ctx, opWithdraw, key, amount, models.DescriptionWithdrawn)
}

func (s *LedgerService) move(ctx context.Context, op, key string, amount decimal.Decimal, desc models.Description) (models.TransactionRecord, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("%s %s: %w", op, key, err)
	}

	ref := s.newRef()
	var record models.TransactionRecord
	err := s.withRetry(ctx, op, key, func(ctx context.Context, tx store.Tx) error {
		account, err := tx.Accounts().Get(ctx, key)
		if err != nil {
			return err
		}
		next, err := desc.Apply(account.Balance, amount)
		if err != nil {
			return err
		}
		if _, err := tx.Accounts().ConditionalUpdate(ctx, key, account.Version, next); err != nil {
			return err
		}
		record, err = tx.Ledger().Append(ctx, key, models.TransactionRecord{
			Reference:    ref,
			Timestamp:    s.now().UTC(),
			Description:  desc,
			Amount:       amount,
			BalanceAfter: next,
		})
		return err
	})
	if err != nil {
		s.audit.LogError(ref.String(), key, strings.ToUpper(op), amount, err)
		return models.TransactionRecord{}, fmt.Errorf("%s %s: %w", op, key, err)
	}

	s.audit.LogOperation(ref.String(), key, strings.ToUpper(op), amount)
	s.publish(ctx, ref, op, record)
	return record, nil
}

type balanceUpdate struct {
	account models.Account
	next    decimal.Decimal
}

// Transfer debits sender and credits receiver atomically. Account rows are
// updated in ascending key order so concurrent transfers in opposite
// directions cannot deadlock in a locking store.
func (s *LedgerService) Transfer(ctx context.Context, senderKey, receiverKey string, amount decimal.Decimal) (TransferResult, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return TransferResult{}, fmt.Errorf("transfer %s -> %s: %w", senderKey, receiverKey, err)
	}
	if senderKey == receiverKey {
		return TransferResult{}, fmt.Errorf("transfer %s -> %s: %w", senderKey, receiverKey, models.ErrInvalidTransfer)
	}

	ref := s.newRef()
	var result TransferResult
	err := s.withRetry(ctx, opTransfer, senderKey, func(ctx context.Context, tx store.Tx) error {
		sender, err := tx.Accounts().Get(ctx, senderKey)
		if err != nil {
			return err
		}
		receiver, err := tx.Accounts().Get(ctx, receiverKey)
		if err != nil {
			return err
		}

		senderNext, err := models.DescriptionDebit.Apply(sender.Balance, amount)
		if err != nil {
			return err
		}
		receiverNext, err := models.DescriptionCredit.Apply(receiver.Balance, amount)
		if err != nil {
			return err
		}

		updates := []balanceUpdate{{sender, senderNext}, {receiver, receiverNext}}
		if receiverKey < senderKey {
			updates[0], updates[1] = updates[1], updates[0]
		}
		for _, u := range updates {
			if _, err := tx.Accounts().ConditionalUpdate(ctx, u.account.Key, u.account.Version, u.next); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		debit, err := tx.Ledger().Append(ctx, senderKey, models.TransactionRecord{
			Reference:    ref,
			Timestamp:    now,
			Description:  models.DescriptionDebit,
			Amount:       amount,
			BalanceAfter: senderNext,
		})
		if err != nil {
			return err
		}
		credit, err := tx.Ledger().Append(ctx, receiverKey, models.TransactionRecord{
			Reference:    ref,
			Timestamp:    now,
			Description:  models.DescriptionCredit,
			Amount:       amount,
			BalanceAfter: receiverNext,
		})
		if err != nil {
			return err
		}

		result = TransferResult{Reference: ref, Debit: debit, Credit: credit}
		return nil
	})
	if err != nil {
		s.audit.LogTransfer(ref.String(), senderKey, receiverKey, amount, audit.StatusFailed)
		return TransferResult{}, fmt.Errorf("transfer %s -> %s: %w", senderKey, receiverKey, err)
	}

	s.audit.LogTransfer(ref.String(), senderKey, receiverKey, amount, audit.StatusSuccess)
	s.publish(ctx, ref, opTransfer, result.Debit, result.Credit)
	return result, nil
}

// History returns the account's records sorted by order. An unknown account
// or an account without records yields models.ErrNotFound.
func (s *LedgerService) History(ctx context.Context, key string, order models.Order) ([]models.TransactionRecord, error) {
	if _, err := models.ParseOrder(string(order)); err != nil {
		return nil, fmt.Errorf("%s %s: %w", opHistory, key, err)
	}

	var records []models.TransactionRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Accounts().Get(ctx, key); err != nil {
			return err
		}
		var err error
		records, err = tx.Ledger().ListByAccount(ctx, key)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("%w: no history for account %s", models.ErrNotFound, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", opHistory, key, err)
	}

	models.SortRecords(records, order)
	return records, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, key string) (models.Account, error) {
	var account models.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		account, err = tx.Accounts().Get(ctx, key)
		return err
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("get account %s: %w", key, err)
	}
	return account, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		accounts, err = tx.Accounts().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Reconcile replays the account's history from zero and checks it against
// the stored balance. A mismatch is returned as *models.ReconcileError.
func (s *LedgerService) Reconcile(ctx context.Context, key string) (models.Account, error) {
	var account models.Account
	err := s.withRetry(ctx, opReconcile, key, func(ctx context.Context, tx store.Tx) error {
		before, err := tx.Accounts().Get(ctx, key)
		if err != nil {
			return err
		}
		records, err := tx.Ledger().ListByAccount(ctx, key)
		if err != nil {
			return err
		}
		after, err := tx.Accounts().Get(ctx, key)
		if err != nil {
			return err
		}
		// records and balance must come from the same committed state
		if after.Version != before.Version {
			return fmt.Errorf("%w: account %s changed during reconcile", models.ErrVersionConflict, key)
		}
		account = after
		return models.Replay(key, records, after.Balance)
	})
	if err != nil {
		if errors.Is(err, models.ErrLedgerMismatch) {
			s.logger.Error("ledger mismatch", zap.String("account", key), zap.Error(err))
		}
		return models.Account{}, fmt.Errorf("%s %s: %w", opReconcile, key, err)
	}
	return account, nil
}

// withRetry runs fn in a unit of work and restarts it on version conflicts.
// Any other error, including store unavailability, is returned at once.
func (s *LedgerService) withRetry(ctx context.Context, op, key string, fn func(ctx context.Context, tx store.Tx) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.store.WithinTx(ctx, fn)
		if err == nil {
			s.logger.Debug("committed", zap.String("op", op), zap.String("account", key), zap.Int("attempt", attempt+1))
			return nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			s.logger.Warn("retries exhausted", zap.String("op", op), zap.String("account", key), zap.Int("attempts", attempt+1))
			return fmt.Errorf("%w after %d attempts", models.ErrContention, attempt+1)
		}
		s.logger.Warn("version conflict, retrying", zap.String("op", op), zap.String("account", key), zap.Int("attempt", attempt+1))
	}
}

// publish is best effort. The operation has already committed.
func (s *LedgerService) publish(ctx context.Context, ref uuid.UUID, op string, records ...models.TransactionRecord) {
	event := events.LedgerEvent{
		Reference:   ref,
		Operation:   op,
		Records:     records,
		CommittedAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish ledger event", zap.String("op", op), zap.String("reference", ref.String()), zap.Error(err))
	}
}
