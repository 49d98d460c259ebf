package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/store"
	"github.com/shopspring/decimal"
)

// Store is an in-process transactional store. Units of work buffer their
// writes and validate them against committed state under a short exclusive
// lock at commit, so readers and disjoint writers never wait on each other
// for longer than a commit.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]models.Account
	byMobile     map[int64]string
	byNationalID map[int64]string
	ledger       map[string][]models.TransactionRecord
	now          func() time.Time
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]models.Account),
		byMobile:     make(map[int64]string),
		byNationalID: make(map[int64]string),
		ledger:       make(map[string][]models.TransactionRecord),
		now:          time.Now,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	if err := fn(ctx, t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	if t.empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range t.created {
		if err := s.checkUnique(acc); err != nil {
			return err
		}
	}
	for key := range t.updated {
		if s.accounts[key].Version != t.baseVersion[key] {
			return fmt.Errorf("%w: account %s", models.ErrVersionConflict, key)
		}
	}
	for key := range t.appended {
		if len(s.ledger[key]) != t.baseLen[key] {
			return fmt.Errorf("%w: ledger %s", models.ErrVersionConflict, key)
		}
	}

	for key, acc := range t.created {
		s.accounts[key] = acc
		s.byMobile[acc.Mobile] = key
		s.byNationalID[acc.NationalID] = key
	}
	for key, acc := range t.updated {
		s.accounts[key] = acc
	}
	for key, recs := range t.appended {
		s.ledger[key] = append(s.ledger[key], recs...)
	}
	return nil
}

// checkUnique must be called with s.mu held.
func (s *Store) checkUnique(acc models.Account) error {
	if _, ok := s.accounts[acc.Key]; ok {
		return fmt.Errorf("%w: account %s", models.ErrAlreadyExists, acc.Key)
	}
	if _, ok := s.byMobile[acc.Mobile]; ok {
		return fmt.Errorf("%w: mobile %d", models.ErrAlreadyExists, acc.Mobile)
	}
	if _, ok := s.byNationalID[acc.NationalID]; ok {
		return fmt.Errorf("%w: national ID %d", models.ErrAlreadyExists, acc.NationalID)
	}
	return nil
}

func (s *Store) committedAccount(key string) (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[key]
	return acc, ok
}

func (s *Store) committedRecords(key string) []models.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TransactionRecord(nil), s.ledger[key]...)
}

// tx buffers one unit of work.
type tx struct {
	store       *Store
	created     map[string]models.Account
	updated     map[string]models.Account
	baseVersion map[string]int64
	appended    map[string][]models.TransactionRecord
	baseLen     map[string]int
}

func newTx(s *Store) *tx {
	return &tx{
		store:       s,
		created:     make(map[string]models.Account),
		updated:     make(map[string]models.Account),
		baseVersion: make(map[string]int64),
		appended:    make(map[string][]models.TransactionRecord),
		baseLen:     make(map[string]int),
	}
}

func (t *tx) Accounts() store.AccountStore { return t }
func (t *tx) Ledger() store.LedgerStore    { return t }

func (t *tx) empty() bool {
	return len(t.created) == 0 && len(t.updated) == 0 && len(t.appended) == 0
}

func (t *tx) current(key string) (models.Account, bool) {
	if acc, ok := t.created[key]; ok {
		return acc, true
	}
	if acc, ok := t.updated[key]; ok {
		return acc, true
	}
	return t.store.committedAccount(key)
}

func (t *tx) Get(_ context.Context, key string) (models.Account, error) {
	acc, ok := t.current(key)
	if !ok {
		return models.Account{}, fmt.Errorf("%w: account %s", models.ErrNotFound, key)
	}
	return acc, nil
}

func (t *tx) Create(_ context.Context, account models.Account) (models.Account, error) {
	t.store.mu.RLock()
	err := t.store.checkUnique(account)
	t.store.mu.RUnlock()
	if err != nil {
		return models.Account{}, err
	}
	for _, pending := range t.created {
		if pending.Key == account.Key || pending.Mobile == account.Mobile || pending.NationalID == account.NationalID {
			return models.Account{}, fmt.Errorf("%w: account %s", models.ErrAlreadyExists, account.Key)
		}
	}

	now := t.store.now().UTC()
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now
	t.created[account.Key] = account
	return account, nil
}

func (t *tx) ConditionalUpdate(_ context.Context, key string, expectedVersion int64, newBalance decimal.Decimal) (models.Account, error) {
	acc, ok := t.current(key)
	if !ok {
		return models.Account{}, fmt.Errorf("%w: account %s", models.ErrNotFound, key)
	}
	if acc.Version != expectedVersion {
		return models.Account{}, fmt.Errorf("%w: account %s at version %d, expected %d", models.ErrVersionConflict, key, acc.Version, expectedVersion)
	}

	acc.Balance = newBalance
	acc.Version++
	acc.UpdatedAt = t.store.now().UTC()

	if _, ok := t.created[key]; ok {
		t.created[key] = acc
		return acc, nil
	}
	if _, ok := t.baseVersion[key]; !ok {
		t.baseVersion[key] = expectedVersion
	}
	t.updated[key] = acc
	return acc, nil
}

func (t *tx) List(_ context.Context) ([]models.Account, error) {
	t.store.mu.RLock()
	all := make(map[string]models.Account, len(t.store.accounts)+len(t.created))
	for key, acc := range t.store.accounts {
		all[key] = acc
	}
	t.store.mu.RUnlock()

	for key, acc := range t.created {
		all[key] = acc
	}
	for key, acc := range t.updated {
		all[key] = acc
	}

	out := make([]models.Account, 0, len(all))
	for _, acc := range all {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (t *tx) Append(_ context.Context, accountKey string, record models.TransactionRecord) (models.TransactionRecord, error) {
	if _, ok := t.current(accountKey); !ok {
		return models.TransactionRecord{}, fmt.Errorf("%w: account %s", models.ErrNotFound, accountKey)
	}
	if _, ok := t.baseLen[accountKey]; !ok {
		t.baseLen[accountKey] = len(t.store.committedRecords(accountKey))
	}

	record.AccountKey = accountKey
	record.SequenceNumber = int64(t.baseLen[accountKey] + len(t.appended[accountKey]) + 1)
	t.appended[accountKey] = append(t.appended[accountKey], record)
	return record, nil
}

func (t *tx) ListByAccount(_ context.Context, accountKey string) ([]models.TransactionRecord, error) {
	records := t.store.committedRecords(accountKey)
	return append(records, t.appended[accountKey]...), nil
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.AccountStore = (*tx)(nil)
	_ store.LedgerStore  = (*tx)(nil)
)
