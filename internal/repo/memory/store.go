// Package memory keeps accounts and ledger entries in process memory. It
// implements the same repositories as the postgres store, including
// transactions that roll back on error, and is used with STORAGE=memory and
// in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/pg"
)

type txKey struct{}

type Store struct {
	mu sync.Mutex

	accounts      map[int]domain.Account
	emails        map[string]int
	entries       []domain.LedgerEntry
	nextAccountID int
	nextEntryID   int64
	now           func() time.Time
}

type snapshot struct {
	accounts      map[int]domain.Account
	emails        map[string]int
	entries       []domain.LedgerEntry
	nextAccountID int
	nextEntryID   int64
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[int]domain.Account),
		emails:   make(map[string]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for created_at and settled_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// timestamp is truncated to microseconds, the precision of page cursors and
// of postgres timestamptz.
func (s *Store) timestamp() time.Time {
	return s.now().Truncate(time.Microsecond)
}

// Begin runs fn while holding the store lock. State changed by fn is restored
// when fn fails or panics.
func (s *Store) Begin(ctx context.Context, fn pg.TransactionalFn) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock takes the store lock unless ctx already runs inside a transaction of this store.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		accounts:      make(map[int]domain.Account, len(s.accounts)),
		emails:        make(map[string]int, len(s.emails)),
		entries:       make([]domain.LedgerEntry, len(s.entries)),
		nextAccountID: s.nextAccountID,
		nextEntryID:   s.nextEntryID,
	}
	for id, account := range s.accounts {
		snap.accounts[id] = account
	}
	for email, id := range s.emails {
		snap.emails[email] = id
	}
	copy(snap.entries, s.entries)
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.emails = snap.emails
	s.entries = snap.entries
	s.nextAccountID = snap.nextAccountID
	s.nextEntryID = snap.nextEntryID
}

// Accounts returns the account repository backed by the store.
func (s *Store) Accounts() *AccountRepo {
	return &AccountRepo{s: s}
}

// Ledger returns the ledger repository backed by the store.
func (s *Store) Ledger() *LedgerRepo {
	return &LedgerRepo{s: s}
}

type AccountRepo struct {
	s *Store
}

func (r *AccountRepo) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	defer r.s.lock(ctx)()

	email := strings.ToLower(strings.TrimSpace(account.Email))
	if _, ok := r.s.emails[email]; ok {
		return nil, domain.ErrAccountExists
	}
	r.s.nextAccountID++
	account.ID = r.s.nextAccountID
	account.Email = email
	account.Balance = 0
	account.CreatedAt = r.s.timestamp()
	r.s.accounts[account.ID] = *account
	r.s.emails[email] = account.ID
	return account, nil
}

func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	defer r.s.lock(ctx)()

	id, ok := r.s.emails[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, nil
	}
	account := r.s.accounts[id]
	return &account, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id int) (*domain.Account, error) {
	defer r.s.lock(ctx)()

	account, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

// LockForUpdate is GetByID: a transaction already holds the store lock.
func (r *AccountRepo) LockForUpdate(ctx context.Context, id int) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepo) AdjustBalance(ctx context.Context, id int, delta int64) (int64, error) {
	defer r.s.lock(ctx)()

	account, ok := r.s.accounts[id]
	if !ok || account.Balance+delta < 0 {
		return 0, domain.ErrInsufficientFunds
	}
	account.Balance += delta
	r.s.accounts[id] = account
	return account.Balance, nil
}

type LedgerRepo struct {
	s *Store
}

func (r *LedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.accounts[entry.AccountID]; !ok {
		return domain.ErrAccountNotFound
	}
	for _, e := range r.s.entries {
		if (e.AccountID == entry.AccountID && e.IdempotencyKey == entry.IdempotencyKey) || e.Reference == entry.Reference {
			return domain.ErrDuplicateEntry
		}
	}
	r.s.nextEntryID++
	entry.ID = r.s.nextEntryID
	entry.CreatedAt = r.s.timestamp()
	entry.SettledAt = nil
	r.s.entries = append(r.s.entries, *entry)
	return nil
}

func (r *LedgerRepo) FindByIdempotencyKey(ctx context.Context, accountID int, key string) (*domain.LedgerEntry, error) {
	return r.find(ctx, func(e domain.LedgerEntry) bool {
		return e.AccountID == accountID && e.IdempotencyKey == key
	})
}

func (r *LedgerRepo) FindByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error) {
	return r.find(ctx, func(e domain.LedgerEntry) bool { return e.Reference == reference })
}

func (r *LedgerRepo) FindByProcessorPaymentID(ctx context.Context, processorPaymentID string) (*domain.LedgerEntry, error) {
	if processorPaymentID == "" {
		return nil, nil
	}
	return r.find(ctx, func(e domain.LedgerEntry) bool { return e.ProcessorPaymentID == processorPaymentID })
}

func (r *LedgerRepo) HeldAmount(ctx context.Context, accountID int) (int64, error) {
	defer r.s.lock(ctx)()

	var held int64
	for _, e := range r.s.entries {
		if e.AccountID == accountID && e.Kind == domain.KindPayment && e.Status.Open() {
			held += e.Amount
		}
	}
	return held, nil
}

func (r *LedgerRepo) Transition(ctx context.Context, id int64, outcome domain.Outcome) (bool, error) {
	defer r.s.lock(ctx)()

	next, processorPaymentID := outcome.Status, outcome.ProcessorPaymentID
	if next != domain.StatusPending && !next.Final() {
		return false, domain.Validation("unsupported status " + string(next))
	}
	for i := range r.s.entries {
		e := &r.s.entries[i]
		if e.ID != id {
			continue
		}
		if !e.Status.CanTransition(next) {
			return false, nil
		}
		if processorPaymentID != "" {
			for _, other := range r.s.entries {
				if other.ID != id && other.ProcessorPaymentID == processorPaymentID {
					return false, domain.ErrDuplicateEntry
				}
			}
			e.ProcessorPaymentID = processorPaymentID
		}
		if outcome.QRCode != "" {
			e.QRCode = outcome.QRCode
		}
		if outcome.QRCodeBase64 != "" {
			e.QRCodeBase64 = outcome.QRCodeBase64
		}
		e.Status = next
		e.StatusDetail = outcome.Detail
		if next.Final() {
			settledAt := r.s.timestamp()
			e.SettledAt = &settledAt
		}
		return true, nil
	}
	return false, nil
}

func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID int, cursor *domain.Cursor, limit int) ([]domain.LedgerEntry, error) {
	defer r.s.lock(ctx)()

	entries := make([]domain.LedgerEntry, 0)
	for _, e := range r.s.entries {
		if e.AccountID == accountID && (cursor == nil || cursor.Before(e)) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *LedgerRepo) FindOpen(ctx context.Context, olderThan time.Time, limit uint32) ([]domain.LedgerEntry, error) {
	defer r.s.lock(ctx)()

	entries := make([]domain.LedgerEntry, 0)
	for _, e := range r.s.entries {
		if uint32(len(entries)) == limit {
			break
		}
		if e.Status.Open() && e.CreatedAt.Before(olderThan) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *LedgerRepo) SumApproved(ctx context.Context, accountID int) (int64, error) {
	defer r.s.lock(ctx)()

	var sum int64
	for _, e := range r.s.entries {
		if e.AccountID == accountID && e.Status == domain.StatusApproved {
			sum += e.SignedAmount()
		}
	}
	return sum, nil
}

func (r *LedgerRepo) find(ctx context.Context, match func(domain.LedgerEntry) bool) (*domain.LedgerEntry, error) {
	defer r.s.lock(ctx)()

	for _, e := range r.s.entries {
		if match(e) {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}
