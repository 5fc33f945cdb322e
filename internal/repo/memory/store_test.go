package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GlebRadaev/payledger/internal/domain"
)

func newStore(t *testing.T) (*Store, *domain.Account) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	var mu sync.Mutex
	store := NewStore().WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	account, err := store.Accounts().Create(context.Background(), &domain.Account{Email: "User@Example.com", PasswordHash: "h"})
	require.NoError(t, err)
	return store, account
}

func entry(accountID int, key string, kind domain.EntryKind, amount int64) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		AccountID:       accountID,
		Kind:            kind,
		Amount:          amount,
		Currency:        "PEN",
		Status:          domain.StatusProcessing,
		PaymentMethodID: "visa",
		IdempotencyKey:  key,
		Reference:       "ref-" + key,
	}
}

func TestAccountRepo(t *testing.T) {
	store, account := newStore(t)
	ctx := context.Background()
	accounts := store.Accounts()

	assert.Equal(t, "user@example.com", account.Email)

	_, err := accounts.Create(ctx, &domain.Account{Email: "user@example.com ", PasswordHash: "h2"})
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	found, err := accounts.FindByEmail(ctx, "USER@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	missing, err := accounts.FindByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = accounts.GetByID(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	balance, err := accounts.AdjustBalance(ctx, account.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	_, err = accounts.AdjustBalance(ctx, account.ID, -1001)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	locked, err := accounts.LockForUpdate(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), locked.Balance)
}

func TestLedgerRepo_AppendAndFind(t *testing.T) {
	store, account := newStore(t)
	ctx := context.Background()
	ledger := store.Ledger()

	e := entry(account.ID, "k1", domain.KindPayment, 500)
	require.NoError(t, ledger.Append(ctx, e))
	assert.Equal(t, int64(1), e.ID)

	assert.ErrorIs(t, ledger.Append(ctx, entry(account.ID, "k1", domain.KindPayment, 500)), domain.ErrDuplicateEntry)
	assert.ErrorIs(t, ledger.Append(ctx, entry(999, "k2", domain.KindPayment, 500)), domain.ErrAccountNotFound)

	byKey, err := ledger.FindByIdempotencyKey(ctx, account.ID, "k1")
	require.NoError(t, err)
	assert.Equal(t, e.ID, byKey.ID)

	byRef, err := ledger.FindByReference(ctx, "ref-k1")
	require.NoError(t, err)
	assert.Equal(t, e.ID, byRef.ID)

	none, err := ledger.FindByProcessorPaymentID(ctx, "mp-1")
	assert.NoError(t, err)
	assert.Nil(t, none)

	held, err := ledger.HeldAmount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), held)
}

func TestLedgerRepo_Transition(t *testing.T) {
	store, account := newStore(t)
	ctx := context.Background()
	ledger := store.Ledger()

	e := entry(account.ID, "k1", domain.KindPayment, 500)
	require.NoError(t, ledger.Append(ctx, e))

	applied, err := ledger.Transition(ctx, e.ID, domain.Outcome{
		Status:             domain.StatusPending,
		ProcessorPaymentID: "mp-1",
		Detail:             "pending_waiting_payment",
		QRCode:             "qr-data",
		QRCodeBase64:       "cXItZGF0YQ==",
	})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ledger.Transition(ctx, e.ID, domain.Outcome{Status: domain.StatusPending, ProcessorPaymentID: "mp-1", Detail: "again"})
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = ledger.Transition(ctx, e.ID, domain.Outcome{Status: domain.StatusApproved, Detail: "accredited"})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ledger.Transition(ctx, e.ID, domain.Outcome{Status: domain.StatusRejected, Detail: "late"})
	require.NoError(t, err)
	assert.False(t, applied)

	settled, err := ledger.FindByProcessorPaymentID(ctx, "mp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, settled.Status)
	assert.Equal(t, "accredited", settled.StatusDetail)
	assert.Equal(t, "qr-data", settled.QRCode)
	assert.Equal(t, "cXItZGF0YQ==", settled.QRCodeBase64)
	assert.NotNil(t, settled.SettledAt)

	other := entry(account.ID, "k2", domain.KindCredit, 100)
	require.NoError(t, ledger.Append(ctx, other))
	_, err = ledger.Transition(ctx, other.ID, domain.Outcome{Status: domain.StatusApproved, ProcessorPaymentID: "mp-1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)

	_, err = ledger.Transition(ctx, other.ID, domain.Outcome{Status: domain.StatusProcessing})
	assert.ErrorIs(t, err, domain.ErrValidation)

	sum, err := ledger.SumApproved(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-500), sum)
}

func TestLedgerRepo_ListByAccountPagination(t *testing.T) {
	store, account := newStore(t)
	ctx := context.Background()
	ledger := store.Ledger()

	for i := 0; i < 7; i++ {
		require.NoError(t, ledger.Append(ctx, entry(account.ID, fmt.Sprintf("k%d", i), domain.KindCredit, int64(i+1))))
	}

	var (
		seen   []int64
		cursor *domain.Cursor
	)
	for {
		page, err := ledger.ListByAccount(ctx, account.ID, cursor, 3)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			seen = append(seen, e.ID)
		}
		cursor = domain.CursorAfter(page[len(page)-1])
	}

	assert.Equal(t, []int64{7, 6, 5, 4, 3, 2, 1}, seen)
}

func TestLedgerRepo_ListByAccountSubMicrosecondClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 500, time.UTC)
	store := NewStore().WithClock(func() time.Time { return base })
	ctx := context.Background()

	account, err := store.Accounts().Create(ctx, &domain.Account{Email: "user@example.com", PasswordHash: "h"})
	require.NoError(t, err)
	ledger := store.Ledger()
	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.Append(ctx, entry(account.ID, fmt.Sprintf("k%d", i), domain.KindCredit, 1)))
	}

	var (
		seen   []int64
		cursor *domain.Cursor
	)
	for {
		page, err := ledger.ListByAccount(ctx, account.ID, cursor, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			assert.Zero(t, e.CreatedAt.Nanosecond()%1000)
			seen = append(seen, e.ID)
		}
		next, err := domain.ParseCursor(domain.CursorAfter(page[len(page)-1]).String())
		require.NoError(t, err)
		cursor = next
	}

	assert.Equal(t, []int64{5, 4, 3, 2, 1}, seen)
}

func TestLedgerRepo_FindOpen(t *testing.T) {
	store, account := newStore(t)
	ctx := context.Background()
	ledger := store.Ledger()

	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Append(ctx, entry(account.ID, fmt.Sprintf("k%d", i), domain.KindPayment, 10)))
	}
	_, err := ledger.Transition(ctx, 2, domain.Outcome{Status: domain.StatusRejected})
	require.NoError(t, err)

	open, err := ledger.FindOpen(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, int64(1), open[0].ID)
	assert.Equal(t, int64(3), open[1].ID)

	limited, err := ledger.FindOpen(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := ledger.FindOpen(ctx, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_BeginRollsBack(t *testing.T) {
	store, account := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Begin(ctx, func(ctx context.Context) error {
		if _, err := store.Accounts().AdjustBalance(ctx, account.ID, 300); err != nil {
			return err
		}
		if err := store.Ledger().Append(ctx, entry(account.ID, "k1", domain.KindCredit, 300)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance)
	found, err := store.Ledger().FindByIdempotencyKey(ctx, account.ID, "k1")
	require.NoError(t, err)
	assert.Nil(t, found)

	err = store.Begin(ctx, func(ctx context.Context) error {
		return store.Begin(ctx, func(ctx context.Context) error {
			_, err := store.Accounts().AdjustBalance(ctx, account.ID, 300)
			return err
		})
	})
	require.NoError(t, err)
	got, err = store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Balance)
}

func TestStore_BeginRollsBackOnPanic(t *testing.T) {
	store, account := newStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.Begin(ctx, func(ctx context.Context) error {
			_, _ = store.Accounts().AdjustBalance(ctx, account.ID, 300)
			panic("crash between writes")
		})
	})

	got, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance)
}
