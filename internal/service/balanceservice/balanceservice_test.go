package balanceservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/pg"
)

func NewMock(t *testing.T) (*Service, *MockAccountRepo, *MockLedgerRepo, *pg.MockTXManager) {
	ctrl := gomock.NewController(t)
	accountRepo := NewMockAccountRepo(ctrl)
	ledgerRepo := NewMockLedgerRepo(ctrl)
	txManager := pg.NewMockTXManager(ctrl)

	service := New(accountRepo, ledgerRepo, txManager, "PEN")
	return service, accountRepo, ledgerRepo, txManager
}

func runInTx(txManager *pg.MockTXManager) {
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
		return fn(ctx)
	})
}

func TestGetBalance(t *testing.T) {
	service, accountRepo, ledgerRepo, _ := NewMock(t)

	tests := []struct {
		name            string
		accountID       int
		prepareMock     func()
		expectedBalance *domain.Balance
		expectedError   error
	}{
		{
			name:      "Balance with held payments",
			accountID: 1,
			prepareMock: func() {
				accountRepo.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.Account{ID: 1, Email: "user@example.com", Balance: 1000}, nil)
				ledgerRepo.EXPECT().HeldAmount(gomock.Any(), 1).Return(int64(250), nil)
			},
			expectedBalance: &domain.Balance{AccountID: 1, Email: "user@example.com", Current: 1000, Held: 250, Currency: "PEN"},
		},
		{
			name:      "Account not found",
			accountID: 2,
			prepareMock: func() {
				accountRepo.EXPECT().GetByID(gomock.Any(), 2).Return(nil, domain.ErrAccountNotFound)
			},
			expectedError: domain.ErrAccountNotFound,
		},
		{
			name:      "Held amount fails",
			accountID: 1,
			prepareMock: func() {
				accountRepo.EXPECT().GetByID(gomock.Any(), 1).Return(&domain.Account{ID: 1, Balance: 1000}, nil)
				ledgerRepo.EXPECT().HeldAmount(gomock.Any(), 1).Return(int64(0), domain.ErrStorage)
			},
			expectedError: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			balance, err := service.GetBalance(context.Background(), tt.accountID)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedBalance, balance)
				assert.Equal(t, int64(750), balance.Available())
			}
		})
	}
}

func entries(ids ...int64) []domain.LedgerEntry {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.LedgerEntry{ID: id, CreatedAt: base.Add(time.Duration(id) * time.Second)})
	}
	return out
}

func TestListTransactions(t *testing.T) {
	service, _, ledgerRepo, _ := NewMock(t)

	lastOfFirstPage := entries(4)[0]
	secondPageCursor := domain.CursorAfter(lastOfFirstPage)

	tests := []struct {
		name           string
		cursor         string
		limit          int
		prepareMock    func()
		expectedIDs    []int64
		expectedCursor string
		expectedError  error
	}{
		{
			name:  "First page with more to come",
			limit: 2,
			prepareMock: func() {
				ledgerRepo.EXPECT().ListByAccount(gomock.Any(), 1, (*domain.Cursor)(nil), 3).Return(entries(5, 4, 3), nil)
			},
			expectedIDs:    []int64{5, 4},
			expectedCursor: secondPageCursor.String(),
		},
		{
			name:   "Last page",
			cursor: secondPageCursor.String(),
			limit:  2,
			prepareMock: func() {
				ledgerRepo.EXPECT().ListByAccount(gomock.Any(), 1, secondPageCursor, 3).Return(entries(3), nil)
			},
			expectedIDs: []int64{3},
		},
		{
			name: "Default page size",
			prepareMock: func() {
				ledgerRepo.EXPECT().ListByAccount(gomock.Any(), 1, (*domain.Cursor)(nil), domain.DefaultPageSize+1).Return(entries(), nil)
			},
			expectedIDs: []int64{},
		},
		{
			name:          "Broken cursor",
			cursor:        "!!",
			prepareMock:   func() {},
			expectedError: domain.ErrValidation,
		},
		{
			name:  "Storage error",
			limit: 5,
			prepareMock: func() {
				ledgerRepo.EXPECT().ListByAccount(gomock.Any(), 1, (*domain.Cursor)(nil), 6).Return(nil, domain.ErrStorage)
			},
			expectedError: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			page, err := service.ListTransactions(context.Background(), 1, tt.cursor, tt.limit)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			require.NoError(t, err)
			ids := make([]int64, 0, len(page.Entries))
			for _, e := range page.Entries {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.expectedIDs, ids)
			assert.Equal(t, tt.expectedCursor, page.NextCursor)
		})
	}
}

func TestAudit(t *testing.T) {
	service, accountRepo, ledgerRepo, txManager := NewMock(t)

	tests := []struct {
		name          string
		prepareMock   func()
		expected      *domain.Audit
		consistent    bool
		expectedError error
	}{
		{
			name: "Consistent",
			prepareMock: func() {
				runInTx(txManager)
				accountRepo.EXPECT().LockForUpdate(gomock.Any(), 1).Return(&domain.Account{ID: 1, Balance: 700}, nil)
				ledgerRepo.EXPECT().SumApproved(gomock.Any(), 1).Return(int64(700), nil)
			},
			expected:   &domain.Audit{AccountID: 1, Balance: 700, LedgerSum: 700},
			consistent: true,
		},
		{
			name: "Drift is reported",
			prepareMock: func() {
				runInTx(txManager)
				accountRepo.EXPECT().LockForUpdate(gomock.Any(), 1).Return(&domain.Account{ID: 1, Balance: 900}, nil)
				ledgerRepo.EXPECT().SumApproved(gomock.Any(), 1).Return(int64(700), nil)
			},
			expected: &domain.Audit{AccountID: 1, Balance: 900, LedgerSum: 700},
		},
		{
			name: "Transaction fails",
			prepareMock: func() {
				txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).Return(errors.New("can't begin transaction"))
			},
			expectedError: errors.New("can't begin transaction"),
		},
		{
			name: "Sum fails",
			prepareMock: func() {
				runInTx(txManager)
				accountRepo.EXPECT().LockForUpdate(gomock.Any(), 1).Return(&domain.Account{ID: 1, Balance: 700}, nil)
				ledgerRepo.EXPECT().SumApproved(gomock.Any(), 1).Return(int64(0), domain.ErrStorage)
			},
			expectedError: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			audit, err := service.Audit(context.Background(), 1)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Nil(t, audit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, audit)
			assert.Equal(t, tt.consistent, audit.Consistent())
		})
	}
}
