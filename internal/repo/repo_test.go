package repo

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/pg"
	accountrepo "github.com/GlebRadaev/payledger/internal/repo/account-repo"
	ledgerrepo "github.com/GlebRadaev/payledger/internal/repo/ledger-repo"
	"github.com/GlebRadaev/payledger/internal/repo/memory"
)

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface) {
	ctrl := gomock.NewController(t)
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	mockTxManager := pg.NewMockTXManager(ctrl)

	return New(mockDB, mockTxManager), mockDB
}

func TestNew(t *testing.T) {
	repo, mock := NewMock(t)

	assert.NotNil(t, repo.AccountRepo)
	assert.NotNil(t, repo.LedgerRepo)
	assert.NotNil(t, repo.TXManager)

	assert.IsType(t, &accountrepo.Repository{}, repo.AccountRepo)
	assert.IsType(t, &ledgerrepo.Repository{}, repo.LedgerRepo)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewInMemory(t *testing.T) {
	store := memory.NewStore()
	repo := NewInMemory(store)
	ctx := context.Background()

	var created *domain.Account
	err := repo.TXManager.Begin(ctx, func(ctx context.Context) error {
		var err error
		created, err = repo.AccountRepo.Create(ctx, &domain.Account{Email: "user@example.com", PasswordHash: "hash"})
		return err
	})
	require.NoError(t, err)

	found, err := repo.AccountRepo.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	held, err := repo.LedgerRepo.HeldAmount(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, held)
}
