package repo

import (
	"github.com/GlebRadaev/payledger/internal/pg"
	accountrepo "github.com/GlebRadaev/payledger/internal/repo/account-repo"
	ledgerrepo "github.com/GlebRadaev/payledger/internal/repo/ledger-repo"
	"github.com/GlebRadaev/payledger/internal/repo/memory"
	"github.com/GlebRadaev/payledger/internal/reconcile"
	"github.com/GlebRadaev/payledger/internal/service/authservice"
	"github.com/GlebRadaev/payledger/internal/service/balanceservice"
	"github.com/GlebRadaev/payledger/internal/service/paymentservice"
)

type AccountRepo interface {
	authservice.Repo
	balanceservice.AccountRepo
	paymentservice.AccountRepo
}

type LedgerRepo interface {
	balanceservice.LedgerRepo
	paymentservice.LedgerRepo
	reconcile.LedgerRepo
}

type Repositories struct {
	AccountRepo AccountRepo
	LedgerRepo  LedgerRepo
	TXManager   pg.TXManager
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		AccountRepo: accountrepo.New(conn),
		LedgerRepo:  ledgerrepo.New(conn),
		TXManager:   txManager,
	}
}

// NewInMemory backs every repository with one process-local store. The store
// is also the transaction manager.
func NewInMemory(store *memory.Store) *Repositories {
	return &Repositories{
		AccountRepo: store.Accounts(),
		LedgerRepo:  store.Ledger(),
		TXManager:   store,
	}
}
