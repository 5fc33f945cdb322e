package balanceservice

import (
	"context"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/pg"
)

type AccountRepo interface {
	GetByID(ctx context.Context, id int) (*domain.Account, error)
	LockForUpdate(ctx context.Context, id int) (*domain.Account, error)
}

type LedgerRepo interface {
	ListByAccount(ctx context.Context, accountID int, cursor *domain.Cursor, limit int) ([]domain.LedgerEntry, error)
	HeldAmount(ctx context.Context, accountID int) (int64, error)
	SumApproved(ctx context.Context, accountID int) (int64, error)
}

type Service struct {
	accountRepo AccountRepo
	ledgerRepo  LedgerRepo
	txManager   pg.TXManager
	currency    string
}

func New(accountRepo AccountRepo, ledgerRepo LedgerRepo, txManager pg.TXManager, currency string) *Service {
	return &Service{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txManager:   txManager,
		currency:    currency,
	}
}

func (s *Service) GetBalance(ctx context.Context, accountID int) (*domain.Balance, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		zap.L().Error("failed to get balance", zap.Int("account_id", accountID), zap.Error(err))
		return nil, err
	}
	held, err := s.ledgerRepo.HeldAmount(ctx, accountID)
	if err != nil {
		zap.L().Error("failed to get held amount", zap.Int("account_id", accountID), zap.Error(err))
		return nil, err
	}
	return &domain.Balance{
		AccountID: account.ID,
		Email:     account.Email,
		Current:   account.Balance,
		Held:      held,
		Currency:  s.currency,
	}, nil
}

// ListTransactions returns one page of the account history. The cursor is the
// NextCursor of the previous page, empty for the first one.
func (s *Service) ListTransactions(ctx context.Context, accountID int, cursorToken string, limit int) (*domain.Page, error) {
	cursor, err := domain.ParseCursor(cursorToken)
	if err != nil {
		return nil, err
	}
	limit = domain.PageSize(limit)

	entries, err := s.ledgerRepo.ListByAccount(ctx, accountID, cursor, limit+1)
	if err != nil {
		zap.L().Error("failed to list transactions", zap.Int("account_id", accountID), zap.Error(err))
		return nil, err
	}

	page := &domain.Page{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		page.NextCursor = domain.CursorAfter(page.Entries[limit-1]).String()
	}
	return page, nil
}

// Audit reads the balance and the approved ledger sum under the account lock,
// so a settlement can't land between the two reads.
func (s *Service) Audit(ctx context.Context, accountID int) (*domain.Audit, error) {
	audit := &domain.Audit{AccountID: accountID}
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.LockForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		sum, err := s.ledgerRepo.SumApproved(ctx, accountID)
		if err != nil {
			return err
		}
		audit.Balance = account.Balance
		audit.LedgerSum = sum
		return nil
	})
	if err != nil {
		zap.L().Error("failed to audit balance", zap.Int("account_id", accountID), zap.Error(err))
		return nil, err
	}
	if !audit.Consistent() {
		zap.L().Error("balance does not match ledger",
			zap.Int("account_id", accountID),
			zap.Int64("balance", audit.Balance),
			zap.Int64("ledger_sum", audit.LedgerSum))
	}
	return audit, nil
}
