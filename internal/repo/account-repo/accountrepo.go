package accountrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/pg"
)

const (
	createQuery = `
		INSERT INTO accounts (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, balance, created_at
	`
	findByEmailQuery   = `SELECT id, email, password_hash, balance, created_at FROM accounts WHERE email = $1`
	getByIDQuery       = `SELECT id, email, password_hash, balance, created_at FROM accounts WHERE id = $1`
	lockForUpdateQuery = `SELECT id, email, password_hash, balance, created_at FROM accounts WHERE id = $1 FOR UPDATE`
	adjustBalanceQuery = `
		UPDATE accounts
		SET balance = balance + $1
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// NormalizeEmail is applied to every email before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (repo *Repository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	account.Email = NormalizeEmail(account.Email)
	err := repo.db.QueryRow(ctx, createQuery, account.Email, account.PasswordHash).
		Scan(&account.ID, &account.Balance, &account.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return nil, domain.ErrAccountExists
		}
		zap.L().Error("can't save account", zap.Error(err))
		return nil, domain.Storage("can't save account", err)
	}
	return account, nil
}

// FindByEmail returns nil, nil when no account uses the email.
func (repo *Repository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := repo.scan(repo.db.QueryRow(ctx, findByEmailQuery, NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		zap.L().Error("can't find account", zap.Error(err))
		return nil, domain.Storage("can't find account", err)
	}
	return account, nil
}

func (repo *Repository) GetByID(ctx context.Context, id int) (*domain.Account, error) {
	return repo.get(ctx, getByIDQuery, id)
}

// LockForUpdate reads the account and holds its row lock until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (repo *Repository) LockForUpdate(ctx context.Context, id int) (*domain.Account, error) {
	return repo.get(ctx, lockForUpdateQuery, id)
}

// AdjustBalance adds delta to the balance in a single statement and returns the
// new balance. A delta that would take the balance below zero changes nothing
// and fails with ErrInsufficientFunds.
func (repo *Repository) AdjustBalance(ctx context.Context, id int, delta int64) (int64, error) {
	var balance int64
	err := repo.db.QueryRow(ctx, adjustBalanceQuery, delta, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientFunds
		}
		zap.L().Error("can't adjust balance", zap.Int("account_id", id), zap.Int64("delta", delta), zap.Error(err))
		return 0, domain.Storage("can't adjust balance", err)
	}
	return balance, nil
}

func (repo *Repository) get(ctx context.Context, query string, id int) (*domain.Account, error) {
	account, err := repo.scan(repo.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		zap.L().Error("can't get account", zap.Int("account_id", id), zap.Error(err))
		return nil, domain.Storage("can't get account", err)
	}
	return account, nil
}

func (repo *Repository) scan(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(&account.ID, &account.Email, &account.PasswordHash, &account.Balance, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
