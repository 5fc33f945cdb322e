package authservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/pkg/auth"
)

const dummyPassword = "payledger-dummy-password"

type Repo interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
}

type Service struct {
	accountRepo Repo
	hashService auth.HashServiceInterface
	jwtService  auth.JWTServiceInterface
	tokenTTL    time.Duration
	now         func() time.Time
	dummyHash   string
}

func New(repo Repo, hashService auth.HashServiceInterface, jwtService auth.JWTServiceInterface, tokenTTL time.Duration) (*Service, error) {
	// Unknown emails are checked against this hash so that a failed login
	// costs the same whether or not the account exists.
	dummyHash, err := hashService.HashPassword(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("can't prepare dummy password hash: %w", err)
	}
	return &Service{
		accountRepo: repo,
		hashService: hashService,
		jwtService:  jwtService,
		tokenTTL:    tokenTTL,
		now:         time.Now,
		dummyHash:   dummyHash,
	}, nil
}

// WithClock replaces the clock used to compute token expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	if email == "" || password == "" {
		return nil, domain.Validation("email and password are required")
	}
	existing, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		zap.L().Error("can't find account", zap.Error(err))
		return nil, err
	}
	if existing != nil {
		zap.L().Info("account already exists", zap.String("email", existing.Email))
		return nil, domain.ErrAccountExists
	}
	hashedPassword, err := s.hashService.HashPassword(password)
	if err != nil {
		zap.L().Error("can't hash password", zap.Error(err))
		return nil, err
	}
	account, err := s.accountRepo.Create(ctx, &domain.Account{
		Email:        email,
		PasswordHash: hashedPassword,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAccountExists) {
			zap.L().Error("can't create account", zap.Error(err))
		}
		return nil, err
	}

	zap.L().Info("account successfully registered", zap.Int("account_id", account.ID))
	return account, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		zap.L().Error("can't find account", zap.Error(err))
		return nil, err
	}
	if account == nil {
		s.hashService.ComparePassword(s.dummyHash, password)
		zap.L().Info("login for unknown email")
		return nil, domain.ErrInvalidCredentials
	}
	if ok := s.hashService.ComparePassword(account.PasswordHash, password); !ok {
		zap.L().Info("wrong password", zap.Int("account_id", account.ID))
		return nil, domain.ErrInvalidCredentials
	}
	zap.L().Info("account successfully authenticated", zap.Int("account_id", account.ID))
	return account, nil
}

func (s *Service) GenerateToken(accountID int) (string, error) {
	token, err := s.jwtService.GenerateJWT(accountID, s.now().Add(s.tokenTTL))
	if err != nil {
		zap.L().Error("can't generate token", zap.Error(err))
		return "", err
	}
	return token, nil
}
