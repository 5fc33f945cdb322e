package authservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/pkg/auth"
)

func NewMock(t *testing.T) (*Service, *MockRepo, *auth.MockHashServiceInterface, *auth.MockJWTServiceInterface) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	hashService := auth.NewMockHashServiceInterface(ctrl)
	jwtService := auth.NewMockJWTServiceInterface(ctrl)

	hashService.EXPECT().HashPassword(dummyPassword).Return("dummyhash", nil)
	service, err := New(repo, hashService, jwtService, time.Hour)
	require.NoError(t, err)
	return service, repo, hashService, jwtService
}

func TestNew_HashFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	hashService := auth.NewMockHashServiceInterface(ctrl)
	hashService.EXPECT().HashPassword(dummyPassword).Return("", errors.New("hash failed"))

	service, err := New(NewMockRepo(ctrl), hashService, auth.NewMockJWTServiceInterface(ctrl), time.Hour)
	assert.ErrorContains(t, err, "dummy password hash")
	assert.Nil(t, service)
}

func TestRegister(t *testing.T) {
	service, accountRepo, passwordHasher, _ := NewMock(t)

	tests := []struct {
		name            string
		email           string
		password        string
		prepareMock     func()
		expectedAccount *domain.Account
		expectedError   error
	}{
		{
			name:     "Successful registration",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				accountRepo.EXPECT().Create(context.Background(), gomock.Any()).DoAndReturn(func(ctx context.Context, account *domain.Account) (*domain.Account, error) {
					account.ID = 1
					return account, nil
				})
			},
			expectedAccount: &domain.Account{
				ID:           1,
				Email:        "user@example.com",
				PasswordHash: "hashedpassword",
			},
		},
		{
			name:          "Missing password",
			email:         "user@example.com",
			prepareMock:   func() {},
			expectedError: domain.ErrValidation,
		},
		{
			name:     "Account already exists",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(&domain.Account{ID: 3, Email: "user@example.com"}, nil)
			},
			expectedError: domain.ErrAccountExists,
		},
		{
			name:     "Concurrent registration loses the insert",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				accountRepo.EXPECT().Create(context.Background(), gomock.Any()).Return(nil, domain.ErrAccountExists)
			},
			expectedError: domain.ErrConflict,
		},
		{
			name:     "Error finding account",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, domain.ErrStorage)
			},
			expectedError: domain.ErrStorage,
		},
		{
			name:     "Error hashing password",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("", errors.New("hashing error"))
			},
			expectedError: errors.New("hashing error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			account, err := service.Register(context.Background(), tt.email, tt.password)
			if tt.expectedError != nil {
				assert.Error(t, err)
				if !errors.Is(err, tt.expectedError) {
					assert.Equal(t, tt.expectedError.Error(), err.Error())
				}
				assert.Nil(t, account)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedAccount, account)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	service, accountRepo, passwordHasher, _ := NewMock(t)

	stored := &domain.Account{ID: 1, Email: "user@example.com", PasswordHash: "hashedpassword", Balance: 500}

	tests := []struct {
		name            string
		email           string
		password        string
		prepareMock     func()
		expectedAccount *domain.Account
		expectedError   error
	}{
		{
			name:     "Successful authentication",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(stored, nil)
				passwordHasher.EXPECT().ComparePassword("hashedpassword", "testpassword").Return(true)
			},
			expectedAccount: stored,
		},
		{
			name:     "Unknown email still compares a hash",
			email:    "nobody@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "nobody@example.com").Return(nil, nil)
				passwordHasher.EXPECT().ComparePassword("dummyhash", "testpassword").Return(false)
			},
			expectedError: domain.ErrInvalidCredentials,
		},
		{
			name:     "Incorrect password",
			email:    "user@example.com",
			password: "wrongpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(stored, nil)
				passwordHasher.EXPECT().ComparePassword("hashedpassword", "wrongpassword").Return(false)
			},
			expectedError: domain.ErrInvalidCredentials,
		},
		{
			name:     "Storage failure is not reported as bad credentials",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				accountRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, domain.ErrStorage)
			},
			expectedError: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			account, err := service.Authenticate(context.Background(), tt.email, tt.password)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, account)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedAccount, account)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	service, _, _, jwtService := NewMock(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return now })

	tests := []struct {
		name          string
		accountID     int
		prepareMock   func()
		expectedToken string
		expectedError error
	}{
		{
			name:      "Successful token generation",
			accountID: 1,
			prepareMock: func() {
				jwtService.EXPECT().GenerateJWT(1, now.Add(time.Hour)).Return("generated-token", nil)
			},
			expectedToken: "generated-token",
		},
		{
			name:      "Signing key missing",
			accountID: 1,
			prepareMock: func() {
				jwtService.EXPECT().GenerateJWT(1, gomock.Any()).Return("", auth.ErrNoSigningKey)
			},
			expectedError: auth.ErrNoSigningKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			token, err := service.GenerateToken(tt.accountID)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedToken, token)
			}
		})
	}
}

func TestServiceWithRealCrypto(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	issuedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	clock := func() time.Time { return now }

	jwtService := auth.NewJWTService("secret").WithClock(clock)
	service, err := New(repo, auth.NewHashService(4), jwtService, time.Hour)
	require.NoError(t, err)
	service.WithClock(clock)

	token, err := service.GenerateToken(9)
	assert.NoError(t, err)

	now = issuedAt.Add(59 * time.Minute)
	claims, err := jwtService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, 9, claims.AccountID)

	now = issuedAt.Add(61 * time.Minute)
	_, err = jwtService.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}
