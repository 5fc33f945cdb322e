package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func TestGenerateJWT(t *testing.T) {
	jwtService := NewJWTService(testSecret)

	tests := []struct {
		name           string
		service        *JWTService
		accountID      int
		expirationTime time.Time
		expectError    bool
	}{
		{
			name:           "Valid Token",
			service:        jwtService,
			accountID:      123,
			expirationTime: time.Now().Add(time.Hour),
		},
		{
			name:           "Already expired token is still signed",
			service:        jwtService,
			accountID:      123,
			expirationTime: time.Now().Add(-time.Hour),
		},
		{
			name:           "Missing signing key",
			service:        NewJWTService(""),
			accountID:      123,
			expirationTime: time.Now().Add(time.Hour),
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tt.service.GenerateJWT(tt.accountID, tt.expirationTime)

			if tt.expectError {
				assert.ErrorIs(t, err, ErrNoSigningKey)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	jwtService := NewJWTService(testSecret)

	tests := []struct {
		name        string
		tokenString string
		setup       func() string
		expectedErr error
	}{
		{
			name: "Valid Token",
			setup: func() string {
				token, _ := jwtService.GenerateJWT(123, time.Now().Add(time.Hour))
				return token
			},
		},
		{
			name:        "Missing Token",
			tokenString: "",
			expectedErr: ErrMissingToken,
		},
		{
			name:        "Malformed Token",
			tokenString: "invalid.token.string",
			expectedErr: ErrInvalidToken,
		},
		{
			name: "Expired Token",
			setup: func() string {
				token, _ := jwtService.GenerateJWT(123, time.Now().Add(-time.Hour))
				return token
			},
			expectedErr: ErrExpiredToken,
		},
		{
			name: "Signed with another key",
			setup: func() string {
				token, _ := NewJWTService("other-secret").GenerateJWT(123, time.Now().Add(time.Hour))
				return token
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "Invalid Claims Type",
			setup: func() string {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
					ExpiresAt: time.Now().Add(time.Hour).Unix(),
					Issuer:    issuer,
				})
				signedToken, _ := token.SignedString([]byte(testSecret))
				return signedToken
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "Token without expiry",
			setup: func() string {
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
					AccountID:      123,
					StandardClaims: jwt.StandardClaims{Issuer: issuer},
				})
				signedToken, _ := token.SignedString([]byte(testSecret))
				return signedToken
			},
			expectedErr: ErrInvalidToken,
		},
		{
			name: "Unexpected signing method",
			setup: func() string {
				token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
					AccountID: 123,
					StandardClaims: jwt.StandardClaims{
						ExpiresAt: time.Now().Add(time.Hour).Unix(),
						Issuer:    issuer,
					},
				})
				signedToken, _ := token.SignedString([]byte(testSecret))
				return signedToken
			},
			expectedErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokenString string
			if tt.setup != nil {
				tokenString = tt.setup()
			} else {
				tokenString = tt.tokenString
			}

			claims, err := jwtService.ValidateToken(tokenString)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, claims)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 123, claims.AccountID)
			}
		})
	}
}

func TestTokenExpiryWindow(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	jwtService := NewJWTService(testSecret).WithClock(func() time.Time { return now })

	token, err := jwtService.GenerateJWT(7, issuedAt.Add(time.Hour))
	assert.NoError(t, err)

	now = issuedAt.Add(59 * time.Minute)
	claims, err := jwtService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, 7, claims.AccountID)

	now = issuedAt.Add(61 * time.Minute)
	_, err = jwtService.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
