package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/GlebRadaev/payledger/pkg/utils"
)

type ContextKey string

const AccountIDKey ContextKey = "accountID"

// LegacyTokenHeader is the header older mobile clients send the session in.
const LegacyTokenHeader = "x-auth-token"

type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Middleware rejects requests without a valid session and stores the account
// id under AccountIDKey. Each failure carries its own code so clients can tell
// "log in again" from "not logged in".
func Middleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.ValidateToken(tokenFromRequest(r))
			if err != nil {
				switch {
				case errors.Is(err, ErrMissingToken):
					utils.RespondWithErrorCode(w, http.StatusUnauthorized, "missing_token", "Unauthorized")
				case errors.Is(err, ErrExpiredToken):
					utils.RespondWithErrorCode(w, http.StatusUnauthorized, "expired_token", "Session expired, log in again")
				default:
					utils.RespondWithErrorCode(w, http.StatusUnauthorized, "invalid_token", "Invalid session")
				}
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, claims.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			return strings.TrimSpace(authHeader[7:])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(LegacyTokenHeader))
}

// AccountID returns the account id stored by Middleware.
func AccountID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(AccountIDKey).(int)
	return id, ok
}
