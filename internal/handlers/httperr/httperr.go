// Package httperr maps domain errors to HTTP responses.
package httperr

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

// Respond writes the status and machine code for err. Storage and processor
// faults are logged in full and answered with a generic message.
func Respond(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		utils.RespondWithErrorCode(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrValidation):
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrAuth):
		utils.RespondWithErrorCode(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, domain.ErrRequestInProgress):
		utils.RespondWithErrorCode(w, http.StatusConflict, "request_in_progress", err.Error())
	case errors.Is(err, domain.ErrKeyReused):
		utils.RespondWithErrorCode(w, http.StatusConflict, "idempotency_key_reused", err.Error())
	case errors.Is(err, domain.ErrConflict):
		utils.RespondWithErrorCode(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrAccountNotFound):
		utils.RespondWithErrorCode(w, http.StatusNotFound, "account_not_found", "Account not found")
	case errors.Is(err, domain.ErrUnknownPayment):
		utils.RespondWithErrorCode(w, http.StatusNotFound, "unknown_payment", "Payment not found")
	case errors.Is(err, domain.ErrProcessor):
		zap.L().Error("payment processor failure", zap.Error(err))
		utils.RespondWithErrorCode(w, http.StatusBadGateway, "processor_unavailable", "Payment processor unavailable")
	default:
		zap.L().Error("request failed", zap.Error(err))
		utils.RespondWithErrorCode(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
