package payments

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/dto"
	"github.com/GlebRadaev/payledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payledger/internal/middleware"
	"github.com/GlebRadaev/payledger/internal/service/paymentservice"
	"github.com/GlebRadaev/payledger/pkg/auth"
	"github.com/GlebRadaev/payledger/pkg/money"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

type Service interface {
	Charge(ctx context.Context, in paymentservice.ChargeInput) (*paymentservice.Result, error)
	TopUp(ctx context.Context, in paymentservice.ChargeInput) (*paymentservice.Result, error)
}

type PaymentHandler struct {
	paymentService Service
}

func New(paymentService Service) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Charge godoc
//
//	@Summary		Pay from the account balance
//	@Description	Charges a processor instrument token. The amount is held while the processor decides and debited once approved.
//	@Description	Repeating a request with the same Idempotency-Key returns the first result without charging again.
//	@Tags			Payments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					false	"Client generated key, at most 255 characters"
//	@Param			request			body		dto.PaymentRequestDTO	true	"Payment request"
//	@Success		201				{object}	dto.PaymentResponseDTO	"Approved or pending"
//	@Success		200				{object}	dto.PaymentResponseDTO	"Replay of an earlier request"
//	@Failure		400				{object}	utils.Response			"Invalid request"
//	@Failure		401				{object}	utils.Response			"Missing, invalid or expired session"
//	@Failure		402				{object}	dto.PaymentResponseDTO	"Rejected by the processor or insufficient funds"
//	@Failure		409				{object}	utils.Response			"Same key still in progress or used for another request"
//	@Failure		502				{object}	dto.PaymentResponseDTO	"Processor unavailable"
//	@Router			/api/payments [post]
func (h *PaymentHandler) Charge(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.paymentService.Charge)
}

// TopUp godoc
//
//	@Summary		Top up the account balance
//	@Description	Charges a processor instrument token and credits the account once approved.
//	@Tags			Payments
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					false	"Client generated key, at most 255 characters"
//	@Param			request			body		dto.PaymentRequestDTO	true	"Top up request"
//	@Success		201				{object}	dto.PaymentResponseDTO	"Approved or pending"
//	@Success		200				{object}	dto.PaymentResponseDTO	"Replay of an earlier request"
//	@Failure		400				{object}	utils.Response			"Invalid request"
//	@Failure		401				{object}	utils.Response			"Missing, invalid or expired session"
//	@Failure		402				{object}	dto.PaymentResponseDTO	"Rejected by the processor"
//	@Failure		409				{object}	utils.Response			"Same key still in progress or used for another request"
//	@Failure		502				{object}	dto.PaymentResponseDTO	"Processor unavailable"
//	@Router			/api/user/balance/topup [post]
func (h *PaymentHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.paymentService.TopUp)
}

type operation func(ctx context.Context, in paymentservice.ChargeInput) (*paymentservice.Result, error)

func (h *PaymentHandler) handle(w http.ResponseWriter, r *http.Request, op operation) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		utils.RespondWithErrorCode(w, http.StatusUnauthorized, "missing_token", "Unauthorized")
		return
	}

	var req dto.PaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	amount, err := money.ToMinor(req.TransactionAmount)
	if err != nil {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "validation_error", "transactionAmount: "+err.Error())
		return
	}

	in := paymentservice.ChargeInput{
		AccountID:       accountID,
		IdempotencyKey:  r.Header.Get(middleware.IdempotencyKeyHeader),
		Token:           req.Token,
		Amount:          amount,
		PaymentMethodID: req.PaymentMethodID,
		Installments:    req.Installments,
		Description:     req.Description,
		Payer:           domain.Payer{Email: req.Payer.Email},
	}
	if req.IssuerID != nil {
		in.IssuerID = *req.IssuerID
	}
	if id := req.Payer.Identification; id != nil {
		in.Payer.IdentificationType = id.DocType
		in.Payer.IdentificationNum = id.DocNumber
	}

	result, err := op(r.Context(), in)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, statusFor(result), dto.PaymentResponseDTO{
		ID:                 result.Entry.ID,
		Status:             string(result.Outcome.Status),
		Detail:             result.Outcome.Detail,
		Amount:             json.Number(money.Format(result.Entry.Amount)),
		Currency:           result.Entry.Currency,
		Reference:          result.Entry.Reference,
		ProcessorPaymentID: result.Outcome.ProcessorPaymentID,
		QRCode:             result.Outcome.QRCode,
		QRCodeBase64:       result.Outcome.QRCodeBase64,
		Replayed:           result.Replayed,
	})
}

func statusFor(result *paymentservice.Result) int {
	switch result.Outcome.Status {
	case domain.StatusRejected:
		return http.StatusPaymentRequired
	case domain.StatusError:
		return http.StatusBadGateway
	}
	if result.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
