package balance

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/dto"
	"github.com/GlebRadaev/payledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payledger/pkg/auth"
	"github.com/GlebRadaev/payledger/pkg/money"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

type Service interface {
	GetBalance(ctx context.Context, accountID int) (*domain.Balance, error)
	ListTransactions(ctx context.Context, accountID int, cursorToken string, limit int) (*domain.Page, error)
	Audit(ctx context.Context, accountID int) (*domain.Audit, error)
}

type BalanceHandler struct {
	balanceService Service
}

func New(balanceService Service) *BalanceHandler {
	return &BalanceHandler{
		balanceService: balanceService,
	}
}

// GetBalance godoc
//
//	@Summary		Get account balance
//	@Description	Current balance, the amount held by payments still awaiting the processor and what is left to spend.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.BalanceResponseDTO
//	@Failure		401	{object}	utils.Response	"Missing, invalid or expired session"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/user/balance [get]
func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		utils.RespondWithErrorCode(w, http.StatusUnauthorized, "missing_token", "Unauthorized")
		return
	}

	balance, err := h.balanceService.GetBalance(r.Context(), accountID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.BalanceResponseDTO{
		Balance:   json.Number(money.Format(balance.Current)),
		Held:      json.Number(money.Format(balance.Held)),
		Available: json.Number(money.Format(balance.Available())),
		Currency:  balance.Currency,
	})
}

// Audit godoc
//
//	@Summary		Check balance against the ledger
//	@Description	Compares the stored balance with the signed sum of approved ledger entries.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.AuditResponseDTO
//	@Failure		401	{object}	utils.Response	"Missing, invalid or expired session"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/user/balance/audit [get]
func (h *BalanceHandler) Audit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		utils.RespondWithErrorCode(w, http.StatusUnauthorized, "missing_token", "Unauthorized")
		return
	}

	audit, err := h.balanceService.Audit(r.Context(), accountID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.AuditResponseDTO{
		Balance:    json.Number(money.Format(audit.Balance)),
		LedgerSum:  json.Number(money.Format(audit.LedgerSum)),
		Consistent: audit.Consistent(),
	})
}

// GetTransactions godoc
//
//	@Summary		List ledger entries
//	@Description	Most recent first. Pass nextCursor back as cursor to get the following page.
//	@Tags			Balance
//	@Security		BearerAuth
//	@Produce		json
//	@Param			limit	query		int		false	"Page size, 1 to 100"	default(20)
//	@Param			cursor	query		string	false	"Cursor from the previous page"
//	@Success		200		{object}	dto.TransactionsResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid limit or cursor"
//	@Failure		401		{object}	utils.Response	"Missing, invalid or expired session"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/user/transactions [get]
func (h *BalanceHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountID(r.Context())
	if !ok {
		utils.RespondWithErrorCode(w, http.StatusUnauthorized, "missing_token", "Unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.RespondWithErrorCode(w, http.StatusBadRequest, "validation_error", "limit must be a positive number")
			return
		}
		limit = parsed
	}

	page, err := h.balanceService.ListTransactions(r.Context(), accountID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		httperr.Respond(w, err)
		return
	}

	resp := dto.TransactionsResponseDTO{
		Transactions: make([]dto.TransactionDTO, 0, len(page.Entries)),
		NextCursor:   page.NextCursor,
	}
	for _, e := range page.Entries {
		resp.Transactions = append(resp.Transactions, dto.TransactionDTO{
			ID:              e.ID,
			Type:            string(e.Kind),
			Amount:          json.Number(money.Format(e.Amount)),
			SignedAmount:    json.Number(money.Format(e.SignedAmount())),
			Currency:        e.Currency,
			Description:     e.Description,
			Status:          string(e.Status),
			StatusDetail:    e.StatusDetail,
			PaymentMethodID: e.PaymentMethodID,
			Reference:       e.Reference,
			Date:            e.CreatedAt,
			SettledAt:       e.SettledAt,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
