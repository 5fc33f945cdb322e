package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/dto"
	"github.com/GlebRadaev/payledger/internal/handlers/httperr"
	"github.com/GlebRadaev/payledger/internal/processor"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

const maxBody = 1 << 16

type Syncer interface {
	SyncPayment(ctx context.Context, processorPaymentID string) (*domain.LedgerEntry, error)
}

type WebhookHandler struct {
	syncer Syncer
}

func New(syncer Syncer) *WebhookHandler {
	return &WebhookHandler{syncer: syncer}
}

// Processor godoc
//
//	@Summary		Payment notification
//	@Description	Called by the processor when a payment changes. The payment is re-read from the processor before the ledger is updated.
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Param			data.id		query		string					false	"Payment id"
//	@Param			type		query		string					false	"Notification type"
//	@Param			request		body		dto.WebhookRequestDTO	false	"Notification body"
//	@Success		200			{object}	utils.Response
//	@Failure		400			{object}	utils.Response	"No payment id"
//	@Failure		502			{object}	utils.Response	"Processor unavailable, retry later"
//	@Router			/api/webhooks/processor [post]
func (h *WebhookHandler) Processor(w http.ResponseWriter, r *http.Request) {
	var body dto.WebhookRequestDTO
	if r.Body != nil {
		// Query-only notifications have an empty or non-JSON body.
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&body)
	}

	query := r.URL.Query()
	kind := firstNonEmpty(query.Get("type"), query.Get("topic"), body.Type)
	if kind != "" && kind != "payment" {
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ignored"})
		return
	}

	id := strings.TrimSpace(firstNonEmpty(query.Get("data.id"), query.Get("id"), body.Data.ID.String()))
	if id == "" {
		utils.RespondWithErrorCode(w, http.StatusBadRequest, "validation_error", "payment id is required")
		return
	}

	entry, err := h.syncer.SyncPayment(r.Context(), id)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: string(entry.Status)})
	case errors.Is(err, domain.ErrUnknownPayment), errors.Is(err, processor.ErrPaymentNotFound):
		// Acknowledge so the processor stops retrying a payment we don't own.
		zap.L().Warn("notification ignored", zap.String("processor_payment_id", id), zap.Error(err))
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "ignored"})
	default:
		httperr.Respond(w, err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
