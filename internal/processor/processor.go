// Package processor talks to a Mercado Pago compatible payments API.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/config"
	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/pkg/clients"
)

const (
	paymentsPath = "/v1/payments"
	searchPath   = "/v1/payments/search"

	IdempotencyHeader = "X-Idempotency-Key"
)

// Statuses reported by the processor.
const (
	StatusApproved    = "approved"
	StatusPending     = "pending"
	StatusInProcess   = "in_process"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"
)

var ErrPaymentNotFound = errors.New("payment not found at processor")

type Identification struct {
	Type   string `json:"type,omitempty"`
	Number string `json:"number,omitempty"`
}

type Payer struct {
	Email          string          `json:"email"`
	Identification *Identification `json:"identification,omitempty"`
}

type PaymentRequest struct {
	TransactionAmount json.Number `json:"transaction_amount"`
	Token             string      `json:"token,omitempty"`
	Description       string      `json:"description,omitempty"`
	Installments      int         `json:"installments,omitempty"`
	PaymentMethodID   string      `json:"payment_method_id"`
	IssuerID          string      `json:"issuer_id,omitempty"`
	ExternalReference string      `json:"external_reference"`
	Payer             Payer       `json:"payer"`
}

type TransactionData struct {
	QRCode       string `json:"qr_code,omitempty"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
}

type PointOfInteraction struct {
	TransactionData TransactionData `json:"transaction_data"`
}

type Payment struct {
	ID                 int64              `json:"id"`
	Status             string             `json:"status"`
	StatusDetail       string             `json:"status_detail"`
	ExternalReference  string             `json:"external_reference"`
	TransactionAmount  decimal.Decimal    `json:"transaction_amount"`
	PointOfInteraction PointOfInteraction `json:"point_of_interaction"`
}

// PaymentID is the processor id in the form stored in the ledger.
func (p *Payment) PaymentID() string {
	if p.ID == 0 {
		return ""
	}
	return strconv.FormatInt(p.ID, 10)
}

type searchResponse struct {
	Results []Payment `json:"results"`
}

// APIError is a non-2xx answer of the processor.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor responded %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return domain.ErrProcessor }

// Declined reports whether the processor refused the payment itself, as
// opposed to failing to process it. Auth and throttling answers are faults on
// our side and are not declines.
func (e *APIError) Declined() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Cause   []struct {
		Description string `json:"description"`
	} `json:"cause"`
}

type Client struct {
	baseURL     string
	accessToken string
	client      clients.HTTPClientI
}

func New(cfg *config.Config, client clients.HTTPClientI) *Client {
	return &Client{
		baseURL:     cfg.ProcessorAddress,
		accessToken: cfg.ProcessorAccessToken,
		client:      client,
	}
}

// CreatePayment sends exactly one charge request. It is never retried here:
// the idempotency key lets the processor collapse repeats of the same charge.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest, idempotencyKey string) (*Payment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("can't encode payment request: %w", err)
	}
	headers := c.headers()
	headers.Set("Content-Type", "application/json")
	headers.Set(IdempotencyHeader, idempotencyKey)

	statusCode, respBody, _, err := c.client.Post(ctx, c.baseURL+paymentsPath, headers, body)
	if err != nil {
		zap.L().Error("processor request failed", zap.String("reference", req.ExternalReference), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrProcessor, err)
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return nil, apiError(statusCode, respBody)
	}
	return decodePayment(respBody)
}

func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	statusCode, respBody, _, err := c.client.Get(ctx, c.baseURL+paymentsPath+"/"+url.PathEscape(id), c.headers())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProcessor, err)
	}
	switch statusCode {
	case http.StatusOK:
		return decodePayment(respBody)
	case http.StatusNotFound:
		return nil, ErrPaymentNotFound
	default:
		return nil, apiError(statusCode, respBody)
	}
}

// SearchByReference finds the payment created for a ledger reference. It
// returns ErrPaymentNotFound when the charge never reached the processor.
func (c *Client) SearchByReference(ctx context.Context, reference string) (*Payment, error) {
	query := url.Values{}
	query.Set("external_reference", reference)
	query.Set("sort", "date_created")
	query.Set("criteria", "desc")

	statusCode, respBody, _, err := c.client.Get(ctx, c.baseURL+searchPath+"?"+query.Encode(), c.headers())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProcessor, err)
	}
	if statusCode != http.StatusOK {
		return nil, apiError(statusCode, respBody)
	}
	var resp searchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: can't parse search response: %w", domain.ErrProcessor, err)
	}
	if len(resp.Results) == 0 {
		return nil, ErrPaymentNotFound
	}
	return &resp.Results[0], nil
}

func (c *Client) headers() http.Header {
	headers := http.Header{}
	if c.accessToken != "" {
		headers.Set("Authorization", "Bearer "+c.accessToken)
	}
	return headers
}

func decodePayment(body []byte) (*Payment, error) {
	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("%w: can't parse payment: %w", domain.ErrProcessor, err)
	}
	return &payment, nil
}

func apiError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case len(parsed.Cause) > 0 && parsed.Cause[0].Description != "":
			apiErr.Message = parsed.Cause[0].Description
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case parsed.Error != "":
			apiErr.Message = parsed.Error
		}
	}
	zap.L().Warn("processor returned an error", zap.Int("status", statusCode), zap.String("message", apiErr.Message))
	return apiErr
}
