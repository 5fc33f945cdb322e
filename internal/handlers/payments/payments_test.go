package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/dto"
	"github.com/GlebRadaev/payledger/internal/middleware"
	"github.com/GlebRadaev/payledger/internal/service/paymentservice"
	"github.com/GlebRadaev/payledger/pkg/auth"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

const cardPayment = `{
	"transactionAmount": 25.5,
	"token": "ff8080814c11e237014c1ff593b57b4d",
	"description": "Mobile Card Payment",
	"installments": 1,
	"paymentMethodId": "visa",
	"issuerId": null,
	"payer": {"email": "user@example.com", "identification": {"docType": "DNI", "docNumber": "12345678"}}
}`

func NewMock(t *testing.T) (*PaymentHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	return handler, service
}

func result(status domain.EntryStatus, replayed bool) *paymentservice.Result {
	return &paymentservice.Result{
		Entry: domain.LedgerEntry{ID: 17, Kind: domain.KindPayment, Amount: 2550, Currency: "PEN", Reference: "ref-17", Status: status},
		Outcome: domain.Outcome{
			Status: status, Detail: "accredited", ProcessorPaymentID: "1319230842",
		},
		Replayed: replayed,
	}
}

func TestCharge(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		key            string
		prepareMock    func(service *MockService)
		expectedCode   int
		expectedStatus string
		expectedError  string
	}{
		{
			name: "Approved",
			body: cardPayment,
			key:  "key-1",
			prepareMock: func(service *MockService) {
				service.EXPECT().Charge(gomock.Any(), paymentservice.ChargeInput{
					AccountID:       1,
					IdempotencyKey:  "key-1",
					Token:           "ff8080814c11e237014c1ff593b57b4d",
					Amount:          2550,
					PaymentMethodID: "visa",
					Installments:    1,
					Description:     "Mobile Card Payment",
					Payer:           domain.Payer{Email: "user@example.com", IdentificationType: "DNI", IdentificationNum: "12345678"},
				}).Return(result(domain.StatusApproved, false), nil)
			},
			expectedCode:   http.StatusCreated,
			expectedStatus: "approved",
		},
		{
			name: "Replay",
			body: cardPayment,
			key:  "key-1",
			prepareMock: func(service *MockService) {
				service.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(result(domain.StatusApproved, true), nil)
			},
			expectedCode:   http.StatusOK,
			expectedStatus: "approved",
		},
		{
			name: "Rejected",
			body: cardPayment,
			prepareMock: func(service *MockService) {
				service.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(result(domain.StatusRejected, false), nil)
			},
			expectedCode:   http.StatusPaymentRequired,
			expectedStatus: "rejected",
		},
		{
			name: "Processor unavailable",
			body: cardPayment,
			prepareMock: func(service *MockService) {
				service.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(result(domain.StatusError, false), nil)
			},
			expectedCode:   http.StatusBadGateway,
			expectedStatus: "error",
		},
		{
			name: "Insufficient funds",
			body: cardPayment,
			prepareMock: func(service *MockService) {
				service.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(nil, domain.ErrInsufficientFunds)
			},
			expectedCode:  http.StatusPaymentRequired,
			expectedError: "insufficient funds",
		},
		{
			name: "Request in progress",
			body: cardPayment,
			prepareMock: func(service *MockService) {
				service.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(nil, domain.ErrRequestInProgress)
			},
			expectedCode:  http.StatusConflict,
			expectedError: "request with this idempotency key is in progress",
		},
		{
			name:          "Zero amount",
			body:          `{"transactionAmount":0,"token":"t","paymentMethodId":"visa","payer":{"email":"user@example.com"}}`,
			prepareMock:   func(service *MockService) {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "transactionAmount: amount must be positive",
		},
		{
			name:          "Three decimals",
			body:          `{"transactionAmount":"1.005","token":"t","paymentMethodId":"visa","payer":{"email":"user@example.com"}}`,
			prepareMock:   func(service *MockService) {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "transactionAmount: amount has more than two decimal places",
		},
		{
			name:          "Missing token",
			body:          `{"transactionAmount":10,"paymentMethodId":"visa","payer":{"email":"user@example.com"}}`,
			prepareMock:   func(service *MockService) {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "token is required",
		},
		{
			name:          "Missing payer email",
			body:          `{"transactionAmount":10,"token":"t","paymentMethodId":"yape"}`,
			prepareMock:   func(service *MockService) {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "email is required",
		},
		{
			name:          "Invalid body",
			body:          `{"transactionAmount":`,
			prepareMock:   func(service *MockService) {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
		{
			name: "Storage failure",
			body: cardPayment,
			prepareMock: func(service *MockService) {
				service.EXPECT().Charge(gomock.Any(), gomock.Any()).Return(nil, domain.Storage("can't append entry", errors.New("disk full")))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := NewMock(t)
			tt.prepareMock(service)

			req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewBufferString(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), auth.AccountIDKey, 1))
			if tt.key != "" {
				req.Header.Set(middleware.IdempotencyKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			handler.Charge(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}
			var resp dto.PaymentResponseDTO
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.expectedStatus, resp.Status)
			assert.Equal(t, int64(17), resp.ID)
			assert.Equal(t, "25.50", resp.Amount.String())
			assert.Equal(t, "1319230842", resp.ProcessorPaymentID)
		})
	}
}

func TestTopUp(t *testing.T) {
	handler, service := NewMock(t)
	pending := result(domain.StatusPending, false)
	pending.Entry.Kind = domain.KindCredit
	pending.Outcome.QRCodeBase64 = "iVBORw0KGgo="
	service.EXPECT().TopUp(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, in paymentservice.ChargeInput) (*paymentservice.Result, error) {
		assert.Equal(t, int64(10000), in.Amount)
		assert.Equal(t, "yape", in.PaymentMethodID)
		return pending, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/api/user/balance/topup",
		bytes.NewBufferString(`{"transactionAmount":"100","token":"yape-token","paymentMethodId":"yape","installments":1,"payer":{"email":"user@example.com"}}`))
	req = req.WithContext(context.WithValue(req.Context(), auth.AccountIDKey, 1))
	rec := httptest.NewRecorder()
	handler.TopUp(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.PaymentResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "iVBORw0KGgo=", resp.QRCodeBase64)
}

func TestCharge_NoSession(t *testing.T) {
	handler, _ := NewMock(t)

	rec := httptest.NewRecorder()
	handler.Charge(rec, httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewBufferString(cardPayment)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
