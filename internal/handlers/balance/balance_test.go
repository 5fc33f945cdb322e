package balance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/dto"
	"github.com/GlebRadaev/payledger/pkg/auth"
	"github.com/GlebRadaev/payledger/pkg/utils"
)

func NewMock(t *testing.T) (*BalanceHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	return handler, service
}

func authorized(req *http.Request, accountID int) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.AccountIDKey, accountID))
}

func TestGetBalance(t *testing.T) {
	tests := []struct {
		name          string
		accountID     int
		prepareMock   func(service *MockService)
		expectedCode  int
		expectedBody  *dto.BalanceResponseDTO
		expectedError string
	}{
		{
			name:      "Balance with a held payment",
			accountID: 1,
			prepareMock: func(service *MockService) {
				service.EXPECT().GetBalance(gomock.Any(), 1).Return(&domain.Balance{
					AccountID: 1, Current: 50050, Held: 2500, Currency: "PEN",
				}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: &dto.BalanceResponseDTO{Balance: "500.50", Held: "25.00", Available: "475.50", Currency: "PEN"},
		},
		{
			name:      "Storage failure",
			accountID: 1,
			prepareMock: func(service *MockService) {
				service.EXPECT().GetBalance(gomock.Any(), 1).Return(nil, domain.Storage("can't get account", errors.New("down")))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
		{
			name:          "No session",
			prepareMock:   func(service *MockService) {},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := NewMock(t)
			tt.prepareMock(service)

			req := httptest.NewRequest(http.MethodGet, "/api/user/balance", nil)
			if tt.accountID != 0 {
				req = authorized(req, tt.accountID)
			}
			rec := httptest.NewRecorder()
			handler.GetBalance(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}
			var resp dto.BalanceResponseDTO
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, *tt.expectedBody, resp)
		})
	}
}

func TestAudit(t *testing.T) {
	handler, service := NewMock(t)
	service.EXPECT().Audit(gomock.Any(), 3).Return(&domain.Audit{AccountID: 3, Balance: 1000, LedgerSum: 1000}, nil)

	rec := httptest.NewRecorder()
	handler.Audit(rec, authorized(httptest.NewRequest(http.MethodGet, "/api/user/balance/audit", nil), 3))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.AuditResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Consistent)
	assert.Equal(t, "10.00", resp.LedgerSum.String())
}

func TestGetTransactions(t *testing.T) {
	created := time.Date(2026, 3, 9, 16, 9, 57, 0, time.UTC)

	tests := []struct {
		name          string
		query         string
		prepareMock   func(service *MockService)
		expectedCode  int
		expectedCount int
		expectedNext  string
		expectedError string
	}{
		{
			name:  "First page",
			query: "?limit=2",
			prepareMock: func(service *MockService) {
				service.EXPECT().ListTransactions(gomock.Any(), 1, "", 2).Return(&domain.Page{
					Entries: []domain.LedgerEntry{
						{ID: 2, Kind: domain.KindPayment, Amount: 2550, Status: domain.StatusApproved, CreatedAt: created},
						{ID: 1, Kind: domain.KindCredit, Amount: 10000, Status: domain.StatusApproved, CreatedAt: created.Add(-time.Hour)},
					},
					NextCursor: "next-token",
				}, nil)
			},
			expectedCode:  http.StatusOK,
			expectedCount: 2,
			expectedNext:  "next-token",
		},
		{
			name:  "Cursor is passed through",
			query: "?cursor=abc",
			prepareMock: func(service *MockService) {
				service.EXPECT().ListTransactions(gomock.Any(), 1, "abc", 0).Return(&domain.Page{}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:  "Bad cursor",
			query: "?cursor=%25%25",
			prepareMock: func(service *MockService) {
				service.EXPECT().ListTransactions(gomock.Any(), 1, "%%", 0).Return(nil, domain.Validation("invalid cursor"))
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "invalid cursor",
		},
		{
			name:          "Bad limit",
			query:         "?limit=ten",
			prepareMock:   func(service *MockService) {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "limit must be a positive number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := NewMock(t)
			tt.prepareMock(service)

			rec := httptest.NewRecorder()
			handler.GetTransactions(rec, authorized(httptest.NewRequest(http.MethodGet, "/api/user/transactions"+tt.query, nil), 1))

			assert.Equal(t, tt.expectedCode, rec.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
				return
			}
			var resp dto.TransactionsResponseDTO
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Len(t, resp.Transactions, tt.expectedCount)
			assert.NotNil(t, resp.Transactions)
			assert.Equal(t, tt.expectedNext, resp.NextCursor)
			if tt.expectedCount > 0 {
				assert.Equal(t, "-25.50", resp.Transactions[0].SignedAmount.String())
				assert.Equal(t, "100.00", resp.Transactions[1].SignedAmount.String())
				assert.Equal(t, "payment", resp.Transactions[0].Type)
			}
		})
	}
}
