package dto

import (
	"encoding/json"
	"time"
)

type BalanceResponseDTO struct {
	Balance   json.Number `json:"balance" swaggertype:"number" example:"500.50"`
	Held      json.Number `json:"held" swaggertype:"number" example:"25.00"`
	Available json.Number `json:"available" swaggertype:"number" example:"475.50"`
	Currency  string      `json:"currency" example:"PEN"`
}

type AuditResponseDTO struct {
	Balance    json.Number `json:"balance" swaggertype:"number" example:"500.50"`
	LedgerSum  json.Number `json:"ledgerSum" swaggertype:"number" example:"500.50"`
	Consistent bool        `json:"consistent" example:"true"`
}

// TransactionDTO is one ledger entry. Amount is always positive; SignedAmount
// is what the entry does to the balance once approved.
type TransactionDTO struct {
	ID              int64       `json:"id" example:"17"`
	Type            string      `json:"type" example:"payment"`
	Amount          json.Number `json:"amount" swaggertype:"number" example:"25.50"`
	SignedAmount    json.Number `json:"signedAmount" swaggertype:"number" example:"-25.50"`
	Currency        string      `json:"currency" example:"PEN"`
	Description     string      `json:"description" example:"Mobile Card Payment"`
	Status          string      `json:"status" example:"approved"`
	StatusDetail    string      `json:"statusDetail,omitempty" example:"accredited"`
	PaymentMethodID string      `json:"paymentMethodId,omitempty" example:"visa"`
	Reference       string      `json:"reference" example:"5f0c6d4e-8a9b-4c1d-9e2f-3a4b5c6d7e8f"`
	Date            time.Time   `json:"date" example:"2026-03-09T16:09:57Z"`
	SettledAt       *time.Time  `json:"settledAt,omitempty" example:"2026-03-09T16:09:58Z"`
}

type TransactionsResponseDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	NextCursor   string           `json:"nextCursor,omitempty" example:"MTc0MTUzNjk5NzAwMDAwMDoxNw"`
}
