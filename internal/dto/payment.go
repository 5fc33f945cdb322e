package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type IdentificationDTO struct {
	DocType   string `json:"docType" validate:"required_with=DocNumber,max=20" example:"DNI"`
	DocNumber string `json:"docNumber" validate:"max=30" example:"12345678"`
}

type PayerDTO struct {
	Email          string             `json:"email" validate:"required,email" example:"user@example.com"`
	Identification *IdentificationDTO `json:"identification,omitempty"`
}

// PaymentRequestDTO carries an instrument token issued by the processor to
// the mobile client. Card data never reaches the server.
type PaymentRequestDTO struct {
	TransactionAmount decimal.Decimal `json:"transactionAmount" swaggertype:"number" example:"25.50"`
	Token             string          `json:"token" validate:"required,max=255" example:"ff8080814c11e237014c1ff593b57b4d"`
	Description       string          `json:"description" validate:"max=500" example:"Mobile Card Payment"`
	Installments      int             `json:"installments" validate:"gte=0,lte=48" example:"1"`
	PaymentMethodID   string          `json:"paymentMethodId" validate:"required,max=50" example:"visa"`
	IssuerID          *string         `json:"issuerId,omitempty" example:"310"`
	Payer             PayerDTO        `json:"payer"`
}

type PaymentResponseDTO struct {
	ID                 int64       `json:"id" example:"17"`
	Status             string      `json:"status" example:"approved"`
	Detail             string      `json:"detail" example:"accredited"`
	Amount             json.Number `json:"amount" swaggertype:"number" example:"25.50"`
	Currency           string      `json:"currency" example:"PEN"`
	Reference          string      `json:"reference" example:"5f0c6d4e-8a9b-4c1d-9e2f-3a4b5c6d7e8f"`
	ProcessorPaymentID string      `json:"processorPaymentId,omitempty" example:"1319230842"`
	QRCode             string      `json:"qr_code,omitempty"`
	QRCodeBase64       string      `json:"qr_code_base64,omitempty"`
	Replayed           bool        `json:"replayed,omitempty"`
}

// WebhookRequestDTO is the processor notification body. Only the payment id
// is used; the payment itself is fetched from the processor.
type WebhookRequestDTO struct {
	Type   string `json:"type" example:"payment"`
	Action string `json:"action" example:"payment.updated"`
	Data   struct {
		ID json.Number `json:"id" swaggertype:"string" example:"1319230842"`
	} `json:"data"`
}
