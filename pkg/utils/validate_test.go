package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testPayer struct {
	Email string `json:"email" validate:"required,email"`
}

type testRequest struct {
	Token           string    `json:"token" validate:"required"`
	PaymentMethodID string    `json:"paymentMethodId" validate:"max=5"`
	Password        string    `json:"password" validate:"omitempty,min=8"`
	Installments    int       `json:"installments" validate:"gte=0"`
	Payer           testPayer `json:"payer"`
}

func TestValidate(t *testing.T) {
	valid := testRequest{Token: "tok", PaymentMethodID: "visa", Payer: testPayer{Email: "a@b.pe"}}

	tests := []struct {
		name     string
		modify   func(r *testRequest)
		expected string
	}{
		{name: "Valid", modify: func(r *testRequest) {}},
		{name: "Missing token", modify: func(r *testRequest) { r.Token = "" }, expected: "token is required"},
		{name: "Bad email", modify: func(r *testRequest) { r.Payer.Email = "nope" }, expected: "email must be a valid email"},
		{name: "Too long", modify: func(r *testRequest) { r.PaymentMethodID = "mastercard" }, expected: "paymentMethodId must be at most 5 characters"},
		{name: "Too short", modify: func(r *testRequest) { r.Password = "short" }, expected: "password must be at least 8 characters"},
		{name: "Other rule", modify: func(r *testRequest) { r.Installments = -1 }, expected: "installments is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.modify(&req)
			err := Validate(req)
			if tt.expected == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.expected)
		})
	}
}
