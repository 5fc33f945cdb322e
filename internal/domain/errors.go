package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors wrap one of these so handlers can map them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication error")
	ErrConflict   = errors.New("conflict")
	ErrProcessor  = errors.New("payment processor error")
	ErrStorage    = errors.New("storage error")
)

var (
	ErrAccountExists      = kind(ErrConflict, "account already exists")
	ErrRequestInProgress  = kind(ErrConflict, "request with this idempotency key is in progress")
	ErrKeyReused          = kind(ErrConflict, "idempotency key was used for a different request")
	ErrInvalidCredentials = kind(ErrAuth, "invalid credentials")
	ErrInsufficientFunds  = kind(ErrValidation, "insufficient funds")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUnknownPayment     = errors.New("payment is not known to the ledger")
	ErrDuplicateEntry     = errors.New("ledger entry already exists for idempotency key")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func kind(k error, msg string) error {
	return &kindError{kind: k, msg: msg}
}

// Validation builds an error of kind ErrValidation with a client-safe message.
func Validation(msg string) error {
	return kind(ErrValidation, msg)
}

// Storage wraps a store failure so that it matches ErrStorage and the cause.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
