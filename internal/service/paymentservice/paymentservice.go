package paymentservice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/events"
	"github.com/GlebRadaev/payledger/internal/pg"
	"github.com/GlebRadaev/payledger/internal/processor"
	"github.com/GlebRadaev/payledger/pkg/money"
)

const (
	maxIdempotencyKeyLen = 255
	maxDescriptionLen    = 500
	defaultRetryBase     = 50 * time.Millisecond
	unavailableDetail    = "payment processor unavailable"
)

type AccountRepo interface {
	LockForUpdate(ctx context.Context, id int) (*domain.Account, error)
	AdjustBalance(ctx context.Context, id int, delta int64) (int64, error)
}

type LedgerRepo interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	FindByIdempotencyKey(ctx context.Context, accountID int, key string) (*domain.LedgerEntry, error)
	FindByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error)
	HeldAmount(ctx context.Context, accountID int) (int64, error)
	Transition(ctx context.Context, id int64, outcome domain.Outcome) (bool, error)
}

type Processor interface {
	CreatePayment(ctx context.Context, req processor.PaymentRequest, idempotencyKey string) (*processor.Payment, error)
}

// ChargeInput is one client request to move money through the processor.
// Amount is in minor units.
type ChargeInput struct {
	AccountID       int
	IdempotencyKey  string
	Token           string
	Amount          int64
	PaymentMethodID string
	IssuerID        string
	Installments    int
	Description     string
	Payer           domain.Payer
}

type Result struct {
	Entry    domain.LedgerEntry
	Outcome  domain.Outcome
	Replayed bool
}

type Options struct {
	Currency      string
	SettleRetries uint64
	RetryBase     time.Duration
}

type Service struct {
	accountRepo AccountRepo
	ledgerRepo  LedgerRepo
	txManager   pg.TXManager
	processor   Processor
	publisher   events.Publisher
	opts        Options
	now         func() time.Time
}

func New(accountRepo AccountRepo, ledgerRepo LedgerRepo, txManager pg.TXManager, proc Processor, publisher events.Publisher, opts Options) *Service {
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txManager:   txManager,
		processor:   proc,
		publisher:   publisher,
		opts:        opts,
		now:         time.Now,
	}
}

// Charge pays from the account balance. The amount is held from the moment the
// entry is reserved until the processor settles it.
func (s *Service) Charge(ctx context.Context, in ChargeInput) (*Result, error) {
	return s.process(ctx, domain.KindPayment, in)
}

// TopUp charges the instrument and credits the account once approved.
func (s *Service) TopUp(ctx context.Context, in ChargeInput) (*Result, error) {
	return s.process(ctx, domain.KindCredit, in)
}

func (s *Service) process(ctx context.Context, kind domain.EntryKind, in ChargeInput) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}
	if in.Installments == 0 {
		in.Installments = 1
	}

	entry, replay, err := s.reserve(ctx, kind, in)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	// The charge can't be recalled once sent, so the rest of the request
	// outlives a client that hangs up.
	ctx = context.WithoutCancel(ctx)

	payment, callErr := s.processor.CreatePayment(ctx, s.paymentRequest(in, entry), entry.Reference)
	if callErr != nil {
		zap.L().Error("charge failed",
			zap.String("reference", entry.Reference),
			zap.Int64("entry_id", entry.ID),
			zap.Error(callErr))
	}
	outcome := Interpret(payment, callErr)

	settled, err := s.Settle(ctx, *entry, outcome)
	if err != nil {
		return nil, err
	}
	outcome.Status = settled.Status
	outcome.Detail = settled.StatusDetail
	return &Result{Entry: *settled, Outcome: outcome}, nil
}

// reserve appends the entry in status processing, or returns the stored result
// when the idempotency key was seen before.
func (s *Service) reserve(ctx context.Context, kind domain.EntryKind, in ChargeInput) (*domain.LedgerEntry, *Result, error) {
	var (
		entry  *domain.LedgerEntry
		replay *Result
	)
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.LockForUpdate(ctx, in.AccountID)
		if err != nil {
			return err
		}
		existing, err := s.ledgerRepo.FindByIdempotencyKey(ctx, in.AccountID, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			replay, err = replayOf(existing, kind, in.Amount)
			return err
		}
		if kind == domain.KindPayment {
			held, err := s.ledgerRepo.HeldAmount(ctx, in.AccountID)
			if err != nil {
				return err
			}
			if account.Balance-held < in.Amount {
				return domain.ErrInsufficientFunds
			}
		}
		entry = &domain.LedgerEntry{
			AccountID:       in.AccountID,
			Kind:            kind,
			Amount:          in.Amount,
			Currency:        s.opts.Currency,
			Description:     in.Description,
			Status:          domain.StatusProcessing,
			PaymentMethodID: in.PaymentMethodID,
			IdempotencyKey:  in.IdempotencyKey,
			Reference:       uuid.NewString(),
		}
		return s.ledgerRepo.Append(ctx, entry)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrConflict) {
			zap.L().Error("can't reserve ledger entry", zap.Int("account_id", in.AccountID), zap.Error(err))
		}
		return nil, nil, err
	}
	if replay != nil {
		zap.L().Info("replaying idempotent request",
			zap.Int("account_id", in.AccountID),
			zap.Int64("entry_id", replay.Entry.ID))
	}
	return entry, replay, nil
}

func replayOf(existing *domain.LedgerEntry, kind domain.EntryKind, amount int64) (*Result, error) {
	if existing.Kind != kind || existing.Amount != amount {
		return nil, domain.ErrKeyReused
	}
	if existing.Status == domain.StatusProcessing {
		return nil, domain.ErrRequestInProgress
	}
	return &Result{
		Entry: *existing,
		Outcome: domain.Outcome{
			Status:             existing.Status,
			Detail:             existing.StatusDetail,
			ProcessorPaymentID: existing.ProcessorPaymentID,
			QRCode:             existing.QRCode,
			QRCodeBase64:       existing.QRCodeBase64,
		},
		Replayed: true,
	}, nil
}

// Settle records the processor outcome for entry. The status change and the
// balance change commit together; the balance only moves when this call is
// the one that moved the entry to approved, so repeating Settle is harmless.
// Storage faults are retried.
func (s *Service) Settle(ctx context.Context, entry domain.LedgerEntry, outcome domain.Outcome) (*domain.LedgerEntry, error) {
	if outcome.Status == domain.StatusProcessing {
		return &entry, nil
	}

	var applied bool
	backoff := retry.WithMaxRetries(s.opts.SettleRetries, retry.NewExponential(s.opts.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		applied = false
		err := s.txManager.Begin(ctx, func(ctx context.Context) error {
			if _, err := s.accountRepo.LockForUpdate(ctx, entry.AccountID); err != nil {
				return err
			}
			ok, err := s.ledgerRepo.Transition(ctx, entry.ID, outcome)
			if err != nil || !ok {
				return err
			}
			if outcome.Status == domain.StatusApproved {
				if _, err := s.accountRepo.AdjustBalance(ctx, entry.AccountID, entry.SignedAmount()); err != nil {
					return err
				}
			}
			applied = true
			return nil
		})
		if errors.Is(err, domain.ErrStorage) {
			zap.L().Warn("settlement failed, retrying", zap.Int64("entry_id", entry.ID), zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		zap.L().Error("can't settle ledger entry",
			zap.Int64("entry_id", entry.ID),
			zap.String("status", string(outcome.Status)),
			zap.Error(err))
		return nil, err
	}

	if !applied {
		current, err := s.ledgerRepo.FindByReference(ctx, entry.Reference)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, domain.ErrUnknownPayment
		}
		return current, nil
	}

	entry.Status = outcome.Status
	entry.StatusDetail = outcome.Detail
	if outcome.ProcessorPaymentID != "" {
		entry.ProcessorPaymentID = outcome.ProcessorPaymentID
	}
	if outcome.QRCode != "" {
		entry.QRCode = outcome.QRCode
	}
	if outcome.QRCodeBase64 != "" {
		entry.QRCodeBase64 = outcome.QRCodeBase64
	}
	if entry.Status.Final() {
		settledAt := s.now()
		entry.SettledAt = &settledAt
		if err := s.publisher.Publish(ctx, events.NewEntrySettled(entry, settledAt)); err != nil {
			zap.L().Warn("settlement event not published", zap.Int64("entry_id", entry.ID), zap.Error(err))
		}
	}
	zap.L().Info("ledger entry settled",
		zap.Int64("entry_id", entry.ID),
		zap.Int("account_id", entry.AccountID),
		zap.String("status", string(entry.Status)))
	return &entry, nil
}

// Interpret maps the answer of the processor to a ledger status. Declines keep
// the processor message; faults and timeouts become StatusError with a generic
// detail.
func Interpret(payment *processor.Payment, err error) domain.Outcome {
	if err != nil {
		var apiErr *processor.APIError
		if errors.As(err, &apiErr) && apiErr.Declined() {
			return domain.Outcome{Status: domain.StatusRejected, Detail: apiErr.Message}
		}
		return domain.Outcome{Status: domain.StatusError, Detail: unavailableDetail}
	}
	if payment == nil {
		return domain.Outcome{Status: domain.StatusError, Detail: unavailableDetail}
	}

	outcome := domain.Outcome{
		Detail:             payment.StatusDetail,
		ProcessorPaymentID: payment.PaymentID(),
		QRCode:             payment.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64:       payment.PointOfInteraction.TransactionData.QRCodeBase64,
	}
	switch payment.Status {
	case processor.StatusApproved:
		outcome.Status = domain.StatusApproved
	case processor.StatusRejected, processor.StatusCancelled, processor.StatusRefunded, processor.StatusChargedBack:
		outcome.Status = domain.StatusRejected
	case processor.StatusPending, processor.StatusInProcess, processor.StatusInMediation:
		outcome.Status = domain.StatusPending
	default:
		zap.L().Warn("unknown processor status, keeping payment open", zap.String("status", payment.Status))
		outcome.Status = domain.StatusPending
	}
	return outcome
}

func (s *Service) paymentRequest(in ChargeInput, entry *domain.LedgerEntry) processor.PaymentRequest {
	req := processor.PaymentRequest{
		TransactionAmount: json.Number(money.Format(entry.Amount)),
		Token:             in.Token,
		Description:       in.Description,
		Installments:      in.Installments,
		PaymentMethodID:   in.PaymentMethodID,
		IssuerID:          in.IssuerID,
		ExternalReference: entry.Reference,
		Payer:             processor.Payer{Email: in.Payer.Email},
	}
	if in.Payer.IdentificationNum != "" {
		req.Payer.Identification = &processor.Identification{
			Type:   in.Payer.IdentificationType,
			Number: in.Payer.IdentificationNum,
		}
	}
	return req
}

func validate(in ChargeInput) error {
	switch {
	case in.AccountID <= 0:
		return domain.Validation("account is required")
	case in.Amount <= 0:
		return domain.Validation("amount must be positive")
	case in.Token == "":
		return domain.Validation("token is required")
	case in.PaymentMethodID == "":
		return domain.Validation("paymentMethodId is required")
	case in.Payer.Email == "":
		return domain.Validation("payer email is required")
	case in.Installments < 0:
		return domain.Validation("installments must not be negative")
	case len(in.IdempotencyKey) > maxIdempotencyKeyLen:
		return domain.Validation("idempotency key is too long")
	case len(in.Description) > maxDescriptionLen:
		return domain.Validation("description is too long")
	}
	return nil
}
