// Package reconcile settles ledger entries whose outcome was not known when
// the charge request finished: QR payments waiting for the customer and
// entries left in processing by a crash or a lost processor answer.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GlebRadaev/payledger/internal/config"
	"github.com/GlebRadaev/payledger/internal/domain"
	"github.com/GlebRadaev/payledger/internal/processor"
	"github.com/GlebRadaev/payledger/internal/service/paymentservice"
)

const (
	defaultWorkers    = 10
	neverSubmitDetail = "payment never reached the processor"
)

type LedgerRepo interface {
	FindOpen(ctx context.Context, olderThan time.Time, limit uint32) ([]domain.LedgerEntry, error)
	FindByProcessorPaymentID(ctx context.Context, processorPaymentID string) (*domain.LedgerEntry, error)
	FindByReference(ctx context.Context, reference string) (*domain.LedgerEntry, error)
}

type Processor interface {
	GetPayment(ctx context.Context, id string) (*processor.Payment, error)
	SearchByReference(ctx context.Context, reference string) (*processor.Payment, error)
}

type Settler interface {
	Settle(ctx context.Context, entry domain.LedgerEntry, outcome domain.Outcome) (*domain.LedgerEntry, error)
}

type Service struct {
	ledgerRepo LedgerRepo
	processor  Processor
	settler    Settler
	workerPool WorkerPoolI

	limit      uint32
	interval   time.Duration
	staleAfter time.Duration
	inFlight   sync.Map
	now        func() time.Time
}

func New(cfg *config.Config, ledgerRepo LedgerRepo, proc Processor, settler Settler) *Service {
	return &Service{
		ledgerRepo: ledgerRepo,
		processor:  proc,
		settler:    settler,
		workerPool: NewWorkerPool(defaultWorkers),
		limit:      cfg.ReconcileLimit,
		interval:   cfg.ReconcileInterval,
		staleAfter: cfg.ReconcileStaleAfter,
		now:        time.Now,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("reconciler started", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.workerPool.Close()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("reconciler stopped")
			return
		case <-ticker.C:
			if err := s.Reconcile(ctx); err != nil {
				zap.L().Error("reconcile pass failed", zap.Error(err))
			}
		}
	}
}

// Reconcile hands every open entry older than the stale window to the worker
// pool. An entry already being worked on is skipped.
func (s *Service) Reconcile(ctx context.Context) error {
	entries, err := s.ledgerRepo.FindOpen(ctx, s.now().Add(-s.staleAfter), s.limit)
	if err != nil {
		return fmt.Errorf("can't load open entries: %w", err)
	}

	var g errgroup.Group
	for _, entry := range entries {
		entry := entry

		if _, loaded := s.inFlight.LoadOrStore(entry.Reference, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer s.inFlight.Delete(entry.Reference)
				return s.reconcileEntry(ctx, entry)
			})
			if err != nil {
				s.inFlight.Delete(entry.Reference)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) reconcileEntry(ctx context.Context, entry domain.LedgerEntry) error {
	var (
		payment *processor.Payment
		err     error
	)
	if entry.ProcessorPaymentID != "" {
		payment, err = s.processor.GetPayment(ctx, entry.ProcessorPaymentID)
	} else {
		payment, err = s.processor.SearchByReference(ctx, entry.Reference)
	}

	var outcome domain.Outcome
	switch {
	case errors.Is(err, processor.ErrPaymentNotFound) && entry.Status == domain.StatusProcessing:
		// The charge request was lost before the processor saw it.
		outcome = domain.Outcome{Status: domain.StatusError, Detail: neverSubmitDetail}
	case err != nil:
		return fmt.Errorf("can't fetch payment for entry %d: %w", entry.ID, err)
	default:
		outcome = paymentservice.Interpret(payment, nil)
	}

	return s.settle(ctx, entry, outcome)
}

// SyncPayment re-reads a payment the processor notified us about and settles
// the matching entry. The notification body itself is never trusted.
func (s *Service) SyncPayment(ctx context.Context, processorPaymentID string) (*domain.LedgerEntry, error) {
	payment, err := s.processor.GetPayment(ctx, processorPaymentID)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledgerRepo.FindByProcessorPaymentID(ctx, processorPaymentID)
	if err != nil {
		return nil, err
	}
	if entry == nil && payment.ExternalReference != "" {
		// Still processing: the processor id is stored on settlement.
		entry, err = s.ledgerRepo.FindByReference(ctx, payment.ExternalReference)
		if err != nil {
			return nil, err
		}
	}
	if entry == nil {
		zap.L().Warn("notification for unknown payment", zap.String("processor_payment_id", processorPaymentID))
		return nil, domain.ErrUnknownPayment
	}
	if !entry.Status.Open() {
		return entry, nil
	}

	outcome := paymentservice.Interpret(payment, nil)
	if err := s.settle(ctx, *entry, outcome); err != nil {
		return nil, err
	}
	return s.ledgerRepo.FindByReference(ctx, entry.Reference)
}

func (s *Service) settle(ctx context.Context, entry domain.LedgerEntry, outcome domain.Outcome) error {
	if outcome.Status == entry.Status {
		return nil
	}
	settled, err := s.settler.Settle(ctx, entry, outcome)
	if err != nil {
		return fmt.Errorf("can't settle entry %d: %w", entry.ID, err)
	}
	zap.L().Info("entry reconciled",
		zap.Int64("entry_id", entry.ID),
		zap.String("from", string(entry.Status)),
		zap.String("to", string(settled.Status)))
	return nil
}
