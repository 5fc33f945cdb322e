package service

import (
	"github.com/GlebRadaev/payledger/internal/config"
	"github.com/GlebRadaev/payledger/internal/events"
	"github.com/GlebRadaev/payledger/internal/handlers/auth"
	"github.com/GlebRadaev/payledger/internal/handlers/balance"
	"github.com/GlebRadaev/payledger/internal/handlers/payments"
	"github.com/GlebRadaev/payledger/internal/handlers/webhooks"
	"github.com/GlebRadaev/payledger/internal/reconcile"
	"github.com/GlebRadaev/payledger/internal/repo"

	pkgauth "github.com/GlebRadaev/payledger/pkg/auth"

	authservice "github.com/GlebRadaev/payledger/internal/service/authservice"
	balanceservice "github.com/GlebRadaev/payledger/internal/service/balanceservice"
	paymentservice "github.com/GlebRadaev/payledger/internal/service/paymentservice"
)

// Processor is everything the services ask of the payment processor.
type Processor interface {
	paymentservice.Processor
	reconcile.Processor
}

type Services struct {
	AuthService    auth.Service
	BalanceService balance.Service
	PaymentService payments.Service
	WebhookService webhooks.Syncer
	Reconciler     *reconcile.Service
	TokenValidator pkgauth.TokenValidator
}

func New(cfg *config.Config, repo *repo.Repositories, proc Processor, publisher events.Publisher) (*Services, error) {
	jwtService := pkgauth.NewJWTService(cfg.JWTSecret)
	authService, err := authservice.New(repo.AccountRepo, pkgauth.NewHashService(cfg.BcryptCost), jwtService, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	balanceService := balanceservice.New(repo.AccountRepo, repo.LedgerRepo, repo.TXManager, cfg.Currency)
	paymentService := paymentservice.New(repo.AccountRepo, repo.LedgerRepo, repo.TXManager, proc, publisher, paymentservice.Options{
		Currency:      cfg.Currency,
		SettleRetries: cfg.SettleRetries,
	})
	reconciler := reconcile.New(cfg, repo.LedgerRepo, proc, paymentService)

	return &Services{
		AuthService:    authService,
		BalanceService: balanceService,
		PaymentService: paymentService,
		WebhookService: reconciler,
		Reconciler:     reconciler,
		TokenValidator: jwtService,
	}, nil
}
