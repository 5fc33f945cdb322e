package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/GlebRadaev/payledger/docs"
	"github.com/GlebRadaev/payledger/internal/config"
	authhandlers "github.com/GlebRadaev/payledger/internal/handlers/auth"
	balancehandlers "github.com/GlebRadaev/payledger/internal/handlers/balance"
	paymenthandlers "github.com/GlebRadaev/payledger/internal/handlers/payments"
	webhookhandlers "github.com/GlebRadaev/payledger/internal/handlers/webhooks"
	ledgermw "github.com/GlebRadaev/payledger/internal/middleware"
	"github.com/GlebRadaev/payledger/internal/service"
	"github.com/GlebRadaev/payledger/pkg/auth"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type BalanceHandler interface {
	GetBalance(w http.ResponseWriter, r *http.Request)
	GetTransactions(w http.ResponseWriter, r *http.Request)
	Audit(w http.ResponseWriter, r *http.Request)
}

type PaymentHandler interface {
	Charge(w http.ResponseWriter, r *http.Request)
	TopUp(w http.ResponseWriter, r *http.Request)
}

type WebhookHandler interface {
	Processor(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler    AuthHandler
	BalanceHandler BalanceHandler
	PaymentHandler PaymentHandler
	WebhookHandler WebhookHandler

	tokenValidator auth.TokenValidator
	cache          redis.Cmdable
	idempotencyTTL time.Duration
	loginRateLimit int
}

// New builds the HTTP layer. A nil cache turns off response replay and the
// login rate limit.
func New(s *service.Services, cfg *config.Config, cache redis.Cmdable) *Handlers {
	return &Handlers{
		AuthHandler:    authhandlers.New(s.AuthService),
		BalanceHandler: balancehandlers.New(s.BalanceService),
		PaymentHandler: paymenthandlers.New(s.PaymentService),
		WebhookHandler: webhookhandlers.New(s.WebhookService),
		tokenValidator: s.TokenValidator,
		cache:          cache,
		idempotencyTTL: cfg.IdempotencyTTL,
		loginRateLimit: cfg.LoginRateLimit,
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))

	rateLimited := ledgermw.LoginRateLimit(h.cache, h.loginRateLimit)
	guarded := auth.Middleware(h.tokenValidator)
	replayed := ledgermw.Idempotency(h.cache, h.idempotencyTTL)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.AuthHandler.Register)
			r.With(rateLimited).Post("/login", h.AuthHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(guarded)
				r.Route("/balance", func(r chi.Router) {
					r.Get("/", h.BalanceHandler.GetBalance)
					r.Get("/audit", h.BalanceHandler.Audit)
					r.With(replayed).Post("/topup", h.PaymentHandler.TopUp)
				})
				r.Get("/transactions", h.BalanceHandler.GetTransactions)
			})
		})
		r.With(guarded, replayed).Post("/payments", h.PaymentHandler.Charge)
		r.Post("/webhooks/processor", h.WebhookHandler.Processor)
	})

	// Paths used by the first mobile releases.
	r.Post("/auth/register", h.AuthHandler.Register)
	r.With(rateLimited).Post("/auth/login", h.AuthHandler.Login)
	r.Group(func(r chi.Router) {
		r.Use(guarded)
		r.Get("/get_balance", h.BalanceHandler.GetBalance)
		r.Get("/get_transactions", h.BalanceHandler.GetTransactions)
		r.With(replayed).Post("/process_payment", h.PaymentHandler.Charge)
	})

	return r
}
