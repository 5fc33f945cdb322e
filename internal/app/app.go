package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payledger/internal/config"
	"github.com/GlebRadaev/payledger/internal/events"
	"github.com/GlebRadaev/payledger/internal/handlers"
	"github.com/GlebRadaev/payledger/internal/middleware"
	"github.com/GlebRadaev/payledger/internal/pg"
	"github.com/GlebRadaev/payledger/internal/processor"
	"github.com/GlebRadaev/payledger/internal/repo"
	"github.com/GlebRadaev/payledger/internal/repo/memory"
	"github.com/GlebRadaev/payledger/internal/service"
	"github.com/GlebRadaev/payledger/pkg/clients"
	"github.com/GlebRadaev/payledger/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg  *config.Config
	api  *handlers.Handlers
	srv  *service.Services
	repo *repo.Repositories

	pool      *pgxpool.Pool
	cache     *redis.Client
	publisher events.Publisher
	addr      net.Addr

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}

	return a.start(ctx, cfg)
}

func (a *Application) start(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	repos, err := a.initStorage(ctx)
	if err != nil {
		return err
	}
	a.repo = repos

	var cache redis.Cmdable
	if cfg.RedisURL != "" {
		a.cache, err = middleware.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zap.L().Error("redis connection failed: ", zap.Error(err))
			return fmt.Errorf("can't connect to redis: %w", err)
		}
		cache = a.cache
	} else {
		zap.L().Warn("REDIS_URL is empty, response replay and login rate limit are off")
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		a.publisher = events.NopPublisher{}
	}

	proc := processor.New(cfg, clients.NewHTTPClient(cfg.ProcessorTimeout))
	a.srv, err = service.New(cfg, a.repo, proc, a.publisher)
	if err != nil {
		return fmt.Errorf("can't create services: %w", err)
	}
	a.api = handlers.New(a.srv, cfg, cache)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.srv.Reconciler.Start(ctx)

	a.ready = true
	zap.L().Info("all systems started successfully", zap.String("storage", cfg.Storage))
	return nil
}

func (a *Application) initStorage(ctx context.Context) (*repo.Repositories, error) {
	if a.cfg.Storage == config.StorageMemory {
		zap.L().Warn("using in-memory storage, data is lost on restart")
		return repo.NewInMemory(memory.NewStore()), nil
	}

	pool, err := getPgxpool(ctx, a.cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return nil, fmt.Errorf("can't build pgx pool: %w", err)
	}
	a.pool = pool
	if err := pg.RunMigrations(pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return nil, fmt.Errorf("can't run migrations: %w", err)
	}
	return repo.New(pg.New(pool), pg.NewTXManager(pool)), nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	listener, err := net.Listen("tcp", a.cfg.Address)
	if err != nil {
		return err
	}
	a.addr = listener.Addr()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sCtx); err != nil {
			zap.L().Error("http server shutdown failed", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server", zap.String("address", a.addr.String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	a.close()

	return appErr
}

func (a *Application) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			zap.L().Error("closing event publisher failed", zap.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			zap.L().Error("closing redis client failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
