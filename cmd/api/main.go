package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/josh-kwaku/bank-ledger/internal/config"
	"github.com/josh-kwaku/bank-ledger/internal/events"
	"github.com/josh-kwaku/bank-ledger/internal/handler"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/middleware"
	"github.com/josh-kwaku/bank-ledger/internal/ratelimit"
	"github.com/josh-kwaku/bank-ledger/internal/reference"
	"github.com/josh-kwaku/bank-ledger/internal/repository"
	"github.com/josh-kwaku/bank-ledger/internal/service"
	"github.com/josh-kwaku/bank-ledger/internal/service/transfer"
)

const serviceName = "bank-ledger"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Init(os.Stdout, serviceName, cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		ConnectAttempts:  30,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	var checks []handler.DependencyCheck
	var transferLimit func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		limiter := ratelimit.NewRedisLimiter(rdb, serviceName, cfg.TransferRateLimit, cfg.TransferRateWindow)
		transferLimit = middleware.RateLimit(limiter, "transfers")
		checks = append(checks, handler.DependencyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	} else {
		logger.Warn("REDIS_URL not set, transfer rate limiting disabled")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			logger.Warn("event publisher unavailable, transfer events will not be published", "error", err)
		} else {
			publisher = amqpPub
		}
	}
	defer publisher.Close()

	accountRepo := repository.NewAccountRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	entryRepo := repository.NewTransactionRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	beneficiaryRepo := repository.NewBeneficiaryRepository(db)
	refs := reference.NewGenerator()

	accountSvc := service.NewAccountService(accountRepo, customerRepo, entryRepo, refs, db, cfg)
	transferSvc := transfer.NewService(accountRepo, transferRepo, entryRepo, refs, publisher, db, cfg)

	sweeper := service.NewIdempotencySweeper(idempotencyRepo, logger, cfg.IdempotencyCleanupSchedule)
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	authH := handler.NewAuthHandler(customerRepo, cfg.JWTSecret, cfg.JWTExpiry)
	customerH := handler.NewCustomerHandler(customerRepo)
	accountH := handler.NewAccountHandler(accountSvc)
	beneficiaryH := handler.NewBeneficiaryHandler(beneficiaryRepo)
	transferH := handler.NewTransferHandler(transferSvc, beneficiaryRepo)
	healthH := handler.NewHealthHandler(db, checks...)

	authed := middleware.Auth(cfg.JWTSecret)
	idem := middleware.Idempotency(idempotencyRepo, cfg.IdempotencyTTL)
	read := func(h http.HandlerFunc) http.Handler { return authed(h) }
	write := func(h http.HandlerFunc) http.Handler { return authed(idem(h)) }
	send := func(h http.HandlerFunc) http.Handler {
		inner := idem(h)
		if transferLimit != nil {
			inner = transferLimit(inner)
		}
		return authed(inner)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthH.Liveness)
	mux.HandleFunc("GET /health/ready", healthH.Readiness)

	mux.HandleFunc("POST /api/v1/auth/login", authH.Login)
	mux.HandleFunc("POST /api/v1/customers", authH.Register)

	mux.Handle("GET /api/v1/customers/search", read(customerH.Search))
	mux.Handle("GET /api/v1/customers/{id}", read(customerH.Get))
	mux.Handle("POST /api/v1/customers/{id}/accounts", write(accountH.Create))
	mux.Handle("GET /api/v1/customers/{id}/accounts", read(accountH.List))
	mux.Handle("PUT /api/v1/customers/{id}/accounts/{accountID}/primary", write(accountH.SetPrimary))
	mux.Handle("PUT /api/v1/customers/{id}/accounts/{accountID}/status", write(accountH.ChangeStatus))
	mux.Handle("POST /api/v1/customers/{id}/beneficiaries", write(beneficiaryH.Create))
	mux.Handle("GET /api/v1/customers/{id}/beneficiaries", read(beneficiaryH.List))

	mux.Handle("GET /api/v1/accounts/{id}/balance", read(accountH.Balance))
	mux.Handle("GET /api/v1/accounts/{id}/transactions", read(accountH.Transactions))
	mux.Handle("GET /api/v1/accounts/{id}/transfers", read(transferH.ListByAccount))
	mux.Handle("POST /api/v1/accounts/{id}/deposits", write(accountH.Deposit))
	mux.Handle("POST /api/v1/accounts/{id}/withdrawals", write(accountH.Withdraw))

	mux.Handle("POST /api/v1/transfers/bank", send(transferH.Bank))
	mux.Handle("POST /api/v1/transfers/mobile", send(transferH.Mobile))
	mux.Handle("POST /api/v1/transfers/qr", send(transferH.QR))
	mux.Handle("GET /api/v1/transfers/{reference}", read(transferH.Get))

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = middleware.Logging(root)
	root = middleware.Tracing(root)
	root = otelhttp.NewHandler(root, serviceName)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
