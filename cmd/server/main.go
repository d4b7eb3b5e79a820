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

	"github.com/segyhp/lending-engine/internal/auth"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/events"
	"github.com/segyhp/lending-engine/internal/handler"
	"github.com/segyhp/lending-engine/internal/ratelimit"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
	"github.com/segyhp/lending-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	// Initialize database
	store, err := repository.Open(ctx, repository.Options{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		TxTimeout:       cfg.Database.TxTimeout,
		AutoMigrate:     cfg.Database.AutoMigrate,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	log.Info("database connection established", "driver", cfg.Database.Driver)

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := initPublisher(cfg, log)
	defer publisher.Close()

	// Initialize services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(store, tokens, log)
	ledger := service.NewLedgerService(store, cfg.Business, log)
	loans := service.NewLoanService(store, cfg.Business, publisher, log)
	approval := service.NewApprovalService(store, ledger, publisher, log)
	repayments := service.NewRepaymentService(store, ledger, loans, publisher, log)

	// Setup routes
	var limiterClient redis.UniversalClient
	if redisClient != nil {
		limiterClient = redisClient
	}
	limiter := ratelimit.New(limiterClient, "lending:rate_limit", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	v := handler.NewValidator()
	router := handler.NewRouter(handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, v, log),
		Wallet:     handler.NewWalletHandler(ledger, v, log),
		Loans:      handler.NewLoanHandler(loans, approval, v, log),
		Repayments: handler.NewRepaymentHandler(repayments, v, log),
		Health:     handler.NewHealthHandler(store, limiterClient, cfg.GetHealthTimeout()),
		Middleware: handler.NewMiddleware(authService, limiter, log),
	}, cfg.Server.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		log.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// initRedis returns nil when REDIS_URL is unset.
func initRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// initPublisher falls back to a no-op publisher when the broker is not
// configured or cannot be reached.
func initPublisher(cfg *config.Config, log *slog.Logger) events.Publisher {
	if cfg.Events.AMQPURL == "" {
		log.Info("AMQP_URL not set, domain events are disabled")
		return events.NewFallback(log)
	}

	publisher, err := events.NewRabbitPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, log)
	if err != nil {
		log.Warn("event broker unavailable, domain events are disabled", "error", err)
		return events.NewFallback(log)
	}
	log.Info("event publisher connected", "exchange", cfg.Events.Exchange)
	return publisher
}
