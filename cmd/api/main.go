package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/marketplace/internal/auth"
	"github.com/dejobratic/marketplace/internal/config"
	"github.com/dejobratic/marketplace/internal/database"
	idemmemory "github.com/dejobratic/marketplace/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/marketplace/internal/idempotency/postgres"
	idemredis "github.com/dejobratic/marketplace/internal/idempotency/redis"
	"github.com/dejobratic/marketplace/internal/kafka"
	"github.com/dejobratic/marketplace/internal/orders/adapters"
	"github.com/dejobratic/marketplace/internal/orders/adapters/gig"
	httpadapter "github.com/dejobratic/marketplace/internal/orders/adapters/http"
	"github.com/dejobratic/marketplace/internal/orders/adapters/httpclient"
	"github.com/dejobratic/marketplace/internal/orders/adapters/paystack"
	orderspostgres "github.com/dejobratic/marketplace/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/marketplace/internal/orders/app"
	"github.com/dejobratic/marketplace/internal/orders/app/escrow"
	"github.com/dejobratic/marketplace/internal/orders/app/logistics"
	ordersmetrics "github.com/dejobratic/marketplace/internal/orders/metrics"
	"github.com/dejobratic/marketplace/internal/orders/ports"
	"github.com/dejobratic/marketplace/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const meterName = "github.com/dejobratic/marketplace"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(os.Stdout, telemetry.ParseLevel(cfg.Telemetry.LogLevel)).
		With("service", cfg.Service.Name, "version", cfg.Service.Version)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fulfillment api stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()
	meter := tel.Meter(meterName)

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("migrations completed", "version", version)
	}

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return err
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return err
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return err
	}

	events, closeEvents := newEventBus(cfg.Kafka, logger)
	defer closeEvents()

	idemStore, closeIdem, err := newIdempotencyStore(ctx, cfg.Idempotency, pool, logger)
	if err != nil {
		return err
	}
	defer closeIdem()

	gateway := paystack.NewClient(httpclient.Config{
		BaseURL:       cfg.Payments.BaseURL,
		Token:         cfg.Payments.SecretKey,
		Timeout:       cfg.External.Timeout,
		RatePerSecond: cfg.External.RatePerSecond,
		Burst:         int(cfg.External.RatePerSecond) + 1,
	})
	carrier := gig.NewClient(httpclient.Config{
		BaseURL:       cfg.Logistics.BaseURL,
		Token:         cfg.Logistics.APIKey,
		Timeout:       cfg.External.Timeout,
		RatePerSecond: cfg.External.RatePerSecond,
		Burst:         int(cfg.External.RatePerSecond) + 1,
	})

	payments := adapters.NewObservablePaymentRepository(orderspostgres.NewPaymentRepository(pool), dbMetrics)
	tracking := adapters.NewObservableTrackingRepository(orderspostgres.NewTrackingRepository(pool), dbMetrics)

	service := ordersapp.NewService(ordersapp.Dependencies{
		Orders:      adapters.NewObservableOrderRepository(orderspostgres.NewOrderRepository(pool), dbMetrics),
		Catalog:     orderspostgres.NewCatalogLookup(pool),
		Transactor:  database.NewTransactor(pool),
		Events:      adapters.NewObservableEventBus(events, kafkaMetrics),
		Idempotency: idemStore,
		Escrow: escrow.NewCoordinator(payments, gateway, logger, orderMetrics,
			escrow.WithHold(cfg.Payments.EscrowHold),
			escrow.WithCallTimeout(cfg.External.Timeout),
		),
		Logistics: logistics.NewDispatcher(tracking, carrier, logger, orderMetrics,
			logistics.WithDeliveryWindow(cfg.Logistics.DeliveryWindow),
			logistics.WithCallTimeout(cfg.External.Timeout),
		),
	}, logger, orderMetrics)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, every authenticated route will reject requests")
	}
	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth.JWTSecret)
	}

	mux := http.NewServeMux()
	httpadapter.NewHandler(service, verifier, database.NewHealthChecker(pool), logger).Register(mux)

	handler := otelhttp.NewHandler(
		withRecovery(withLogging(httpadapter.WithMetrics(mux, httpMetrics), logger), logger),
		"fulfillment-api",
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func newEventBus(cfg config.KafkaConfig, logger *slog.Logger) (ports.EventBus, func()) {
	if len(cfg.Brokers) == 0 {
		logger.Info("no kafka brokers configured, events are logged only")
		return kafka.NewNoopEventBus(logger), func() {}
	}

	bus := kafka.NewEventBus(kafka.NewWriter(cfg.Brokers), cfg.TopicPrefix)
	return bus, func() {
		if err := bus.Close(); err != nil {
			logger.Error("failed to close kafka writer", "error", err)
		}
	}
}

func newIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, pool *pgxpool.Pool, logger *slog.Logger) (ports.IdempotencyStore, func(), error) {
	switch cfg.Backend {
	case config.IdempotencyRedis:
		client, err := idemredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return idemredis.NewStore(client, cfg.TTL), func() { _ = client.Close() }, nil
	case config.IdempotencyMemory:
		return idemmemory.NewStore(), func() {}, nil
	default:
		store := idempostgres.NewStore(pool, cfg.TTL)
		purgeCtx, cancel := context.WithCancel(ctx)
		go purgeIdempotencyKeys(purgeCtx, store, cfg.TTL, logger)
		return store, cancel, nil
	}
}

// purgeIdempotencyKeys drops expired keys until ctx ends. Redis expires its
// own keys and the memory store lives only as long as the process.
func purgeIdempotencyKeys(ctx context.Context, store *idempostgres.Store, ttl time.Duration, logger *slog.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(min(ttl, time.Hour))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "idempotency purge failed", "error", err)
				continue
			}
			if purged > 0 {
				logger.InfoContext(ctx, "purged expired idempotency keys", "count", purged)
			}
		}
	}
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}

func withRecovery(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "panic recovered", "error", rec)
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
