package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/backend-apotek/internal/app"
	"github.com/noah-isme/backend-apotek/internal/audit"
	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/cache"
	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/catalog"
	"github.com/noah-isme/backend-apotek/internal/checkout"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/delivery"
	"github.com/noah-isme/backend-apotek/internal/events"
	"github.com/noah-isme/backend-apotek/internal/health"
	"github.com/noah-isme/backend-apotek/internal/lock"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.New(startCtx, cfg, logger, app.Options{Component: "api"})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close(context.Background())

	taskClient := &tasks.Client{Enqueuer: deps.Tasks}
	bus := &events.Bus{
		Store:     deps.Store,
		Scheduler: taskClient,
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      deps.Store,
		Cache:        cache.New(cache.NameCatalog, deps.Redis, cfg.CatalogCacheTTL),
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	deliveryService := &delivery.Service{
		Q:           deps.Store,
		Cache:       cache.New(cache.NameDelivery, deps.Redis, cfg.DeliveryCacheTTL),
		Invalidator: taskClient,
		Logger:      logger,
	}

	authService, err := auth.NewService(auth.Config{
		Queries:        deps.Store,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
		Issuer:         cfg.JWTIssuer,
		Audience:       cfg.JWTAudience,
		ClockSkew:      30 * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise auth service")
	}

	cartService := &cart.Service{Q: deps.Store, Products: catalogService}

	checkoutService := &checkout.Service{
		Carts:   cartService,
		Tiers:   authService,
		Catalog: catalogService,
		Rules:   deliveryService,
		Store:   deps.Store,
		Locker:  lock.Locker{R: deps.Redis, RetryBackoff: 50 * time.Millisecond, MaxWait: 2 * time.Second},
		LockTTL: cfg.CheckoutLockTTL,
		Events:  bus,
		Cache:   cache.New(cache.NameQuote, deps.Redis, cfg.QuoteCacheTTL),
		Engine:  deps.Engine,
		Logger:  logger,
	}

	auditService := audit.Service{Store: deps.Store, Enabled: cfg.AuditEnabled}

	var httpMetrics *obs.HTTPMetrics
	if envBool("OBS_ENABLE_PROMETHEUS", true) {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics("apotek", buckets, prometheus.DefaultRegisterer)
	}

	handler := newRouter(routes{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		HTTPMetrics:    httpMetrics,
		Tracing:        cfg.TracingEndpoint != "",
		PprofUser:      envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", ""),
		PprofPass:      envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", ""),
		BodyLimitBytes: cfg.BodyLimitBytes,
		HSTS:           envDuration("SECURITY_HSTS_MAX_AGE", 0),

		Health:   health.Handler{Probes: []health.Probe{health.DBProbe(deps.DB), health.RedisProbe(deps.Redis)}},
		Auth:     &auth.Handler{Service: authService},
		AuthMW:   auth.Middleware{Service: authService},
		Catalog:  catalog.NewHandler(catalog.HandlerConfig{Service: catalogService}),
		Delivery: &delivery.Handler{Svc: deliveryService},
		Cart:     &cart.Handler{Svc: cartService},
		Checkout: &checkout.Handler{
			Svc:          checkoutService,
			Money:        deps.Money,
			DefaultLimit: cfg.CatalogDefaultLimit,
			MaxLimit:     cfg.CatalogMaxLimit,
		},
		Audit:    audit.Recorder{Service: auditService, Logger: &logger},
		AuditLog: audit.Handler{Service: auditService},
		Idem:     common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL},
		Limiter:  deps.Limiter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	health.SetReady(false)
	logger.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(envOrDefault(key, "")); err == nil {
		return d
	}
	return fallback
}
