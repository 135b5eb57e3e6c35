package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/money"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/pricing"
	"github.com/noah-isme/backend-apotek/internal/ratelimit"
)

// Dependencies enumerates the infrastructure shared by the API and the worker.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Store   *db.Store
	Redis   *redis.Client
	Tasks   *asynq.Client
	Limiter *limiter.Limiter
	Money   *money.Formatter
	Engine  pricing.Engine

	shutdownTracer func(context.Context) error
}

// Options tunes what New initialises.
type Options struct {
	// Component names the process in traces and logs, e.g. "api" or "worker".
	Component string
	// Registerer receives the domain metrics. Nil uses the default registry.
	Registerer prometheus.Registerer
	// SkipLimiter leaves Limiter nil; the worker never rate limits.
	SkipLimiter bool
}

// New connects to postgres and redis, runs migrations when configured and
// installs the tracer provider. Callers must Close the result.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	component := opts.Component
	if component == "" {
		component = "api"
	}
	deps := &Dependencies{Config: cfg, Logger: logger, Engine: NewEngine(cfg)}

	shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   "backend-apotek-" + component,
		Endpoint:      cfg.TracingEndpoint,
		SamplingRatio: cfg.TracingSampleRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	deps.shutdownTracer = shutdown

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	obs.MustRegisterDomainMetrics("apotek", reg)

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			deps.Close(ctx)
			return nil, err
		}
		logger.Info().Msg("database migrations applied")
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		deps.Close(ctx)
		return nil, err
	}
	deps.DB = pool
	deps.Store = db.NewStore(pool)

	client, err := NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		deps.Close(ctx)
		return nil, err
	}
	deps.Redis = client

	connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("parse task queue redis url: %w", err)
	}
	deps.Tasks = asynq.NewClient(connOpt)

	if !opts.SkipLimiter {
		lim, err := ratelimit.NewRedisLimiter(client, "apotek:ratelimit", cfg.RateLimitQuote)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.Limiter = lim
	}

	deps.Money, err = money.NewFormatter(cfg.CurrencyCode, cfg.DisplayLocale)
	if err != nil {
		deps.Close(ctx)
		return nil, err
	}
	return deps, nil
}

// NewEngine builds the pricing engine for the configured input policy.
func NewEngine(cfg *config.Config) pricing.Engine {
	if cfg != nil && cfg.PricingStrict {
		return pricing.Engine{Policy: pricing.Strict}
	}
	return pricing.Engine{Policy: pricing.Lenient}
}

// NewRedis opens an instrumented redis client and pings it.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisConnOpt returns the asynq connection options for the configured redis.
func (d *Dependencies) RedisConnOpt() (asynq.RedisConnOpt, error) {
	return asynq.ParseRedisURI(d.Config.RedisURL)
}

// Close releases every dependency that was opened, in reverse order.
func (d *Dependencies) Close(ctx context.Context) {
	if d.Tasks != nil {
		if err := d.Tasks.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	if d.shutdownTracer != nil {
		if err := d.shutdownTracer(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("shutdown tracer")
		}
	}
}
