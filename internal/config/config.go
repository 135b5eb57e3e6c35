package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string

	CurrencyCode  string
	DisplayLocale string
	PricingStrict bool

	AccessTokenTTL   time.Duration
	QuoteCacheTTL    time.Duration
	CatalogCacheTTL  time.Duration
	DeliveryCacheTTL time.Duration
	IdempotencyTTL   time.Duration
	CheckoutLockTTL  time.Duration

	RateLimitQuote    string
	BodyLimitBytes    int64
	MigrateOnStart    bool
	WorkerConcurrency int
	AuditEnabled      bool

	CatalogDefaultLimit int
	CatalogMaxLimit     int

	LogFormat          string
	LogLevel           string
	TracingEndpoint    string
	TracingSampleRatio float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "backend-apotek"),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "apotek-storefront"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CurrencyCode:  strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "INR")),
		DisplayLocale: valueOrDefault(k.String("DISPLAY_LOCALE"), "en-IN"),
		PricingStrict: parseBool(k.String("PRICING_STRICT")),

		AccessTokenTTL:   parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		QuoteCacheTTL:    parseDuration(k.String("QUOTE_CACHE_TTL"), "2m"),
		CatalogCacheTTL:  parseDuration(k.String("CATALOG_CACHE_TTL"), "10m"),
		DeliveryCacheTTL: parseDuration(k.String("DELIVERY_CACHE_TTL"), "10m"),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutLockTTL:  parseDuration(k.String("CHECKOUT_LOCK_TTL"), "15s"),

		RateLimitQuote:    valueOrDefault(k.String("RATE_LIMIT_QUOTE"), "120-M"),
		BodyLimitBytes:    parseInt64(k.String("BODY_LIMIT_BYTES"), 1<<20),
		MigrateOnStart:    parseBool(k.String("MIGRATE_ON_START")),
		WorkerConcurrency: int(parseInt64(k.String("WORKER_CONCURRENCY"), 5)),
		AuditEnabled:      strings.TrimSpace(k.String("AUDIT_ENABLED")) == "" || parseBool(k.String("AUDIT_ENABLED")),

		CatalogDefaultLimit: int(parseInt64(k.String("CATALOG_DEFAULT_LIMIT"), 20)),
		CatalogMaxLimit:     int(parseInt64(k.String("CATALOG_MAX_LIMIT"), 100)),

		LogFormat:          valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		TracingEndpoint:    k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingSampleRatio: parseRatio(k.String("OTEL_SAMPLING_RATIO"), 1),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt64(value string, fallback int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseRatio(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v <= 0 || v > 1 {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
