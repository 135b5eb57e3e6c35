// Command seeder loads demo products, delivery rules and users.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/config"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

type seedStore interface {
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	ListDeliveryRules(ctx context.Context, onlyActive bool) ([]db.DeliveryRule, error)
	CreateDeliveryRule(ctx context.Context, arg db.CreateDeliveryRuleParams) (db.DeliveryRule, error)
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
}

type seedProduct struct {
	Name, Slug            string
	Price                 string
	Entrepreneur, Trainee string
}

var products = []seedProduct{
	{"Paracetamol 500mg (10 tablets)", "paracetamol-500", "35", "12", "8"},
	{"Cetirizine 10mg (10 tablets)", "cetirizine-10", "48.50", "10", "5"},
	{"Vitamin C 1000mg (20 effervescent)", "vitamin-c-1000", "210", "15", "10"},
	{"ORS Sachet Orange", "ors-orange", "22", "5", "2.5"},
	{"Digital Thermometer", "digital-thermometer", "399", "8", "4"},
	{"Hand Sanitizer 500ml", "sanitizer-500", "250", "20", "10"},
	{"Cough Syrup 100ml", "cough-syrup-100", "115", "0", "0"},
}

var deliveryRules = []struct{ Min, Max, Charge string }{
	{"0", "499.99", "60"},
	{"500", "999.99", "40"},
	{"1000", "1000000", "0"},
}

var users = []struct {
	Name, Email, Role string
	Tier              pricing.Tier
}{
	{"Apotek Admin", "admin@apotek.test", auth.RoleAdmin, pricing.TierStandard},
	{"Rani Entrepreneur", "rani@apotek.test", auth.RoleCustomer, pricing.TierEntrepreneur},
	{"Arif Trainee", "arif@apotek.test", auth.RoleCustomer, pricing.TierTraineeEntrepreneur},
	{"Sam Standard", "sam@apotek.test", auth.RoleCustomer, pricing.TierStandard},
}

func main() {
	password := flag.String("password", "password123", "password for every seeded user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := seed(ctx, db.New(pool), *password, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().Msg("seeding completed")
}

func seed(ctx context.Context, store seedStore, password string, logger zerolog.Logger) error {
	for _, p := range products {
		_, err := store.CreateProduct(ctx, db.CreateProductParams{
			Name:                        p.Name,
			Slug:                        p.Slug,
			Price:                       decimal.RequireFromString(p.Price),
			EntrepreneurDiscountPercent: pricing.ClampPercent(decimal.RequireFromString(p.Entrepreneur)),
			TraineeDiscountPercent:      pricing.ClampPercent(decimal.RequireFromString(p.Trainee)),
			IsActive:                    true,
		})
		switch {
		case db.IsUniqueViolation(err):
			logger.Debug().Str("slug", p.Slug).Msg("product exists")
		case err != nil:
			return fmt.Errorf("product %s: %w", p.Slug, err)
		}
	}

	existing, err := store.ListDeliveryRules(ctx, false)
	if err != nil {
		return fmt.Errorf("list delivery rules: %w", err)
	}
	if len(existing) == 0 {
		for _, r := range deliveryRules {
			if _, err := store.CreateDeliveryRule(ctx, db.CreateDeliveryRuleParams{
				MinAmount: decimal.RequireFromString(r.Min),
				MaxAmount: decimal.RequireFromString(r.Max),
				Charge:    decimal.RequireFromString(r.Charge),
				IsActive:  true,
			}); err != nil {
				return fmt.Errorf("delivery rule %s-%s: %w", r.Min, r.Max, err)
			}
		}
	} else {
		logger.Info().Int("count", len(existing)).Msg("delivery rules already present")
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	for _, u := range users {
		_, err := store.CreateUser(ctx, db.CreateUserParams{
			Email:        u.Email,
			Name:         u.Name,
			PasswordHash: hash,
			Role:         u.Role,
			Tier:         string(u.Tier),
		})
		switch {
		case db.IsUniqueViolation(err):
			logger.Debug().Str("email", u.Email).Msg("user exists")
		case err != nil:
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
	}
	return nil
}
