package main

import (
	"context"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/db"
)

type fakeSeedStore struct {
	products map[string]db.CreateProductParams
	rules    []db.DeliveryRule
	users    map[string]db.CreateUserParams
}

func newFakeSeedStore() *fakeSeedStore {
	return &fakeSeedStore{products: map[string]db.CreateProductParams{}, users: map[string]db.CreateUserParams{}}
}

func (f *fakeSeedStore) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	if _, ok := f.products[arg.Slug]; ok {
		return db.Product{}, &pgconn.PgError{Code: "23505"}
	}
	f.products[arg.Slug] = arg
	return db.Product{Name: arg.Name, Slug: arg.Slug}, nil
}

func (f *fakeSeedStore) ListDeliveryRules(context.Context, bool) ([]db.DeliveryRule, error) {
	return f.rules, nil
}

func (f *fakeSeedStore) CreateDeliveryRule(_ context.Context, arg db.CreateDeliveryRuleParams) (db.DeliveryRule, error) {
	r := db.DeliveryRule{MinAmount: arg.MinAmount, MaxAmount: arg.MaxAmount, Charge: arg.Charge, IsActive: arg.IsActive}
	f.rules = append(f.rules, r)
	return r, nil
}

func (f *fakeSeedStore) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	if _, ok := f.users[arg.Email]; ok {
		return db.User{}, &pgconn.PgError{Code: "23505"}
	}
	f.users[arg.Email] = arg
	return db.User{Email: arg.Email}, nil
}

func TestSeedIsIdempotent(t *testing.T) {
	store := newFakeSeedStore()
	ctx := context.Background()

	require.NoError(t, seed(ctx, store, "secret-pass", zerolog.Nop()))
	require.Len(t, store.products, len(products))
	require.Len(t, store.rules, len(deliveryRules))
	require.Len(t, store.users, len(users))

	require.NoError(t, seed(ctx, store, "secret-pass", zerolog.Nop()))
	require.Len(t, store.rules, len(deliveryRules))
	require.Len(t, store.users, len(users))
}

func TestSeedHashesPasswordsAndAssignsTiers(t *testing.T) {
	store := newFakeSeedStore()
	require.NoError(t, seed(context.Background(), store, "secret-pass", zerolog.Nop()))

	rani := store.users["rani@apotek.test"]
	require.Equal(t, "ENTREPRENEUR", rani.Tier)
	ok, err := argon2id.ComparePasswordAndHash("secret-pass", rani.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, "admin", store.users["admin@apotek.test"].Role)
	require.Equal(t, "TRAINEE_ENTREPRENEUR", store.users["arif@apotek.test"].Tier)
}
