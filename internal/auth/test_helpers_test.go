package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-apotek/internal/db"
)

type fakeQueries struct {
	mu           sync.Mutex
	usersByEmail map[string]db.User
	usersByID    map[string]db.User
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		usersByEmail: make(map[string]db.User),
		usersByID:    make(map[string]db.User),
	}
}

func (f *fakeQueries) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(arg.Email)
	if _, exists := f.usersByEmail[email]; exists {
		return db.User{}, &pgconn.PgError{Code: "23505"}
	}
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	u := db.User{
		ID:           pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Email:        email,
		Name:         arg.Name,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
		Tier:         arg.Tier,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.usersByEmail[email] = u
	f.usersByID[db.UUIDString(u.ID)] = u
	return u, nil
}

func (f *fakeQueries) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByEmail[strings.ToLower(email)]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) GetUserByID(_ context.Context, id db.UUID) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.usersByID[db.UUIDString(id)]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeQueries) UpdateUserTier(_ context.Context, id db.UUID, tier string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := db.UUIDString(id)
	u, ok := f.usersByID[key]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	u.Tier = tier
	f.usersByID[key] = u
	f.usersByEmail[u.Email] = u
	return u, nil
}

func (f *fakeQueries) setRole(id, role string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.usersByID[id]
	u.Role = role
	f.usersByID[id] = u
	f.usersByEmail[u.Email] = u
}

func newTestService(queries *fakeQueries) (*Service, error) {
	return NewService(Config{
		Queries:        queries,
		Secret:         "super-secret-key",
		AccessTokenTTL: time.Minute,
		Issuer:         "backend-apotek",
		Audience:       "apotek-storefront",
	})
}
