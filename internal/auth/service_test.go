package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

func TestRegisterLoginAndTier(t *testing.T) {
	queries := newFakeQueries()
	svc, err := newTestService(queries)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Rani", "Rani@Example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "rani@example.com", user.Email)
	require.Equal(t, RoleCustomer, user.Role)
	require.Equal(t, string(pricing.TierStandard), user.Tier)

	_, err = svc.Register(ctx, "Rani", "rani@example.com", "password123")
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	_, err = svc.Login(ctx, "rani@example.com", "wrong-password")
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)

	res, err := svc.Login(ctx, "rani@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	tier, err := svc.Tier(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.TierStandard, tier)

	_, err = svc.SetTier(ctx, user.ID, "platinum")
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	updated, err := svc.SetTier(ctx, user.ID, "trainee-entrepreneur")
	require.NoError(t, err)
	require.Equal(t, string(pricing.TierTraineeEntrepreneur), updated.Tier)

	tier, err = svc.Tier(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, pricing.TierTraineeEntrepreneur, tier)

	_, err = svc.Tier(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterValidation(t *testing.T) {
	svc, err := newTestService(newFakeQueries())
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "", "a@b.c", "password123")
	require.Error(t, err)
	_, err = svc.Register(context.Background(), "A", "a@b.c", "short")
	require.Error(t, err)
}

func TestHandlersAndMiddleware(t *testing.T) {
	queries := newFakeQueries()
	svc, err := newTestService(queries)
	require.NoError(t, err)
	h := &Handler{Service: svc}
	mw := Middleware{Service: svc}

	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth)
		r.Get("/auth/me", h.Me)
		r.With(RequireRole(RoleAdmin)).Put("/admin/users/{id}/tier", h.SetTier)
	})

	send := func(method, path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodPost, "/auth/register", `{"name":"Rani","email":"rani@example.com","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusBadRequest, send(http.MethodPost, "/auth/register", `{"name":"Rani","email":"nope","password":"password123"}`, "").Code)

	user, err := svc.queries.GetUserByEmail(context.Background(), "rani@example.com")
	require.NoError(t, err)
	userID := db.UUIDString(user.ID)

	login := func() string {
		res, err := svc.Login(context.Background(), "rani@example.com", "password123")
		require.NoError(t, err)
		return res.AccessToken
	}
	token := login()

	require.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/auth/me", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/auth/me", "", "garbage").Code)
	rec = send(http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"tier":"STANDARD"`)

	tierPath := "/admin/users/" + userID + "/tier"
	require.Equal(t, http.StatusForbidden, send(http.MethodPut, tierPath, `{"tier":"ENTREPRENEUR"}`, token).Code)

	queries.setRole(userID, RoleAdmin)
	adminToken := login()
	rec = send(http.MethodPut, tierPath, `{"tier":"ENTREPRENEUR"}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"tier":"ENTREPRENEUR"`)
}
