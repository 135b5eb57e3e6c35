package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/catalog"
	"github.com/noah-isme/backend-apotek/internal/checkout"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/delivery"
	"github.com/noah-isme/backend-apotek/internal/health"
	"github.com/noah-isme/backend-apotek/internal/money"
	"github.com/noah-isme/backend-apotek/internal/ratelimit"
)

const previewBody = `{
	"tier": "ENTREPRENEUR",
	"items": [{"productId": "sku-1", "price": "200", "qty": 3, "entrepreneurDiscountPercent": 10}],
	"deliveryRules": [{"id": "r1", "min": 0, "max": 1000, "charge": 40}]
}`

func newTestRouter(t *testing.T, rate string) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	queries := db.New(nil)
	authSvc, err := auth.NewService(auth.Config{Queries: queries, Secret: "router-test-secret"})
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Queries: queries})
	require.NoError(t, err)
	deliverySvc := &delivery.Service{Q: queries}
	cartSvc := &cart.Service{Q: queries, Products: catalogSvc}
	formatter, err := money.NewFormatter("INR", "en-IN")
	require.NoError(t, err)

	lim, err := ratelimit.NewRedisLimiter(client, "test:rl", rate)
	require.NoError(t, err)

	return newRouter(routes{
		Logger:         zerolog.Nop(),
		BodyLimitBytes: 1 << 16,
		Health:         health.Handler{Probes: []health.Probe{health.RedisProbe(client)}},
		Auth:           &auth.Handler{Service: authSvc},
		AuthMW:         auth.Middleware{Service: authSvc},
		Catalog:        catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}),
		Delivery:       &delivery.Handler{Svc: deliverySvc},
		Cart:           &cart.Handler{Svc: cartSvc},
		Checkout: &checkout.Handler{
			Svc:   &checkout.Service{Carts: cartSvc, Tiers: authSvc, Catalog: catalogSvc, Rules: deliverySvc},
			Money: formatter,
		},
		Limiter: lim,
	})
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t, "100-M")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestRouter(t, "100-M")

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodGet, "/api/v1/checkout/quote"},
		{http.MethodPost, "/api/v1/checkout/orders"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/admin/delivery-rules"},
		{http.MethodPut, "/api/v1/admin/users/abc/tier"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestPreviewPricesInlineInput(t *testing.T) {
	h := newTestRouter(t, "100-M")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/preview", strings.NewReader(previewBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))

	var body struct {
		Data    checkout.Quote `json:"data"`
		Display struct {
			Currency string `json:"currency"`
		} `json:"display"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	s := body.Data.Summary
	require.True(t, decimal.NewFromInt(600).Equal(s.Subtotal))
	require.True(t, decimal.NewFromInt(60).Equal(s.TotalDiscount))
	require.True(t, decimal.NewFromInt(540).Equal(s.SubtotalAfterDiscount))
	require.True(t, decimal.NewFromInt(40).Equal(s.DeliveryCharge))
	require.True(t, decimal.NewFromInt(580).Equal(s.GrandTotal))
	require.Equal(t, "r1", body.Data.DeliveryRuleID)
	require.Equal(t, "INR", body.Display.Currency)
}

func TestPreviewRateLimited(t *testing.T) {
	h := newTestRouter(t, "1-M")

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/preview", strings.NewReader(previewBody))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	require.Equal(t, http.StatusOK, send().Code)
	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	raw, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(raw), "RATE_LIMITED")
}

func TestPreviewRejectsOversizedBody(t *testing.T) {
	h := newTestRouter(t, "100-M")

	big := `{"items":[{"productId":"` + strings.Repeat("x", 1<<17) + `","qty":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/preview", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
