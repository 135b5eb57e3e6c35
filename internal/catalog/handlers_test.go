package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-apotek/internal/cache"
	"github.com/noah-isme/backend-apotek/internal/catalog"
	"github.com/noah-isme/backend-apotek/internal/db"
)

type fakeQueries struct {
	products   map[string]db.Product
	byIDsCalls int
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{products: map[string]db.Product{}}
}

func (f *fakeQueries) seed(name, slug, price, ent, trainee string, active bool) db.Product {
	id := uuid.New()
	p := db.Product{
		ID:                          db.UUID{Bytes: id, Valid: true},
		Name:                        name,
		Slug:                        slug,
		Price:                       decimal.RequireFromString(price),
		EntrepreneurDiscountPercent: decimal.RequireFromString(ent),
		TraineeDiscountPercent:      decimal.RequireFromString(trainee),
		IsActive:                    active,
	}
	f.products[id.String()] = p
	return p
}

func (f *fakeQueries) filtered(query string, onlyActive bool) []db.Product {
	var out []db.Product
	for _, p := range f.products {
		if onlyActive && !p.IsActive {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeQueries) ListProducts(_ context.Context, arg db.ListProductsParams) ([]db.Product, error) {
	all := f.filtered(arg.Query, arg.OnlyActive)
	start := int(arg.Offset)
	if start > len(all) {
		return nil, nil
	}
	end := start + int(arg.Limit)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeQueries) CountProducts(_ context.Context, query string, onlyActive bool) (int64, error) {
	return int64(len(f.filtered(query, onlyActive))), nil
}

func (f *fakeQueries) GetProduct(_ context.Context, id db.UUID) (db.Product, error) {
	p, ok := f.products[db.UUIDString(id)]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeQueries) GetProductsByIDs(_ context.Context, ids []db.UUID) ([]db.Product, error) {
	f.byIDsCalls++
	var out []db.Product
	for _, id := range ids {
		if p, ok := f.products[db.UUIDString(id)]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeQueries) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	for _, p := range f.products {
		if p.Slug == arg.Slug {
			return db.Product{}, &pgconn.PgError{Code: "23505"}
		}
	}
	id := uuid.New()
	p := db.Product{
		ID:                          db.UUID{Bytes: id, Valid: true},
		Name:                        arg.Name,
		Slug:                        arg.Slug,
		Price:                       arg.Price,
		EntrepreneurDiscountPercent: arg.EntrepreneurDiscountPercent,
		TraineeDiscountPercent:      arg.TraineeDiscountPercent,
		IsActive:                    arg.IsActive,
	}
	f.products[id.String()] = p
	return p, nil
}

func (f *fakeQueries) UpdateProduct(_ context.Context, arg db.UpdateProductParams) (db.Product, error) {
	p, ok := f.products[db.UUIDString(arg.ID)]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	p.Name, p.Slug, p.Price, p.IsActive = arg.Name, arg.Slug, arg.Price, arg.IsActive
	f.products[db.UUIDString(arg.ID)] = p
	return p, nil
}

func (f *fakeQueries) UpdateProductDiscounts(_ context.Context, arg db.UpdateProductDiscountsParams) (db.Product, error) {
	p, ok := f.products[db.UUIDString(arg.ID)]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	p.EntrepreneurDiscountPercent = arg.EntrepreneurDiscountPercent
	p.TraineeDiscountPercent = arg.TraineeDiscountPercent
	f.products[db.UUIDString(arg.ID)] = p
	return p, nil
}

func newService(t *testing.T, q *fakeQueries) (*catalog.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      q,
		Cache:        cache.New(cache.NameCatalog, client, time.Minute),
		DefaultLimit: 2,
		MaxLimit:     10,
	})
	require.NoError(t, err)
	return svc, mr
}

func router(h *catalog.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/products", h.Products)
	r.Get("/products/{id}", h.Product)
	r.Get("/admin/products", h.AdminProducts)
	r.Post("/admin/products", h.Create)
	r.Put("/admin/products/{id}", h.Update)
	r.Put("/admin/products/{id}/discounts", h.UpdateDiscounts)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type productsResponse struct {
	Data       []catalog.Product `json:"data"`
	Pagination struct {
		Page    int `json:"page"`
		PerPage int `json:"perPage"`
		Total   int `json:"total"`
	} `json:"pagination"`
}

type productResponse struct {
	Data catalog.Product `json:"data"`
}

func TestCatalogHandlers(t *testing.T) {
	q := newFakeQueries()
	q.seed("Amoxicillin", "amoxicillin", "120.00", "40", "10", true)
	q.seed("Bandage", "bandage", "15.50", "0", "0", true)
	hidden := q.seed("Cough Syrup", "cough-syrup", "80.00", "20", "5", false)
	svc, _ := newService(t, q)
	h := router(catalog.NewHandler(catalog.HandlerConfig{Service: svc}))

	t.Run("public list hides inactive", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/products?limit=5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		require.Equal(t, 2, resp.Pagination.Total)
		require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	})

	t.Run("admin list paginates", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/admin/products?page=2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, "Cough Syrup", resp.Data[0].Name)
		require.Equal(t, 3, resp.Pagination.Total)
	})

	t.Run("detail and missing", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/products/"+db.UUIDString(hidden.ID), "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, h, http.MethodGet, "/products/"+uuid.NewString(), "")
		require.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, h, http.MethodGet, "/products/not-a-uuid", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("create clamps percents", func(t *testing.T) {
		body := `{"name":"Vitamin C","slug":"vitamin-c","price":"99.90","entrepreneurDiscountPercent":"150","traineeDiscountPercent":-5}`
		rec := do(t, h, http.MethodPost, "/admin/products", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp productResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.True(t, resp.Data.EntrepreneurDiscountPercent.Equal(decimal.NewFromInt(100)))
		require.True(t, resp.Data.TraineeDiscountPercent.IsZero())
		require.True(t, resp.Data.IsActive)
	})

	t.Run("create rejects duplicates and bad input", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/admin/products", `{"name":"Dup","slug":"bandage","price":"1"}`)
		require.Equal(t, http.StatusConflict, rec.Code)

		rec = do(t, h, http.MethodPost, "/admin/products", `{"name":"Bad","slug":"Bad Slug","price":"1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, h, http.MethodPost, "/admin/products", `{"name":"","slug":"x","price":"1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, h, http.MethodPost, "/admin/products", `{"name":"Neg","slug":"neg","price":"-1"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update keeps active flag when omitted", func(t *testing.T) {
		rec := do(t, h, http.MethodPut, "/admin/products/"+db.UUIDString(hidden.ID), `{"name":"Cough Syrup 100ml","slug":"cough-syrup","price":"85"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp productResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.False(t, resp.Data.IsActive)
		require.Equal(t, "Cough Syrup 100ml", resp.Data.Name)
	})
}

func TestProfilesReadThroughCache(t *testing.T) {
	q := newFakeQueries()
	p := q.seed("Amoxicillin", "amoxicillin", "120.00", "40", "10", true)
	svc, mr := newService(t, q)
	ctx := context.Background()
	id := db.UUIDString(p.ID)

	profiles, err := svc.Profiles(ctx, []string{id, id, "unknown"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.True(t, profiles[id].EntrepreneurPercent.Equal(decimal.NewFromInt(40)))
	require.Equal(t, 1, q.byIDsCalls)
	require.True(t, mr.Exists(cache.KeyProduct(id)))

	_, err = svc.Profiles(ctx, []string{id})
	require.NoError(t, err)
	require.Equal(t, 1, q.byIDsCalls, "second lookup should be served from cache")

	_, err = svc.UpdateDiscounts(ctx, id, catalog.DiscountInput{
		EntrepreneurDiscountPercent: decimal.NewFromInt(25),
		TraineeDiscountPercent:      decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.False(t, mr.Exists(cache.KeyProduct(id)))

	profiles, err = svc.Profiles(ctx, []string{id})
	require.NoError(t, err)
	require.True(t, profiles[id].EntrepreneurPercent.Equal(decimal.NewFromInt(25)))
	require.Equal(t, 2, q.byIDsCalls)
}

func TestProfilesKeyedByRequestedSpelling(t *testing.T) {
	q := newFakeQueries()
	p := q.seed("Paracetamol 500mg", "paracetamol-500", "200.00", "10", "0", true)
	svc, _ := newService(t, q)
	ctx := context.Background()
	id := db.UUIDString(p.ID)
	upper := strings.ToUpper(id)
	bare := strings.ReplaceAll(id, "-", "")

	profiles, err := svc.Profiles(ctx, []string{upper, bare})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, 1, q.byIDsCalls)
	require.True(t, profiles[upper].EntrepreneurPercent.Equal(decimal.NewFromInt(10)))
	require.True(t, profiles[bare].EntrepreneurPercent.Equal(decimal.NewFromInt(10)))

	cached, err := svc.Profiles(ctx, []string{"{" + id + "}"})
	require.NoError(t, err)
	require.Equal(t, 1, q.byIDsCalls)
	require.Contains(t, cached, "{"+id+"}")
}
