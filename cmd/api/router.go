package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-apotek/internal/audit"
	"github.com/noah-isme/backend-apotek/internal/auth"
	"github.com/noah-isme/backend-apotek/internal/cart"
	"github.com/noah-isme/backend-apotek/internal/catalog"
	"github.com/noah-isme/backend-apotek/internal/checkout"
	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/delivery"
	"github.com/noah-isme/backend-apotek/internal/health"
	"github.com/noah-isme/backend-apotek/internal/obs"
	"github.com/noah-isme/backend-apotek/internal/ratelimit"
	"github.com/noah-isme/backend-apotek/internal/security"
)

// routes bundles everything the router mounts.
type routes struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	HTTPMetrics    *obs.HTTPMetrics
	Tracing        bool
	PprofUser      string
	PprofPass      string
	BodyLimitBytes int64
	HSTS           time.Duration

	Health   health.Handler
	Auth     *auth.Handler
	AuthMW   auth.Middleware
	Catalog  *catalog.Handler
	Delivery *delivery.Handler
	Cart     *cart.Handler
	Checkout *checkout.Handler
	Audit    audit.Recorder
	AuditLog audit.Handler
	Idem     common.Idem
	Limiter  *limiter.Limiter
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if rt.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: rt.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: rt.Logger}.Middleware)
	r.Use(security.Headers{HSTS: rt.HSTS}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(rt.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if rt.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if rt.PprofUser != "" {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), rt.PprofUser, rt.PprofPass))
	}
	r.Get("/health/live", rt.Health.Live)
	r.Get("/health/ready", rt.Health.Ready)

	bodyLimit := security.BodyLimit{Max: rt.BodyLimitBytes}.Middleware
	quoteLimit := ratelimit.Handler{Limiter: rt.Limiter, Key: ratelimit.KeyByClient, Logger: &rt.Logger}.Middleware

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rt.AuthMW.Authenticate)

		v.Get("/products", rt.Catalog.Products)
		v.Get("/products/{id}", rt.Catalog.Product)
		v.Get("/delivery-rules", rt.Delivery.Active)

		v.Route("/auth", func(a chi.Router) {
			a.With(bodyLimit).Post("/register", rt.Auth.Register)
			a.With(bodyLimit).Post("/login", rt.Auth.Login)
			a.With(rt.AuthMW.RequireAuth).Get("/me", rt.Auth.Me)
		})

		v.Route("/cart", func(c chi.Router) {
			c.Use(rt.AuthMW.RequireAuth)
			c.Get("/", rt.Cart.Get)
			c.Delete("/", rt.Cart.Clear)
			c.Group(func(g chi.Router) {
				g.Use(bodyLimit)
				g.Post("/items", rt.Cart.AddItem)
				g.Put("/items/{itemID}", rt.Cart.SetQuantity)
				g.Post("/items/{itemID}/decrement", rt.Cart.Decrement)
				g.Delete("/items/{itemID}", rt.Cart.RemoveItem)
			})
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Use(quoteLimit)
			c.With(bodyLimit).Post("/preview", rt.Checkout.Preview)
			c.Group(func(g chi.Router) {
				g.Use(rt.AuthMW.RequireAuth)
				g.Get("/quote", rt.Checkout.Quote)
				g.With(bodyLimit, rt.Idem.Middleware).Post("/orders", rt.Checkout.PlaceOrder)
			})
		})

		v.Group(func(authR chi.Router) {
			authR.Use(rt.AuthMW.RequireAuth)
			authR.Get("/orders", rt.Checkout.Orders)
			authR.Get("/orders/{id}", rt.Checkout.Order)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(rt.AuthMW.RequireAuth)
			admin.Use(auth.RequireRole(auth.RoleAdmin))
			admin.Use(bodyLimit)
			admin.Get("/products", rt.Catalog.AdminProducts)
			admin.Get("/delivery-rules", rt.Delivery.List)
			admin.Get("/delivery-rules/preview", rt.Delivery.Preview)
			admin.Get("/audit", rt.AuditLog.List)

			products := rt.Audit.Middleware(audit.ResourceProduct, "id")
			admin.With(products).Post("/products", rt.Catalog.Create)
			admin.With(products).Put("/products/{id}", rt.Catalog.Update)
			admin.With(rt.Audit.Middleware(audit.ResourceDiscounts, "id")).Put("/products/{id}/discounts", rt.Catalog.UpdateDiscounts)

			rules := rt.Audit.Middleware(audit.ResourceDeliveryRule, "id")
			admin.With(rules).Post("/delivery-rules", rt.Delivery.Create)
			admin.With(rules).Put("/delivery-rules/{id}", rt.Delivery.Update)
			admin.With(rules).Patch("/delivery-rules/{id}/active", rt.Delivery.SetActive)

			admin.With(rt.Audit.Middleware(audit.ResourceUserTier, "id")).Put("/users/{id}/tier", rt.Auth.SetTier)
		})
	})

	if rt.Tracing {
		return obs.Tracing("backend-apotek-api", r)
	}
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
