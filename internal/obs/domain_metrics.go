package obs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingQuotesTotal counts engine computations by buyer tier and outcome.
	PricingQuotesTotal *prometheus.CounterVec
	// DeliveryMatchTotal counts delivery rule resolution as matched or unmatched.
	DeliveryMatchTotal *prometheus.CounterVec
	// CheckoutOrdersTotal counts order placement outcomes.
	CheckoutOrdersTotal *prometheus.CounterVec
	// CacheRequestsTotal counts redis cache lookups by cache name and hit/miss.
	CacheRequestsTotal *prometheus.CounterVec
	// TasksProcessedTotal counts background task outcomes by task type.
	TasksProcessedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingQuotesTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Order price computations by tier and result.",
		}, []string{"tier", "result"}))
		DeliveryMatchTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_delivery_match_total",
			Help:      "Delivery rule resolutions by whether a rule matched.",
		}, []string{"result"}))
		CheckoutOrdersTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_orders_total",
			Help:      "Order placement attempts by result.",
		}, []string{"result"}))
		CacheRequestsTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by cache and result.",
		}, []string{"cache", "result"}))
		TasksProcessedTotal = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Background tasks processed by type and result.",
		}, []string{"type", "result"}))
	})
}

// ObserveQuote records a pricing computation. Safe to call before registration.
func ObserveQuote(tier, result string) {
	if PricingQuotesTotal != nil {
		PricingQuotesTotal.WithLabelValues(tier, result).Inc()
	}
}

// ObserveDeliveryMatch records whether a delivery rule matched the amount.
func ObserveDeliveryMatch(matched bool) {
	if DeliveryMatchTotal == nil {
		return
	}
	result := "unmatched"
	if matched {
		result = "matched"
	}
	DeliveryMatchTotal.WithLabelValues(result).Inc()
}

// ObserveOrder records an order placement outcome.
func ObserveOrder(result string) {
	if CheckoutOrdersTotal != nil {
		CheckoutOrdersTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCache records a cache hit or miss.
func ObserveCache(cache string, hit bool) {
	if CacheRequestsTotal == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

// ObserveTask records a background task outcome.
func ObserveTask(taskType string, err error) {
	if TasksProcessedTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	TasksProcessedTotal.WithLabelValues(taskType, result).Inc()
}

// registerOrReuse registers c, returning the already registered collector of
// the same type when one exists.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
	return c
}
