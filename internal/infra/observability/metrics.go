package observability

import (
	"time"

	"github.com/boddenberg/storefront-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the storefront.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	cartOps         *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	orderStatus     *prometheus.CounterVec
	orderSubtotal   prometheus.Histogram
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_external_errors_total",
				Help: "Total errors from the identity provider and document store.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		cartOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cart_operations_total",
				Help: "Cart mutations by operation.",
			},
			[]string{"op"},
		),
		ordersCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "storefront_orders_created_total",
				Help: "Orders placed.",
			},
		),
		orderStatus: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_order_status_changes_total",
				Help: "Order status writes by target status.",
			},
			[]string{"status"},
		),
		orderSubtotal: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "storefront_order_subtotal",
				Help:    "Subtotal of placed orders.",
				Buckets: prometheus.ExponentialBuckets(10, 2, 12),
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrCartOp counts a cart mutation.
func (m *Metrics) IncrCartOp(op string) {
	m.cartOps.WithLabelValues(op).Inc()
}

// IncrOrderCreated counts a placed order.
func (m *Metrics) IncrOrderCreated() {
	m.ordersCreated.Inc()
}

// ObserveOrderSubtotal records the subtotal of a placed order.
func (m *Metrics) ObserveOrderSubtotal(subtotal float64) {
	m.orderSubtotal.Observe(subtotal)
}

// IncrOrderStatus counts a status write.
func (m *Metrics) IncrOrderStatus(status string) {
	m.orderStatus.WithLabelValues(status).Inc()
}

// Snapshot returns the counters shown on the admin dashboard.
func (m *Metrics) Snapshot() *domain.MetricsSnapshot {
	hits := getCounterValue(m.cacheHits.WithLabelValues("profile"))
	misses := getCounterValue(m.cacheMisses.WithLabelValues("profile"))

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.MetricsSnapshot{
		OrdersCreated:       int64(getCounterValue(m.ordersCreated)),
		OrdersAssigned:      int64(getCounterValue(m.orderStatus.WithLabelValues(string(domain.OrderAssigned)))),
		OrdersDelivered:     int64(getCounterValue(m.orderStatus.WithLabelValues(string(domain.OrderDelivered)))),
		StoreErrors:         int64(getCounterValue(m.externalErrors.WithLabelValues("store"))),
		IdentityErrors:      int64(getCounterValue(m.externalErrors.WithLabelValues("identity"))),
		ProfileCacheHitRate: hitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
