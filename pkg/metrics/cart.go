package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// CartMetrics tracks cache effectiveness and cart mutations. A nil *CartMetrics
// is valid and records nothing.
type CartMetrics struct {
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors *prometheus.CounterVec
	mutations   *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	mergeClamps prometheus.Counter
	duration    *prometheus.HistogramVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	m := &CartMetrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_cache_hits_total",
			Help: "Cart reads served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_cache_misses_total",
			Help: "Cart reads that fell back to the durable store.",
		}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_cache_errors_total",
			Help: "Cache failures swallowed by the cart service.",
		}, []string{"op"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart operations by outcome.",
		}, []string{"op", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_policy_rejections_total",
			Help: "Item policy rejections by reason.",
		}, []string{"reason"}),
		mergeClamps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_merge_clamped_items_total",
			Help: "Merged lines whose quantity was clamped to the product maximum.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cart_operation_duration_seconds",
			Help:    "Duration of cart operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.cacheHits, m.cacheMisses, m.cacheErrors, m.mutations, m.rejections, m.mergeClamps, m.duration)
	return m
}

func (m *CartMetrics) CacheHit() {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *CartMetrics) CacheMiss() {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.Inc()
}

// CacheError counts a swallowed cache failure for the given op (get, put, delete, decode).
func (m *CartMetrics) CacheError(op string) {
	if m == nil || m.cacheErrors == nil {
		return
	}
	m.cacheErrors.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveOperation records the outcome and duration of a cart operation.
func (m *CartMetrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	if m == nil || m.mutations == nil || m.duration == nil {
		return
	}
	op = normalizeLabel(op)
	m.mutations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *CartMetrics) PolicyRejected(reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *CartMetrics) MergeClamped(n int) {
	if m == nil || m.mergeClamps == nil || n <= 0 {
		return
	}
	m.mergeClamps.Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
