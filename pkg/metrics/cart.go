package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutations and failed cart operations.
type CartMetrics struct {
	added    *prometheus.CounterVec
	removed  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCartMetrics registers the cart metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	added := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_items_added_total",
		Help: "Line items added to carts.",
	}, []string{"instance"})
	removed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_items_removed_total",
		Help: "Line items removed from carts.",
	}, []string{"instance"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operation_failures_total",
		Help: "Cart operations that returned an error.",
	}, []string{"operation"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(added, removed, failures, duration)
	return &CartMetrics{
		added:    added,
		removed:  removed,
		failures: failures,
		duration: duration,
	}
}

func (c *CartMetrics) IncAdded(instance string) {
	if c == nil || c.added == nil {
		return
	}
	c.added.WithLabelValues(normalizeLabel(instance)).Inc()
}

func (c *CartMetrics) IncRemoved(instance string) {
	if c == nil || c.removed == nil {
		return
	}
	c.removed.WithLabelValues(normalizeLabel(instance)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (c *CartMetrics) IncFailure(operation string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveDuration records how long the named operation took.
func (c *CartMetrics) ObserveDuration(operation string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
