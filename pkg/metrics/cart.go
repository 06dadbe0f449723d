package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart engine activity. A nil *CartMetrics is a valid no-op.
type CartMetrics struct {
	duration       *prometheus.HistogramVec
	remoteFailures *prometheus.CounterVec
	offline        *prometheus.CounterVec
	synced         *prometheus.CounterVec
	lines          prometheus.Gauge
}

// NewCartMetrics registers the cart collectors on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_operation_duration_seconds",
		Help:    "Duration of cart manager operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	remoteFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_remote_failures_total",
		Help: "Remote cart API calls that failed and were absorbed locally.",
	}, []string{"operation"})
	offline := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_offline_fallbacks_total",
		Help: "Operations served from local state because the remote side was unreachable.",
	}, []string{"operation"})
	synced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_lines_total",
		Help: "Lines moved during reconciliation, by direction.",
	}, []string{"direction"})
	lines := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cart_lines",
		Help: "Lines currently held in the cart snapshot.",
	})
	reg.MustRegister(duration, remoteFailures, offline, synced, lines)
	return &CartMetrics{
		duration:       duration,
		remoteFailures: remoteFailures,
		offline:        offline,
		synced:         synced,
		lines:          lines,
	}
}

// ObserveDuration records how long the named operation took.
func (c *CartMetrics) ObserveDuration(op string, d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(d.Seconds())
}

func (c *CartMetrics) IncRemoteFailure(op string) {
	if c == nil || c.remoteFailures == nil {
		return
	}
	c.remoteFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

func (c *CartMetrics) IncOfflineFallback(op string) {
	if c == nil || c.offline == nil {
		return
	}
	c.offline.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddSynced counts reconciled lines; direction is "pushed" or "pulled".
func (c *CartMetrics) AddSynced(direction string, n int) {
	if c == nil || c.synced == nil || n <= 0 {
		return
	}
	c.synced.WithLabelValues(normalizeLabel(direction)).Add(float64(n))
}

func (c *CartMetrics) SetLines(n int) {
	if c == nil || c.lines == nil {
		return
	}
	c.lines.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
