package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the lingo gateway.
type Metrics struct {
	RequestTotal        *prometheus.CounterVec
	RequestDurationMs   *prometheus.HistogramVec
	BackendDurationMs   *prometheus.HistogramVec
	CacheOpsTotal       *prometheus.CounterVec
	DetectorConfidence  prometheus.Histogram
	LimiterRejectsTotal *prometheus.CounterVec
	RetryTotal          *prometheus.CounterVec
	FailoverTotal       *prometheus.CounterVec
	GuardActionTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_request_total",
			Help: "Total number of translation requests processed.",
		}, []string{"status", "backend", "source_lang", "target_lang"}),

		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lingo_request_duration_ms",
			Help:    "End-to-end request duration in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		}, []string{"backend", "cache_hit"}),

		BackendDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lingo_backend_duration_ms",
			Help:    "Backend call duration in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 15000},
		}, []string{"backend"}),

		CacheOpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_cache_ops_total",
			Help: "Translation cache operations by result.",
		}, []string{"result"}), // hit, miss, coalesced, store, error

		DetectorConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "lingo_detector_confidence",
			Help:    "Language detection confidence distribution.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),

		LimiterRejectsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_limiter_rejects_total",
			Help: "Requests rejected by the limiter.",
		}, []string{"reason"}), // queue_full, queue_timeout, rate, quota

		RetryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_backend_retry_total",
			Help: "Backend retry attempts.",
		}, []string{"backend"}),

		FailoverTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_backend_failover_total",
			Help: "Failovers away from a backend.",
		}, []string{"backend", "reason"}),

		GuardActionTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_guard_action_total",
			Help: "Guard chain actions taken.",
		}, []string{"guard", "action"}),
	}
}

// RecordRequest records a completed (or failed) translation request.
func (m *Metrics) RecordRequest(status, backend, sourceLang, targetLang string, durationMs float64, cacheHit bool) {
	m.RequestTotal.WithLabelValues(status, backend, sourceLang, targetLang).Inc()
	hit := "false"
	if cacheHit {
		hit = "true"
	}
	m.RequestDurationMs.WithLabelValues(backend, hit).Observe(durationMs)
}

func (m *Metrics) RecordBackendDuration(backend string, durationMs float64) {
	m.BackendDurationMs.WithLabelValues(backend).Observe(durationMs)
}

func (m *Metrics) RecordCacheOp(result string) {
	m.CacheOpsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDetection(confidence float64) {
	m.DetectorConfidence.Observe(confidence)
}

func (m *Metrics) RecordLimiterReject(reason string) {
	m.LimiterRejectsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordRetry(backend string) {
	m.RetryTotal.WithLabelValues(backend).Inc()
}

func (m *Metrics) RecordFailover(backend, reason string) {
	m.FailoverTotal.WithLabelValues(backend, reason).Inc()
}

func (m *Metrics) RecordGuardAction(guard, action string) {
	m.GuardActionTotal.WithLabelValues(guard, action).Inc()
}
