package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/speedwagon-io/hostmon/internal/cache"
)

// RefreshMetrics records cache refresh activity.
type RefreshMetrics struct {
	duration  *prometheus.HistogramVec
	errors    *prometheus.CounterVec
	retrieves *prometheus.CounterVec
}

var _ cache.Observer = (*RefreshMetrics)(nil)

func NewRefreshMetrics(reg prometheus.Registerer) *RefreshMetrics {
	m := &RefreshMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Time taken by one upstream read",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "errors_total",
			Help:      "Upstream reads that failed",
		}, []string{"source"}),
		retrieves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "retrievals_total",
			Help:      "Retrievals by outcome: fresh, stale or empty",
		}, []string{"source", "outcome"}),
	}

	reg.MustRegister(m.duration, m.errors, m.retrieves)
	return m
}

func (m *RefreshMetrics) ObserveRefresh(source string, duration time.Duration, err error) {
	m.duration.WithLabelValues(source).Observe(duration.Seconds())
	if err != nil {
		m.errors.WithLabelValues(source).Inc()
	}
}

func (m *RefreshMetrics) ObserveRetrieve(source string, outcome cache.Outcome) {
	m.retrieves.WithLabelValues(source, string(outcome)).Inc()
}
