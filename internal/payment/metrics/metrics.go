package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the payment module. Constructed once in
// main and injected; no ambient global state.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	SuccessTotal    *prometheus.CounterVec
	FailureTotal    *prometheus.CounterVec
	UnhandledTotal  *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
}

// New creates the payment metric family.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Total number of payment requests",
		}, []string{"status"}),

		SuccessTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_success_total",
			Help: "Total number of successful payments",
		}, []string{"status"}),

		FailureTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_failure_total",
			Help: "Total number of failed payments",
		}, []string{"reason"}),

		UnhandledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_unhandled_events_total",
			Help: "Total number of acknowledged but unmodeled payment webhook events",
		}, []string{"event_type"}),

		DurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payments_duration_seconds",
			Help:    "Duration of payment operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncRequest(status string) {
	if m != nil {
		m.RequestsTotal.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncSuccess(status string) {
	if m != nil {
		m.SuccessTotal.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncFailure(reason string) {
	if m != nil {
		m.FailureTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncUnhandled(eventType string) {
	if m != nil {
		m.UnhandledTotal.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) ObserveDuration(operation string, d time.Duration) {
	if m != nil {
		m.DurationSeconds.WithLabelValues(operation).Observe(d.Seconds())
	}
}
