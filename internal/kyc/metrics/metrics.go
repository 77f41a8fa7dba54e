package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module. It is built
// explicitly at process start and injected; there is no package-level state.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	SuccessTotal    *prometheus.CounterVec
	FailureTotal    *prometheus.CounterVec
	UnhandledTotal  *prometheus.CounterVec
	DurationSeconds *prometheus.HistogramVec
}

// New creates the verification metric family.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_requests_total",
			Help: "Total number of KYC verification requests",
		}, []string{"endpoint"}),

		SuccessTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_success_total",
			Help: "Total number of successful KYC verifications",
		}, []string{"status"}),

		FailureTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_failure_total",
			Help: "Total number of failed KYC verifications",
		}, []string{"reason"}),

		UnhandledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_unhandled_events_total",
			Help: "Total number of acknowledged but unmodeled KYC webhook events",
		}, []string{"event_type"}),

		DurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyc_duration_seconds",
			Help:    "Duration of KYC operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncRequest(endpoint string) {
	if m != nil {
		m.RequestsTotal.WithLabelValues(endpoint).Inc()
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
