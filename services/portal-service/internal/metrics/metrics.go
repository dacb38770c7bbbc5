package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PortalMetrics exposes counters/histograms for the booking portal.
type PortalMetrics struct {
	submissions    *prometheus.CounterVec
	medapiDuration *prometheus.HistogramVec
	directoryCache *prometheus.CounterVec
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking submissions by outcome",
		}, []string{"outcome"}),
		medapiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medibook",
			Subsystem: "medapi",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the medical REST API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		directoryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medibook",
			Subsystem: "directory",
			Name:      "cache_total",
			Help:      "Directory cache lookups by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions, m.medapiDuration, m.directoryCache)
	return m
}

// ObserveSubmission records a booking outcome: created, rejected or failed.
func (m *PortalMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *PortalMetrics) ObserveMedAPI(endpoint, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.medapiDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}

// ObserveCache records hit, miss or error.
func (m *PortalMetrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.directoryCache.WithLabelValues(result).Inc()
}
