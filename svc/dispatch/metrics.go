package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/pushkit/pkg/notifications"
)

// Invocation results recorded by Metrics.
const (
	resultOK       = "ok"
	resultEmpty    = "empty"
	resultAborted  = "aborted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	outcomes    *prometheus.CounterVec
	invocations *prometheus.CounterVec
	rejected    prometheus.Counter
	duration    *prometheus.HistogramVec
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pushkit_dispatch_outcomes_total",
			Help: "Per-recipient dispatch outcomes.",
		}, []string{"kind", "outcome"}),
		invocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pushkit_dispatch_invocations_total",
			Help: "Pipeline invocations by result.",
		}, []string{"kind", "result"}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "pushkit_announcements_rejected_total",
			Help: "Announcements dropped because the author is not an admin.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pushkit_dispatch_duration_seconds",
			Help:    "Duration of pipeline invocations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}

func (m *Metrics) outcome(kind notifications.Kind, s Status) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind.String(), string(s)).Inc()
}

func (m *Metrics) invocation(kind notifications.Kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(kind.String(), result).Inc()
	m.duration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) rejectedAnnouncement() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}
