package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	Turns             *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	LeadsCaptured     prometheus.Counter
	MeetingsScheduled prometheus.Counter
	SlotsProposed     prometheus.Counter
	DecisionLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of widget sessions with recent activity.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed conversation turns by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Collaborator errors by provider and code.",
		}, []string{"provider", "code"}),
		LeadsCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_captured_total",
			Help:      "Leads captured from web chat.",
		}),
		MeetingsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meetings_scheduled_total",
			Help:      "Meetings confirmed via web chat.",
		}),
		SlotsProposed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_proposed_total",
			Help:      "Turns in which candidate meeting slots were offered.",
		}),
		DecisionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decision_latency_ms",
			Help:      "Latency of the decision provider call in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 12000},
		}),
	}
}

func (m *Metrics) ObserveDecisionLatency(d time.Duration) {
	m.DecisionLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
