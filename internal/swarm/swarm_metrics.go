package swarm

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the triage swarm.
type Metrics struct {
	TriagesTotal     *prometheus.CounterVec
	TriageDuration   prometheus.Histogram
	TriageConfidence prometheus.Histogram
	TriageSignals    prometheus.Histogram
	AuditTotal       *prometheus.CounterVec
	AgentDuration    *prometheus.HistogramVec
	AgentFailures    *prometheus.CounterVec
	EscalationsTotal *prometheus.CounterVec
}

// NewMetrics registers and returns swarm metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiveops_triages_total",
			Help: "Total triage runs by verdict status.",
		}, []string{"status"}),
		TriageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hiveops_triage_duration_seconds",
			Help:    "Duration of triage runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}),
		TriageConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hiveops_triage_confidence",
			Help:    "Aggregate verdict confidence per triage run.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0 .. 1
		}),
		TriageSignals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hiveops_triage_signals",
			Help:    "Signals contributing to each verdict.",
			Buckets: prometheus.LinearBuckets(0, 1, 8), // 0 .. 7
		}),
		AuditTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiveops_audit_total",
			Help: "Audit gate decisions by sufficiency.",
		}, []string{"sufficient"}),
		AgentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hiveops_agent_duration_seconds",
			Help:    "Duration of individual agent investigations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms .. ~26s
		}, []string{"domain"}),
		AgentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiveops_agent_failures_total",
			Help: "Agents omitted from synthesis by domain and reason.",
		}, []string{"domain", "reason"}),
		EscalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiveops_escalations_total",
			Help: "Escalation notifications by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.TriageConfidence,
		m.TriageSignals,
		m.AuditTotal,
		m.AgentDuration,
		m.AgentFailures,
		m.EscalationsTotal,
	)

	return m
}

// Hooks returns orchestrator Hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnAgent: func(domain Domain, duration float64, reason string) {
			m.AgentDuration.WithLabelValues(string(domain)).Observe(duration)
			if reason != "" {
				m.AgentFailures.WithLabelValues(string(domain), reason).Inc()
			}
		},
		OnComplete: func(e *CompleteEvent) {
			m.TriagesTotal.WithLabelValues(string(e.Status)).Inc()
			m.TriageDuration.Observe(e.Duration)
			m.TriageConfidence.Observe(e.Confidence)
			m.TriageSignals.Observe(float64(e.Signals))
			m.AuditTotal.WithLabelValues(strconv.FormatBool(e.Sufficient)).Inc()
		},
	}
}
