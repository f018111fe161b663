package metrics

import "github.com/prometheus/client_golang/prometheus"

// ProspectingMetrics exposes counters for the call pipeline.
type ProspectingMetrics struct {
	outcomesTotal    *prometheus.CounterVec
	assignedTotal    prometheus.Counter
	importedTotal    prometheus.Counter
	conflictsTotal   prometheus.Counter
	requestLatencies *prometheus.HistogramVec
}

func NewProspectingMetrics(reg prometheus.Registerer) *ProspectingMetrics {
	m := &ProspectingMetrics{
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadcentral",
			Subsystem: "prospecting",
			Name:      "call_outcomes_total",
			Help:      "Total call outcomes recorded, by result",
		}, []string{"outcome"}),
		assignedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadcentral",
			Subsystem: "prospecting",
			Name:      "assigned_prospects_total",
			Help:      "Total prospects distributed to agents",
		}),
		importedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadcentral",
			Subsystem: "prospecting",
			Name:      "imported_leads_total",
			Help:      "Total leads inserted through file import",
		}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadcentral",
			Subsystem: "prospecting",
			Name:      "write_conflicts_total",
			Help:      "Total optimistic-concurrency conflicts on prospect writes",
		}),
		requestLatencies: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadcentral",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomesTotal, m.assignedTotal, m.importedTotal, m.conflictsTotal, m.requestLatencies)
	return m
}

func (m *ProspectingMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *ProspectingMetrics) ObserveAssignment(count int) {
	if m == nil {
		return
	}
	m.assignedTotal.Add(float64(count))
}

func (m *ProspectingMetrics) ObserveImport(count int) {
	if m == nil {
		return
	}
	m.importedTotal.Add(float64(count))
}

func (m *ProspectingMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

func (m *ProspectingMetrics) ObserveRequest(method, path string, seconds float64) {
	if m == nil {
		return
	}
	m.requestLatencies.WithLabelValues(method, path).Observe(seconds)
}
