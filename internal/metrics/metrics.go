package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// OntologyMetrics manages Prometheus instrumentation for the persistence
// and analysis layers.
type OntologyMetrics struct {
	auditAppendFailure      *prometheus.CounterVec
	auditAppendTotal        *prometheus.CounterVec
	snapshotCreated         prometheus.Counter
	snapshotVersionConflict prometheus.Counter
	analysisRuns            *prometheus.CounterVec
	decisionCreated         prometheus.Counter
}

var (
	instance *OntologyMetrics
	once     sync.Once
)

// Get returns the singleton metrics instance, registered on the default
// registry the first time it is requested.
func Get() *OntologyMetrics {
	once.Do(func() {
		instance = newOntologyMetrics()
		instance.register(prometheus.DefaultRegisterer)
	})
	return instance
}

func newOntologyMetrics() *OntologyMetrics {
	return &OntologyMetrics{
		auditAppendFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricelens",
				Subsystem: "ontology",
				Name:      "audit_append_failure_total",
				Help:      "Audit-log appends that failed after a successful primary write",
			},
			[]string{"entity_type"},
		),
		auditAppendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricelens",
				Subsystem: "ontology",
				Name:      "audit_append_total",
				Help:      "Audit-log rows appended",
			},
			[]string{"entity_type", "action"},
		),
		snapshotCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pricelens",
				Subsystem: "ontology",
				Name:      "snapshot_created_total",
				Help:      "Ontology snapshots created",
			},
		),
		snapshotVersionConflict: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pricelens",
				Subsystem: "ontology",
				Name:      "snapshot_version_conflict_total",
				Help:      "Snapshot version collisions resolved by retry",
			},
		),
		analysisRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pricelens",
				Subsystem: "analysis",
				Name:      "run_total",
				Help:      "Analysis pipeline runs by outcome",
			},
			[]string{"status"},
		),
		decisionCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pricelens",
				Subsystem: "decision",
				Name:      "created_total",
				Help:      "Decision records created",
			},
		),
	}
}

func (m *OntologyMetrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.auditAppendFailure,
		m.auditAppendTotal,
		m.snapshotCreated,
		m.snapshotVersionConflict,
		m.analysisRuns,
		m.decisionCreated,
	)
}

func (m *OntologyMetrics) AuditAppendFailed(entityType string) {
	m.auditAppendFailure.WithLabelValues(entityType).Inc()
}

func (m *OntologyMetrics) AuditAppended(entityType, action string) {
	m.auditAppendTotal.WithLabelValues(entityType, action).Inc()
}

func (m *OntologyMetrics) SnapshotCreated() {
	m.snapshotCreated.Inc()
}

func (m *OntologyMetrics) SnapshotVersionConflict() {
	m.snapshotVersionConflict.Inc()
}

func (m *OntologyMetrics) AnalysisRun(status string) {
	m.analysisRuns.WithLabelValues(status).Inc()
}

func (m *OntologyMetrics) DecisionCreated() {
	m.decisionCreated.Inc()
}
