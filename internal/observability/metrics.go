package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epiledger"

// Metrics holds the Prometheus collectors for record persistence and analysis.
type Metrics struct {
	RecordsAppended  prometheus.Counter
	Saves            *prometheus.CounterVec // labels: outcome={success,error}
	Loads            *prometheus.CounterVec // labels: outcome={success,error}
	CollectionSize   prometheus.Gauge
	AnalysisRequests *prometheus.CounterVec // labels: op={risk_zones,hotspot,trend}
	IndexSyncs       prometheus.Counter
	EventsPublished  *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_appended_total",
			Help:      "Records appended to the collection.",
		}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Whole-file saves of the data file by outcome.",
		}, []string{"outcome"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Loads of the data file by outcome.",
		}, []string{"outcome"}),
		CollectionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_records",
			Help:      "Records currently held in memory.",
		}),
		AnalysisRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_requests_total",
			Help:      "Analysis calls by operation.",
		}, []string{"op"}),
		IndexSyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_syncs_total",
			Help:      "Rebuilds of the SQLite query index.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Record events published to Kafka by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.RecordsAppended,
		m.Saves,
		m.Loads,
		m.CollectionSize,
		m.AnalysisRequests,
		m.IndexSyncs,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many
// services as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
