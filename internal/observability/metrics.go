package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "station_availability"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// consolidation pipeline.
type Metrics struct {
	ReportsProcessed      prometheus.Counter
	ConsolidationErrors   *prometheus.CounterVec // labels: stage={extract,carryover,load}
	ConsolidationDuration prometheus.Histogram
	RowsDefaulted         *prometheus.CounterVec // labels: field
	LastReportTimestamp   prometheus.Gauge

	// Snapshot of the latest consolidated report.
	Stations                prometheus.Gauge
	StationsByPriority      *prometheus.GaugeVec // labels: priority
	StationsByIncidentState *prometheus.GaugeVec // labels: state
	HiddenProblems          *prometheus.GaugeVec // labels: level={Sensor,Variable}
	ConfigurationAnomalies  prometheus.Gauge
	NetworkAvailability     prometheus.Gauge
	PendingStartDates       prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_processed_total",
			Help:      "Total reporting periods consolidated.",
		}),
		ConsolidationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consolidation_errors_total",
			Help:      "Consolidation failures by pipeline stage.",
		}, []string{"stage"}),
		ConsolidationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consolidation_duration_seconds",
			Help:      "Duration of a complete extract-consolidate-load run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RowsDefaulted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_defaulted_total",
			Help:      "Input values replaced by a default because they were missing or malformed.",
		}, []string{"field"}),
		LastReportTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_report_timestamp_seconds",
			Help:      "Unix time of the reference date of the latest consolidated report.",
		}),
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_total",
			Help:      "Stations in the latest report.",
		}),
		StationsByPriority: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_by_priority",
			Help:      "Stations in the latest report by priority tier.",
		}, []string{"priority"}),
		StationsByIncidentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_by_incident_state",
			Help:      "Stations in the latest report by incident state.",
		}, []string{"state"}),
		HiddenProblems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hidden_problems",
			Help:      "Failing sensors or variables inside healthy parents.",
		}, []string{"level"}),
		ConfigurationAnomalies: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "configuration_anomalies",
			Help:      "Sensors and variables reporting above 100% availability.",
		}),
		NetworkAvailability: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_availability_percent",
			Help:      "Mean normalized station availability.",
		}),
		PendingStartDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_start_dates",
			Help:      "Open incidents awaiting a manually annotated start date.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReportsProcessed,
		m.ConsolidationErrors,
		m.ConsolidationDuration,
		m.RowsDefaulted,
		m.LastReportTimestamp,
		m.Stations,
		m.StationsByPriority,
		m.StationsByIncidentState,
		m.HiddenProblems,
		m.ConfigurationAnomalies,
		m.NetworkAvailability,
		m.PendingStartDates,
	}
}
