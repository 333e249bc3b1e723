package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cra_planner"

// Metrics are the planner's Prometheus collectors.
type Metrics struct {
	ReportRuns       *prometheus.CounterVec
	ReportDuration   prometheus.Histogram
	ReportParts      prometheus.Histogram
	SalesDocsSkipped *prometheus.CounterVec
	InventoryLoads   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_runs_total",
			Help:      "Report runs by final status.",
		}, []string{"status"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Wall time of a report run.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		ReportParts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_parts",
			Help:      "Rows per generated report.",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
		}),
		SalesDocsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_documents_skipped_total",
			Help:      "Sales documents that could not be downloaded or parsed.",
		}, []string{"stage"}),
		InventoryLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_loads_total",
			Help:      "Inventory snapshot loads by source (cache or store).",
		}, []string{"source"}),
	}

	if reg != nil {
		reg.MustRegister(m.ReportRuns, m.ReportDuration, m.ReportParts, m.SalesDocsSkipped, m.InventoryLoads)
	}
	return m
}
