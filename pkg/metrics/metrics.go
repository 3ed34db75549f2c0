// Package metrics defines the Prometheus collectors for the annotation
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for one pipeline run. Each
// instance owns its registry, so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	BatchesTotal       *prometheus.CounterVec
	BatchFailuresTotal *prometheus.CounterVec
	PairsMergedTotal   *prometheus.CounterVec
	UnannotatedTotal   *prometheus.CounterVec
	RowsWrittenTotal   prometheus.Counter
}

// New creates and registers all pipeline metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annotate_batches_total",
				Help: "Total number of warehouse batches issued, by dimension.",
			},
			[]string{"dimension"},
		),
		BatchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annotate_batch_failures_total",
				Help: "Batches that exhausted retries, by dimension.",
			},
			[]string{"dimension"},
		),
		PairsMergedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annotate_pairs_merged_total",
				Help: "Annotation (id, value) pairs merged into the accumulator, by dimension.",
			},
			[]string{"dimension"},
		),
		UnannotatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "annotate_unannotated_ids_total",
				Help: "Document ids left unannotated after retries, by dimension.",
			},
			[]string{"dimension"},
		),
		RowsWrittenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "annotate_rows_written_total",
				Help: "Output rows written to the annotated artifact.",
			},
		),
	}

	m.registry.MustRegister(
		m.BatchesTotal,
		m.BatchFailuresTotal,
		m.PairsMergedTotal,
		m.UnannotatedTotal,
		m.RowsWrittenTotal,
	)
	return m
}

// Handler returns the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
