// Package metrics exposes Prometheus collectors for the query surfaces.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hal9000y/mailthread/internal/search"
)

// Query operation labels.
const (
	OpThread      = "thread"
	OpSearch      = "search"
	OpAncestors   = "ancestors"
	OpDescendants = "descendants"
	OpTokens      = "tokens"
)

var (
	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailthread_queries_total",
			Help: "Number of queries served, by operation.",
		},
		[]string{"op"},
	)

	queryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailthread_query_errors_total",
			Help: "Number of queries that returned an error, by operation.",
		},
		[]string{"op"},
	)

	datasetItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailthread_dataset_items",
			Help: "Number of loaded threads, edges and rows.",
		},
		[]string{"kind"},
	)

	loadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailthread_load_failures_total",
			Help: "Number of dataset loads rejected by validation or storage errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(queries)
	prometheus.MustRegister(queryErrors)
	prometheus.MustRegister(datasetItems)
	prometheus.MustRegister(loadFailures)
}

// Query counts one served query and whether it failed.
func Query(op string, err error) {
	queries.WithLabelValues(op).Inc()
	if err != nil {
		queryErrors.WithLabelValues(op).Inc()
	}
}

// Loaded records the size of a freshly loaded dataset.
func Loaded(s search.Stats) {
	datasetItems.WithLabelValues("threads").Set(float64(s.Threads))
	datasetItems.WithLabelValues("edges").Set(float64(s.Edges))
	datasetItems.WithLabelValues("rows").Set(float64(s.Rows))
}

// LoadFailed counts a rejected load.
func LoadFailed() {
	loadFailures.Inc()
}
