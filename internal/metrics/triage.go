package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Matching, classification and ingestion metrics.
var (
	// MatchTotal counts similarity queries by result: found, not_found, error.
	MatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_total",
			Help:      "Total similarity queries by result",
		},
		[]string{"result"},
	)

	MatchSimilarity = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_similarity",
			Help:      "Similarity of the best match",
			Buckets:   []float64{-0.5, 0, 0.25, 0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1},
		},
	)

	ClassificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_total",
			Help:      "Total zero-shot classifications",
		},
		[]string{"provider", "status"},
	)

	ClassificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_duration_seconds",
			Help:      "Classifier call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// TriageTotal counts verdicts by deciding source.
	TriageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_total",
			Help:      "Total triage verdicts by source",
		},
		[]string{"source"},
	)

	ReseedRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reseed_records",
			Help:      "Number of known errors stored by the last successful reseed",
		},
	)

	ReseedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reseed_total",
			Help:      "Total reseed runs",
		},
		[]string{"status"},
	)
)

var triageOnce sync.Once

// RegisterTriageMetrics registers matching, classification and ingestion
// metrics with the default registry. Safe to call more than once.
func RegisterTriageMetrics() {
	triageOnce.Do(func() {
		prometheus.MustRegister(
			MatchTotal,
			MatchSimilarity,
			ClassificationTotal,
			ClassificationDuration,
			TriageTotal,
			ReseedRecords,
			ReseedTotal,
		)
	})
}
