package metrics

import (
	"log"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const metricPrefix = "reconciliation_"

const (
	SourceManual = "manual"
	SourceAuto   = "auto"

	OutcomeMatched        = "matched"
	OutcomeNoInvoice      = "no_invoice"
	OutcomeOutOfTolerance = "out_of_tolerance"
	OutcomeAlreadyMatched = "already_matched"
	OutcomeFailed         = "failed"
)

var (
	matchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "matches_total",
			Help: "Bank transactions matched to invoices",
		},
		[]string{"source"},
	)
	unmatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "unmatches_total",
			Help: "Bank transactions unmatched from invoices",
		},
	)
	autoMatchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "auto_match_outcomes_total",
			Help: "Per-transaction outcomes of auto-match runs",
		},
		[]string{"outcome"},
	)
	suggestionCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "suggestion_candidates",
			Help:    "Number of candidates returned per suggestion request",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	initOnce sync.Once
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init(db *gorm.DB, logger *log.Logger) {
	initOnce.Do(func() {
		prometheus.MustRegister(matchesTotal, unmatchesTotal, autoMatchOutcomes, suggestionCandidates)
		registerDBMetrics(db, logger)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordMatch(source string) {
	matchesTotal.WithLabelValues(source).Inc()
}

func RecordUnmatch() {
	unmatchesTotal.Inc()
}

func RecordAutoMatchOutcome(outcome string) {
	autoMatchOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveSuggestions(n int) {
	suggestionCandidates.Observe(float64(n))
}
