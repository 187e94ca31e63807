package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the approval pipeline, bulk coordinator and audit ledger.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Submissions by change type and outcome ("executed", "queued")
	Submissions *prometheus.CounterVec

	// Reviews by final status, including execution-failure rejections
	Reviews *prometheus.CounterVec

	ReviewLatency prometheus.Histogram

	// Rows touched by bulk operations, by operation
	BulkAffected *prometheus.CounterVec

	ImportedRows *prometheus.CounterVec

	LedgerFailures prometheus.Counter
	LedgerSpilled  prometheus.Counter
	LedgerReplayed prometheus.Counter
}

// New registers every metric with the default registry, so call it once per
// process.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_change_submissions_total",
			Help: "Change submissions by change type and outcome",
		}, []string{"change_type", "outcome"}),

		Reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_change_reviews_total",
			Help: "Change request reviews by resulting status",
		}, []string{"status", "execution_failed"}),

		ReviewLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_change_review_duration_seconds",
			Help:    "Duration of a review including execution of the approved change",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		BulkAffected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_bulk_affected_rows_total",
			Help: "Products changed by bulk operations",
		}, []string{"operation"}),

		ImportedRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_import_rows_total",
			Help: "Imported rows by result",
		}, []string{"result"}),

		LedgerFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catalog_ledger_record_failures_total",
			Help: "Ledger entries that could not be written to the database",
		}),

		LedgerSpilled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catalog_ledger_spilled_total",
			Help: "Failed ledger entries parked for replay",
		}),

		LedgerReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "catalog_ledger_replayed_total",
			Help: "Parked ledger entries written by the replay worker",
		}),
	}
}

func (m *Metrics) IncSubmission(changeType, outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(changeType, outcome).Inc()
	}
}

func (m *Metrics) IncReview(status string, executionFailed bool) {
	if m != nil {
		failed := "false"
		if executionFailed {
			failed = "true"
		}
		m.Reviews.WithLabelValues(status, failed).Inc()
	}
}

// ObserveReview records the time since start.
func (m *Metrics) ObserveReview(start time.Time) {
	if m != nil {
		m.ReviewLatency.Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) AddBulkAffected(operation string, n int) {
	if m != nil {
		m.BulkAffected.WithLabelValues(operation).Add(float64(n))
	}
}

func (m *Metrics) AddImported(succeeded, failed int) {
	if m != nil {
		m.ImportedRows.WithLabelValues("success").Add(float64(succeeded))
		m.ImportedRows.WithLabelValues("error").Add(float64(failed))
	}
}

func (m *Metrics) IncLedgerFailure() {
	if m != nil {
		m.LedgerFailures.Inc()
	}
}

func (m *Metrics) IncLedgerSpilled() {
	if m != nil {
		m.LedgerSpilled.Inc()
	}
}

func (m *Metrics) AddLedgerReplayed(n int) {
	if m != nil {
		m.LedgerReplayed.Add(float64(n))
	}
}
