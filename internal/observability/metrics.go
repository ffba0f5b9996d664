package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	conflictCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scheduling_service",
		Subsystem: "engine",
		Name:      "conflicts_total",
		Help:      "Guard rejections grouped by the failing check.",
	}, []string{"check"})

	batchCommittedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduling_service",
		Subsystem: "engine",
		Name:      "activities_committed_total",
		Help:      "Number of activities inserted through batch commits.",
	})

	pointsAdjustedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "scheduling_service",
		Subsystem: "engine",
		Name:      "points_adjustments_total",
		Help:      "Number of per-participant point deltas applied by reconciliation.",
	})

	lastCommitGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduling_service",
		Subsystem: "engine",
		Name:      "last_commit_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful activity commit.",
	})

	recountDriftGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scheduling_service",
		Subsystem: "audit",
		Name:      "recount_drift_points",
		Help:      "Absolute point drift found by the most recent recount audit.",
	})
)

func init() {
	prometheus.MustRegister(conflictCounter, batchCommittedCounter, pointsAdjustedCounter, lastCommitGauge, recountDriftGauge)
}

// RecordConflict counts a guard rejection by failing check.
func RecordConflict(check string) {
	conflictCounter.WithLabelValues(check).Inc()
}

// RecordBatchCommitted updates commit counters after a successful batch.
func RecordBatchCommitted(n int, ts time.Time) {
	batchCommittedCounter.Add(float64(n))
	if !ts.IsZero() {
		lastCommitGauge.Set(float64(ts.Unix()))
	}
}

// RecordPointsAdjusted counts applied participant deltas.
func RecordPointsAdjusted(n int) {
	if n > 0 {
		pointsAdjustedCounter.Add(float64(n))
	}
}

// RecordRecountDrift publishes the absolute drift seen by the audit pass.
func RecordRecountDrift(total int) {
	if total < 0 {
		total = -total
	}
	recountDriftGauge.Set(float64(total))
}
