package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BatchesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "resumerank_batches_total",
			Help: "Total number of batches by status",
		},
		[]string{"status"},
	)

	ItemsClaimed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resumerank_items_claimed_total",
			Help: "Total number of items claimed by a worker loop",
		},
	)

	ItemsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resumerank_items_completed_total",
			Help: "Total number of items that completed successfully",
		},
	)

	ItemsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resumerank_items_failed_total",
			Help: "Total number of items that reached the failed terminal state",
		},
	)

	ItemsRetried = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resumerank_items_retried_total",
			Help: "Total number of transient-failure retries issued",
		},
	)

	WatchdogRecoveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resumerank_watchdog_recoveries_total",
			Help: "Total number of items reclaimed from an expired lease by the watchdog",
		},
	)

	WatchdogSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resumerank_watchdog_sweep_duration_seconds",
			Help:    "Time taken for one watchdog sweep cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	ClaimLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resumerank_claim_latency_seconds",
			Help:    "Time taken for a single item claim against the state store",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnalyzerLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resumerank_analyzer_call_duration_seconds",
			Help:    "Time taken for a single Analyzer Adapter call",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnalyzerClassifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumerank_analyzer_classifications_total",
			Help: "Total analyzer call outcomes by classification",
		},
		[]string{"classification"},
	)

	BatchCompletionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resumerank_batch_completion_duration_seconds",
			Help:    "Wall-clock time from batch creation to reaching status complete",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumerank_api_requests_total",
			Help: "Total number of control-surface API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resumerank_api_request_duration_seconds",
			Help:    "Control-surface API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// CoordinationLeader reports whether this process currently holds
	// leadership of the optional raft-based coordination layer
	// (1 = leader, 0 = follower/standalone-always-leader).
	CoordinationLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resumerank_coordination_is_leader",
			Help: "Whether this process holds coordination leadership",
		},
	)
)

func init() {
	prometheus.MustRegister(
		BatchesTotal,
		ItemsClaimed,
		ItemsCompleted,
		ItemsFailed,
		ItemsRetried,
		WatchdogRecoveries,
		WatchdogSweepDuration,
		ClaimLatency,
		AnalyzerLatency,
		AnalyzerClassifications,
		BatchCompletionDuration,
		APIRequestsTotal,
		APIRequestDuration,
		CoordinationLeader,
	)
}

// Handler returns the Prometheus scrape handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations, observed against a histogram
// once the operation finishes.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// AnalyzerTimer wraps Timer for the common case of timing an Analyzer
// Adapter call and recording it against AnalyzerLatency on completion.
type AnalyzerTimer struct{ *Timer }

// NewAnalyzerTimer starts a timer for one analyzer call.
func NewAnalyzerTimer() AnalyzerTimer {
	return AnalyzerTimer{NewTimer()}
}

// ObserveDuration records the elapsed time against AnalyzerLatency.
func (t AnalyzerTimer) ObserveDuration() {
	t.Timer.ObserveDuration(AnalyzerLatency)
}
