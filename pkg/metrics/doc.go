// Package metrics registers the engine's prometheus gauges, counters, and
// histograms. The worker loop, watchdog, and coordination layer update
// the item counters, analyzer latency, watchdog recoveries and sweep
// duration, and the leadership gauge inline with their own state
// transitions; the claim-latency, classification, batch-completion, and
// API request metrics are registered but not updated by any package. A
// Collector refreshes the running-batch count while it is started.
// Scraped at /metrics (pkg/api).
package metrics
