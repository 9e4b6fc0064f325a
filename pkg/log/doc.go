// Package log provides structured logging for resumerank using zerolog:
// a global Logger plus component-scoped child loggers (WithComponent,
// WithBatchID, WithItemID) so a worker's or watchdog's log lines carry
// the IDs needed to correlate them with a specific batch or item.
//
// Initialization:
//
//	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})
//	log.WithComponent("watchdog").Info().Str("batch_id", id).Msg("lease reclaimed")
package log
