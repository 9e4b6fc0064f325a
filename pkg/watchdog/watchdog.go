package watchdog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/neerajsharma26/resumerank/pkg/engine"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/log"
	"github.com/neerajsharma26/resumerank/pkg/metrics"
	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

// Watchdog ticks on Interval and, each cycle, reclaims every item across
// every batch whose lease has expired: per spec.md's resolution of the
// cross-batch index Open Question (SPEC_FULL.md §2.1), the Store itself
// indexes items by (status, lease_expires_at), so one query finds every
// stale item regardless of which batch it belongs to.
type Watchdog struct {
	st       store.Store
	events   *events.Broker
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Watchdog. Run is not gated on leadership: every engine
// process sharing one store runs its own sweep, which is safe since
// ReclaimExpiredLeases is itself a conditional write per row.
func New(st store.Store, broker *events.Broker, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Watchdog{
		st:       st,
		events:   broker,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run loops until Stop is called or ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	defer close(w.doneCh)

	logger := log.WithComponent("watchdog")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx, logger)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the loop and blocks until it has exited.
func (w *Watchdog) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watchdog) sweep(ctx context.Context, logger zerolog.Logger) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.WatchdogSweepDuration)

	reclaimed, err := w.st.ReclaimExpiredLeases(ctx, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("watchdog sweep failed")
		return
	}
	if len(reclaimed) == 0 {
		return
	}

	batchesToRecompute := make(map[string]bool, len(reclaimed))
	for _, item := range reclaimed {
		metrics.WatchdogRecoveries.Inc()
		logger.Warn().
			Str("item_id", item.ID).
			Str("batch_id", item.BatchID).
			Str("status", string(item.Status)).
			Msg("reclaimed item with expired lease")

		if item.Status == types.ItemStatusFailed {
			if _, err := w.st.IncrementBatchCounters(ctx, item.BatchID, 0, 1, 0); err != nil {
				logger.Error().Err(err).Str("batch_id", item.BatchID).Msg("failed to increment failed counter for reclaimed item")
				continue
			}
			batchesToRecompute[item.BatchID] = true
		}

		if w.events != nil {
			w.events.Notify(events.EventLeaseReclaimed, item.BatchID, "item "+item.ID+" lease expired: "+string(item.Status))
		}
	}

	for batchID := range batchesToRecompute {
		if _, err := engine.RecomputeCompletion(ctx, w.st, batchID); err != nil {
			logger.Error().Err(err).Str("batch_id", batchID).Msg("failed to recompute completion after reclaim")
		}
	}
}
