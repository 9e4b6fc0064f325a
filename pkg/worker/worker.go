package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/neerajsharma26/resumerank/pkg/analyzer"
	"github.com/neerajsharma26/resumerank/pkg/engine"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/log"
	"github.com/neerajsharma26/resumerank/pkg/metrics"
	"github.com/neerajsharma26/resumerank/pkg/objectstore"
	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

// Config holds the parameters a Worker Loop needs, taken from spec.md §6's
// environment configuration.
type Config struct {
	BatchID           string
	LeaseDuration     time.Duration
	WorkerBackoffBase time.Duration
	// IdleRetryInterval is how long the loop waits before re-checking for
	// pending work after finding none (e.g. while the batch is paused or
	// momentarily drained).
	IdleRetryInterval time.Duration
}

// Worker runs the loop for exactly one batch: claim the oldest pending
// item, fetch its document, call the Analyzer Adapter, and commit the
// outcome — looping until the batch has no pending work left or it is told
// to stop. One Worker exists per actively-running batch; pkg/supervisor
// owns the mapping from batch to Worker.
type Worker struct {
	id  string
	cfg Config

	st       store.Store
	objects  objectstore.Gateway
	analyzer analyzer.Adapter
	events   *events.Broker

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Worker for one batch. It does not start the loop; call
// Run (typically in its own goroutine) to do that.
func New(cfg Config, st store.Store, objects objectstore.Gateway, an analyzer.Adapter, broker *events.Broker) *Worker {
	return &Worker{
		id:       uuid.NewString(),
		cfg:      cfg,
		st:       st,
		objects:  objects,
		analyzer: an,
		events:   broker,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Stop asks the loop to exit after its current item finishes, and blocks
// until it has.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// Run drains the batch's pending items until none remain, the batch leaves
// status running, or Stop is called. It never returns an error: every
// per-item failure is recorded on the item itself, per spec.md §4.5.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.doneCh)

	logger := log.WithWorkerID(log.WithBatchID(log.WithComponent("worker"), w.cfg.BatchID), w.id)
	logger.Info().Msg("worker loop started")

	idle := w.cfg.IdleRetryInterval
	if idle <= 0 {
		idle = time.Second
	}

	for {
		select {
		case <-w.stopCh:
			logger.Info().Msg("worker loop stopped")
			return
		case <-ctx.Done():
			return
		default:
		}

		batch, err := w.st.GetBatch(ctx, w.cfg.BatchID)
		if err != nil {
			logger.Error().Err(err).Msg("failed to load batch, stopping loop")
			return
		}
		if batch.Status != types.BatchStatusRunning {
			// paused, cancelled, or already complete: nothing more for
			// this loop to do until the supervisor relaunches it.
			return
		}

		item, err := w.st.ClaimOldestPending(ctx, w.cfg.BatchID, w.id, time.Now().Add(w.cfg.LeaseDuration))
		if errors.Is(err, store.ErrNotFound) {
			select {
			case <-time.After(idle):
			case <-w.stopCh:
			case <-ctx.Done():
			}
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("claim failed")
			select {
			case <-time.After(idle):
			case <-w.stopCh:
			case <-ctx.Done():
			}
			continue
		}

		metrics.ItemsClaimed.Inc()
		w.processItem(ctx, logger, item)
	}
}

func (w *Worker) processItem(ctx context.Context, logger zerolog.Logger, item *types.Item) {
	itemLogger := log.WithItemID(logger, item.ID)
	timer := metrics.NewAnalyzerTimer()

	fileRef := analyzer.FileRef{
		Filename: item.Filename,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return w.objects.Get(ctx, item.ObjectKey)
		},
	}

	batch, err := w.st.GetBatch(ctx, item.BatchID)
	jobDescription := ""
	if err == nil {
		jobDescription = batch.JobDescription
	}

	result, class, analyzeErr := w.analyzer.Analyze(ctx, fileRef, jobDescription)
	timer.ObserveDuration()

	switch {
	case analyzeErr == nil:
		w.commitSuccess(ctx, itemLogger, item, result)
	case class == analyzer.Transient:
		w.commitTransientFailure(ctx, itemLogger, item, analyzeErr)
	default:
		w.commitPermanentFailure(ctx, itemLogger, item, analyzeErr)
	}
}

func (w *Worker) commitSuccess(ctx context.Context, logger zerolog.Logger, item *types.Item, result []byte) {
	if _, err := w.st.CompleteItem(ctx, item.ID, w.id, result); err != nil {
		logger.Warn().Err(err).Msg("lost race completing item, lease likely reclaimed by watchdog")
		return
	}
	metrics.ItemsCompleted.Inc()
	if _, err := w.st.IncrementBatchCounters(ctx, item.BatchID, 1, 0, 0); err != nil {
		logger.Error().Err(err).Msg("failed to increment completed counter")
		return
	}
	w.finishItem(ctx, logger, item.BatchID)
}

func (w *Worker) commitPermanentFailure(ctx context.Context, logger zerolog.Logger, item *types.Item, cause error) {
	if _, err := w.st.FailItem(ctx, item.ID, w.id, types.ItemErrorAnalyzerPermanent, cause.Error()); err != nil {
		logger.Warn().Err(err).Msg("lost race failing item")
		return
	}
	metrics.ItemsFailed.Inc()
	if _, err := w.st.IncrementBatchCounters(ctx, item.BatchID, 0, 1, 0); err != nil {
		logger.Error().Err(err).Msg("failed to increment failed counter")
		return
	}
	w.finishItem(ctx, logger, item.BatchID)
}

func (w *Worker) commitTransientFailure(ctx context.Context, logger zerolog.Logger, item *types.Item, cause error) {
	if item.RetryCount >= item.MaxRetries {
		w.commitExhausted(ctx, logger, item, cause)
		return
	}
	if _, err := w.st.RetryItem(ctx, item.ID, w.id, types.ItemErrorAnalyzerTransient, cause.Error()); err != nil {
		logger.Warn().Err(err).Msg("lost race retrying item")
		return
	}
	metrics.ItemsRetried.Inc()
	delay := engine.Backoff(w.cfg.WorkerBackoffBase, item.RetryCount)
	logger.Warn().Err(cause).Dur("backoff", delay).Int("retry_count", item.RetryCount+1).Msg("transient analyzer failure, retrying after backoff")
	select {
	case <-time.After(delay):
	case <-w.stopCh:
	case <-ctx.Done():
	}
}

// commitExhausted transitions an item whose retry budget has run out to
// failed, the terminal outcome of exhausting spec.md §4.5's retry budget on
// a transient error.
func (w *Worker) commitExhausted(ctx context.Context, logger zerolog.Logger, item *types.Item, cause error) {
	if _, err := w.st.FailItem(ctx, item.ID, w.id, types.ItemErrorAnalyzerTransient, fmt.Sprintf("retries exhausted: %v", cause)); err != nil {
		logger.Warn().Err(err).Msg("lost race failing exhausted item")
		return
	}
	metrics.ItemsFailed.Inc()
	if _, err := w.st.IncrementBatchCounters(ctx, item.BatchID, 0, 1, 0); err != nil {
		logger.Error().Err(err).Msg("failed to increment failed counter")
		return
	}
	w.finishItem(ctx, logger, item.BatchID)
}

func (w *Worker) finishItem(ctx context.Context, logger zerolog.Logger, batchID string) {
	b, err := engine.RecomputeCompletion(ctx, w.st, batchID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to recompute batch completion")
		return
	}
	if b.Status == types.BatchStatusComplete && w.events != nil {
		w.events.Notify(events.EventBatchComplete, batchID, "batch reached completed+failed+cancelled == total")
	}
}
