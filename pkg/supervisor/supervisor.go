package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/neerajsharma26/resumerank/pkg/analyzer"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/log"
	"github.com/neerajsharma26/resumerank/pkg/objectstore"
	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/worker"
)

// Config carries the Worker Loop parameters the supervisor stamps onto
// every worker it spawns.
type Config struct {
	ReconcileInterval time.Duration
	LeaseDuration     time.Duration
	WorkerBackoffBase time.Duration
	IdleRetryInterval time.Duration
}

// IsLeader reports whether this process should currently be running
// workers. pkg/coordination's Coordinator satisfies this; a nil func (or
// one that always returns true) is correct for a single-process
// deployment.
type IsLeader func() bool

// Supervisor reconciles the set of live Worker Loops against the set of
// batches in status running, every ReconcileInterval: a desired-state
// reconciliation loop applied to batches and worker goroutines rather
// than services and containers.
type Supervisor struct {
	cfg      Config
	st       store.Store
	objects  objectstore.Gateway
	analyzer analyzer.Adapter
	events   *events.Broker
	isLeader IsLeader

	mu      sync.Mutex
	workers map[string]*worker.Worker // batch id -> active worker

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Supervisor. isLeader may be nil, in which case the
// supervisor always considers itself active (the single-process case).
func New(cfg Config, st store.Store, objects objectstore.Gateway, an analyzer.Adapter, broker *events.Broker, isLeader IsLeader) *Supervisor {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 5 * time.Second
	}
	return &Supervisor{
		cfg:      cfg,
		st:       st,
		objects:  objects,
		analyzer: an,
		events:   broker,
		isLeader: isLeader,
		workers:  make(map[string]*worker.Worker),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Run reconciles on a ticker until Stop is called or ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.doneCh)

	logger := log.WithComponent("supervisor")
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	s.reconcile(ctx, logger)
	for {
		select {
		case <-ticker.C:
			s.reconcile(ctx, logger)
		case <-s.stopCh:
			s.stopAll()
			return
		case <-ctx.Done():
			s.stopAll()
			return
		}
	}
}

// Stop halts reconciliation and every active worker, blocking until all
// have exited.
func (s *Supervisor) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// Nudge reconciles immediately rather than waiting for the next tick,
// letting the Batch Controller spawn a batch's Worker Loop right away after
// create or resume instead of up to ReconcileInterval later.
func (s *Supervisor) Nudge(ctx context.Context) {
	s.reconcile(ctx, log.WithComponent("supervisor"))
}

func (s *Supervisor) reconcile(ctx context.Context, logger zerolog.Logger) {
	if s.isLeader != nil && !s.isLeader() {
		// standby: another process is active. Tear down anything we had
		// running, since leadership may have just moved away from us.
		s.stopAll()
		return
	}

	active, err := s.st.ListActiveBatches(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list active batches")
		return
	}
	wanted := make(map[string]bool, len(active))
	for _, b := range active {
		wanted[b.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for batchID := range wanted {
		if _, ok := s.workers[batchID]; ok {
			continue
		}
		s.spawnLocked(ctx, logger, batchID)
	}

	for batchID, w := range s.workers {
		if !wanted[batchID] {
			go w.Stop()
			delete(s.workers, batchID)
		}
	}
}

func (s *Supervisor) spawnLocked(ctx context.Context, logger zerolog.Logger, batchID string) {
	w := worker.New(worker.Config{
		BatchID:           batchID,
		LeaseDuration:     s.cfg.LeaseDuration,
		WorkerBackoffBase: s.cfg.WorkerBackoffBase,
		IdleRetryInterval: s.cfg.IdleRetryInterval,
	}, s.st, s.objects, s.analyzer, s.events)

	s.workers[batchID] = w
	logger.Info().Str("batch_id", batchID).Msg("spawning worker loop")

	go func() {
		w.Run(ctx)
		s.mu.Lock()
		if s.workers[batchID] == w {
			delete(s.workers, batchID)
		}
		s.mu.Unlock()
	}()
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	workers := make([]*worker.Worker, 0, len(s.workers))
	for batchID, w := range s.workers {
		workers = append(workers, w)
		delete(s.workers, batchID)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *worker.Worker) {
			defer wg.Done()
			w.Stop()
		}(w)
	}
	wg.Wait()
}
