package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsharma26/resumerank/pkg/analyzer"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/objectstore"
	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

type blockingAdapter struct{}

func (blockingAdapter) Analyze(ctx context.Context, file analyzer.FileRef, jobDescription string) ([]byte, analyzer.Classification, error) {
	<-ctx.Done()
	return nil, analyzer.Transient, ctx.Err()
}

func newTestSupervisor(t *testing.T, isLeader IsLeader) (*Supervisor, store.Store) {
	t.Helper()
	st := store.NewMemStore()
	objects, err := objectstore.NewLocalGateway(t.TempDir())
	require.NoError(t, err)
	broker := events.NewBroker()
	sup := New(Config{
		ReconcileInterval: time.Hour, // tests drive reconciliation via Nudge
		LeaseDuration:     time.Minute,
		WorkerBackoffBase: time.Millisecond,
		IdleRetryInterval: 10 * time.Millisecond,
	}, st, objects, blockingAdapter{}, broker, isLeader)
	return sup, st
}

func TestSupervisor_NudgeSpawnsWorkerForActiveBatch(t *testing.T) {
	sup, st := newTestSupervisor(t, nil)
	_, err := st.CreateBatch(context.Background(), &types.Batch{ID: "batch-1", Status: types.BatchStatusRunning}, []store.NewItem{{ID: "item-1"}}, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Nudge(ctx)

	sup.mu.Lock()
	_, spawned := sup.workers["batch-1"]
	sup.mu.Unlock()
	assert.True(t, spawned)
}

func TestSupervisor_StandbyTearsDownWorkers(t *testing.T) {
	leader := false
	sup, st := newTestSupervisor(t, func() bool { return leader })
	// No items: the worker loop only ever hits the idle path, which
	// responds to Stop() immediately, avoiding a hang inside a fake
	// in-flight analyzer call during teardown.
	_, err := st.CreateBatch(context.Background(), &types.Batch{ID: "batch-1", Status: types.BatchStatusRunning}, nil, 3)
	require.NoError(t, err)

	leader = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Nudge(ctx)
	sup.mu.Lock()
	_, spawned := sup.workers["batch-1"]
	sup.mu.Unlock()
	require.True(t, spawned)

	leader = false
	sup.Nudge(context.Background())
	sup.mu.Lock()
	_, stillThere := sup.workers["batch-1"]
	sup.mu.Unlock()
	assert.False(t, stillThere)
}
