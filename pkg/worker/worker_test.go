package worker

import (
	"context"
	"errors"
	"strings"
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

// fakeAnalyzer returns a scripted result for every call, in order, so tests
// can drive a Worker Loop through a specific outcome sequence without a real
// upstream.
type fakeAnalyzer struct {
	results []fakeResult
	calls   int
}

type fakeResult struct {
	data  []byte
	class analyzer.Classification
	err   error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, file analyzer.FileRef, jobDescription string) ([]byte, analyzer.Classification, error) {
	r := f.results[f.calls%len(f.results)]
	f.calls++
	return r.data, r.class, r.err
}

func newTestEnv(t *testing.T, an analyzer.Adapter) (*Worker, store.Store) {
	t.Helper()
	st := store.NewMemStore()
	objects, err := objectstore.NewLocalGateway(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, objects.Put(context.Background(), "item-1-a.pdf", strings.NewReader("resume bytes")))

	_, err = st.CreateBatch(context.Background(), &types.Batch{ID: "batch-1", Status: types.BatchStatusRunning}, []store.NewItem{
		{ID: "item-1", Filename: "a.pdf", ObjectKey: "item-1-a.pdf"},
	}, 2)
	require.NoError(t, err)

	broker := events.NewBroker()
	w := New(Config{
		BatchID:           "batch-1",
		LeaseDuration:     time.Minute,
		WorkerBackoffBase: time.Millisecond,
		IdleRetryInterval: 10 * time.Millisecond,
	}, st, objects, an, broker)
	return w, st
}

func TestWorker_CommitsSuccessAndCompletesBatch(t *testing.T) {
	an := &fakeAnalyzer{results: []fakeResult{{data: []byte("score: 9"), class: analyzer.Success}}}
	w, st := newTestEnv(t, an)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Run(ctx)

	item, err := st.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, types.ItemStatusComplete, item.Status)
	assert.Equal(t, []byte("score: 9"), item.Result)

	batch, err := st.GetBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusComplete, batch.Status)
	assert.Equal(t, 1, batch.Completed)
}

func TestWorker_PermanentFailureFailsItemWithoutRetry(t *testing.T) {
	an := &fakeAnalyzer{results: []fakeResult{{class: analyzer.Permanent, err: errors.New("malformed document")}}}
	w, st := newTestEnv(t, an)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Run(ctx)

	item, err := st.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, types.ItemStatusFailed, item.Status)
	assert.Equal(t, types.ItemErrorAnalyzerPermanent, item.ErrorCode)
	assert.Equal(t, 0, item.RetryCount)
}

func TestWorker_TransientFailureRetriesThenExhausts(t *testing.T) {
	an := &fakeAnalyzer{results: []fakeResult{{class: analyzer.Transient, err: errors.New("rate limited")}}}
	w, st := newTestEnv(t, an)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Run(ctx)

	item, err := st.GetItem(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, types.ItemStatusFailed, item.Status)
	assert.Equal(t, types.ItemErrorAnalyzerTransient, item.ErrorCode)
	assert.Equal(t, 2, item.RetryCount) // retries at retry_count 0 and 1 consumed; fails on the attempt at retry_count == max_retries (2)

	batch, err := st.GetBatch(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Failed)
}

func TestWorker_StopEndsLoopPromptly(t *testing.T) {
	an := &fakeAnalyzer{results: []fakeResult{{class: analyzer.Transient, err: errors.New("rate limited")}}}
	w, _ := newTestEnv(t, an)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker loop did not stop promptly")
	}
}
