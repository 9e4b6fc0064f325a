package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

func seedBatch(t *testing.T, st store.Store, total int) *types.Batch {
	t.Helper()
	items := make([]store.NewItem, total)
	for i := range items {
		items[i] = store.NewItem{ID: uuidFor(i), Filename: "resume.pdf"}
	}
	b, err := st.CreateBatch(context.Background(), &types.Batch{ID: "batch-1", OwnerID: "owner-1", Status: types.BatchStatusRunning}, items, 3)
	require.NoError(t, err)
	return b
}

func uuidFor(i int) string {
	return "item-" + string(rune('a'+i))
}

func TestRecomputeCompletion_NotYetDone(t *testing.T) {
	st := store.NewMemStore()
	seedBatch(t, st, 2)

	b, err := RecomputeCompletion(context.Background(), st, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusRunning, b.Status)
}

func TestRecomputeCompletion_MarksComplete(t *testing.T) {
	st := store.NewMemStore()
	seedBatch(t, st, 2)
	_, err := st.IncrementBatchCounters(context.Background(), "batch-1", 2, 0, 0)
	require.NoError(t, err)

	b, err := RecomputeCompletion(context.Background(), st, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusComplete, b.Status)
}

func TestRecomputeCompletion_AlreadyDoneIsNoop(t *testing.T) {
	st := store.NewMemStore()
	seedBatch(t, st, 1)
	_, err := st.IncrementBatchCounters(context.Background(), "batch-1", 1, 0, 0)
	require.NoError(t, err)
	_, err = RecomputeCompletion(context.Background(), st, "batch-1")
	require.NoError(t, err)

	// second call against an already-complete batch must not error
	b, err := RecomputeCompletion(context.Background(), st, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusComplete, b.Status)
}

func TestRecomputeCompletion_FromPaused(t *testing.T) {
	st := store.NewMemStore()
	seedBatch(t, st, 1)
	_, err := st.SetBatchStatus(context.Background(), "batch-1", []types.BatchStatus{types.BatchStatusRunning}, types.BatchStatusPaused)
	require.NoError(t, err)
	_, err = st.IncrementBatchCounters(context.Background(), "batch-1", 1, 0, 0)
	require.NoError(t, err)

	b, err := RecomputeCompletion(context.Background(), st, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusComplete, b.Status)
}
