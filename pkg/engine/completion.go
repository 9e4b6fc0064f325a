package engine

import (
	"context"
	"errors"

	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

// RecomputeCompletion implements spec.md §4.9: after any terminal item
// transition, check whether the owning batch has reached
// completed+failed+cancelled_count == total, and if so, atomically move the
// batch from running or paused to complete. It is safe to call redundantly — the
// conditional SetBatchStatus write makes a second call on an
// already-complete batch a no-op.
func RecomputeCompletion(ctx context.Context, st store.Store, batchID string) (*types.Batch, error) {
	b, err := st.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.Status.Done() {
		return b, nil
	}
	if b.Completed+b.Failed+b.CancelledCount < b.Total {
		return b, nil
	}
	updated, err := st.SetBatchStatus(ctx, batchID, []types.BatchStatus{types.BatchStatusRunning, types.BatchStatusPaused}, types.BatchStatusComplete)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			// another caller already completed it (or paused/cancelled it
			// out from under us); re-read and return the current truth.
			return st.GetBatch(ctx, batchID)
		}
		return nil, err
	}
	return updated, nil
}
