package store

import (
	"context"
	"errors"
	"time"

	"github.com/neerajsharma26/resumerank/pkg/types"
)

// ErrNotFound is returned when a lookup by ID finds nothing.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned by conditional writes whose predicate did not
// match the current row — a lost race, not a caller error.
var ErrConflict = errors.New("store: conditional write did not match")

// ErrDuplicateIdempotencyKey is returned by CreateBatch when the
// (owner_id, idempotency_key) pair already exists.
var ErrDuplicateIdempotencyKey = errors.New("store: idempotency key already used")

// NewItem is the set of fields the Batch Controller supplies when
// registering an item at batch-creation time, before any claim occurs.
type NewItem struct {
	ID        string
	Filename  string
	ObjectKey string
	FileHash  string
}

// Store is the State Store Gateway. Every mutation that more than one
// concurrent caller could attempt is expressed as a conditional write so the
// store itself — not the caller — is the sole arbiter of races, per the
// concurrency model in spec.md §5.
type Store interface {
	// CreateBatch inserts a new batch row and its items in one logical unit.
	// total is set to len(items) minus items judged duplicate by FileHash
	// within the batch; duplicate items are inserted with
	// types.ItemStatusPendingDupe and never counted toward Total. Every
	// non-duplicate item is created with RetryCount 0 and MaxRetries set to
	// maxRetries (the engine-wide retry budget, spec.md §4.5).
	CreateBatch(ctx context.Context, batch *types.Batch, items []NewItem, maxRetries int) (*types.Batch, error)

	// GetBatch returns a batch by ID.
	GetBatch(ctx context.Context, id string) (*types.Batch, error)

	// SetBatchStatus performs an atomic conditional transition of a batch's
	// status, succeeding only if the batch's current status is one of
	// fromAny. Returns ErrConflict if the current status was not in
	// fromAny (lost race or stale caller view).
	SetBatchStatus(ctx context.Context, id string, fromAny []types.BatchStatus, to types.BatchStatus) (*types.Batch, error)

	// IncrementBatchCounters atomically adds the given deltas to a batch's
	// monotonic counters and returns the updated row. Deltas are always
	// non-negative. Counters are not checked against total here or by any
	// caller; engine.RecomputeCompletion only compares
	// completed+failed+cancelled with total to decide completion.
	IncrementBatchCounters(ctx context.Context, id string, completedDelta, failedDelta, cancelledDelta int) (*types.Batch, error)

	// GetItem returns an item by ID.
	GetItem(ctx context.Context, id string) (*types.Item, error)

	// ListItems returns items in a batch, optionally filtered by status.
	// An empty statusFilter returns every item regardless of status.
	ListItems(ctx context.Context, batchID string, statusFilter []types.ItemStatus) ([]*types.Item, error)

	// ClaimOldestPending atomically transitions the oldest (by
	// last_updated_at) pending item in a batch to running, stamping
	// workerID, startTime, and a lease expiring at leaseExpiresAt. Returns
	// ErrNotFound if no pending item exists in the batch.
	ClaimOldestPending(ctx context.Context, batchID, workerID string, leaseExpiresAt time.Time) (*types.Item, error)

	// CompleteItem atomically transitions a running item (claimed by
	// workerID) to complete, storing result. Returns ErrConflict if the
	// item is no longer running under workerID (e.g. its lease was already
	// reclaimed by the watchdog).
	CompleteItem(ctx context.Context, itemID, workerID string, result []byte) (*types.Item, error)

	// RetryItem atomically transitions a running item back to pending,
	// incrementing retry_count and recording the transient error that
	// triggered the retry. Returns ErrConflict under the same condition as
	// CompleteItem.
	RetryItem(ctx context.Context, itemID, workerID string, code types.ItemErrorCode, message string) (*types.Item, error)

	// FailItem atomically transitions a running item to failed (retries
	// exhausted, or a permanent analyzer error). Returns ErrConflict under
	// the same condition as CompleteItem.
	FailItem(ctx context.Context, itemID, workerID string, code types.ItemErrorCode, message string) (*types.Item, error)

	// ReclaimExpiredLeases finds every running item across all batches
	// whose lease_expires_at is before now, and for each one either
	// returns it to pending (if retry_count < max_retries) or marks it
	// failed with types.ItemErrorLeaseTimeout — atomically, one item per
	// row, so a concurrent watchdog in another process cannot double-act
	// on the same item. Returns the items it acted on.
	ReclaimExpiredLeases(ctx context.Context, now time.Time) ([]*types.Item, error)

	// CancelPendingItems transitions every item in a batch that is still
	// pending to cancelled, returning the count affected. Used by
	// control_batch(cancel).
	CancelPendingItems(ctx context.Context, batchID string) (int, error)

	// ListActiveBatches returns every batch currently in status running,
	// used by the supervisor on startup to resume worker loops after a
	// process restart.
	ListActiveBatches(ctx context.Context) ([]*types.Batch, error)

	// DeleteBatch removes every item row belonging to batchID, then the
	// batch row itself. Idempotent: deleting an already-absent batch (or
	// one whose items were already removed in a prior, partially-failed
	// attempt) returns ErrNotFound only if the batch row itself is already
	// gone, never for its items.
	DeleteBatch(ctx context.Context, batchID string) error

	// Close releases the store's underlying resources.
	Close() error
}
