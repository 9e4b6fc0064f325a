package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/neerajsharma26/resumerank/pkg/types"
)

// MemStore is an in-memory, mutex-guarded Store, built so the Item State
// Machine, Claim Engine, Worker Loop, Watchdog, and Batch Controller can be
// exercised in tests without a database. It implements exactly the same
// conditional-write semantics PGStore does against real rows.
type MemStore struct {
	mu          sync.Mutex
	batches     map[string]*types.Batch
	items       map[string]*types.Item
	idempotency map[string]string // owner_id|idempotency_key -> batch id
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		batches:     make(map[string]*types.Batch),
		items:       make(map[string]*types.Item),
		idempotency: make(map[string]string),
	}
}

func copyBatch(b *types.Batch) *types.Batch {
	cp := *b
	return &cp
}

func copyItem(i *types.Item) *types.Item {
	cp := *i
	cp.Result = append([]byte(nil), i.Result...)
	return &cp
}

func (m *MemStore) CreateBatch(ctx context.Context, batch *types.Batch, items []NewItem, maxRetries int) (*types.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if batch.IdempotencyKey != "" {
		key := batch.OwnerID + "|" + batch.IdempotencyKey
		if existingID, ok := m.idempotency[key]; ok {
			if existing, ok := m.batches[existingID]; ok {
				return copyBatch(existing), ErrDuplicateIdempotencyKey
			}
		}
	}

	now := time.Now()
	b := copyBatch(batch)
	b.CreatedAt = now
	b.UpdatedAt = now

	seen := make(map[string]bool, len(items))
	total := 0
	for _, ni := range items {
		status := types.ItemStatusPending
		if ni.FileHash != "" {
			if seen[ni.FileHash] {
				status = types.ItemStatusPendingDupe
			} else {
				seen[ni.FileHash] = true
			}
		}
		if status == types.ItemStatusPending {
			total++
		} else {
			b.SkippedDupes++
		}
		m.items[ni.ID] = &types.Item{
			ID:            ni.ID,
			BatchID:       b.ID,
			Filename:      ni.Filename,
			ObjectKey:     ni.ObjectKey,
			FileHash:      ni.FileHash,
			Status:        status,
			MaxRetries:    maxRetries,
			CreatedAt:     now,
			LastUpdatedAt: now,
		}
	}
	b.Total = total
	m.batches[b.ID] = b

	if b.IdempotencyKey != "" {
		m.idempotency[b.OwnerID+"|"+b.IdempotencyKey] = b.ID
	}
	return copyBatch(b), nil
}

func (m *MemStore) GetBatch(ctx context.Context, id string) (*types.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBatch(b), nil
}

func (m *MemStore) SetBatchStatus(ctx context.Context, id string, fromAny []types.BatchStatus, to types.BatchStatus) (*types.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !statusIn(b.Status, fromAny) {
		return nil, ErrConflict
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	return copyBatch(b), nil
}

func statusIn(s types.BatchStatus, set []types.BatchStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (m *MemStore) IncrementBatchCounters(ctx context.Context, id string, completedDelta, failedDelta, cancelledDelta int) (*types.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Completed += completedDelta
	b.Failed += failedDelta
	b.CancelledCount += cancelledDelta
	b.UpdatedAt = time.Now()
	return copyBatch(b), nil
}

func (m *MemStore) GetItem(ctx context.Context, id string) (*types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(it), nil
}

func (m *MemStore) ListItems(ctx context.Context, batchID string, statusFilter []types.ItemStatus) ([]*types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Item
	for _, it := range m.items {
		if it.BatchID != batchID {
			continue
		}
		if len(statusFilter) > 0 {
			match := false
			for _, s := range statusFilter {
				if it.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, copyItem(it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) ClaimOldestPending(ctx context.Context, batchID, workerID string, leaseExpiresAt time.Time) (*types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var oldest *types.Item
	for _, it := range m.items {
		if it.BatchID != batchID || it.Status != types.ItemStatusPending {
			continue
		}
		if oldest == nil || it.LastUpdatedAt.Before(oldest.LastUpdatedAt) {
			oldest = it
		}
	}
	if oldest == nil {
		return nil, ErrNotFound
	}
	now := time.Now()
	oldest.Status = types.ItemStatusRunning
	oldest.WorkerID = workerID
	oldest.StartTime = now
	oldest.LeaseExpiresAt = leaseExpiresAt
	oldest.LastUpdatedAt = now
	return copyItem(oldest), nil
}

func (m *MemStore) transitionRunning(itemID, workerID string, mutate func(it *types.Item)) (*types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	if it.Status != types.ItemStatusRunning || it.WorkerID != workerID {
		return nil, ErrConflict
	}
	mutate(it)
	it.LastUpdatedAt = time.Now()
	return copyItem(it), nil
}

func (m *MemStore) CompleteItem(ctx context.Context, itemID, workerID string, result []byte) (*types.Item, error) {
	return m.transitionRunning(itemID, workerID, func(it *types.Item) {
		it.Status = types.ItemStatusComplete
		it.Result = append([]byte(nil), result...)
		it.ErrorCode = types.ItemErrorNone
		it.ErrorMessage = ""
	})
}

func (m *MemStore) RetryItem(ctx context.Context, itemID, workerID string, code types.ItemErrorCode, message string) (*types.Item, error) {
	return m.transitionRunning(itemID, workerID, func(it *types.Item) {
		it.Status = types.ItemStatusPending
		it.RetryCount++
		it.WorkerID = ""
		it.ErrorCode = code
		it.ErrorMessage = message
	})
}

func (m *MemStore) FailItem(ctx context.Context, itemID, workerID string, code types.ItemErrorCode, message string) (*types.Item, error) {
	return m.transitionRunning(itemID, workerID, func(it *types.Item) {
		it.Status = types.ItemStatusFailed
		it.ErrorCode = code
		it.ErrorMessage = message
	})
}

func (m *MemStore) ReclaimExpiredLeases(ctx context.Context, now time.Time) ([]*types.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var acted []*types.Item
	for _, it := range m.items {
		if it.Status != types.ItemStatusRunning {
			continue
		}
		if it.LeaseExpiresAt.IsZero() || it.LeaseExpiresAt.After(now) {
			continue
		}
		if it.RetryCount < it.MaxRetries {
			it.Status = types.ItemStatusPending
			it.WorkerID = ""
			it.ErrorCode = types.ItemErrorLeaseTimeout
			it.ErrorMessage = "worker lease expired"
			it.RetryCount++
		} else {
			it.Status = types.ItemStatusFailed
			it.ErrorCode = types.ItemErrorLeaseTimeout
			it.ErrorMessage = "worker lease expired, retries exhausted"
		}
		it.LastUpdatedAt = now
		acted = append(acted, copyItem(it))
	}
	return acted, nil
}

func (m *MemStore) CancelPendingItems(ctx context.Context, batchID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, it := range m.items {
		if it.BatchID == batchID && it.Status == types.ItemStatusPending {
			it.Status = types.ItemStatusCancelled
			it.LastUpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

func (m *MemStore) ListActiveBatches(ctx context.Context) ([]*types.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.Batch
	for _, b := range m.batches {
		if b.Status == types.BatchStatusRunning {
			out = append(out, copyBatch(b))
		}
	}
	return out, nil
}

func (m *MemStore) DeleteBatch(ctx context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[batchID]; !ok {
		return ErrNotFound
	}
	for id, it := range m.items {
		if it.BatchID == batchID {
			delete(m.items, id)
		}
	}
	batch := m.batches[batchID]
	delete(m.batches, batchID)
	for key, id := range m.idempotency {
		if id == batch.ID {
			delete(m.idempotency, key)
		}
	}
	return nil
}

func (m *MemStore) Close() error { return nil }
