package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neerajsharma26/resumerank/pkg/types"
)

// PGStore is the production State Store Gateway, backed by PostgreSQL.
// Every conditional write in the Store interface is a single
// UPDATE ... WHERE ... RETURNING statement: Postgres's row-level locking
// makes the match-then-mutate step atomic without an application-level
// lock, which is what spec.md §4.3 calls "atomic conditional write."
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an already-connected pool. Callers construct the pool
// (via pgxpool.New) so connection lifecycle and tracing hooks stay at the
// call site rather than owning connection setup itself.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) DeleteBatch(ctx context.Context, batchID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM items WHERE batch_id = $1`, batchID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM batches WHERE id = $1`, batchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *PGStore) CreateBatch(ctx context.Context, batch *types.Batch, items []NewItem, maxRetries int) (*types.Batch, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if batch.IdempotencyKey != "" {
		var existingID string
		err := tx.QueryRow(ctx,
			`SELECT id FROM batches WHERE owner_id = $1 AND idempotency_key = $2`,
			batch.OwnerID, batch.IdempotencyKey,
		).Scan(&existingID)
		if err == nil {
			existing, gerr := s.getBatchTx(ctx, tx, existingID)
			if gerr != nil {
				return nil, gerr
			}
			return existing, ErrDuplicateIdempotencyKey
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(items))
	total := 0
	skipped := 0
	type row struct {
		item   NewItem
		status types.ItemStatus
	}
	rows := make([]row, 0, len(items))
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
			skipped++
		}
		rows = append(rows, row{item: ni, status: status})
	}

	var out types.Batch
	err = tx.QueryRow(ctx, `
		INSERT INTO batches (id, owner_id, job_description, idempotency_key, status, total, skipped_duplicates, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, now(), now())
		RETURNING id, owner_id, job_description, status, total, completed, failed, cancelled_count, skipped_duplicates, created_at, updated_at
	`, batch.ID, batch.OwnerID, batch.JobDescription, batch.IdempotencyKey, types.BatchStatusRunning, total, skipped,
	).Scan(&out.ID, &out.OwnerID, &out.JobDescription, &out.Status, &out.Total, &out.Completed, &out.Failed,
		&out.CancelledCount, &out.SkippedDupes, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		_, err = tx.Exec(ctx, `
			INSERT INTO items (id, batch_id, filename, object_key, file_hash, status, max_retries, created_at, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, r.item.ID, out.ID, r.item.Filename, r.item.ObjectKey, r.item.FileHash, r.status, maxRetries)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PGStore) getBatchTx(ctx context.Context, tx pgx.Tx, id string) (*types.Batch, error) {
	var b types.Batch
	err := tx.QueryRow(ctx, `
		SELECT id, owner_id, job_description, status, total, completed, failed, cancelled_count, skipped_duplicates, created_at, updated_at
		FROM batches WHERE id = $1
	`, id).Scan(&b.ID, &b.OwnerID, &b.JobDescription, &b.Status, &b.Total, &b.Completed, &b.Failed,
		&b.CancelledCount, &b.SkippedDupes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PGStore) GetBatch(ctx context.Context, id string) (*types.Batch, error) {
	var b types.Batch
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, job_description, status, total, completed, failed, cancelled_count, skipped_duplicates, created_at, updated_at
		FROM batches WHERE id = $1
	`, id).Scan(&b.ID, &b.OwnerID, &b.JobDescription, &b.Status, &b.Total, &b.Completed, &b.Failed,
		&b.CancelledCount, &b.SkippedDupes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PGStore) SetBatchStatus(ctx context.Context, id string, fromAny []types.BatchStatus, to types.BatchStatus) (*types.Batch, error) {
	var b types.Batch
	err := s.pool.QueryRow(ctx, `
		UPDATE batches SET status = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
		RETURNING id, owner_id, job_description, status, total, completed, failed, cancelled_count, skipped_duplicates, created_at, updated_at
	`, to, id, statusSlice(fromAny)).Scan(&b.ID, &b.OwnerID, &b.JobDescription, &b.Status, &b.Total, &b.Completed, &b.Failed,
		&b.CancelledCount, &b.SkippedDupes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := s.GetBatch(ctx, id); errors.Is(gerr, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func statusSlice(in []types.BatchStatus) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func (s *PGStore) IncrementBatchCounters(ctx context.Context, id string, completedDelta, failedDelta, cancelledDelta int) (*types.Batch, error) {
	var b types.Batch
	err := s.pool.QueryRow(ctx, `
		UPDATE batches SET completed = completed + $1, failed = failed + $2, cancelled_count = cancelled_count + $3, updated_at = now()
		WHERE id = $4
		RETURNING id, owner_id, job_description, status, total, completed, failed, cancelled_count, skipped_duplicates, created_at, updated_at
	`, completedDelta, failedDelta, cancelledDelta, id).Scan(&b.ID, &b.OwnerID, &b.JobDescription, &b.Status, &b.Total, &b.Completed, &b.Failed,
		&b.CancelledCount, &b.SkippedDupes, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanItem(row pgx.Row) (*types.Item, error) {
	var it types.Item
	var leaseExpiresAt, startTime *time.Time
	err := row.Scan(&it.ID, &it.BatchID, &it.Filename, &it.ObjectKey, &it.FileHash, &it.Status, &it.WorkerID,
		&leaseExpiresAt, &startTime, &it.RetryCount, &it.MaxRetries, &it.Result, &it.ErrorCode, &it.ErrorMessage,
		&it.CreatedAt, &it.LastUpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if leaseExpiresAt != nil {
		it.LeaseExpiresAt = *leaseExpiresAt
	}
	if startTime != nil {
		it.StartTime = *startTime
	}
	return &it, nil
}

const itemColumns = `id, batch_id, filename, object_key, file_hash, status, worker_id, lease_expires_at, start_time, retry_count, max_retries, result, error_code, error_message, created_at, last_updated_at`

func (s *PGStore) GetItem(ctx context.Context, id string) (*types.Item, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	return scanItem(row)
}

func (s *PGStore) ListItems(ctx context.Context, batchID string, statusFilter []types.ItemStatus) ([]*types.Item, error) {
	var rows pgx.Rows
	var err error
	if len(statusFilter) == 0 {
		rows, err = s.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE batch_id = $1 ORDER BY created_at ASC`, batchID)
	} else {
		filters := make([]string, len(statusFilter))
		for i, f := range statusFilter {
			filters[i] = string(f)
		}
		rows, err = s.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE batch_id = $1 AND status = ANY($2) ORDER BY created_at ASC`, batchID, filters)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PGStore) ClaimOldestPending(ctx context.Context, batchID, workerID string, leaseExpiresAt time.Time) (*types.Item, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE items SET status = $1, worker_id = $2, start_time = now(), lease_expires_at = $3, last_updated_at = now()
		WHERE id = (
			SELECT id FROM items
			WHERE batch_id = $4 AND status = $5
			ORDER BY last_updated_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+itemColumns, types.ItemStatusRunning, workerID, leaseExpiresAt, batchID, types.ItemStatusPending,
	)
	return scanItem(row)
}

func (s *PGStore) transitionRunning(ctx context.Context, itemID, workerID, setClause string, args ...any) (*types.Item, error) {
	query := `UPDATE items SET ` + setClause + `, last_updated_at = now()
		WHERE id = $1 AND status = $2 AND worker_id = $3
		RETURNING ` + itemColumns
	allArgs := append([]any{itemID, types.ItemStatusRunning, workerID}, args...)
	row := s.pool.QueryRow(ctx, query, allArgs...)
	it, err := scanItem(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrConflict
	}
	return it, err
}

func (s *PGStore) CompleteItem(ctx context.Context, itemID, workerID string, result []byte) (*types.Item, error) {
	return s.transitionRunning(ctx, itemID, workerID,
		"status = $4, result = $5, error_code = $6, error_message = ''",
		types.ItemStatusComplete, result, types.ItemErrorNone)
}

func (s *PGStore) RetryItem(ctx context.Context, itemID, workerID string, code types.ItemErrorCode, message string) (*types.Item, error) {
	return s.transitionRunning(ctx, itemID, workerID,
		"status = $4, retry_count = retry_count + 1, worker_id = '', error_code = $5, error_message = $6",
		types.ItemStatusPending, code, message)
}

func (s *PGStore) FailItem(ctx context.Context, itemID, workerID string, code types.ItemErrorCode, message string) (*types.Item, error) {
	return s.transitionRunning(ctx, itemID, workerID,
		"status = $4, error_code = $5, error_message = $6",
		types.ItemStatusFailed, code, message)
}

func (s *PGStore) ReclaimExpiredLeases(ctx context.Context, now time.Time) ([]*types.Item, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE items SET
			status = CASE WHEN retry_count < max_retries THEN $1 ELSE $2 END,
			worker_id = CASE WHEN retry_count < max_retries THEN '' ELSE worker_id END,
			retry_count = CASE WHEN retry_count < max_retries THEN retry_count + 1 ELSE retry_count END,
			error_code = $3,
			error_message = 'worker lease expired',
			last_updated_at = now()
		WHERE status = $4 AND lease_expires_at < $5
		RETURNING `+itemColumns,
		types.ItemStatusPending, types.ItemStatusFailed, types.ItemErrorLeaseTimeout, types.ItemStatusRunning, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PGStore) CancelPendingItems(ctx context.Context, batchID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE items SET status = $1, last_updated_at = now()
		WHERE batch_id = $2 AND status = $3
	`, types.ItemStatusCancelled, batchID, types.ItemStatusPending)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PGStore) ListActiveBatches(ctx context.Context) ([]*types.Batch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, job_description, status, total, completed, failed, cancelled_count, skipped_duplicates, created_at, updated_at
		FROM batches WHERE status = $1
	`, types.BatchStatusRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Batch
	for rows.Next() {
		var b types.Batch
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.JobDescription, &b.Status, &b.Total, &b.Completed, &b.Failed,
			&b.CancelledCount, &b.SkippedDupes, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
