package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/neerajsharma26/resumerank/pkg/engine"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/hash"
	"github.com/neerajsharma26/resumerank/pkg/log"
	"github.com/neerajsharma26/resumerank/pkg/objectstore"
	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/supervisor"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

// UploadFile is one caller-supplied file in a create_batch call.
type UploadFile struct {
	Filename string `validate:"required"`
	Bytes    []byte `validate:"required,min=1"`
}

// CreateRequest is create_batch's input, validated before any upload or
// write happens, per spec.md §7's Validation error class.
type CreateRequest struct {
	OwnerID        string `validate:"required"`
	JobDescription string `validate:"required"`
	IdempotencyKey string
	Files          []UploadFile `validate:"required,min=1,dive"`
}

// Controller is the Batch Controller (spec.md §4.8), the only component
// that mutates Batches outside a Worker Loop or the Watchdog.
type Controller struct {
	st         store.Store
	objects    objectstore.Gateway
	supervisor *supervisor.Supervisor
	events     *events.Broker
	maxRetries int
	validate   *validator.Validate
}

// New builds a Controller. maxRetries is stamped onto every item created,
// per spec.md §6's max_retries environment parameter.
func New(st store.Store, objects objectstore.Gateway, sup *supervisor.Supervisor, broker *events.Broker, maxRetries int) *Controller {
	return &Controller{
		st:         st,
		objects:    objects,
		supervisor: sup,
		events:     broker,
		maxRetries: maxRetries,
		validate:   validator.New(),
	}
}

// Create implements create_batch (spec.md §4.8): hash every file, drop
// intra-batch duplicates, upload the rest, then write the Batch and Items
// in one transaction and schedule a Worker Loop. On any failure after bytes
// are uploaded, the uploaded prefix is released via DeleteAll so no orphan
// objects survive a failed create.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*types.Batch, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrValidation, err)
	}

	batchID := uuid.NewString()
	logger := log.WithBatchID(log.WithComponent("controller"), batchID)

	items := make([]store.NewItem, 0, len(req.Files))
	uploaded := false
	keyByDigest := make(map[string]string, len(req.Files))
	for _, f := range req.Files {
		digest, err := hash.SHA256(bytes.NewReader(f.Bytes))
		if err != nil {
			if uploaded {
				_ = c.objects.DeleteAll(ctx, objectstore.BatchPrefix(batchID))
			}
			return nil, fmt.Errorf("hash %s: %w", f.Filename, err)
		}
		itemID := uuid.NewString()
		objectKey, dupe := keyByDigest[digest]
		if !dupe {
			objectKey = objectstore.ItemKey(batchID, itemID, f.Filename)
			if err := c.objects.Put(ctx, objectKey, bytes.NewReader(f.Bytes)); err != nil {
				if uploaded {
					_ = c.objects.DeleteAll(ctx, objectstore.BatchPrefix(batchID))
				}
				return nil, fmt.Errorf("upload %s: %w", f.Filename, err)
			}
			uploaded = true
			keyByDigest[digest] = objectKey
		}
		items = append(items, store.NewItem{
			ID:        itemID,
			Filename:  f.Filename,
			ObjectKey: objectKey,
			FileHash:  digest,
		})
	}

	batch := &types.Batch{
		ID:             batchID,
		OwnerID:        req.OwnerID,
		JobDescription: req.JobDescription,
		IdempotencyKey: req.IdempotencyKey,
		Status:         types.BatchStatusRunning,
	}
	created, err := c.st.CreateBatch(ctx, batch, items, c.maxRetries)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
			if uploaded {
				_ = c.objects.DeleteAll(ctx, objectstore.BatchPrefix(batchID))
			}
			return created, nil
		}
		if uploaded {
			_ = c.objects.DeleteAll(ctx, objectstore.BatchPrefix(batchID))
		}
		return nil, err
	}

	if created.Total == 0 {
		// every file was a duplicate: nothing to schedule, and §8's
		// boundary behavior requires the batch land directly in complete.
		completed, cerr := c.st.SetBatchStatus(ctx, created.ID, []types.BatchStatus{types.BatchStatusRunning}, types.BatchStatusComplete)
		if cerr == nil {
			created = completed
		}
	} else if c.supervisor != nil {
		c.supervisor.Nudge(ctx)
	}

	logger.Info().Int("total", created.Total).Int("skipped_duplicates", created.SkippedDupes).Msg("batch created")
	c.events.Notify(events.EventBatchCreated, created.ID, "batch created")
	return created, nil
}

// Control implements control_batch (spec.md §4.8). Transitions not in the
// allowed table are no-ops that return the batch unchanged rather than an
// error — spec.md §7 calls this "not_applicable", distinct from a genuine
// illegal-transition failure a caller should see as an error.
func (c *Controller) Control(ctx context.Context, ownerID, batchID string, action types.BatchControlAction) (*types.Batch, error) {
	b, err := c.authorize(ctx, ownerID, batchID)
	if err != nil {
		return nil, err
	}

	switch action {
	case types.BatchActionPause:
		updated, err := c.st.SetBatchStatus(ctx, batchID, []types.BatchStatus{types.BatchStatusRunning}, types.BatchStatusPaused)
		if errors.Is(err, store.ErrConflict) {
			return b, nil
		}
		if err != nil {
			return nil, err
		}
		c.events.Notify(events.EventBatchPaused, batchID, "batch paused")
		return updated, nil

	case types.BatchActionResume:
		updated, err := c.st.SetBatchStatus(ctx, batchID, []types.BatchStatus{types.BatchStatusPaused}, types.BatchStatusRunning)
		if errors.Is(err, store.ErrConflict) {
			return b, nil
		}
		if err != nil {
			return nil, err
		}
		if c.supervisor != nil {
			c.supervisor.Nudge(ctx)
		}
		c.events.Notify(events.EventBatchResumed, batchID, "batch resumed")
		return updated, nil

	case types.BatchActionCancel:
		if b.Status != types.BatchStatusRunning && b.Status != types.BatchStatusPaused {
			return b, nil
		}
		updated, err := c.st.SetBatchStatus(ctx, batchID, []types.BatchStatus{types.BatchStatusRunning, types.BatchStatusPaused}, types.BatchStatusCancelled)
		if errors.Is(err, store.ErrConflict) {
			return c.st.GetBatch(ctx, batchID)
		}
		if err != nil {
			return nil, err
		}
		cancelled, err := c.st.CancelPendingItems(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if cancelled > 0 {
			if _, err := c.st.IncrementBatchCounters(ctx, batchID, 0, 0, cancelled); err != nil {
				return nil, err
			}
		}
		final, err := c.st.GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		c.events.Notify(events.EventBatchCancelled, batchID, fmt.Sprintf("batch cancelled, %d pending items swept", cancelled))
		return final, nil

	default:
		return nil, fmt.Errorf("%w: unknown action %q", engine.ErrValidation, action)
	}
}

// Get implements get_batch.
func (c *Controller) Get(ctx context.Context, ownerID, batchID string) (*types.Batch, error) {
	return c.authorize(ctx, ownerID, batchID)
}

// ListItems implements list_items, optionally filtered by status.
func (c *Controller) ListItems(ctx context.Context, ownerID, batchID string, statusFilter []types.ItemStatus) ([]*types.Item, error) {
	if _, err := c.authorize(ctx, ownerID, batchID); err != nil {
		return nil, err
	}
	return c.st.ListItems(ctx, batchID, statusFilter)
}

// Teardown implements teardown_batch: not exposed for running batches, and
// idempotent with respect to partial prior deletions — a batch whose items
// or row are already gone is reported as success, not not_found.
func (c *Controller) Teardown(ctx context.Context, ownerID, batchID string) error {
	b, err := c.authorize(ctx, ownerID, batchID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return nil
		}
		return err
	}
	if b.Status == types.BatchStatusRunning {
		return fmt.Errorf("%w: cannot teardown a running batch", engine.ErrIllegalTransition)
	}

	if err := c.st.DeleteBatch(ctx, batchID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := c.objects.DeleteAll(ctx, objectstore.BatchPrefix(batchID)); err != nil {
		return err
	}
	return nil
}

// authorize loads a batch and confirms ownerID matches its owner, mapping
// store-level not-found to the engine's exported sentinel so transport
// adapters have one error taxonomy to translate, per spec.md §6's exit
// codes.
func (c *Controller) authorize(ctx context.Context, ownerID, batchID string) (*types.Batch, error) {
	b, err := c.st.GetBatch(ctx, batchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.OwnerID != ownerID {
		return nil, engine.ErrForbidden
	}
	return b, nil
}
