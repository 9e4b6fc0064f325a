package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsharma26/resumerank/pkg/engine"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/objectstore"
	"github.com/neerajsharma26/resumerank/pkg/store"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

func newTestController(t *testing.T) (*Controller, store.Store) {
	t.Helper()
	st := store.NewMemStore()
	objects, err := objectstore.NewLocalGateway(t.TempDir())
	require.NoError(t, err)
	broker := events.NewBroker()
	return New(st, objects, nil, broker, 3), st
}

func TestCreate_RejectsInvalidRequest(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.Create(context.Background(), CreateRequest{OwnerID: "owner-1"})
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestCreate_UploadsAndWritesBatch(t *testing.T) {
	c, _ := newTestController(t)
	batch, err := c.Create(context.Background(), CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		Files: []UploadFile{
			{Filename: "a.pdf", Bytes: []byte("resume a")},
			{Filename: "b.pdf", Bytes: []byte("resume b")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, types.BatchStatusRunning, batch.Status)
}

func TestCreate_IntraBatchDuplicatesSkippedAndZeroTotalCompletesImmediately(t *testing.T) {
	c, _ := newTestController(t)
	batch, err := c.Create(context.Background(), CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		Files: []UploadFile{
			{Filename: "a.pdf", Bytes: []byte("same bytes")},
			{Filename: "a-copy.pdf", Bytes: []byte("same bytes")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Total)
	assert.Equal(t, 1, batch.SkippedDupes)
	assert.Equal(t, types.BatchStatusComplete, batch.Status)
}

func TestCreate_IdempotencyKeyReturnsOriginalBatch(t *testing.T) {
	c, _ := newTestController(t)
	req := CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		IdempotencyKey: "dedupe-key",
		Files:          []UploadFile{{Filename: "a.pdf", Bytes: []byte("resume a")}},
	}
	first, err := c.Create(context.Background(), req)
	require.NoError(t, err)

	second, err := c.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestControl_PauseResumeCancel(t *testing.T) {
	c, _ := newTestController(t)
	batch, err := c.Create(context.Background(), CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		Files:          []UploadFile{{Filename: "a.pdf", Bytes: []byte("resume a")}},
	})
	require.NoError(t, err)

	paused, err := c.Control(context.Background(), "owner-1", batch.ID, types.BatchActionPause)
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusPaused, paused.Status)

	resumed, err := c.Control(context.Background(), "owner-1", batch.ID, types.BatchActionResume)
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusRunning, resumed.Status)

	cancelled, err := c.Control(context.Background(), "owner-1", batch.ID, types.BatchActionCancel)
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, cancelled.CancelledCount)
}

func TestControl_IllegalTransitionIsNoop(t *testing.T) {
	c, _ := newTestController(t)
	batch, err := c.Create(context.Background(), CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		Files:          []UploadFile{{Filename: "a.pdf", Bytes: []byte("resume a")}},
	})
	require.NoError(t, err)

	// resume on an already-running batch: not applicable, not an error.
	same, err := c.Control(context.Background(), "owner-1", batch.ID, types.BatchActionResume)
	require.NoError(t, err)
	assert.Equal(t, types.BatchStatusRunning, same.Status)
}

func TestControl_UnknownActionIsValidationError(t *testing.T) {
	c, _ := newTestController(t)
	batch, err := c.Create(context.Background(), CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		Files:          []UploadFile{{Filename: "a.pdf", Bytes: []byte("resume a")}},
	})
	require.NoError(t, err)

	_, err = c.Control(context.Background(), "owner-1", batch.ID, types.BatchControlAction("frobnicate"))
	assert.ErrorIs(t, err, engine.ErrValidation)
}

func TestAuthorize_WrongOwnerIsForbidden(t *testing.T) {
	c, _ := newTestController(t)
	batch, err := c.Create(context.Background(), CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		Files:          []UploadFile{{Filename: "a.pdf", Bytes: []byte("resume a")}},
	})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "someone-else", batch.ID)
	assert.ErrorIs(t, err, engine.ErrForbidden)
}

func TestAuthorize_UnknownBatchIsNotFound(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.Get(context.Background(), "owner-1", "does-not-exist")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestTeardown_RejectsRunningBatchThenSucceedsAfterCancel(t *testing.T) {
	c, _ := newTestController(t)
	batch, err := c.Create(context.Background(), CreateRequest{
		OwnerID:        "owner-1",
		JobDescription: "Senior Go Engineer",
		Files:          []UploadFile{{Filename: "a.pdf", Bytes: []byte("resume a")}},
	})
	require.NoError(t, err)

	err = c.Teardown(context.Background(), "owner-1", batch.ID)
	assert.ErrorIs(t, err, engine.ErrIllegalTransition)

	_, err = c.Control(context.Background(), "owner-1", batch.ID, types.BatchActionCancel)
	require.NoError(t, err)

	require.NoError(t, c.Teardown(context.Background(), "owner-1", batch.ID))

	// idempotent: tearing down an already-gone batch is not an error.
	require.NoError(t, c.Teardown(context.Background(), "owner-1", batch.ID))
}
