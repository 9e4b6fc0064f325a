package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsharma26/resumerank/pkg/controller"
	"github.com/neerajsharma26/resumerank/pkg/events"
	"github.com/neerajsharma26/resumerank/pkg/objectstore"
	"github.com/neerajsharma26/resumerank/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.NewMemStore()
	objects, err := objectstore.NewLocalGateway(t.TempDir())
	require.NoError(t, err)
	broker := events.NewBroker()
	ctrl := controller.New(st, objects, nil, broker, 3)
	return NewServer(ctrl, nil)
}

func TestHandleCreateBatch_CreatesAndReturnsBatch(t *testing.T) {
	s := newTestServer(t)

	body := map[string]any{
		"owner_id":        "owner-1",
		"job_description": "Senior Go Engineer",
		"files": []map[string]string{
			{"filename": "a.pdf", "content_base64": base64.StdEncoding.EncodeToString([]byte("resume bytes"))},
		},
	}
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/batches", bytes.NewReader(encoded))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "running", resp.Status)
}

func TestHandleCreateBatch_InvalidBase64Is400(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"owner_id":        "owner-1",
		"job_description": "Senior Go Engineer",
		"files": []map[string]string{
			{"filename": "a.pdf", "content_base64": "not-valid-base64!!!"},
		},
	}
	encoded, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/batches", bytes.NewReader(encoded))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetBatch_UnknownBatchIs404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/batches/does-not-exist?owner_id=owner-1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetBatch_WrongOwnerIs403(t *testing.T) {
	s := newTestServer(t)
	batchID := createBatch(t, s, "owner-1")

	req := httptest.NewRequest(http.MethodGet, "/batches/"+batchID+"?owner_id=someone-else", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleControlBatch_PauseThenResume(t *testing.T) {
	s := newTestServer(t)
	batchID := createBatch(t, s, "owner-1")

	body, _ := json.Marshal(map[string]string{"owner_id": "owner-1", "action": "pause"})
	req := httptest.NewRequest(http.MethodPost, "/batches/"+batchID+"/control", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "paused", resp.Status)

	body, _ = json.Marshal(map[string]string{"owner_id": "owner-1", "action": "resume"})
	req = httptest.NewRequest(http.MethodPost, "/batches/"+batchID+"/control", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "running", resp.Status)
}

func TestHandleTeardownBatch_RunningBatchIsConflict(t *testing.T) {
	s := newTestServer(t)
	batchID := createBatch(t, s, "owner-1")

	req := httptest.NewRequest(http.MethodDelete, "/batches/"+batchID+"?owner_id=owner-1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleListItems_ReturnsCreatedItems(t *testing.T) {
	s := newTestServer(t)
	batchID := createBatch(t, s, "owner-1")

	req := httptest.NewRequest(http.MethodGet, "/batches/"+batchID+"/items?owner_id=owner-1", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)
}

func createBatch(t *testing.T, s *Server, ownerID string) string {
	t.Helper()
	body := map[string]any{
		"owner_id":        ownerID,
		"job_description": "Senior Go Engineer",
		"files": []map[string]string{
			{"filename": "a.pdf", "content_base64": base64.StdEncoding.EncodeToString([]byte("resume bytes"))},
		},
	}
	encoded, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/batches", bytes.NewReader(encoded))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp batchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.BatchID
}
