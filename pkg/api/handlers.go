package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neerajsharma26/resumerank/pkg/controller"
	"github.com/neerajsharma26/resumerank/pkg/engine"
	"github.com/neerajsharma26/resumerank/pkg/types"
)

// fileUpload is the JSON wire shape for one file in a create_batch request;
// bytes travel base64-encoded since the control surface is JSON, not
// multipart.
type fileUpload struct {
	Filename string `json:"filename"`
	Content  string `json:"content_base64"`
}

type createBatchRequest struct {
	OwnerID        string       `json:"owner_id"`
	JobDescription string       `json:"job_description"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
	Files          []fileUpload `json:"files"`
}

type controlBatchRequest struct {
	OwnerID string                   `json:"owner_id"`
	Action  types.BatchControlAction `json:"action"`
}

type batchResponse struct {
	BatchID           string `json:"batch_id"`
	OwnerID           string `json:"owner_id"`
	Status            string `json:"status"`
	Total             int    `json:"total"`
	Completed         int    `json:"completed"`
	Failed            int    `json:"failed"`
	CancelledCount    int    `json:"cancelled_count"`
	SkippedDuplicates int    `json:"skipped_duplicates"`
}

func toBatchResponse(b *types.Batch) batchResponse {
	return batchResponse{
		BatchID:           b.ID,
		OwnerID:           b.OwnerID,
		Status:            string(b.Status),
		Total:             b.Total,
		Completed:         b.Completed,
		Failed:            b.Failed,
		CancelledCount:    b.CancelledCount,
		SkippedDuplicates: b.SkippedDupes,
	}
}

type itemResponse struct {
	ItemID       string `json:"item_id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	RetryCount   int    `json:"retry_count"`
	MaxRetries   int    `json:"max_retries"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func toItemResponse(it *types.Item) itemResponse {
	return itemResponse{
		ItemID:       it.ID,
		Filename:     it.Filename,
		Status:       string(it.Status),
		RetryCount:   it.RetryCount,
		MaxRetries:   it.MaxRetries,
		ErrorCode:    string(it.ErrorCode),
		ErrorMessage: it.ErrorMessage,
	}
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	files := make([]controller.UploadFile, 0, len(req.Files))
	for _, f := range req.Files {
		content, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("content_base64 is not valid base64"))
			return
		}
		files = append(files, controller.UploadFile{Filename: f.Filename, Bytes: content})
	}

	batch, err := s.ctrl.Create(r.Context(), controller.CreateRequest{
		OwnerID:        req.OwnerID,
		JobDescription: req.JobDescription,
		IdempotencyKey: req.IdempotencyKey,
		Files:          files,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBatchResponse(batch))
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	ownerID := r.URL.Query().Get("owner_id")
	batch, err := s.ctrl.Get(r.Context(), ownerID, batchID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

func (s *Server) handleControlBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	var req controlBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	batch, err := s.ctrl.Control(r.Context(), req.OwnerID, batchID, req.Action)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	ownerID := r.URL.Query().Get("owner_id")

	var statusFilter []types.ItemStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		statusFilter = append(statusFilter, types.ItemStatus(raw))
	}

	items, err := s.ctrl.ListItems(r.Context(), ownerID, batchID, statusFilter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTeardownBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	ownerID := r.URL.Query().Get("owner_id")
	if err := s.ctrl.Teardown(r.Context(), ownerID, batchID); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps the engine error taxonomy (spec.md §7) to HTTP
// status, matching the exit-code scheme spec.md §6 defines for a CLI
// binding of the same operations.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, engine.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrIllegalTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, engine.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
