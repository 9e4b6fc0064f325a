// Package client is a thin Go SDK over pkg/api's HTTP control surface, for
// use by cmd/resumerank and by tests that want to exercise the API without
// assembling raw HTTP requests themselves.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a running pkg/api.Server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// File is one upload in a CreateBatch call.
type File struct {
	Filename string
	Bytes    []byte
}

// Batch mirrors the JSON the server returns for a batch snapshot.
type Batch struct {
	BatchID           string `json:"batch_id"`
	OwnerID           string `json:"owner_id"`
	Status            string `json:"status"`
	Total             int    `json:"total"`
	Completed         int    `json:"completed"`
	Failed            int    `json:"failed"`
	CancelledCount    int    `json:"cancelled_count"`
	SkippedDuplicates int    `json:"skipped_duplicates"`
}

// Item mirrors the JSON the server returns for an item snapshot.
type Item struct {
	ItemID       string `json:"item_id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	RetryCount   int    `json:"retry_count"`
	MaxRetries   int    `json:"max_retries"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// APIError is returned for any non-2xx response; Status lets callers map it
// to the spec.md §6 CLI exit codes without re-parsing the body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("resumerank api: %d: %s", e.Status, e.Message)
}

// ExitCode maps an APIError's HTTP status to the CLI exit codes spec.md §6
// defines for this control surface.
func (e *APIError) ExitCode() int {
	switch e.Status {
	case http.StatusForbidden:
		return 2
	case http.StatusNotFound:
		return 3
	case http.StatusConflict:
		return 4
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return 5
	default:
		return 1
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &APIError{Status: resp.StatusCode, Message: errBody.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateBatch implements create_batch.
func (c *Client) CreateBatch(ctx context.Context, ownerID, jobDescription, idempotencyKey string, files []File) (*Batch, error) {
	type fileUpload struct {
		Filename string `json:"filename"`
		Content  string `json:"content_base64"`
	}
	req := struct {
		OwnerID        string       `json:"owner_id"`
		JobDescription string       `json:"job_description"`
		IdempotencyKey string       `json:"idempotency_key,omitempty"`
		Files          []fileUpload `json:"files"`
	}{
		OwnerID:        ownerID,
		JobDescription: jobDescription,
		IdempotencyKey: idempotencyKey,
	}
	for _, f := range files {
		req.Files = append(req.Files, fileUpload{
			Filename: f.Filename,
			Content:  base64.StdEncoding.EncodeToString(f.Bytes),
		})
	}

	var out Batch
	if err := c.do(ctx, http.MethodPost, "/batches", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ControlBatch implements control_batch.
func (c *Client) ControlBatch(ctx context.Context, ownerID, batchID, action string) (*Batch, error) {
	req := struct {
		OwnerID string `json:"owner_id"`
		Action  string `json:"action"`
	}{OwnerID: ownerID, Action: action}

	var out Batch
	if err := c.do(ctx, http.MethodPost, "/batches/"+batchID+"/control", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBatch implements get_batch.
func (c *Client) GetBatch(ctx context.Context, ownerID, batchID string) (*Batch, error) {
	path := "/batches/" + batchID + "?" + url.Values{"owner_id": {ownerID}}.Encode()
	var out Batch
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListItems implements list_items. status may be empty to return every item.
func (c *Client) ListItems(ctx context.Context, ownerID, batchID, status string) ([]Item, error) {
	values := url.Values{"owner_id": {ownerID}}
	if status != "" {
		values.Set("status", status)
	}
	path := "/batches/" + batchID + "/items?" + values.Encode()
	var out []Item
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TeardownBatch implements teardown_batch.
func (c *Client) TeardownBatch(ctx context.Context, ownerID, batchID string) error {
	path := "/batches/" + batchID + "?" + url.Values{"owner_id": {ownerID}}.Encode()
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
