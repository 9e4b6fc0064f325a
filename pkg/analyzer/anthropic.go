package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter is the concrete Analyzer Adapter binding: it asks a
// Claude model to score one resume document against a job description and
// returns its response verbatim as the item's opaque result.
type AnthropicAdapter struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicAdapter builds an adapter against the given API key and
// model. Prompt construction and response-schema validation are outside
// this repository's scope (spec.md Non-goals); this adapter only forwards
// the document and classifies failures.
func NewAnthropicAdapter(apiKey string, model anthropic.Model) *AnthropicAdapter {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicAdapter{client: &client, model: model}
}

func (a *AnthropicAdapter) Analyze(ctx context.Context, file FileRef, jobDescription string) ([]byte, Classification, error) {
	rc, err := file.Open(ctx)
	if err != nil {
		return nil, Transient, fmt.Errorf("open file %s: %w", file.Filename, err)
	}
	defer rc.Close()

	contents, err := io.ReadAll(rc)
	if err != nil {
		return nil, Transient, fmt.Errorf("read file %s: %w", file.Filename, err)
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(jobDescription),
				anthropic.NewTextBlock(string(contents)),
			),
		},
	})
	if err != nil {
		return nil, classifyError(err), fmt.Errorf("analyze %s: %w", file.Filename, err)
	}

	if len(msg.Content) == 0 {
		return nil, Permanent, fmt.Errorf("analyze %s: empty response", file.Filename)
	}
	return []byte(msg.Content[0].Text), Success, nil
}

// classifyError maps the SDK's error surface to the Transient/Permanent
// split spec.md §4.4 requires: 429 and 5xx are retryable, everything else
// (bad request, auth, not found) is not.
func classifyError(err error) Classification {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return Transient
		}
		return Permanent
	}
	// Network-level errors (dial failure, timeout) with no status code
	// are assumed transient — the upstream is unreachable, not rejecting.
	return Transient
}
