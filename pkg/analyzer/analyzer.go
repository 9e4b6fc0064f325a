// Package analyzer implements the Analyzer Adapter: the boundary between
// the engine and whatever opaque scoring call actually evaluates a resume
// against a job description. spec.md deliberately treats the analyzer as a
// black box (Non-goals: "LLM prompt/schema design"); this package only
// owns the call's retry classification, not its content.
package analyzer

import (
	"context"
	"io"
)

// Classification is the analyzer's verdict on a failed call, per spec.md
// §4.4: transient failures are worth retrying, permanent ones are not.
type Classification int

const (
	// Success means the call returned a usable result.
	Success Classification = iota
	// Transient means the failure is expected to clear on its own
	// (rate limiting, upstream unavailability) and the item should be
	// retried, budget permitting.
	Transient
	// Permanent means retrying would not help (malformed input, a
	// response the analyzer itself rejected) and the item should fail.
	Permanent
)

// FileRef is the document an item refers to, opened lazily so the adapter
// can stream it rather than require the whole file in memory.
type FileRef struct {
	Filename string
	Open     func(ctx context.Context) (io.ReadCloser, error)
}

// Adapter is the Analyzer Adapter interface (spec.md §4.4, §6). A call
// either returns a result and Success, or returns an error together with a
// Classification telling the caller whether to retry.
type Adapter interface {
	Analyze(ctx context.Context, file FileRef, jobDescription string) (result []byte, class Classification, err error)
}
