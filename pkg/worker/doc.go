// Package worker implements the Worker Loop (spec.md §4.7): the
// claim-analyze-commit cycle that drains a single batch's pending items,
// one Worker per actively-running batch. pkg/supervisor owns the mapping
// from batch to Worker and the goroutine lifecycle around it.
package worker
