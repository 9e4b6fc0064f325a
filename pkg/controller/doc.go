// Package controller implements the Batch Controller (spec.md §4.8): the
// only place outside a Worker Loop or the Watchdog that mutates a Batch or
// its Items, and
// the sole entry point transport adapters (pkg/api, a CLI) call into.
package controller
