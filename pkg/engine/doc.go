// Package engine holds the orchestration logic spec.md treats as the
// system's core: backoff scheduling and completion recomputation shared by
// the Worker Loop, Batch Controller, and Watchdog. The Item State Machine's
// transition rules themselves live in the Store implementations as
// conditional writes (spec.md §4.3); this package is what decides when to
// call them and what to do with the result.
package engine
