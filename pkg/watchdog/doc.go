// Package watchdog implements the Watchdog (spec.md §4.10): a periodic
// sweep that reclaims items whose worker lease has expired without a
// terminal transition, recovering from a crashed or stalled worker.
package watchdog
