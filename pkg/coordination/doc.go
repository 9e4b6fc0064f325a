// Package coordination provides optional leader election across multiple
// resumerank processes sharing one Postgres-backed State Store, so only one
// process runs the Supervisor at a time; the Watchdog is not gated and runs
// in every process. It is not required for correctness — the Claim Engine's conditional writes make concurrent
// supervisors and watchdogs safe, merely redundant — so a single-process
// deployment can skip it entirely. See SPEC_FULL.md §2.7.
package coordination
