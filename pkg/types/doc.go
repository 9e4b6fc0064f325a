// Package types defines the domain model shared by every other package:
// Batch and Item, their lifecycle statuses (the Batch and Item State
// Machines spec.md §3 and §4.3 define), the item error-code enum, and the
// control_batch action enum.
package types
