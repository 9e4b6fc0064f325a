// Package store implements the State Store Gateway: durable Batch/Item
// storage with the atomic-conditional-write and field-increment semantics
// the Claim Engine, Item State Machine, and Watchdog depend on.
package store
