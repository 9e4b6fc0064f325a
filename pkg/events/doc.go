// Package events implements the operator channel spec.md §7 describes: a
// buffered in-memory pub/sub broker that broadcasts batch and item
// lifecycle events (created, paused, resumed, cancelled, complete, lease
// reclaimed) to in-process subscribers such as an operator-facing log
// sink. Publish waits while the broker's queue is full; a subscriber whose
// own buffer is full misses the event. An invariant-violation event type
// is defined but nothing publishes it. It never reaches an external client.
package events
