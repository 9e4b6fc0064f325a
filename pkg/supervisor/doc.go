// Package supervisor keeps exactly one Worker Loop goroutine running for
// every batch in status running, relaunching one if its process-local
// goroutine has died — the reconciliation-to-desired-state pattern applied
// to worker loops instead of container replicas.
package supervisor
