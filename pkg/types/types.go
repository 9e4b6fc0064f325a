package types

import "time"

// Batch represents a single submitted collection of resume documents to be
// scored against one job description.
type Batch struct {
	ID             string
	OwnerID        string
	JobDescription string
	IdempotencyKey string
	Status         BatchStatus
	Total          int
	Completed      int
	Failed         int
	CancelledCount int
	SkippedDupes   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BatchStatus is the batch-level lifecycle state.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusPaused    BatchStatus = "paused"
	BatchStatusComplete  BatchStatus = "complete"
	BatchStatusCancelled BatchStatus = "cancelled"
)

// Done reports whether the batch has reached an absorbing terminal status.
func (s BatchStatus) Done() bool {
	return s == BatchStatusComplete || s == BatchStatusCancelled
}

// Item represents one resume document within a Batch.
type Item struct {
	ID             string
	BatchID        string
	Filename       string
	ObjectKey      string
	FileHash       string
	Status         ItemStatus
	WorkerID       string
	LeaseExpiresAt time.Time
	StartTime      time.Time
	RetryCount     int
	MaxRetries     int
	Result         []byte // opaque analyzer output, stored verbatim
	ErrorCode      ItemErrorCode
	ErrorMessage   string
	CreatedAt      time.Time
	LastUpdatedAt  time.Time
}

// ItemStatus is the per-item lifecycle state (the Item State Machine).
type ItemStatus string

const (
	ItemStatusPending     ItemStatus = "pending"
	ItemStatusRunning     ItemStatus = "running"
	ItemStatusComplete    ItemStatus = "complete"
	ItemStatusFailed      ItemStatus = "failed"
	ItemStatusPendingDupe ItemStatus = "duplicate" // suppressed intra-batch duplicate, never claimed
	ItemStatusCancelled   ItemStatus = "cancelled"
)

// Terminal reports whether the status is absorbing: no further transition
// out of it is ever legal.
func (s ItemStatus) Terminal() bool {
	switch s {
	case ItemStatusComplete, ItemStatusFailed, ItemStatusPendingDupe, ItemStatusCancelled:
		return true
	default:
		return false
	}
}

// ItemErrorCode closes the set of failure reasons an item can carry.
type ItemErrorCode string

const (
	ItemErrorNone                   ItemErrorCode = ""
	ItemErrorAnalyzerTransient      ItemErrorCode = "analyzer_transient"
	ItemErrorAnalyzerPermanent      ItemErrorCode = "analyzer_permanent"
	ItemErrorLeaseTimeout           ItemErrorCode = "lease_timeout"
	ItemErrorObjectStoreUnavailable ItemErrorCode = "object_store_unavailable"
)

// BatchControlAction is the verb accepted by control_batch (spec.md §4.8/§6).
type BatchControlAction string

const (
	BatchActionPause  BatchControlAction = "pause"
	BatchActionResume BatchControlAction = "resume"
	BatchActionCancel BatchControlAction = "cancel"
)
