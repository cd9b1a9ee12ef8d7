package models

import "time"

// Sync run trigger kinds.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerRead      = "read"
)

// Sync run statuses.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// SyncLog is one audit row per synchronization run.
type SyncLog struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	WindowStart time.Time  `json:"windowStart"`
	WindowEnd   time.Time  `json:"windowEnd"`
	Found       int        `json:"found"`
	Saved       int        `json:"saved"`
	Errors      int        `json:"errors"`
	Status      string     `json:"status"`
	ErrorDetail string     `json:"errorDetail,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	DurationMs  int64      `json:"durationMs"`
}
