package models

import "time"

// IndexAuditStatus tracks the lifecycle of an index audit job.
type IndexAuditStatus string

const (
	IndexAuditQueued   IndexAuditStatus = "QUEUED"
	IndexAuditRunning  IndexAuditStatus = "RUNNING"
	IndexAuditFinished IndexAuditStatus = "FINISHED"
	IndexAuditFailed   IndexAuditStatus = "FAILED"
)

// IndexAuditJob reports index entries whose blob no longer exists.
type IndexAuditJob struct {
	ID          string           `json:"id"`
	Tenant      string           `json:"tenant"`
	Prune       bool             `json:"prune"`
	Status      IndexAuditStatus `json:"status"`
	Checked     int              `json:"checked"`
	Missing     []string         `json:"missing"`
	Pruned      int              `json:"pruned"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
