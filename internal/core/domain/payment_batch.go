package domain

import "time"

// BatchStatus is the lifecycle state of a payment batch.
type BatchStatus string

const (
	BatchDraft     BatchStatus = "DRAFT"
	BatchPosted    BatchStatus = "POSTED"
	BatchCompleted BatchStatus = "COMPLETED"
)

// IsValid reports whether s is one of the enumerated batch statuses.
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchDraft, BatchPosted, BatchCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a move from s to next is allowed. COMPLETED is terminal.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	return (s == BatchDraft && next == BatchPosted) || (s == BatchPosted && next == BatchCompleted)
}

// HoldsStatements reports whether the batch has claimed its statements.
// A statement may belong to at most one such batch.
func (s BatchStatus) HoldsStatements() bool {
	return s == BatchPosted || s == BatchCompleted
}

// PaymentBatch groups payments disbursed together in one bank run.
type PaymentBatch struct {
	BatchID      string      `json:"batchID"`
	BatchDate    time.Time   `json:"batchDate"`
	PeriodFrom   time.Time   `json:"periodFrom"`
	PeriodTo     time.Time   `json:"periodTo"`
	Status       BatchStatus `json:"status"`
	StatementIDs []string    `json:"statementIDs"` // snapshotted at post
	Notes        *string     `json:"notes,omitempty"`
	PostedAt     *time.Time  `json:"postedAt,omitempty"`
	PostedBy     *string     `json:"postedBy,omitempty"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
	CompletedBy  *string     `json:"completedBy,omitempty"`
	AuditFields
}
