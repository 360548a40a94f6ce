package domain

import "time"

// AuditAction names the kind of change recorded against a statement.
type AuditAction string

const (
	AuditFinalize       AuditAction = "FINALIZE"
	AuditUpdateTotals   AuditAction = "UPDATE_TOTALS"
	AuditRecalculate    AuditAction = "RECALCULATE"
	AuditPost           AuditAction = "POST"
	AuditLock           AuditAction = "LOCK"
	AuditPay            AuditAction = "PAY"
	AuditRecall         AuditAction = "RECALL"
	AuditPaymentAdded   AuditAction = "PAYMENT_ADDED"
	AuditPaymentUpdated AuditAction = "PAYMENT_UPDATED"
	AuditPaymentVoided  AuditAction = "PAYMENT_VOIDED"
	AuditBatchPosted    AuditAction = "BATCH_POSTED"
	AuditBatchCompleted AuditAction = "BATCH_COMPLETED"
)

// StatementAuditLog is an immutable record of one change to a statement.
type StatementAuditLog struct {
	AuditLogID  string          `json:"auditLogID"`
	StatementID string          `json:"statementID"`
	Action      AuditAction     `json:"action"`
	FromStatus  StatementStatus `json:"fromStatus"`
	ToStatus    StatementStatus `json:"toStatus"`
	PerformedBy string          `json:"performedBy"`
	Timestamp   time.Time       `json:"timestamp"`
	Details     *string         `json:"details,omitempty"`
}
