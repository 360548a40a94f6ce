package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementStatus mirrors the status column of the statements table.
type StatementStatus string

// Statement represents a row of the statements table.
type Statement struct {
	StatementID     string          `db:"statement_id"`
	PersonID        string          `db:"person_id"`
	PersonKind      string          `db:"person_kind"`
	PeriodFrom      time.Time       `db:"period_from"`
	PeriodTo        time.Time       `db:"period_to"`
	PreviousBalance decimal.Decimal `db:"previous_balance"`
	TotalRevenues   decimal.Decimal `db:"total_revenues"`
	TotalExpenses   decimal.Decimal `db:"total_expenses"`
	PaidAmount      decimal.Decimal `db:"paid_amount"`
	NetDue          decimal.Decimal `db:"net_due"`
	Status          StatementStatus `db:"status"`
	FinalizedAt     *time.Time      `db:"finalized_at"` // Nullable
	Version         int             `db:"version"`
	AuditFields
}

// StatementAuditLog represents a row of the append-only statement_audit_logs table.
type StatementAuditLog struct {
	AuditLogID  string    `db:"audit_log_id"`
	StatementID string    `db:"statement_id"`
	Action      string    `db:"action"`
	FromStatus  string    `db:"from_status"`
	ToStatus    string    `db:"to_status"`
	PerformedBy string    `db:"performed_by"`
	Timestamp   time.Time `db:"performed_at"`
	Details     *string   `db:"details"` // Nullable
}
