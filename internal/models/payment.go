package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentBatch represents a row of the payment_batches table.
type PaymentBatch struct {
	BatchID     string     `db:"batch_id"`
	BatchDate   time.Time  `db:"batch_date"`
	PeriodFrom  time.Time  `db:"period_from"`
	PeriodTo    time.Time  `db:"period_to"`
	Status      string     `db:"status"`
	Notes       *string    `db:"notes"`
	PostedAt    *time.Time `db:"posted_at"`
	PostedBy    *string    `db:"posted_by"`
	CompletedAt *time.Time `db:"completed_at"`
	CompletedBy *string    `db:"completed_by"`
	AuditFields
}

// Payment represents a row of the payments table.
type Payment struct {
	PaymentID       string          `db:"payment_id"`
	StatementID     string          `db:"statement_id"`
	PaymentBatchID  string          `db:"payment_batch_id"`
	Amount          decimal.Decimal `db:"amount"`
	PaymentDate     time.Time       `db:"payment_date"`
	PaymentMethodID string          `db:"payment_method_id"`
	ReferenceNumber *string         `db:"reference_number"`
	Notes           *string         `db:"notes"`
	VoidedAt        *time.Time      `db:"voided_at"`
	VoidedBy        *string         `db:"voided_by"`
	VoidReason      *string         `db:"void_reason"`
	AuditFields
}

// StatementPayment is the statement_payments join row plus the payment columns listings need.
type StatementPayment struct {
	PaymentID       string          `db:"payment_id"`
	StatementID     string          `db:"statement_id"`
	PaymentBatchID  string          `db:"payment_batch_id"`
	Amount          decimal.Decimal `db:"amount"`
	PaymentDate     time.Time       `db:"payment_date"`
	PaymentMethodID string          `db:"payment_method_id"`
	ReferenceNumber *string         `db:"reference_number"`
	VoidedAt        *time.Time      `db:"voided_at"`
}

// PaymentMethod represents a row of the payment_methods lookup table.
type PaymentMethod struct {
	PaymentMethodID string `db:"payment_method_id"`
	Name            string `db:"name"`
	IsActive        bool   `db:"is_active"`
}
