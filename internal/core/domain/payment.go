package domain

import (
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/shopspring/decimal"
)

// Payment is one disbursement against one statement, attributable to a batch.
type Payment struct {
	PaymentID       string          `json:"paymentID"`
	StatementID     string          `json:"statementID"`
	PaymentBatchID  string          `json:"paymentBatchID"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"paymentDate"`
	PaymentMethodID string          `json:"paymentMethodID"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	VoidedAt        *time.Time      `json:"voidedAt,omitempty"`
	VoidedBy        *string         `json:"voidedBy,omitempty"`
	VoidReason      *string         `json:"voidReason,omitempty"`
	AuditFields
}

// IsVoided reports whether the payment has been voided.
func (p *Payment) IsVoided() bool {
	return p.VoidedAt != nil
}

// StatementPayment is the join projection listing a payment slice against a
// statement and the batch that carries it.
type StatementPayment struct {
	PaymentID       string          `json:"paymentID"`
	StatementID     string          `json:"statementID"`
	PaymentBatchID  string          `json:"paymentBatchID"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"paymentDate"`
	PaymentMethodID string          `json:"paymentMethodID"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty"`
	Voided          bool            `json:"voided"`
}

// ValidatePaymentAmount rejects non-positive amounts and amounts finer than cents.
func ValidatePaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewValidationError("payment amount must be greater than zero, got %s", amount.String())
	}
	if !amount.Equal(amount.Round(2)) {
		return apperrors.NewValidationError("payment amount %s has more than two decimal places", amount.String())
	}
	return nil
}
