package repositories

import (
	"context"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PaymentReader defines read operations for payment data
type PaymentReader interface {
	FindPaymentByID(ctx context.Context, paymentID string) (*domain.Payment, error)

	// ListPaymentsForStatement returns the statement's payment slices, newest first.
	ListPaymentsForStatement(ctx context.Context, statementID string) ([]domain.StatementPayment, error)

	// ListPaymentsForBatch returns the batch's payment slices, newest first.
	ListPaymentsForBatch(ctx context.Context, batchID string) ([]domain.StatementPayment, error)

	// SumActivePaymentsForStatement totals the non-voided payments against a statement.
	SumActivePaymentsForStatement(ctx context.Context, statementID string) (decimal.Decimal, error)

	CountActivePaymentsForStatement(ctx context.Context, statementID string) (int, error)

	// ListActiveStatementIDsForBatch returns the distinct statements paid by the batch's
	// non-voided payments, in ascending order.
	ListActiveStatementIDsForBatch(ctx context.Context, batchID string) ([]string, error)
}

// PaymentWriter defines write operations for payment data
type PaymentWriter interface {
	// SavePayment inserts the payment and its statement_payments projection row.
	SavePayment(ctx context.Context, payment domain.Payment) error

	// UpdatePayment writes amount, reference, notes and void columns.
	UpdatePayment(ctx context.Context, payment domain.Payment) error
}

// PaymentRepositoryFacade combines all payment-related repository interfaces
type PaymentRepositoryFacade interface {
	PaymentReader
	PaymentWriter
}
