package services

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// StatementTotalsAggregator supplies the revenue and expense totals of a person for a period.
// It is owned by the wider application.
type StatementTotalsAggregator interface {
	ComputeStatementTotals(ctx context.Context, personID string, periodFrom, periodTo time.Time) (totalRevenues decimal.Decimal, totalExpenses decimal.Decimal, err error)
}

// PaymentMethodResolver looks up a payment method for validation.
type PaymentMethodResolver interface {
	ResolvePaymentMethod(ctx context.Context, paymentMethodID string) (*domain.PaymentMethod, error)
}
