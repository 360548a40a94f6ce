package services

import (
	"context"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
)

// PaymentLedgerSvcFacade records payments and keeps statement totals in step.
type PaymentLedgerSvcFacade interface {
	AddPayment(ctx context.Context, batchID string, req dto.AddPaymentRequest, actorID string) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, batchID, paymentID string, req dto.UpdatePaymentRequest, actorID string) (*domain.Payment, error)
	VoidPayment(ctx context.Context, batchID, paymentID, reason string, actorID string) (*domain.Payment, error)

	ListPaymentsForStatement(ctx context.Context, statementID string) ([]domain.StatementPayment, error)
	ListPaymentsForBatch(ctx context.Context, batchID string) ([]domain.StatementPayment, error)
}

// PaymentBatchReaderSvc defines read operations for batches
type PaymentBatchReaderSvc interface {
	GetBatch(ctx context.Context, batchID string) (*domain.PaymentBatch, error)
	ListBatches(ctx context.Context, params dto.ListBatchesParams) (*dto.ListBatchesResponse, error)

	// ExportBatchRemittance renders the batch's payments as an XLSX workbook.
	ExportBatchRemittance(ctx context.Context, batchID string) ([]byte, error)
}

// PaymentBatchWriterSvc defines batch lifecycle operations
type PaymentBatchWriterSvc interface {
	CreateBatch(ctx context.Context, req dto.CreateBatchRequest, actorID string) (*domain.PaymentBatch, error)
	PostBatch(ctx context.Context, batchID string, actorID string) (*domain.PaymentBatch, error)
	CompleteBatch(ctx context.Context, batchID string, actorID string) (*domain.PaymentBatch, error)
}

// PaymentBatchSvcFacade combines all batch-related service interfaces
type PaymentBatchSvcFacade interface {
	PaymentBatchReaderSvc
	PaymentBatchWriterSvc
}
