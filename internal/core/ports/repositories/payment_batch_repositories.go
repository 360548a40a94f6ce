package repositories

import (
	"context"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
)

// PaymentBatchReader defines read operations for payment batch data
type PaymentBatchReader interface {
	// FindBatchByID retrieves a batch with its statement set.
	FindBatchByID(ctx context.Context, batchID string) (*domain.PaymentBatch, error)

	// ListBatches retrieves a paginated list of batches, optionally filtered by status.
	ListBatches(ctx context.Context, status *domain.BatchStatus, limit int, nextToken *string) ([]domain.PaymentBatch, *string, error)

	// FindBatchesReferencingStatement lists every batch that carries an active payment
	// against the statement or has it in its posted statement set.
	FindBatchesReferencingStatement(ctx context.Context, statementID string) ([]domain.PaymentBatch, error)
}

// PaymentBatchWriter defines write operations for payment batch data
type PaymentBatchWriter interface {
	SaveBatch(ctx context.Context, batch domain.PaymentBatch) error

	// UpdateBatch writes status, posting/completion stamps and audit columns.
	UpdateBatch(ctx context.Context, batch domain.PaymentBatch) error

	// SaveBatchStatements freezes the batch's statement set.
	SaveBatchStatements(ctx context.Context, batchID string, statementIDs []string) error

	FindBatchByIDForUpdate(ctx context.Context, batchID string) (*domain.PaymentBatch, error)
}

// PaymentBatchRepositoryFacade combines all batch-related repository interfaces
type PaymentBatchRepositoryFacade interface {
	PaymentBatchReader
	PaymentBatchWriter
}
