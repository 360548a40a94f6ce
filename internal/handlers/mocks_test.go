package handlers_test

import (
	"context"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/stretchr/testify/mock"
)

// --- Mock StatementService ---
type MockStatementService struct {
	mock.Mock
}

func (m *MockStatementService) statementResult(args mock.Arguments) (*domain.Statement, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statement), args.Error(1)
}

func (m *MockStatementService) GenerateDraft(ctx context.Context, req dto.GenerateStatementRequest) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, req))
}
func (m *MockStatementService) GetStatement(ctx context.Context, statementID string) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, statementID))
}
func (m *MockStatementService) ListStatementsForPerson(ctx context.Context, personID string, params dto.ListPersonStatementsParams) (*dto.ListStatementsResponse, error) {
	args := m.Called(ctx, personID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListStatementsResponse), args.Error(1)
}
func (m *MockStatementService) ListStatementsForPeriod(ctx context.Context, params dto.ListPeriodStatementsParams) (*dto.ListStatementsResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListStatementsResponse), args.Error(1)
}
func (m *MockStatementService) FinalizeStatement(ctx context.Context, req dto.FinalizeStatementRequest, actorID string) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, req, actorID))
}
func (m *MockStatementService) UpdateStatementTotals(ctx context.Context, statementID string, req dto.UpdateStatementTotalsRequest, actorID string) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, statementID, req, actorID))
}
func (m *MockStatementService) RecalculateStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, statementID, actorID))
}
func (m *MockStatementService) PostStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, statementID, actorID))
}
func (m *MockStatementService) LockStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, statementID, actorID))
}
func (m *MockStatementService) RecallStatement(ctx context.Context, statementID string, reason string, actorID string) (*domain.Statement, error) {
	return m.statementResult(m.Called(ctx, statementID, reason, actorID))
}

var _ portssvc.StatementSvcFacade = (*MockStatementService)(nil)

// --- Mock PaymentLedgerService ---
type MockPaymentLedgerService struct {
	mock.Mock
}

func (m *MockPaymentLedgerService) paymentResult(args mock.Arguments) (*domain.Payment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentLedgerService) AddPayment(ctx context.Context, batchID string, req dto.AddPaymentRequest, actorID string) (*domain.Payment, error) {
	return m.paymentResult(m.Called(ctx, batchID, req, actorID))
}
func (m *MockPaymentLedgerService) UpdatePayment(ctx context.Context, batchID, paymentID string, req dto.UpdatePaymentRequest, actorID string) (*domain.Payment, error) {
	return m.paymentResult(m.Called(ctx, batchID, paymentID, req, actorID))
}
func (m *MockPaymentLedgerService) VoidPayment(ctx context.Context, batchID, paymentID, reason string, actorID string) (*domain.Payment, error) {
	return m.paymentResult(m.Called(ctx, batchID, paymentID, reason, actorID))
}
func (m *MockPaymentLedgerService) ListPaymentsForStatement(ctx context.Context, statementID string) ([]domain.StatementPayment, error) {
	args := m.Called(ctx, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatementPayment), args.Error(1)
}
func (m *MockPaymentLedgerService) ListPaymentsForBatch(ctx context.Context, batchID string) ([]domain.StatementPayment, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatementPayment), args.Error(1)
}

var _ portssvc.PaymentLedgerSvcFacade = (*MockPaymentLedgerService)(nil)

// --- Mock PaymentBatchService ---
type MockPaymentBatchService struct {
	mock.Mock
}

func (m *MockPaymentBatchService) batchResult(args mock.Arguments) (*domain.PaymentBatch, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentBatch), args.Error(1)
}

func (m *MockPaymentBatchService) GetBatch(ctx context.Context, batchID string) (*domain.PaymentBatch, error) {
	return m.batchResult(m.Called(ctx, batchID))
}
func (m *MockPaymentBatchService) ListBatches(ctx context.Context, params dto.ListBatchesParams) (*dto.ListBatchesResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListBatchesResponse), args.Error(1)
}
func (m *MockPaymentBatchService) ExportBatchRemittance(ctx context.Context, batchID string) ([]byte, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
func (m *MockPaymentBatchService) CreateBatch(ctx context.Context, req dto.CreateBatchRequest, actorID string) (*domain.PaymentBatch, error) {
	return m.batchResult(m.Called(ctx, req, actorID))
}
func (m *MockPaymentBatchService) PostBatch(ctx context.Context, batchID string, actorID string) (*domain.PaymentBatch, error) {
	return m.batchResult(m.Called(ctx, batchID, actorID))
}
func (m *MockPaymentBatchService) CompleteBatch(ctx context.Context, batchID string, actorID string) (*domain.PaymentBatch, error) {
	return m.batchResult(m.Called(ctx, batchID, actorID))
}

var _ portssvc.PaymentBatchSvcFacade = (*MockPaymentBatchService)(nil)

// --- Mock AuditTrailService ---
type MockAuditTrailService struct {
	mock.Mock
}

func (m *MockAuditTrailService) Record(ctx context.Context, entry domain.StatementAuditLog) error {
	return m.Called(ctx, entry).Error(0)
}
func (m *MockAuditTrailService) History(ctx context.Context, statementID string) ([]domain.StatementAuditLog, error) {
	args := m.Called(ctx, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatementAuditLog), args.Error(1)
}

var _ portssvc.AuditTrailSvc = (*MockAuditTrailService)(nil)
