package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/SscSPs/fleet_settlement_app/internal/observability"
	"github.com/google/uuid"
)

type paymentLedgerService struct {
	BaseService
	statementRepo portsrepo.StatementRepositoryFacade
	batchRepo     portsrepo.PaymentBatchRepositoryFacade
	paymentRepo   portsrepo.PaymentRepositoryFacade
	txManager     portsrepo.TransactionManager
	methods       portssvc.PaymentMethodResolver
	store         statementStore
}

// PaymentLedgerOption is a functional option for configuring the payment ledger
type PaymentLedgerOption func(*paymentLedgerService)

// WithLedgerMetrics adds payment counters.
func WithLedgerMetrics(m *observability.Metrics) PaymentLedgerOption {
	return func(s *paymentLedgerService) {
		s.Metrics = m
	}
}

// WithLedgerClock overrides the time source.
func WithLedgerClock(clock func() time.Time) PaymentLedgerOption {
	return func(s *paymentLedgerService) {
		s.Clock = clock
	}
}

// NewPaymentLedgerService creates the service that records payments against statements.
func NewPaymentLedgerService(
	repos portsrepo.RepositoryProvider,
	methods portssvc.PaymentMethodResolver,
	audit portssvc.AuditTrailSvc,
	options ...PaymentLedgerOption,
) portssvc.PaymentLedgerSvcFacade {
	svc := &paymentLedgerService{
		statementRepo: repos.StatementRepo,
		batchRepo:     repos.PaymentBatchRepo,
		paymentRepo:   repos.PaymentRepo,
		txManager:     repos.TxManager,
		methods:       methods,
		store:         statementStore{repo: repos.StatementRepo, audit: audit},
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PaymentLedgerSvcFacade = (*paymentLedgerService)(nil)

func (s *paymentLedgerService) validateMethod(ctx context.Context, paymentMethodID string) error {
	method, err := s.methods.ResolvePaymentMethod(ctx, paymentMethodID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationError("unknown payment method %s", paymentMethodID)
		}
		return fmt.Errorf("resolve payment method: %w", err)
	}
	if !method.IsActive {
		return apperrors.NewValidationError("payment method %s is inactive", paymentMethodID)
	}
	return nil
}

// lockDraftBatch locks the batch row and requires it to still accept payment edits.
func (s *paymentLedgerService) lockDraftBatch(ctx context.Context, batchID, operation string) (*domain.PaymentBatch, error) {
	batch, err := s.batchRepo.FindBatchByIDForUpdate(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status != domain.BatchDraft {
		return nil, apperrors.NewStateGuardError("payment batch", batchID, string(batch.Status), operation, "payments are editable only while the batch is DRAFT")
	}
	return batch, nil
}

// checkPayable enforces the statement-side guards for a payment change.
func (s *paymentLedgerService) checkPayable(ctx context.Context, stmt *domain.Statement, batchID, operation string) error {
	if stmt.Status == domain.StatementPaid {
		return apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), operation, "statement is already PAID")
	}
	if stmt.Status == domain.StatementLocked && stmt.IsFullyPaid() {
		return apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), operation, "statement is LOCKED and fully paid")
	}

	batches, err := s.batchRepo.FindBatchesReferencingStatement(ctx, stmt.StatementID)
	if err != nil {
		return err
	}
	for _, b := range batches {
		if b.BatchID != batchID && b.Status.HoldsStatements() {
			return apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), operation,
				fmt.Sprintf("statement belongs to %s payment batch %s", b.Status, b.BatchID))
		}
	}
	return nil
}

// settle recomputes the paid amount from non-voided payments and advances a
// DRAFT statement to POSTED on its first payment.
func (s *paymentLedgerService) settle(ctx context.Context, stmt *domain.Statement, action domain.AuditAction, actorID string, details *string) error {
	paid, err := s.paymentRepo.SumActivePaymentsForStatement(ctx, stmt.StatementID)
	if err != nil {
		return err
	}
	from := stmt.Status
	stmt.PaidAmount = paid
	if from == domain.StatementDraft && paid.IsPositive() {
		stmt.Status = domain.StatementPosted
	}
	return s.store.apply(ctx, stmt, statementChange{
		from:    from,
		action:  action,
		actorID: actorID,
		at:      s.Now(),
		details: details,
	})
}

func (s *paymentLedgerService) AddPayment(ctx context.Context, batchID string, req dto.AddPaymentRequest, actorID string) (*domain.Payment, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}
	if err := domain.ValidatePaymentAmount(req.Amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.StatementID) == "" || strings.TrimSpace(req.PaymentMethodID) == "" {
		return nil, apperrors.NewValidationError("statementID and paymentMethodID are required")
	}
	if req.PaymentDate.IsZero() {
		return nil, apperrors.NewValidationError("paymentDate is required")
	}
	if err := s.validateMethod(ctx, req.PaymentMethodID); err != nil {
		return nil, err
	}

	var payment domain.Payment
	var stmtStatus domain.StatementStatus
	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockDraftBatch(ctx, batchID, "add payment"); err != nil {
			return err
		}
		stmt, err := s.statementRepo.FindStatementByIDForUpdate(ctx, req.StatementID)
		if err != nil {
			return err
		}
		if err := s.checkPayable(ctx, stmt, batchID, "add payment"); err != nil {
			return err
		}

		now := s.Now()
		payment = domain.Payment{
			PaymentID:       uuid.NewString(),
			StatementID:     stmt.StatementID,
			PaymentBatchID:  batchID,
			Amount:          req.Amount,
			PaymentDate:     domain.DateOf(req.PaymentDate.Time),
			PaymentMethodID: req.PaymentMethodID,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			AuditFields:     domain.NewAuditFields(actorID, now),
		}
		if err := s.paymentRepo.SavePayment(ctx, payment); err != nil {
			return err
		}
		details := fmt.Sprintf("payment %s of %s in batch %s", payment.PaymentID, payment.Amount.StringFixed(2), batchID)
		if err := s.settle(ctx, stmt, domain.AuditPaymentAdded, actorID, &details); err != nil {
			return err
		}
		stmtStatus = stmt.Status
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to add payment",
			slog.String("batch_id", batchID),
			slog.String("statement_id", req.StatementID))
		return nil, err
	}

	s.Metrics.PaymentOperation("add")
	s.LogInfo(ctx, "Payment added",
		slog.String("payment_id", payment.PaymentID),
		slog.String("batch_id", batchID),
		slog.String("statement_id", payment.StatementID),
		slog.String("statement_status", string(stmtStatus)))
	return &payment, nil
}

// editPayment loads a payment of the batch, locks what it touches and hands it to fn.
func (s *paymentLedgerService) editPayment(ctx context.Context, batchID, paymentID, actorID, operation string, action domain.AuditAction, fn func(p *domain.Payment, now time.Time) string) (*domain.Payment, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}

	var payment *domain.Payment
	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.lockDraftBatch(ctx, batchID, operation); err != nil {
			return err
		}
		var err error
		payment, err = s.paymentRepo.FindPaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.PaymentBatchID != batchID {
			return apperrors.NewNotFoundError(fmt.Sprintf("payment %s in batch %s", paymentID, batchID))
		}
		if payment.IsVoided() {
			return apperrors.NewStateGuardError("payment", paymentID, "VOIDED", operation, "payment is voided")
		}

		stmt, err := s.statementRepo.FindStatementByIDForUpdate(ctx, payment.StatementID)
		if err != nil {
			return err
		}
		if stmt.Status == domain.StatementPaid {
			return apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), operation, "statement is already PAID")
		}

		now := s.Now()
		details := fn(payment, now)
		payment.Touch(actorID, now)
		if err := s.paymentRepo.UpdatePayment(ctx, *payment); err != nil {
			return err
		}
		return s.settle(ctx, stmt, action, actorID, &details)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to change payment",
			slog.String("batch_id", batchID),
			slog.String("payment_id", paymentID),
			slog.String("operation", operation))
		return nil, err
	}
	return payment, nil
}

func (s *paymentLedgerService) UpdatePayment(ctx context.Context, batchID, paymentID string, req dto.UpdatePaymentRequest, actorID string) (*domain.Payment, error) {
	if req.Amount == nil && req.ReferenceNumber == nil && req.Notes == nil {
		return nil, apperrors.NewValidationError("at least one of amount, referenceNumber, notes is required")
	}
	if req.Amount != nil {
		if err := domain.ValidatePaymentAmount(*req.Amount); err != nil {
			return nil, err
		}
	}

	payment, err := s.editPayment(ctx, batchID, paymentID, actorID, "update payment", domain.AuditPaymentUpdated, func(p *domain.Payment, _ time.Time) string {
		details := fmt.Sprintf("payment %s updated", p.PaymentID)
		if req.Amount != nil {
			details = fmt.Sprintf("payment %s amount %s -> %s", p.PaymentID, p.Amount.StringFixed(2), req.Amount.StringFixed(2))
			p.Amount = *req.Amount
		}
		if req.ReferenceNumber != nil {
			p.ReferenceNumber = req.ReferenceNumber
		}
		if req.Notes != nil {
			p.Notes = req.Notes
		}
		return details
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.PaymentOperation("update")
	s.LogInfo(ctx, "Payment updated", slog.String("payment_id", paymentID), slog.String("batch_id", batchID))
	return payment, nil
}

func (s *paymentLedgerService) VoidPayment(ctx context.Context, batchID, paymentID, reason string, actorID string) (*domain.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("void reason is required")
	}

	payment, err := s.editPayment(ctx, batchID, paymentID, actorID, "void payment", domain.AuditPaymentVoided, func(p *domain.Payment, now time.Time) string {
		voidedAt := now
		p.VoidedAt = &voidedAt
		p.VoidedBy = stringPtr(actorID)
		p.VoidReason = stringPtr(reason)
		return fmt.Sprintf("payment %s of %s voided: %s", p.PaymentID, p.Amount.StringFixed(2), reason)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.PaymentOperation("void")
	s.LogInfo(ctx, "Payment voided", slog.String("payment_id", paymentID), slog.String("batch_id", batchID))
	return payment, nil
}

func (s *paymentLedgerService) ListPaymentsForStatement(ctx context.Context, statementID string) ([]domain.StatementPayment, error) {
	if _, err := s.statementRepo.FindStatementByID(ctx, statementID); err != nil {
		return nil, err
	}
	rows, err := s.paymentRepo.ListPaymentsForStatement(ctx, statementID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list statement payments", slog.String("statement_id", statementID))
		return nil, err
	}
	return rows, nil
}

func (s *paymentLedgerService) ListPaymentsForBatch(ctx context.Context, batchID string) ([]domain.StatementPayment, error) {
	if _, err := s.batchRepo.FindBatchByID(ctx, batchID); err != nil {
		return nil, err
	}
	rows, err := s.paymentRepo.ListPaymentsForBatch(ctx, batchID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list batch payments", slog.String("batch_id", batchID))
		return nil, err
	}
	return rows, nil
}
