package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/SscSPs/fleet_settlement_app/internal/export"
	"github.com/SscSPs/fleet_settlement_app/internal/observability"
	"github.com/google/uuid"
)

type paymentBatchService struct {
	BaseService
	statementRepo portsrepo.StatementRepositoryFacade
	batchRepo     portsrepo.PaymentBatchRepositoryFacade
	paymentRepo   portsrepo.PaymentReader
	txManager     portsrepo.TransactionManager
	store         statementStore
}

// PaymentBatchOption is a functional option for configuring the batch manager
type PaymentBatchOption func(*paymentBatchService)

// WithBatchMetrics adds batch and statement transition counters.
func WithBatchMetrics(m *observability.Metrics) PaymentBatchOption {
	return func(s *paymentBatchService) {
		s.Metrics = m
	}
}

// WithBatchClock overrides the time source.
func WithBatchClock(clock func() time.Time) PaymentBatchOption {
	return func(s *paymentBatchService) {
		s.Clock = clock
	}
}

// NewPaymentBatchService creates the batch manager.
func NewPaymentBatchService(repos portsrepo.RepositoryProvider, audit portssvc.AuditTrailSvc, options ...PaymentBatchOption) portssvc.PaymentBatchSvcFacade {
	svc := &paymentBatchService{
		statementRepo: repos.StatementRepo,
		batchRepo:     repos.PaymentBatchRepo,
		paymentRepo:   repos.PaymentRepo,
		txManager:     repos.TxManager,
		store:         statementStore{repo: repos.StatementRepo, audit: audit},
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PaymentBatchSvcFacade = (*paymentBatchService)(nil)

func (s *paymentBatchService) CreateBatch(ctx context.Context, req dto.CreateBatchRequest, actorID string) (*domain.PaymentBatch, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}
	if req.BatchDate.IsZero() || req.PeriodFrom.IsZero() || req.PeriodTo.IsZero() {
		return nil, apperrors.NewValidationError("batchDate, periodFrom and periodTo are required")
	}
	from, to := domain.DateOf(req.PeriodFrom.Time), domain.DateOf(req.PeriodTo.Time)
	if from.After(to) {
		return nil, apperrors.NewValidationError("periodFrom %s is after periodTo %s", from.Format(dto.DateLayout), to.Format(dto.DateLayout))
	}

	now := s.Now()
	batch := domain.PaymentBatch{
		BatchID:      uuid.NewString(),
		BatchDate:    domain.DateOf(req.BatchDate.Time),
		PeriodFrom:   from,
		PeriodTo:     to,
		Status:       domain.BatchDraft,
		StatementIDs: []string{},
		Notes:        req.Notes,
		AuditFields:  domain.NewAuditFields(actorID, now),
	}
	if err := s.batchRepo.SaveBatch(ctx, batch); err != nil {
		s.LogError(ctx, err, "Failed to save payment batch", slog.String("batch_id", batch.BatchID))
		return nil, err
	}

	s.LogInfo(ctx, "Payment batch created", slog.String("batch_id", batch.BatchID))
	return &batch, nil
}

func (s *paymentBatchService) GetBatch(ctx context.Context, batchID string) (*domain.PaymentBatch, error) {
	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get payment batch", slog.String("batch_id", batchID))
		}
		return nil, err
	}
	return batch, nil
}

func (s *paymentBatchService) ListBatches(ctx context.Context, params dto.ListBatchesParams) (*dto.ListBatchesResponse, error) {
	var status *domain.BatchStatus
	if params.Status != nil && *params.Status != "" {
		st := domain.BatchStatus(*params.Status)
		if !st.IsValid() {
			return nil, apperrors.NewValidationError("unknown batch status %q", *params.Status)
		}
		status = &st
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	batches, next, err := s.batchRepo.ListBatches(ctx, status, limit, params.NextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list payment batches")
		return nil, err
	}
	resp := dto.ToListBatchesResponse(batches, next)
	return &resp, nil
}

type batchOutcome struct {
	statementID string
	from        domain.StatementStatus
	to          domain.StatementStatus
	action      domain.AuditAction
}

// lockStatements locks the batch's statements in ascending id order.
func (s *paymentBatchService) lockStatements(ctx context.Context, ids []string) ([]domain.Statement, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	locked, err := s.statementRepo.LockStatementsForUpdate(ctx, sorted)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Statement, 0, len(sorted))
	for _, id := range sorted {
		stmt, ok := locked[id]
		if !ok {
			return nil, apperrors.NewNotFoundError("statement " + id)
		}
		out = append(out, stmt)
	}
	return out, nil
}

func (s *paymentBatchService) PostBatch(ctx context.Context, batchID string, actorID string) (*domain.PaymentBatch, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}

	var batch *domain.PaymentBatch
	var outcomes []batchOutcome
	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.batchRepo.FindBatchByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(domain.BatchPosted) {
			return apperrors.NewStateGuardError("payment batch", batchID, string(batch.Status), "post", "")
		}

		statementIDs, err := s.paymentRepo.ListActiveStatementIDsForBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if len(statementIDs) == 0 {
			return apperrors.NewStateGuardError("payment batch", batchID, string(batch.Status), "post", "batch has no payments")
		}

		statements, err := s.lockStatements(ctx, statementIDs)
		if err != nil {
			return err
		}

		now := s.Now()
		details := stringPtr("posted with payment batch " + batchID)
		for i := range statements {
			stmt := &statements[i]
			if stmt.Status == domain.StatementPaid {
				return apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "post batch", "statement is already PAID")
			}
			others, err := s.batchRepo.FindBatchesReferencingStatement(ctx, stmt.StatementID)
			if err != nil {
				return err
			}
			for _, other := range others {
				if other.BatchID == batchID {
					continue
				}
				if other.Status.HoldsStatements() {
					return apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "post batch",
						fmt.Sprintf("statement belongs to %s payment batch %s", other.Status, other.BatchID))
				}
				// Its payments count toward paidAmount but would not be disbursed by this batch.
				return apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "post batch",
					fmt.Sprintf("statement has active payments in %s payment batch %s", other.Status, other.BatchID))
			}

			outcome := batchOutcome{statementID: stmt.StatementID, from: stmt.Status, to: stmt.Status, action: domain.AuditBatchPosted}
			if stmt.Status == domain.StatementDraft {
				stmt.Status = domain.StatementPosted
				outcome.to = domain.StatementPosted
				outcome.action = domain.AuditPost
			}
			if err := s.store.apply(ctx, stmt, statementChange{
				from:    outcome.from,
				action:  outcome.action,
				actorID: actorID,
				at:      now,
				details: details,
			}); err != nil {
				return err
			}
			outcomes = append(outcomes, outcome)
		}

		if err := s.batchRepo.SaveBatchStatements(ctx, batchID, statementIDs); err != nil {
			return err
		}
		batch.Status = domain.BatchPosted
		batch.StatementIDs = statementIDs
		batch.PostedAt = &now
		batch.PostedBy = stringPtr(actorID)
		batch.Touch(actorID, now)
		return s.batchRepo.UpdateBatch(ctx, *batch)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to post payment batch", slog.String("batch_id", batchID))
		return nil, err
	}

	s.recordOutcomes(domain.BatchPosted, outcomes)
	s.LogInfo(ctx, "Payment batch posted",
		slog.String("batch_id", batchID),
		slog.Int("statements", len(batch.StatementIDs)))
	return batch, nil
}

func (s *paymentBatchService) CompleteBatch(ctx context.Context, batchID string, actorID string) (*domain.PaymentBatch, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}

	var batch *domain.PaymentBatch
	var outcomes []batchOutcome
	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.batchRepo.FindBatchByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if !batch.Status.CanTransitionTo(domain.BatchCompleted) {
			return apperrors.NewStateGuardError("payment batch", batchID, string(batch.Status), "complete", "")
		}

		statements, err := s.lockStatements(ctx, batch.StatementIDs)
		if err != nil {
			return err
		}

		now := s.Now()
		details := stringPtr("payment batch " + batchID + " completed")
		for i := range statements {
			stmt := &statements[i]
			outcome := batchOutcome{statementID: stmt.StatementID, from: stmt.Status, to: stmt.Status, action: domain.AuditBatchCompleted}
			// Partially paid statements keep their status; the shortfall carries forward as net due.
			if stmt.Status.CanTransitionTo(domain.StatementPaid) && stmt.IsFullyPaid() {
				stmt.Status = domain.StatementPaid
				outcome.to = domain.StatementPaid
				outcome.action = domain.AuditPay
			}
			if err := s.store.apply(ctx, stmt, statementChange{
				from:    outcome.from,
				action:  outcome.action,
				actorID: actorID,
				at:      now,
				details: details,
			}); err != nil {
				return err
			}
			outcomes = append(outcomes, outcome)
		}

		batch.Status = domain.BatchCompleted
		batch.CompletedAt = &now
		batch.CompletedBy = stringPtr(actorID)
		batch.Touch(actorID, now)
		return s.batchRepo.UpdateBatch(ctx, *batch)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to complete payment batch", slog.String("batch_id", batchID))
		return nil, err
	}

	s.recordOutcomes(domain.BatchCompleted, outcomes)
	paid := 0
	for _, o := range outcomes {
		if o.to == domain.StatementPaid {
			paid++
		}
	}
	s.LogInfo(ctx, "Payment batch completed",
		slog.String("batch_id", batchID),
		slog.Int("statements", len(outcomes)),
		slog.Int("statements_paid", paid))
	return batch, nil
}

func (s *paymentBatchService) recordOutcomes(to domain.BatchStatus, outcomes []batchOutcome) {
	s.Metrics.BatchTransition(string(to))
	for _, o := range outcomes {
		s.Metrics.StatementTransition(string(o.action), string(o.from), string(o.to))
	}
}

func (s *paymentBatchService) ExportBatchRemittance(ctx context.Context, batchID string) ([]byte, error) {
	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	rows, err := s.paymentRepo.ListPaymentsForBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	statements := make(map[string]domain.Statement, len(rows))
	for _, row := range rows {
		if _, seen := statements[row.StatementID]; seen {
			continue
		}
		stmt, err := s.statementRepo.FindStatementByID(ctx, row.StatementID)
		if err != nil {
			return nil, err
		}
		statements[row.StatementID] = *stmt
	}

	data, err := export.BuildRemittanceXLSX(*batch, rows, statements)
	if err != nil {
		s.LogError(ctx, err, "Failed to render remittance", slog.String("batch_id", batchID))
		return nil, err
	}
	s.LogInfo(ctx, "Remittance exported", slog.String("batch_id", batchID), slog.Int("payments", len(rows)))
	return data, nil
}
