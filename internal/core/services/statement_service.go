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
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultPageSize = 20

type statementService struct {
	BaseService
	statementRepo portsrepo.StatementRepositoryFacade
	paymentRepo   portsrepo.PaymentReader
	batchRepo     portsrepo.PaymentBatchReader
	txManager     portsrepo.TransactionManager
	resolver      portssvc.CarryForwardResolverSvc
	aggregator    portssvc.StatementTotalsAggregator
	store         statementStore
}

// StatementServiceOption is a functional option for configuring the statement service
type StatementServiceOption func(*statementService)

// WithStatementMetrics adds transition counters.
func WithStatementMetrics(m *observability.Metrics) StatementServiceOption {
	return func(s *statementService) {
		s.Metrics = m
	}
}

// WithStatementClock overrides the time source.
func WithStatementClock(clock func() time.Time) StatementServiceOption {
	return func(s *statementService) {
		s.Clock = clock
	}
}

// NewStatementService creates the statement generator and state machine.
func NewStatementService(
	repos portsrepo.RepositoryProvider,
	resolver portssvc.CarryForwardResolverSvc,
	aggregator portssvc.StatementTotalsAggregator,
	audit portssvc.AuditTrailSvc,
	options ...StatementServiceOption,
) portssvc.StatementSvcFacade {
	svc := &statementService{
		statementRepo: repos.StatementRepo,
		paymentRepo:   repos.PaymentRepo,
		batchRepo:     repos.PaymentBatchRepo,
		txManager:     repos.TxManager,
		resolver:      resolver,
		aggregator:    aggregator,
		store:         statementStore{repo: repos.StatementRepo, audit: audit},
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.StatementSvcFacade = (*statementService)(nil)

type draftRequest struct {
	personID   string
	personKind domain.PersonKind
	periodFrom time.Time
	periodTo   time.Time
}

func parseDraftRequest(req dto.GenerateStatementRequest) (draftRequest, error) {
	d := draftRequest{
		personID:   strings.TrimSpace(req.PersonID),
		personKind: domain.PersonKind(req.PersonKind),
		periodFrom: domain.DateOf(req.PeriodFrom.Time),
		periodTo:   domain.DateOf(req.PeriodTo.Time),
	}
	if d.personID == "" {
		return d, apperrors.NewValidationError("personID is required")
	}
	if !d.personKind.IsValid() {
		return d, apperrors.NewValidationError("personKind must be DRIVER or OWNER, got %q", req.PersonKind)
	}
	if req.PeriodFrom.IsZero() || req.PeriodTo.IsZero() {
		return d, apperrors.NewValidationError("periodFrom and periodTo are required")
	}
	if d.periodFrom.After(d.periodTo) {
		return d, apperrors.NewValidationError("periodFrom %s is after periodTo %s",
			d.periodFrom.Format(dto.DateLayout), d.periodTo.Format(dto.DateLayout))
	}
	return d, nil
}

func newDraft(d draftRequest, previousBalance, revenues, expenses decimal.Decimal) *domain.Statement {
	stmt := &domain.Statement{
		PersonID:        d.personID,
		PersonKind:      d.personKind,
		PeriodFrom:      d.periodFrom,
		PeriodTo:        d.periodTo,
		PreviousBalance: previousBalance,
		TotalRevenues:   revenues,
		TotalExpenses:   expenses,
		PaidAmount:      decimal.Zero,
		Status:          domain.StatementDraft,
	}
	stmt.Recompute()
	return stmt
}

func (s *statementService) GenerateDraft(ctx context.Context, req dto.GenerateStatementRequest) (*domain.Statement, error) {
	d, err := parseDraftRequest(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.statementRepo.FindStatementByPeriod(ctx, d.personID, d.periodFrom, d.periodTo)
	if err == nil {
		s.LogDebug(ctx, "Returning finalized statement for period", slog.String("statement_id", existing.StatementID))
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to look up statement for period", slog.String("person_id", d.personID))
		return nil, err
	}

	var previousBalance, revenues, expenses decimal.Decimal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		previousBalance, err = s.resolver.Resolve(gctx, d.personID, d.periodFrom)
		return err
	})
	g.Go(func() error {
		var err error
		revenues, expenses, err = s.aggregator.ComputeStatementTotals(gctx, d.personID, d.periodFrom, d.periodTo)
		if err != nil {
			return fmt.Errorf("compute statement totals: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.LogError(ctx, err, "Failed to generate draft statement", slog.String("person_id", d.personID))
		return nil, err
	}

	return newDraft(d, previousBalance, revenues, expenses), nil
}

func (s *statementService) FinalizeStatement(ctx context.Context, req dto.FinalizeStatementRequest, actorID string) (*domain.Statement, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}
	d, err := parseDraftRequest(req.GenerateStatementRequest)
	if err != nil {
		return nil, err
	}

	var stmt *domain.Statement
	err = s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.statementRepo.FindStatementByPeriod(ctx, d.personID, d.periodFrom, d.periodTo); err == nil {
			return fmt.Errorf("%w: statement for person %s period %s..%s already finalized", apperrors.ErrDuplicate,
				d.personID, d.periodFrom.Format(dto.DateLayout), d.periodTo.Format(dto.DateLayout))
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		overlapping, err := s.statementRepo.FindOverlappingStatements(ctx, d.personID, d.periodFrom, d.periodTo)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return apperrors.NewValidationError("period overlaps statement %s (%s..%s)", overlapping[0].StatementID,
				overlapping[0].PeriodFrom.Format(dto.DateLayout), overlapping[0].PeriodTo.Format(dto.DateLayout))
		}

		// Sequential on purpose: both calls share the transaction's connection.
		previousBalance, err := s.resolver.Resolve(ctx, d.personID, d.periodFrom)
		if err != nil {
			return err
		}
		revenues, expenses, err := s.aggregator.ComputeStatementTotals(ctx, d.personID, d.periodFrom, d.periodTo)
		if err != nil {
			return fmt.Errorf("compute statement totals: %w", err)
		}

		now := s.Now()
		stmt = newDraft(d, previousBalance, revenues, expenses)
		stmt.StatementID = uuid.NewString()
		stmt.FinalizedAt = &now
		stmt.Version = 1
		stmt.AuditFields = domain.NewAuditFields(actorID, now)
		if req.Lock {
			stmt.Status = domain.StatementLocked
		}
		if err := stmt.CheckConsistency(); err != nil {
			return err
		}
		if err := s.statementRepo.SaveStatement(ctx, *stmt); err != nil {
			return err
		}
		if err := s.store.record(ctx, stmt, statementChange{
			from:    domain.StatementDraft,
			action:  domain.AuditFinalize,
			actorID: actorID,
			at:      now,
		}); err != nil {
			return err
		}
		return s.store.verify(ctx, stmt.StatementID)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to finalize statement",
			slog.String("person_id", d.personID),
			slog.String("period_from", d.periodFrom.Format(dto.DateLayout)))
		return nil, err
	}

	s.Metrics.StatementTransition(string(domain.AuditFinalize), string(domain.StatementDraft), string(stmt.Status))
	s.LogInfo(ctx, "Statement finalized",
		slog.String("statement_id", stmt.StatementID),
		slog.String("status", string(stmt.Status)))
	return stmt, nil
}

func (s *statementService) GetStatement(ctx context.Context, statementID string) (*domain.Statement, error) {
	stmt, err := s.statementRepo.FindStatementByID(ctx, statementID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to get statement", slog.String("statement_id", statementID))
		}
		return nil, err
	}
	return stmt, nil
}

func (s *statementService) ListStatementsForPerson(ctx context.Context, personID string, params dto.ListPersonStatementsParams) (*dto.ListStatementsResponse, error) {
	filter := domain.StatementFilter{PersonID: &personID}
	if err := applyStatusFilter(&filter, params.Status); err != nil {
		return nil, err
	}
	return s.listStatements(ctx, filter, params.Limit, params.NextToken)
}

func (s *statementService) ListStatementsForPeriod(ctx context.Context, params dto.ListPeriodStatementsParams) (*dto.ListStatementsResponse, error) {
	from, to := domain.DateOf(params.PeriodFrom), domain.DateOf(params.PeriodTo)
	if from.After(to) {
		return nil, apperrors.NewValidationError("periodFrom is after periodTo")
	}
	filter := domain.StatementFilter{PeriodFrom: &from, PeriodTo: &to}
	if err := applyStatusFilter(&filter, params.Status); err != nil {
		return nil, err
	}
	return s.listStatements(ctx, filter, params.Limit, params.NextToken)
}

func applyStatusFilter(filter *domain.StatementFilter, status *string) error {
	if status == nil || *status == "" {
		return nil
	}
	st := domain.StatementStatus(*status)
	if !st.IsValid() {
		return apperrors.NewValidationError("unknown statement status %q", *status)
	}
	filter.Status = &st
	return nil
}

func (s *statementService) listStatements(ctx context.Context, filter domain.StatementFilter, limit int, nextToken *string) (*dto.ListStatementsResponse, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	statements, next, err := s.statementRepo.ListStatements(ctx, filter, limit, nextToken)
	if err != nil {
		s.LogError(ctx, err, "Failed to list statements")
		return nil, err
	}
	resp := dto.ToListStatementsResponse(statements, next)
	return &resp, nil
}

// editDraft runs fn on a locked DRAFT statement and persists the result.
func (s *statementService) editDraft(ctx context.Context, statementID, actorID, operation string, action domain.AuditAction, fn func(ctx context.Context, stmt *domain.Statement) (*string, error)) (*domain.Statement, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}

	var stmt *domain.Statement
	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		stmt, err = s.statementRepo.FindStatementByIDForUpdate(ctx, statementID)
		if err != nil {
			return err
		}
		if stmt.Status != domain.StatementDraft {
			return apperrors.NewStateGuardError("statement", statementID, string(stmt.Status), operation, "totals are editable only in DRAFT")
		}
		details, err := fn(ctx, stmt)
		if err != nil {
			return err
		}
		return s.store.apply(ctx, stmt, statementChange{
			from:    domain.StatementDraft,
			action:  action,
			actorID: actorID,
			at:      s.Now(),
			details: details,
		})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to edit statement",
			slog.String("statement_id", statementID),
			slog.String("operation", operation))
		return nil, err
	}

	s.Metrics.StatementTransition(string(action), string(domain.StatementDraft), string(domain.StatementDraft))
	s.LogInfo(ctx, "Statement totals changed",
		slog.String("statement_id", statementID),
		slog.String("net_due", stmt.NetDue.String()))
	return stmt, nil
}

func (s *statementService) UpdateStatementTotals(ctx context.Context, statementID string, req dto.UpdateStatementTotalsRequest, actorID string) (*domain.Statement, error) {
	if req.PreviousBalance == nil && req.TotalRevenues == nil && req.TotalExpenses == nil {
		return nil, apperrors.NewValidationError("at least one of previousBalance, totalRevenues, totalExpenses is required")
	}
	for _, v := range []*decimal.Decimal{req.PreviousBalance, req.TotalRevenues, req.TotalExpenses} {
		if v != nil && !v.Equal(v.Round(2)) {
			return nil, apperrors.NewValidationError("amount %s has more than two decimal places", v.String())
		}
	}

	return s.editDraft(ctx, statementID, actorID, "update totals", domain.AuditUpdateTotals, func(_ context.Context, stmt *domain.Statement) (*string, error) {
		var changes []string
		if req.PreviousBalance != nil {
			changes = append(changes, fmt.Sprintf("previousBalance %s -> %s", stmt.PreviousBalance.StringFixed(2), req.PreviousBalance.StringFixed(2)))
			stmt.PreviousBalance = *req.PreviousBalance
		}
		if req.TotalRevenues != nil {
			changes = append(changes, fmt.Sprintf("totalRevenues %s -> %s", stmt.TotalRevenues.StringFixed(2), req.TotalRevenues.StringFixed(2)))
			stmt.TotalRevenues = *req.TotalRevenues
		}
		if req.TotalExpenses != nil {
			changes = append(changes, fmt.Sprintf("totalExpenses %s -> %s", stmt.TotalExpenses.StringFixed(2), req.TotalExpenses.StringFixed(2)))
			stmt.TotalExpenses = *req.TotalExpenses
		}
		return stringPtr(strings.Join(changes, "; ")), nil
	})
}

func (s *statementService) RecalculateStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error) {
	return s.editDraft(ctx, statementID, actorID, "recalculate", domain.AuditRecalculate, func(ctx context.Context, stmt *domain.Statement) (*string, error) {
		previousBalance, err := s.resolver.Resolve(ctx, stmt.PersonID, stmt.PeriodFrom)
		if err != nil {
			return nil, err
		}
		revenues, expenses, err := s.aggregator.ComputeStatementTotals(ctx, stmt.PersonID, stmt.PeriodFrom, stmt.PeriodTo)
		if err != nil {
			return nil, fmt.Errorf("compute statement totals: %w", err)
		}
		stmt.PreviousBalance = previousBalance
		stmt.TotalRevenues = revenues
		stmt.TotalExpenses = expenses
		return nil, nil
	})
}

// transition locks the statement, lets guard validate the move and persists it.
func (s *statementService) transition(ctx context.Context, statementID, actorID string, action domain.AuditAction, details *string, guard func(ctx context.Context, stmt *domain.Statement) (domain.StatementStatus, error)) (*domain.Statement, error) {
	if err := s.RequireActor(actorID); err != nil {
		return nil, err
	}

	var stmt *domain.Statement
	var from domain.StatementStatus
	err := s.txManager.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		stmt, err = s.statementRepo.FindStatementByIDForUpdate(ctx, statementID)
		if err != nil {
			return err
		}
		from = stmt.Status
		to, err := guard(ctx, stmt)
		if err != nil {
			return err
		}
		stmt.Status = to
		return s.store.apply(ctx, stmt, statementChange{
			from:    from,
			action:  action,
			actorID: actorID,
			at:      s.Now(),
			details: details,
		})
	})
	if err != nil {
		s.LogError(ctx, err, "Statement transition rejected",
			slog.String("statement_id", statementID),
			slog.String("action", string(action)))
		return nil, err
	}

	s.Metrics.StatementTransition(string(action), string(from), string(stmt.Status))
	s.LogInfo(ctx, "Statement transitioned",
		slog.String("statement_id", statementID),
		slog.String("from_status", string(from)),
		slog.String("to_status", string(stmt.Status)))
	return stmt, nil
}

func (s *statementService) PostStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error) {
	return s.transition(ctx, statementID, actorID, domain.AuditPost, nil, func(_ context.Context, stmt *domain.Statement) (domain.StatementStatus, error) {
		if stmt.Status != domain.StatementDraft {
			return "", apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "post", "")
		}
		return domain.StatementPosted, nil
	})
}

func (s *statementService) LockStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error) {
	return s.transition(ctx, statementID, actorID, domain.AuditLock, nil, func(_ context.Context, stmt *domain.Statement) (domain.StatementStatus, error) {
		if stmt.Status != domain.StatementPosted {
			return "", apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "lock", "only POSTED statements can be locked")
		}
		return domain.StatementLocked, nil
	})
}

func (s *statementService) RecallStatement(ctx context.Context, statementID string, reason string, actorID string) (*domain.Statement, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("recall reason is required")
	}

	return s.transition(ctx, statementID, actorID, domain.AuditRecall, &reason, func(ctx context.Context, stmt *domain.Statement) (domain.StatementStatus, error) {
		target, ok := stmt.Status.RecallTarget()
		if !ok {
			return "", apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "recall", "only LOCKED or POSTED statements can be recalled")
		}

		batches, err := s.batchRepo.FindBatchesReferencingStatement(ctx, stmt.StatementID)
		if err != nil {
			return "", err
		}
		for _, b := range batches {
			if b.Status == domain.BatchCompleted {
				return "", apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "recall",
					fmt.Sprintf("payment batch %s is COMPLETED", b.BatchID))
			}
		}

		if target == domain.StatementDraft {
			active, err := s.paymentRepo.CountActivePaymentsForStatement(ctx, stmt.StatementID)
			if err != nil {
				return "", err
			}
			if active > 0 {
				return "", apperrors.NewStateGuardError("statement", stmt.StatementID, string(stmt.Status), "recall",
					fmt.Sprintf("%d active payments reference it", active))
			}
		}
		return target, nil
	})
}
