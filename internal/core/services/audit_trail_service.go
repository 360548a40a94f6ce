package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/apperrors"
	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/fleet_settlement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fleet_settlement_app/internal/core/ports/services"
	"github.com/google/uuid"
)

type auditTrailService struct {
	BaseService
	auditRepo     portsrepo.AuditLogRepositoryFacade
	statementRepo portsrepo.StatementReader
}

// AuditTrailOption configures the audit trail service.
type AuditTrailOption func(*auditTrailService)

// WithAuditClock overrides the timestamp source.
func WithAuditClock(clock func() time.Time) AuditTrailOption {
	return func(s *auditTrailService) {
		s.Clock = clock
	}
}

// NewAuditTrailService creates the append-only statement history service.
func NewAuditTrailService(auditRepo portsrepo.AuditLogRepositoryFacade, statementRepo portsrepo.StatementReader, options ...AuditTrailOption) portssvc.AuditTrailSvc {
	svc := &auditTrailService{
		auditRepo:     auditRepo,
		statementRepo: statementRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AuditTrailSvc = (*auditTrailService)(nil)

func (s *auditTrailService) Record(ctx context.Context, entry domain.StatementAuditLog) error {
	if entry.StatementID == "" || entry.Action == "" {
		return apperrors.NewValidationError("audit entry requires a statement and an action")
	}
	if err := s.RequireActor(entry.PerformedBy); err != nil {
		return err
	}
	if entry.Action == domain.AuditRecall && (entry.Details == nil || strings.TrimSpace(*entry.Details) == "") {
		return apperrors.NewValidationError("recall audit entry requires a reason")
	}

	entry.AuditLogID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.Now()
	}

	if err := s.auditRepo.AppendAuditLog(ctx, entry); err != nil {
		s.LogError(ctx, err, "Failed to append audit entry",
			slog.String("statement_id", entry.StatementID),
			slog.String("action", string(entry.Action)))
		return err
	}

	s.LogDebug(ctx, "Audit entry recorded",
		slog.String("statement_id", entry.StatementID),
		slog.String("action", string(entry.Action)),
		slog.String("from_status", string(entry.FromStatus)),
		slog.String("to_status", string(entry.ToStatus)))
	return nil
}

func (s *auditTrailService) History(ctx context.Context, statementID string) ([]domain.StatementAuditLog, error) {
	if _, err := s.statementRepo.FindStatementByID(ctx, statementID); err != nil {
		return nil, err
	}

	entries, err := s.auditRepo.ListAuditLogsForStatement(ctx, statementID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list audit entries", slog.String("statement_id", statementID))
		return nil, err
	}

	history := make([]domain.StatementAuditLog, len(entries))
	copy(history, entries)
	return history, nil
}
