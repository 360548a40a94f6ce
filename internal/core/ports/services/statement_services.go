package services

import (
	"context"
	"time"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/SscSPs/fleet_settlement_app/internal/dto"
	"github.com/shopspring/decimal"
)

// CarryForwardResolverSvc finds the opening balance of a new statement.
type CarryForwardResolverSvc interface {
	// Resolve returns the net due of the person's latest signed-off statement ending
	// before periodFrom, or zero when there is none.
	Resolve(ctx context.Context, personID string, periodFrom time.Time) (decimal.Decimal, error)
}

// StatementReaderSvc defines read operations for statements
type StatementReaderSvc interface {
	// GenerateDraft returns the persisted statement for the exact period, or a fresh unsaved draft.
	GenerateDraft(ctx context.Context, req dto.GenerateStatementRequest) (*domain.Statement, error)

	GetStatement(ctx context.Context, statementID string) (*domain.Statement, error)

	ListStatementsForPerson(ctx context.Context, personID string, params dto.ListPersonStatementsParams) (*dto.ListStatementsResponse, error)

	ListStatementsForPeriod(ctx context.Context, params dto.ListPeriodStatementsParams) (*dto.ListStatementsResponse, error)
}

// StatementWriterSvc defines operations that create or edit statement totals
type StatementWriterSvc interface {
	// FinalizeStatement persists the period's statement as DRAFT, or LOCKED when requested.
	FinalizeStatement(ctx context.Context, req dto.FinalizeStatementRequest, actorID string) (*domain.Statement, error)

	// UpdateStatementTotals edits the totals of a DRAFT statement.
	UpdateStatementTotals(ctx context.Context, statementID string, req dto.UpdateStatementTotalsRequest, actorID string) (*domain.Statement, error)

	// RecalculateStatement recomputes a DRAFT statement from the carry-forward and aggregator.
	RecalculateStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error)
}

// StatementLifecycleSvc defines explicit status transitions
type StatementLifecycleSvc interface {
	PostStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error)
	LockStatement(ctx context.Context, statementID string, actorID string) (*domain.Statement, error)

	// RecallStatement moves a statement one step back. The reason is mandatory.
	RecallStatement(ctx context.Context, statementID string, reason string, actorID string) (*domain.Statement, error)
}

// StatementSvcFacade combines all statement-related service interfaces
type StatementSvcFacade interface {
	StatementReaderSvc
	StatementWriterSvc
	StatementLifecycleSvc
}

// AuditTrailSvc appends and reads statement history.
type AuditTrailSvc interface {
	// Record appends one entry. It must run inside the mutating transaction.
	Record(ctx context.Context, entry domain.StatementAuditLog) error

	// History returns a fresh slice of the statement's entries, most recent first.
	History(ctx context.Context, statementID string) ([]domain.StatementAuditLog, error)
}
